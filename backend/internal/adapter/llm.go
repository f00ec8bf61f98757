package adapter

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"pathfinder/backend/internal/metrics"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Options tunes retries and the circuit breaker.
type Options struct {
	// MaxAttempts per logical request, including the first
	MaxAttempts int
	// BreakerMaxFailures consecutive failed requests open the breaker
	BreakerMaxFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing
	BreakerTimeout time.Duration
	// Backoff returns the wait before the given retry (1-based)
	Backoff func(retry int) time.Duration
	// Metrics may be nil
	Metrics *metrics.Collector
}

// DefaultOptions returns the production retry and breaker settings.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:        3,
		BreakerMaxFailures: 5,
		BreakerTimeout:     60 * time.Second,
		Backoff:            func(retry int) time.Duration { return time.Duration(retry) * time.Second },
	}
}

// LLMAdapter handles communication with an OpenAI-compatible endpoint such
// as LiteLLM.
type LLMAdapter struct {
	client  *openai.Client
	model   string
	mu      sync.RWMutex // Protects model field for concurrent access
	breaker *gobreaker.CircuitBreaker
	opts    Options
	logger  *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter
func NewLLMAdapter(baseURL, apiKey, modelID string, opts Options) *LLMAdapter {
	// For LiteLLM, we can use a dummy API key if not provided
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"

	defaults := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.BreakerMaxFailures == 0 {
		opts.BreakerMaxFailures = defaults.BreakerMaxFailures
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = defaults.BreakerTimeout
	}
	if opts.Backoff == nil {
		opts.Backoff = defaults.Backoff
	}

	a := &LLMAdapter{
		client: openai.NewClientWithConfig(config),
		model:  modelID,
		opts:   opts,
		logger: logger.Named("llm"),
	}

	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerMaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			a.logger.Warn("LLM circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Caller cancellations and rejected requests say nothing about
		// the service's health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if errors.IsErrorType(err, errors.ErrorTypeContext) {
				return true
			}
			var llmErr *errors.ErrLLMFailed
			if stderrors.As(err, &llmErr) {
				return !llmErr.Retryable
			}
			return false
		},
	})

	return a
}

// SetModel updates the model used by this adapter
func (a *LLMAdapter) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("LLM adapter model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Complete sends a single instruction prompt and returns the reply text.
func (a *LLMAdapter) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	return a.Generate(ctx, prompt, "Respond with the JSON object only. No markdown, no explanation.", temperature)
}

// Generate sends a system and user message and returns the reply text.
func (a *LLMAdapter) Generate(ctx context.Context, systemPrompt, userMsg string, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.GetModel(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Temperature: temperature,
	}

	out, err := a.breaker.Execute(func() (interface{}, error) {
		return a.createWithRetry(ctx, req)
	})
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			a.opts.Metrics.LLMRequest("rejected")
			a.logger.Warn("LLM request rejected by circuit breaker", zap.Error(err))
			return "", errors.ErrLLMUnavailable
		}
		a.opts.Metrics.LLMRequest("error")
		return "", err
	}

	a.opts.Metrics.LLMRequest("ok")
	return out.(string), nil
}

// createWithRetry performs the request with backoff between retryable failures.
func (a *LLMAdapter) createWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := a.opts.Backoff(attempt - 1)
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", errors.NewContextCancelled("llm request", ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				lastErr = errors.ErrLLMNoResponse
				continue
			}
			content := resp.Choices[0].Message.Content
			a.logger.Debug("LLM response generated",
				zap.String("model", req.Model),
				zap.Int("attempt", attempt),
				zap.Int("length", len(content)),
			)
			return content, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.NewContextCancelled("llm request", ctxErr)
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.String("model", req.Model),
		)

		if !retryable(err) {
			return "", errors.NewLLMFailed(req.Model, attempt, false, err)
		}
		lastErr = err
	}
	return "", errors.NewLLMFailed(req.Model, a.opts.MaxAttempts, true, lastErr)
}

// retryable reports whether an API error is worth another attempt: server
// errors, rate limiting and transport failures are; other client errors are
// not.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= http.StatusInternalServerError || apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= http.StatusInternalServerError || reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return true
}
