package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pathfinder/backend/internal/metrics"
	"pathfinder/backend/pkg/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

// fakeServer answers chat completions with the statuses in order, then 200.
func fakeServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if n <= len(statuses) && statuses[n-1] != http.StatusOK {
			w.WriteHeader(statuses[n-1])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "boom", "type": "server_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(completionBody("hello"))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testOptions(m *metrics.Collector) Options {
	return Options{
		MaxAttempts:        3,
		BreakerMaxFailures: 2,
		BreakerTimeout:     time.Minute,
		Backoff:            func(int) time.Duration { return time.Millisecond },
		Metrics:            m,
	}
}

func TestLLMAdapter_Generate(t *testing.T) {
	srv, calls := fakeServer(t)
	collector := metrics.NewCollector("test")
	a := NewLLMAdapter(srv.URL, "", "test-model", testOptions(collector))

	out, err := a.Generate(context.Background(), "You are a counselor.", "Hi", 0.7)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.LLMRequests.WithLabelValues("ok")))
}

func TestLLMAdapter_RetriesServerErrors(t *testing.T) {
	srv, calls := fakeServer(t, http.StatusInternalServerError, http.StatusTooManyRequests)
	a := NewLLMAdapter(srv.URL, "", "test-model", testOptions(nil))

	out, err := a.Complete(context.Background(), "extract", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestLLMAdapter_ClientErrorIsNotRetried(t *testing.T) {
	srv, calls := fakeServer(t, http.StatusBadRequest)
	a := NewLLMAdapter(srv.URL, "", "test-model", testOptions(nil))

	_, err := a.Generate(context.Background(), "sys", "user", 0.2)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.False(t, errors.IsRetryable(err))

	// Rejected requests do not count toward opening the breaker
	_, err = a.Generate(context.Background(), "sys", "user", 0.2)
	assert.NoError(t, err)
}

func TestLLMAdapter_BreakerOpens(t *testing.T) {
	srv, calls := fakeServer(t,
		http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway,
		http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway,
	)
	collector := metrics.NewCollector("test")
	a := NewLLMAdapter(srv.URL, "", "test-model", testOptions(collector))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := a.Generate(ctx, "sys", "user", 0.2)
		require.Error(t, err)
		assert.True(t, errors.IsRetryable(err))
	}
	assert.Equal(t, int32(6), atomic.LoadInt32(calls))

	_, err := a.Generate(ctx, "sys", "user", 0.2)
	assert.ErrorIs(t, err, errors.ErrLLMUnavailable)
	assert.Equal(t, int32(6), atomic.LoadInt32(calls), "open breaker must not reach the server")
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.LLMRequests.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.LLMRequests.WithLabelValues("error")))
}

func TestLLMAdapter_CancelledContext(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	opts := testOptions(nil)
	opts.Backoff = func(int) time.Duration { return time.Hour }
	a := NewLLMAdapter(srv.URL, "", "test-model", opts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.Generate(ctx, "sys", "user", 0.2)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeContext))
}

func TestLLMAdapter_SetModel(t *testing.T) {
	a := NewLLMAdapter("http://localhost:4000", "", "first", Options{})
	a.SetModel("")
	assert.Equal(t, "first", a.GetModel())
	a.SetModel("second")
	assert.Equal(t, "second", a.GetModel())
}
