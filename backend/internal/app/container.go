// Package app builds the object graph shared by the server and the batch
// ingester from a loaded configuration.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"pathfinder/backend/internal/adapter"
	"pathfinder/backend/internal/agent"
	"pathfinder/backend/internal/extractor"
	"pathfinder/backend/internal/graph"
	"pathfinder/backend/internal/lock"
	"pathfinder/backend/internal/metrics"
	"pathfinder/backend/internal/pipeline"
	"pathfinder/backend/internal/tables"
	"pathfinder/backend/pkg/config"
	"pathfinder/backend/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Container holds all application dependencies.
type Container struct {
	Config    *config.Config
	Metrics   *metrics.Collector
	Tables    *tables.Tables
	Store     graph.Store
	History   graph.ConversationLog
	LLM       *adapter.LLMAdapter // nil when no generative service is configured
	Locker    lock.Locker
	Pipeline  *pipeline.Service
	Counselor *agent.Counselor

	driver            neo4j.DriverWithContext
	shutdownFunctions []func(context.Context) error
	logger            *zap.Logger
}

// NewContainer wires every component in dependency order.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Metrics: metrics.NewCollector("pathfinder"),
		logger:  logger.Named("app"),
	}

	// 1. Lookup tables
	t, err := tables.Load(cfg.TablesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load lookup tables: %w", err)
	}
	c.Tables = t

	// 2. Store
	if err := c.initializeStore(ctx); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}

	// 3. Locks
	if err := c.initializeLocker(ctx); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}

	// 4. Generative service
	if cfg.LLMEnabled() {
		c.LLM = adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModelID, adapter.Options{
			BreakerMaxFailures: cfg.LLMBreakerMaxFailures,
			BreakerTimeout:     cfg.LLMBreakerTimeout,
			Metrics:            c.Metrics,
		})
	}

	// 5. Extraction and services
	compiler := extractor.NewCompiler(t, extractor.Options{Scaffold: cfg.Scaffold})
	var generative *extractor.GenerativeExtractor
	if c.LLM != nil {
		generative = extractor.NewGenerativeExtractor(c.LLM, compiler)
	}

	var survey extractor.Extractor = compiler
	surveyName := config.ExtractorRules
	if cfg.Extractor == config.ExtractorLLM {
		if generative == nil {
			c.Shutdown(ctx)
			return nil, fmt.Errorf("EXTRACTOR=llm requires LLM_BASE_URL")
		}
		survey = generative
		surveyName = config.ExtractorLLM
	}
	c.Pipeline = pipeline.NewService(survey, surveyName, c.Store, c.Locker, c.Metrics)

	if c.LLM != nil {
		c.Counselor = agent.NewCounselor(c.Pipeline, c.History, c.LLM, generative)
	}

	c.logger.Info("Container initialized",
		zap.String("store", cfg.GraphStore),
		zap.String("extractor", surveyName),
		zap.String("locks", cfg.LockBackend),
		zap.Bool("counselor", c.Counselor != nil),
		zap.Bool("scaffold", cfg.Scaffold),
	)
	return c, nil
}

func (c *Container) initializeStore(ctx context.Context) error {
	if c.Config.GraphStore == config.StoreMemory {
		store := graph.NewMemoryStore()
		c.Store = store
		c.History = store
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	driver, err := graph.Connect(connectCtx, c.Config.Neo4jURI, c.Config.Neo4jUser, c.Config.Neo4jPassword)
	if err != nil {
		return err
	}
	c.driver = driver

	repo := graph.NewRepository(driver, c.Config.Neo4jDatabase)
	repo.EnsureSchema(ctx)
	c.Store = repo
	c.History = repo
	c.addShutdownFunction(func(context.Context) error { return repo.Close() })
	return nil
}

func (c *Container) initializeLocker(ctx context.Context) error {
	if c.Config.LockBackend != config.LockRedis {
		c.Locker = lock.NewMemoryLocker()
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := lock.DialRedis(pingCtx, c.Config.RedisAddr)
	if err != nil {
		return err
	}
	c.Locker = lock.NewRedisLocker(rdb, c.Config.LockTTL)
	c.addShutdownFunction(func(context.Context) error { return rdb.Close() })
	return nil
}

func (c *Container) addShutdownFunction(fn func(context.Context) error) {
	c.shutdownFunctions = append(c.shutdownFunctions, fn)
}

// Shutdown waits for background counselor work, then releases connections
// in reverse order of acquisition.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Counselor != nil {
		done := make(chan struct{})
		go func() {
			c.Counselor.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			c.logger.Warn("Gave up waiting for background extraction", zap.Error(ctx.Err()))
		}
	}

	var errs []error
	for i := len(c.shutdownFunctions) - 1; i >= 0; i-- {
		if err := c.shutdownFunctions[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.shutdownFunctions = nil
	return stderrors.Join(errs...)
}

// Health reports the reachability of external dependencies.
func (c *Container) Health(ctx context.Context) map[string]string {
	status := map[string]string{"store": c.Config.GraphStore}
	if c.driver != nil {
		if err := c.driver.VerifyConnectivity(ctx); err != nil {
			status["neo4j"] = "unreachable"
		} else {
			status["neo4j"] = "ok"
		}
	}
	if c.LLM != nil {
		status["model"] = c.LLM.GetModel()
	}
	return status
}
