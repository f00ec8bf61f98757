// Package pipeline runs survey ingestion end to end: extract an IR graph,
// then merge it into the user's scope while holding that user's lock.
package pipeline

import (
	"context"
	"strings"
	"time"

	"pathfinder/backend/internal/extractor"
	"pathfinder/backend/internal/graph"
	"pathfinder/backend/internal/lock"
	"pathfinder/backend/internal/metrics"
	"pathfinder/backend/internal/state"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"go.uber.org/zap"
)

// IngestResult is what one survey ingestion produced.
type IngestResult struct {
	UserID   string             `json:"userId"`
	Graph    *state.Graph       `json:"graph"`
	Report   *graph.MergeReport `json:"report"`
	Duration time.Duration      `json:"-"`
}

// Service wires an extractor to a store.
type Service struct {
	extractor     extractor.Extractor
	extractorName string
	store         graph.Store
	merger        *graph.Merger
	locker        lock.Locker
	metrics       *metrics.Collector
	logger        *zap.Logger
}

// NewService creates a pipeline. name labels extraction metrics; locker and
// m may be nil.
func NewService(ex extractor.Extractor, name string, store graph.Store, locker lock.Locker, m *metrics.Collector) *Service {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	return &Service{
		extractor:     ex,
		extractorName: name,
		store:         store,
		merger:        graph.NewMerger(store, m),
		locker:        locker,
		metrics:       m,
		logger:        logger.Named("pipeline"),
	}
}

// Merger exposes the merge engine so tests can pin its clock.
func (s *Service) Merger() *graph.Merger {
	return s.merger
}

// Preview extracts a graph without writing it.
func (s *Service) Preview(ctx context.Context, raw map[string]any) (*state.Graph, error) {
	start := time.Now()
	g, err := s.extractor.Extract(ctx, raw)
	if err != nil {
		return nil, err
	}
	nodes, _ := g.Count()
	s.metrics.ObserveExtraction(s.extractorName, time.Since(start), nodes)
	return g, nil
}

// IngestSurvey extracts raw and merges the result into userID's graph.
// Per-item merge failures are in the report; the error is reserved for an
// unusable user id, a lost context, or an unreachable store.
func (s *Service) IngestSurvey(ctx context.Context, userID string, raw map[string]any) (*IngestResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.NewInvalidGraphItem("user id", userID)
	}

	start := time.Now()
	g, err := s.Preview(ctx, raw)
	if err != nil {
		return nil, err
	}

	report, err := s.MergeGraph(ctx, userID, g)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		UserID:   userID,
		Graph:    g,
		Report:   report,
		Duration: time.Since(start),
	}
	s.logger.Info("Survey ingested",
		zap.String("user_id", userID),
		zap.String("extractor", s.extractorName),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("relationships", len(g.Relationships)),
		zap.Bool("clean", report.OK()),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// MergeGraph merges an already extracted graph under the user's lock.
func (s *Service) MergeGraph(ctx context.Context, userID string, g *state.Graph) (*graph.MergeReport, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.merger.Merge(ctx, userID, g)
}

// UserGraph reads back everything stored for userID.
func (s *Service) UserGraph(ctx context.Context, userID string) (*state.Graph, error) {
	return s.store.ReadUserGraph(ctx, userID)
}
