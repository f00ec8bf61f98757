package graph

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"pathfinder/backend/internal/metrics"
	"pathfinder/backend/internal/state"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"go.uber.org/zap"
)

// MergeReport summarises one merge. Per-item failures are counted here
// rather than returned.
type MergeReport struct {
	UserID        string  `json:"userId"`
	NodesUpserted int     `json:"nodesUpserted"`
	EdgesUpserted int     `json:"edgesUpserted"`
	NodeFailures  int     `json:"nodeFailures"`
	EdgeFailures  int     `json:"edgeFailures"`
	Errors        []error `json:"-"`
}

// OK reports whether every item was written.
func (r *MergeReport) OK() bool {
	return r != nil && r.NodeFailures == 0 && r.EdgeFailures == 0
}

// Merger writes IR graphs into a Store idempotently.
type Merger struct {
	store   Store
	metrics *metrics.Collector
	now     func() time.Time
	logger  *zap.Logger
}

// NewMerger creates a merger over store. m may be nil.
func NewMerger(store Store, m *metrics.Collector) *Merger {
	return &Merger{
		store:   store,
		metrics: m,
		now:     time.Now,
		logger:  logger.Named("merge"),
	}
}

// WithClock replaces the timestamp source.
func (m *Merger) WithClock(now func() time.Time) *Merger {
	m.now = now
	return m
}

// Merge writes g into userID's scope. Nodes go first so relationships can
// find their endpoints. Only a failure to establish the scope, or a
// cancelled context, is returned as an error; every other failure is
// counted in the report and the batch continues.
func (m *Merger) Merge(ctx context.Context, userID string, g *state.Graph) (*MergeReport, error) {
	report := &MergeReport{UserID: userID}
	if strings.TrimSpace(userID) == "" {
		return report, errors.NewInvalidGraphItem("user id", userID)
	}

	if err := m.store.EnsureUserScope(ctx, userID); err != nil {
		m.logger.Error("Failed to ensure user scope", zap.String("user_id", userID), zap.Error(err))
		return report, err
	}
	if g.IsEmpty() {
		return report, nil
	}

	for _, n := range g.Nodes {
		if err := ctx.Err(); err != nil {
			return report, errors.NewContextCancelled("merge nodes", err)
		}
		err := m.mergeNode(ctx, userID, n)
		if err != nil {
			m.fail(report, "node", err)
			m.logger.Warn("Failed to merge node",
				zap.String("user_id", userID),
				zap.String("label", string(n.Label)),
				zap.String("name", n.Name),
				zap.Error(err),
			)
			continue
		}
		report.NodesUpserted++
		m.metrics.NodeUpserted(string(n.Label))
	}

	for _, r := range g.Relationships {
		if err := ctx.Err(); err != nil {
			return report, errors.NewContextCancelled("merge relationships", err)
		}
		err := m.mergeRelationship(ctx, userID, r)
		if err != nil {
			m.fail(report, "edge", err)
			m.logger.Warn("Failed to merge relationship",
				zap.String("user_id", userID),
				zap.String("from", r.From),
				zap.String("to", r.To),
				zap.String("type", string(r.Type)),
				zap.Error(err),
			)
			continue
		}
		report.EdgesUpserted++
		m.metrics.EdgeUpserted(string(r.Type))
	}

	m.logger.Info("Merged graph",
		zap.String("user_id", userID),
		zap.Int("nodes", report.NodesUpserted),
		zap.Int("relationships", report.EdgesUpserted),
		zap.Int("node_failures", report.NodeFailures),
		zap.Int("edge_failures", report.EdgeFailures),
	)
	return report, nil
}

func (m *Merger) mergeNode(ctx context.Context, userID string, n state.Node) error {
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return errors.NewInvalidGraphItem("node name", n.Name)
	}
	if !n.Label.Valid() {
		return errors.NewInvalidGraphItem("label", string(n.Label))
	}

	now := m.now().UTC().Format(time.RFC3339)
	createProps := map[string]any{
		"name":        name,
		"description": n.Description,
		"source":      string(n.Source),
		"confidence":  n.Confidence,
		"relevance":   n.Relevance,
		"category":    string(n.Category),
		"userId":      userID,
		"created":     now,
	}
	// source and confidence stay as first written
	updateProps := map[string]any{"updated": now}
	if n.Description != "" {
		updateProps["description"] = n.Description
	}

	return m.store.UpsertNode(ctx, n.Label, name, userID, createProps, updateProps)
}

func (m *Merger) mergeRelationship(ctx context.Context, userID string, r state.Relationship) error {
	if r.From == r.To {
		return errors.NewInvalidGraphItem("self-loop", r.From)
	}
	if !r.Type.Valid() {
		return errors.NewInvalidGraphItem("relationship type", string(r.Type))
	}

	now := m.now().UTC().Format(time.RFC3339)
	createProps := map[string]any{
		"strength":    r.Strength,
		"description": r.Description,
		"created":     now,
	}
	updateProps := map[string]any{"updated": now}

	return m.store.UpsertEdge(ctx, r.Type, r.From, r.To, userID, createProps, updateProps)
}

func (m *Merger) fail(report *MergeReport, kind string, err error) {
	if kind == "node" {
		report.NodeFailures++
	} else {
		report.EdgeFailures++
	}
	report.Errors = append(report.Errors, err)
	m.metrics.MergeFailed(kind)
}

// Err joins the per-item errors of the report, or returns nil.
func (r *MergeReport) Err() error {
	if r == nil {
		return nil
	}
	return stderrors.Join(r.Errors...)
}
