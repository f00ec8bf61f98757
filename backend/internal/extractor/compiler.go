// Package extractor compiles survey and conversation data into the graph IR.
//
// The survey path is normalize → synthesize → infer and is pure: the same
// survey always yields the same IR. The conversation path delegates to a
// generative service and degrades to an empty IR whenever that service
// misbehaves.
package extractor

import (
	"context"

	"pathfinder/backend/internal/state"
	"pathfinder/backend/internal/survey"
	"pathfinder/backend/internal/tables"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"go.uber.org/zap"
)

// Extractor turns a raw survey into an IR.
type Extractor interface {
	Extract(ctx context.Context, raw map[string]any) (*state.Graph, error)
}

// Compiler sequences the normalizer, a Synthesizer and an Inferencer.
type Compiler struct {
	normalizer  *survey.Normalizer
	synthesizer Synthesizer
	inferencer  Inferencer
	logger      *zap.Logger
}

// NewCompiler creates the rule-based compiler over the given tables.
func NewCompiler(t *tables.Tables, opts Options) *Compiler {
	if t == nil {
		t = tables.Default()
	}
	return NewCompilerWith(survey.NewNormalizer(t), NewRuleSynthesizer(t, opts), NewRuleInferencer(t))
}

// NewCompilerWith creates a compiler from explicit strategies.
func NewCompilerWith(n *survey.Normalizer, s Synthesizer, i Inferencer) *Compiler {
	return &Compiler{
		normalizer:  n,
		synthesizer: s,
		inferencer:  i,
		logger:      logger.Named("compiler"),
	}
}

// Normalize exposes the normalizer so callers can build a profile from the
// same buckets the compiler sees.
func (c *Compiler) Normalize(raw map[string]any) survey.Normalized {
	return c.normalizer.Normalize(raw)
}

// Compile normalizes and compiles a raw survey.
func (c *Compiler) Compile(raw map[string]any) *state.Graph {
	return c.CompileNormalized(c.normalizer.Normalize(raw))
}

// CompileNormalized compiles already-normalized buckets. Self-loops, dangling
// edges and duplicate (from, to, type) triples never reach the output.
func (c *Compiler) CompileNormalized(n survey.Normalized) *state.Graph {
	d := c.synthesizer.Synthesize(n)
	for _, r := range c.inferencer.Infer(d) {
		d.AddRelationship(r)
	}
	g := d.Graph()

	c.logger.Debug("Compiled survey",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("relationships", len(g.Relationships)),
	)
	return g
}

// Extract implements Extractor.
func (c *Compiler) Extract(ctx context.Context, raw map[string]any) (*state.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewContextCancelled("compile survey", err)
	}
	return c.Compile(raw), nil
}
