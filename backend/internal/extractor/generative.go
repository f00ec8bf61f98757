package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"pathfinder/backend/internal/state"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Completer is the generative text service.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

const (
	conversationTemperature = 0.2
	surveyTemperature       = 0.1

	defaultConfidence = 0.7
	defaultStrength   = 0.5
)

// codeBlockRe strips markdown code fences from model output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// wireProps is the nested "properties" object some models insist on.
type wireProps struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Confidence  *float64 `json:"confidence"`
	Relevance   string   `json:"relevance"`
	Strength    *float64 `json:"strength"`
}

type wireNode struct {
	Label       string     `json:"label" validate:"required,oneof=Topic Skill Goal Challenge Resource Strategy"`
	Name        string     `json:"name" validate:"required,max=200"`
	Description string     `json:"description"`
	Confidence  *float64   `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	Relevance   string     `json:"relevance"`
	Properties  *wireProps `json:"properties,omitempty"`
}

type wireRelationship struct {
	From        string     `json:"from" validate:"required,max=200"`
	To          string     `json:"to" validate:"required,max=200,nefield=From"`
	Type        string     `json:"type" validate:"required,oneof=RELATES_TO REQUIRES HELPS_WITH PART_OF LEADS_TO"`
	Strength    *float64   `json:"strength" validate:"omitempty,gte=0,lte=1"`
	Description string     `json:"description"`
	Properties  *wireProps `json:"properties,omitempty"`
}

type wireGraph struct {
	Nodes         []wireNode         `json:"nodes"`
	Relationships []wireRelationship `json:"relationships"`
}

// flatten folds nested properties into the flat fields.
func (n *wireNode) flatten() {
	if p := n.Properties; p != nil {
		if n.Name == "" {
			n.Name = p.Name
		}
		if n.Description == "" {
			n.Description = p.Description
		}
		if n.Confidence == nil {
			n.Confidence = p.Confidence
		}
		if n.Relevance == "" {
			n.Relevance = p.Relevance
		}
	}
	n.Label = strings.TrimSpace(n.Label)
	n.Name = strings.TrimSpace(n.Name)
}

func (r *wireRelationship) flatten() {
	if p := r.Properties; p != nil {
		if r.Strength == nil {
			r.Strength = p.Strength
		}
		if r.Description == "" {
			r.Description = p.Description
		}
	}
	r.From = strings.TrimSpace(r.From)
	r.To = strings.TrimSpace(r.To)
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
}

var labelFacets = map[state.Label]state.Facet{
	state.LabelSkill:    state.FacetStrengths,
	state.LabelStrategy: state.FacetLearningStyle,
	state.LabelTopic:    state.FacetPassions,
	state.LabelGoal:     state.FacetGoals,
}

// GenerativeExtractor asks a Completer for the IR. Every failure mode
// (service down, breaker open, garbage output) yields an empty IR.
type GenerativeExtractor struct {
	llm      Completer
	fallback Extractor
	validate *validator.Validate
	logger   *zap.Logger
}

// NewGenerativeExtractor creates a generative extractor. fallback may be nil;
// when set it compiles surveys the model produced nothing for.
func NewGenerativeExtractor(llm Completer, fallback Extractor) *GenerativeExtractor {
	return &GenerativeExtractor{
		llm:      llm,
		fallback: fallback,
		validate: validator.New(),
		logger:   logger.Named("generative_extractor"),
	}
}

// ExtractFromConversation returns the entities and relationships expressed in
// one exchange. Relationships may reference nodes of the existing graph.
func (e *GenerativeExtractor) ExtractFromConversation(ctx context.Context, userTurn, assistantTurn string, existing *state.Graph, profile map[string]any) *state.Graph {
	if e.llm == nil {
		return state.NewGraph()
	}

	var current any
	if !existing.IsEmpty() {
		current = existing
	}
	prompt := conversationPrompt(userTurn, assistantTurn, current, profile)

	response, err := e.llm.Complete(ctx, prompt, conversationTemperature)
	if err != nil {
		e.logger.Warn("Conversation extraction unavailable, continuing without it", zap.Error(err))
		return state.NewGraph()
	}

	g, err := e.parse(response, state.SourceConversation, existing.NodeNames())
	if err != nil {
		e.logger.Warn("Discarding unparseable extraction response", zap.Error(err))
		return state.NewGraph()
	}

	e.logger.Debug("Extracted from conversation",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("relationships", len(g.Relationships)),
	)
	return g
}

// Extract implements Extractor by converting a raw survey through the model.
func (e *GenerativeExtractor) Extract(ctx context.Context, raw map[string]any) (*state.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewContextCancelled("generative survey extraction", err)
	}

	g := state.NewGraph()
	if e.llm != nil {
		response, err := e.llm.Complete(ctx, surveyPrompt(raw), surveyTemperature)
		switch {
		case err != nil:
			e.logger.Warn("Survey extraction via model failed", zap.Error(err))
		default:
			parsed, perr := e.parse(response, state.SourceSurvey, nil)
			if perr != nil {
				e.logger.Warn("Discarding unparseable survey extraction", zap.Error(perr))
			} else {
				g = parsed
			}
		}
	}

	if g.IsEmpty() && e.fallback != nil {
		e.logger.Info("Model produced no graph, using rule-based compiler")
		return e.fallback.Extract(ctx, raw)
	}
	return g, nil
}

// parse extracts, validates and converts the model's JSON. Invalid items are
// dropped individually; only a response with no JSON object at all is an
// error.
func (e *GenerativeExtractor) parse(response string, source state.Source, known map[string]bool) (*state.Graph, error) {
	raw, err := extractJSON(response)
	if err != nil {
		return nil, errors.NewExtractionParse(response, err)
	}

	var wire wireGraph
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, errors.NewExtractionParse(response, err)
	}

	d := NewDraft()
	for _, n := range wire.Nodes {
		n.flatten()
		if err := e.validate.Struct(n); err != nil {
			e.logger.Debug("Dropping invalid node", zap.String("name", n.Name), zap.Error(err))
			continue
		}
		node := state.Node{
			Label:       state.Label(n.Label),
			Name:        n.Name,
			Description: n.Description,
			Source:      source,
			Confidence:  defaultConfidence,
			Relevance:   n.Relevance,
		}
		if n.Confidence != nil {
			node.Confidence = *n.Confidence
		}
		if source == state.SourceSurvey {
			node.Category = labelFacets[node.Label]
		}
		d.AddNode(node)
	}

	g := state.NewGraph()
	g.Nodes = append(g.Nodes, d.Nodes...)
	for _, r := range wire.Relationships {
		r.flatten()
		if err := e.validate.Struct(r); err != nil {
			e.logger.Debug("Dropping invalid relationship", zap.String("from", r.From), zap.String("to", r.To), zap.Error(err))
			continue
		}
		if !resolvable(r.From, d, known) || !resolvable(r.To, d, known) {
			e.logger.Debug("Dropping relationship with unknown endpoint", zap.String("from", r.From), zap.String("to", r.To))
			continue
		}
		rel := state.Relationship{
			From:        r.From,
			To:          r.To,
			Type:        state.RelType(r.Type),
			Strength:    defaultStrength,
			Description: r.Description,
		}
		if r.Strength != nil {
			rel.Strength = *r.Strength
		}
		if d.AddRelationship(rel) {
			g.Relationships = append(g.Relationships, rel)
		}
	}
	return g, nil
}

func resolvable(name string, d *Draft, known map[string]bool) bool {
	return d.HasName(name) || known[name]
}

// extractJSON returns the first-{ to last-} span of a response, after
// stripping markdown fences.
func extractJSON(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON object found in response")
}
