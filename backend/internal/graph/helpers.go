package graph

import (
	"time"

	"pathfinder/backend/internal/state"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getTimeFromRecord(record *neo4j.Record, key string) time.Time {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return time.Time{}
	}
	if t, ok := val.(time.Time); ok {
		return t
	}
	return time.Time{}
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return []string{}
}

func getMapFromRecord(record *neo4j.Record, key string) map[string]interface{} {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return map[string]interface{}{}
	}
	if m, ok := val.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getFloat64FromMap(m map[string]interface{}, key string, defaultValue float64) float64 {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return defaultValue
}

// nodeFromProps rebuilds an IR node from stored properties.
func nodeFromProps(label state.Label, props map[string]interface{}) state.Node {
	return state.Node{
		Label:       label,
		Name:        getStringFromMap(props, "name", ""),
		Description: getStringFromMap(props, "description", ""),
		Source:      state.Source(getStringFromMap(props, "source", "")),
		Confidence:  getFloat64FromMap(props, "confidence", 0),
		Relevance:   getStringFromMap(props, "relevance", ""),
		Category:    state.Facet(getStringFromMap(props, "category", "")),
	}
}

// relationshipFromProps rebuilds an IR relationship from stored properties.
func relationshipFromProps(relType state.RelType, from, to string, props map[string]interface{}) state.Relationship {
	return state.Relationship{
		From:        from,
		To:          to,
		Type:        relType,
		Strength:    getFloat64FromMap(props, "strength", 0),
		Description: getStringFromMap(props, "description", ""),
	}
}

// graphLabel picks the first known label of a stored node.
func graphLabel(labels []string) (state.Label, bool) {
	for _, l := range labels {
		if state.Label(l).Valid() {
			return state.Label(l), true
		}
	}
	return "", false
}
