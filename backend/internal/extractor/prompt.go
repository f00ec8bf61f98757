package extractor

import (
	"encoding/json"
	"fmt"
)

const irShape = `{
  "nodes": [
    {
      "label": "Topic|Skill|Goal|Challenge|Resource|Strategy",
      "name": "Name of the entity",
      "description": "Brief description of the entity",
      "confidence": 0.0-1.0,
      "relevance": "Why this is relevant to the student's learning/development"
    }
  ],
  "relationships": [
    {
      "from": "Source node name",
      "to": "Target node name",
      "type": "RELATES_TO|REQUIRES|HELPS_WITH|PART_OF|LEADS_TO",
      "strength": 0.0-1.0,
      "description": "Description of the relationship"
    }
  ]
}`

// conversationPrompt asks the model for the entities and relationships
// expressed in one exchange.
func conversationPrompt(userTurn, assistantTurn string, existing any, profile map[string]any) string {
	background := "No background data available"
	if len(profile) > 0 {
		background = indentJSON(profile)
	}
	current := "No existing graph data"
	if existing != nil {
		current = indentJSON(existing)
	}

	return fmt.Sprintf(`You are a knowledge extraction system. Your task is to analyze a conversation between a student and an AI counselor,
and extract structured information that can be represented in a knowledge graph.

USER BACKGROUND:
%s

CURRENT KNOWLEDGE GRAPH:
%s

RECENT CONVERSATION:
User: %s
Assistant: %s

INSTRUCTIONS:
1. Analyze the conversation above and identify key concepts, entities, and relationships
2. Focus on academically relevant information including:
   - Topics or subjects mentioned
   - Skills or competencies discussed
   - Goals or aspirations expressed
   - Challenges or obstacles mentioned
   - Resources or strategies suggested
   - Connections between concepts
3. Return ONLY a JSON object with the following format:

%s

Relationships may point at nodes from the current knowledge graph by name.
Only include information that was clearly expressed or strongly implied in the conversation.
If no relevant knowledge can be extracted, return {"nodes": [], "relationships": []}.`,
		background, current, userTurn, assistantTurn, irShape)
}

// surveyPrompt asks the model to convert raw survey data into the IR.
func surveyPrompt(raw map[string]any) string {
	return fmt.Sprintf(`You are a system that converts student survey data into a knowledge graph structure.
Focus on the following 4 areas: Who You Are (Strengths), How You Learn (Learning Style), What You Care About (Passions), What You Strive For (Goals).

Convert this student survey data to a knowledge graph with nodes and relationships:
%s

Respond with ONLY a JSON object with the following structure:

%s`, indentJSON(raw), irShape)
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
