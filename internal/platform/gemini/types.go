package gemini

import (
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"google.golang.org/genai"
)

// promptData represents the data passed to the prompt template
type promptData struct {
	Title      string
	RawText    string
	Difficulty domain.Difficulty
	Languages  []string
}

// responseSchema mirrors generation.Draft so the model answers in a shape
// that decodes directly into it.
func responseSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}

	question := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"prompt":  str,
			"options": {Type: genai.TypeArray, Items: str},
			"answer":  str,
		},
		Required: []string{"prompt", "options", "answer"},
	}
	quiz := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":      {Type: genai.TypeString, Enum: []string{"MCQ", "TRUE_FALSE"}},
			"questions": {Type: genai.TypeArray, Items: question},
		},
		Required: []string{"questions"},
	}
	content := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"language": str,
			"title":    str,
			"body":     str,
		},
		Required: []string{"language", "title", "body"},
	}
	lesson := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"contents": {Type: genai.TypeArray, Items: content},
			"quiz":     quiz,
		},
		Required: []string{"contents"},
	}
	module := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       str,
			"description": str,
			"lessons":     {Type: genai.TypeArray, Items: lesson},
		},
		Required: []string{"title", "lessons"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"modules": {Type: genai.TypeArray, Items: module},
		},
		Required: []string{"modules"},
	}
}
