package plan

import (
	"context"
	"fmt"

	"github.com/bookforge/core/internal/llm"
)

const plannerInstructions = `Your role is planning the book.

You're given a conversation between a user and an assistant about a book. Based
on the conversation, you need to create a detailed book plan with each chapter
and section. Later we will give this to the writer, who will actually write the book.

A chapter should have at least 4 sections, and each section should have at least 7-8 bullet
points.

Often the input doesn't contain all the information you need, so you must use your knowledge
to make sure the output is comprehensive.

The language of the output should match the language of the input.

Do not add numbers to chapter and section names. It will be added later automatically.

IMPORTANT: Generate a 'slug' field that is a filesystem-safe version of the book name (lowercase, hyphens instead of spaces, max 50 chars, no special characters except hyphens).`

const outlineInstructions = "You are a book planning assistant. Create detailed, comprehensive book outlines."

const refineInstructions = "You are a book planning assistant. Update the book outline based on user feedback."

func stringArraySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}
}

func chapterSchema(mode ChapterMode) map[string]interface{} {
	if mode == ModeSectioned {
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
				"sections": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":          map[string]interface{}{"type": "string"},
							"bullet_points": stringArraySchema(),
						},
						"required": []string{"name", "bullet_points"},
					},
				},
			},
			"required": []string{"name", "sections"},
		}
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":          map[string]interface{}{"type": "string"},
			"bullet_points": stringArraySchema(),
		},
		"required": []string{"name", "bullet_points"},
	}
}

// Schema returns the JSON schema describing a BookPlan of the given shape,
// used as the structured-output contract for plan generation.
func Schema(mode ChapterMode) map[string]interface{} {
	languages := make([]string, 0, len(SupportedLanguages()))
	for _, l := range SupportedLanguages() {
		languages = append(languages, string(l))
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"book_language":          map[string]interface{}{"type": "string", "enum": languages},
			"name":                   map[string]interface{}{"type": "string"},
			"slug":                   map[string]interface{}{"type": "string"},
			"target_reader":          map[string]interface{}{"type": "string"},
			"back_cover_description": map[string]interface{}{"type": "string"},
			"parts": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name":         map[string]interface{}{"type": "string"},
						"introduction": map[string]interface{}{"type": "string"},
						"chapters": map[string]interface{}{
							"type":  "array",
							"items": chapterSchema(mode),
						},
					},
					"required": []string{"name", "introduction", "chapters"},
				},
			},
		},
		"required": []string{"book_language", "name", "slug", "target_reader", "back_cover_description", "parts"},
	}
}

// Generate produces a validated structured book plan of the requested shape
// from a planning conversation. Returns the plan together with the call's
// usage counters for cost reporting.
func Generate(ctx context.Context, backend llm.Generator, model, prompt string, mode ChapterMode) (*BookPlan, llm.Usage, error) {
	resp, err := backend.Generate(ctx, llm.Request{
		Model:        model,
		Instructions: plannerInstructions,
		Prompt:       prompt,
		Schema:       Schema(mode),
		SchemaName:   "book_plan",
	})
	if err != nil {
		return nil, llm.Usage{}, err
	}

	var p BookPlan
	if err := llm.UnmarshalJSONResponse(resp.Text, &p); err != nil {
		return nil, resp.Usage, fmt.Errorf("parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, resp.Usage, err
	}
	return &p, resp.Usage, nil
}

// StreamOutline drafts a free-text book outline for a topic, streaming text
// deltas followed by one terminal completion event.
func StreamOutline(ctx context.Context, backend llm.Generator, model, topic, size string) (<-chan llm.StreamEvent, error) {
	prompt := fmt.Sprintf(`Create a detailed book plan for the following:

Topic: %s
Size: %s

Please provide a comprehensive book outline including parts (if applicable), chapters, and sections with brief descriptions.`, topic, size)

	return backend.Stream(ctx, llm.Request{
		Model:        model,
		Instructions: outlineInstructions,
		Prompt:       prompt,
	})
}

// RefineOutline updates a free-text outline based on user feedback, streaming
// like StreamOutline.
func RefineOutline(ctx context.Context, backend llm.Generator, model, current, feedback string) (<-chan llm.StreamEvent, error) {
	prompt := fmt.Sprintf(`Current plan:

%s

User request: %s

Please provide the updated plan.`, current, feedback)

	return backend.Stream(ctx, llm.Request{
		Model:        model,
		Instructions: refineInstructions,
		Prompt:       prompt,
	})
}
