package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookforge/core/internal/llm"
)

type scriptedBackend struct {
	lastReq llm.Request
	text    string
	usage   llm.Usage
}

func (s *scriptedBackend) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.lastReq = req
	return &llm.Response{Text: s.text, Usage: s.usage}, nil
}

func (s *scriptedBackend) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	resp, _ := s.Generate(ctx, req)
	events := make(chan llm.StreamEvent, 2)
	events <- llm.StreamEvent{Delta: resp.Text}
	events <- llm.StreamEvent{Completed: resp}
	close(events)
	return events, nil
}

const planJSON = `{
  "book_language": "en",
  "name": "Bread at Home",
  "slug": "bread-at-home",
  "target_reader": "home bakers",
  "back_cover_description": "Flour, water, salt, patience.",
  "parts": [
    {
      "name": "Basics",
      "introduction": "Start here.",
      "chapters": [
        {
          "name": "Ingredients",
          "sections": [
            {"name": "Flour", "bullet_points": ["protein", "milling"]},
            {"name": "Water", "bullet_points": ["hydration"]}
          ]
        }
      ]
    }
  ]
}`

func TestGenerateParsesStructuredPlan(t *testing.T) {
	backend := &scriptedBackend{text: planJSON, usage: llm.Usage{PromptTokens: 1200, CompletionTokens: 900}}

	p, usage, err := Generate(context.Background(), backend, "planner-model", "conversation text", ModeSectioned)
	require.NoError(t, err)
	require.Equal(t, "bread-at-home", p.Slug)
	require.Equal(t, ModeSectioned, p.Mode())
	require.Equal(t, int64(1200), usage.PromptTokens)

	require.Equal(t, "planner-model", backend.lastReq.Model)
	require.Equal(t, "book_plan", backend.lastReq.SchemaName)
	require.NotNil(t, backend.lastReq.Schema)
}

func TestGenerateStripsCodeFences(t *testing.T) {
	backend := &scriptedBackend{text: "```json\n" + planJSON + "\n```"}

	p, _, err := Generate(context.Background(), backend, "m", "prompt", ModeSectioned)
	require.NoError(t, err)
	require.Equal(t, "Bread at Home", p.Name)
}

func TestGenerateRejectsInvalidPlan(t *testing.T) {
	backend := &scriptedBackend{text: `{"book_language": "xx", "name": "N", "slug": "n", "parts": []}`}

	_, _, err := Generate(context.Background(), backend, "m", "prompt", ModeSectioned)
	require.Error(t, err)
}

func TestSchemaShapeFollowsMode(t *testing.T) {
	sectioned := Schema(ModeSectioned)
	props := sectioned["properties"].(map[string]interface{})
	parts := props["parts"].(map[string]interface{})
	partItems := parts["items"].(map[string]interface{})
	partProps := partItems["properties"].(map[string]interface{})
	chapters := partProps["chapters"].(map[string]interface{})
	chapterItems := chapters["items"].(map[string]interface{})
	chapterProps := chapterItems["properties"].(map[string]interface{})
	require.Contains(t, chapterProps, "sections")
	require.NotContains(t, chapterProps, "bullet_points")

	flat := Schema(ModeFlat)
	props = flat["properties"].(map[string]interface{})
	parts = props["parts"].(map[string]interface{})
	partItems = parts["items"].(map[string]interface{})
	partProps = partItems["properties"].(map[string]interface{})
	chapters = partProps["chapters"].(map[string]interface{})
	chapterItems = chapters["items"].(map[string]interface{})
	chapterProps = chapterItems["properties"].(map[string]interface{})
	require.Contains(t, chapterProps, "bullet_points")
	require.NotContains(t, chapterProps, "sections")
}

func TestStreamOutlineEmitsCompletion(t *testing.T) {
	backend := &scriptedBackend{text: "outline text"}

	events, err := StreamOutline(context.Background(), backend, "m", "beekeeping", "short book")
	require.NoError(t, err)

	var deltas string
	var final *llm.Response
	for ev := range events {
		require.NoError(t, ev.Err)
		if ev.Completed != nil {
			final = ev.Completed
			continue
		}
		deltas += ev.Delta
	}
	require.NotNil(t, final)
	require.Equal(t, "outline text", final.Text)
	require.Equal(t, "outline text", deltas)
	require.Contains(t, backend.lastReq.Prompt, "beekeeping")
}
