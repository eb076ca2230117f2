package llm

import (
	"context"
	"errors"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	appcfg "github.com/bookforge/core/internal/config"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const defaultMaxOutputTokens = 8192

// Client implements Generator and Synthesizer over a configured provider.
// The openai-compatible type speaks raw chat-completions (Gemini is reached
// through its OpenAI-compatible endpoint); openai and anthropic go through
// the official SDK clients.
type Client struct {
	provider        appcfg.AIProvider
	maxOutputTokens int
}

// NewClient builds a backend client from the AI configuration.
func NewClient(cfg appcfg.AIConfig) *Client {
	return &Client{
		provider:        cfg.Provider,
		maxOutputTokens: cfg.MaxOutputTokens,
	}
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "" || t == "openai-compatible" || t == "openaicompatible"
}

func (c *Client) effectiveMaxOutputTokens() int {
	if c.maxOutputTokens > 0 {
		return c.maxOutputTokens
	}
	return defaultMaxOutputTokens
}

// Generate performs one blocking generation call and returns the full text
// plus normalized usage.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is empty")
	}
	if isOpenAICompatibleProviderType(c.provider.Type) {
		return c.generateCompatible(ctx, req)
	}
	return c.generateSDK(ctx, req)
}

// Stream performs one generation call, emitting text deltas as they arrive
// and a terminal Completed event with the final text and usage. SDK-backed
// providers that report usage only on the full response fall back to a single
// delta followed by completion.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is empty")
	}
	if isOpenAICompatibleProviderType(c.provider.Type) {
		return c.streamCompatible(ctx, req)
	}

	events := make(chan StreamEvent, 2)
	go func() {
		defer close(events)
		resp, err := c.generateSDK(ctx, req)
		if err != nil {
			events <- StreamEvent{Err: err}
			return
		}
		events <- StreamEvent{Delta: resp.Text}
		events <- StreamEvent{Completed: resp}
	}()
	return events, nil
}

func (c *Client) generateSDK(ctx context.Context, req Request) (*Response, error) {
	model, err := c.buildLanguageModel(req.Model)
	if err != nil {
		return nil, err
	}

	instructions := req.Instructions
	prompt := req.Prompt
	if req.Schema != nil {
		// SDK providers have no uniform schema-constrained mode; ask for
		// bare JSON and let callers clean code fences.
		instructions = appendSchemaInstructions(instructions, req.Schema)
	}

	resp, err := jetai.GenerateText(
		ctx,
		buildPromptMessages(instructions, prompt),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(c.effectiveMaxOutputTokens()),
	)
	if err != nil {
		return nil, err
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text, Usage: usageFromJetify(resp.Usage)}, nil
}

func (c *Client) buildLanguageModel(modelID string) (jetapi.LanguageModel, error) {
	apiKey := strings.TrimSpace(c.provider.APIKey)
	if apiKey == "" {
		return nil, errors.New("AI provider api key is empty")
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, errors.New("model id is empty")
	}
	endpoint := strings.TrimSpace(c.provider.Endpoint)

	if normalizeProviderType(c.provider.Type) == "anthropic" {
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if endpoint != "" {
		opts = append(opts, openaioption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
}

func buildPromptMessages(instructions, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(instructions) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: instructions})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractTextFromResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from AI")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

func usageFromJetify(u jetapi.Usage) Usage {
	return Usage{
		PromptTokens:     int64(u.InputTokens),
		CompletionTokens: int64(u.OutputTokens),
		ThoughtTokens:    int64(u.ReasoningTokens),
	}
}
