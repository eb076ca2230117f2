package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var compatHTTPClient = &http.Client{Timeout: 10 * time.Minute}

const defaultCompatEndpoint = "https://api.openai.com/v1"

func (c *Client) compatEndpoint() string {
	endpoint := strings.TrimRight(strings.TrimSpace(c.provider.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultCompatEndpoint
	}
	return endpoint
}

type compatUsage struct {
	PromptTokens            int64 `json:"prompt_tokens"`
	CompletionTokens        int64 `json:"completion_tokens"`
	CompletionTokensDetails struct {
		ReasoningTokens int64 `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

func (u compatUsage) normalize() Usage {
	return Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		ThoughtTokens:    u.CompletionTokensDetails.ReasoningTokens,
	}
}

func (c *Client) compatRequestBody(req Request, stream bool) ([]byte, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, errors.New("model id is empty")
	}

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(req.Instructions) != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": req.Instructions,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": req.Prompt,
	})

	body := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
	if c.maxOutputTokens > 0 {
		body["max_tokens"] = c.maxOutputTokens
	}
	if req.Schema != nil {
		name := strings.TrimSpace(req.SchemaName)
		if name == "" {
			name = "response"
		}
		body["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   name,
				"schema": req.Schema,
			},
		}
	}
	if stream {
		body["stream"] = true
		body["stream_options"] = map[string]interface{}{"include_usage": true}
	}
	return json.Marshal(body)
}

func (c *Client) newCompatRequest(ctx context.Context, body []byte, stream bool) (*http.Request, error) {
	apiKey := strings.TrimSpace(c.provider.APIKey)
	if apiKey == "" {
		return nil, errors.New("AI provider api key is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.compatEndpoint()+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func (c *Client) generateCompatible(ctx context.Context, req Request) (*Response, error) {
	body, err := c.compatRequestBody(req, false)
	if err != nil {
		return nil, err
	}
	httpReq, err := c.newCompatRequest(ctx, body, false)
	if err != nil {
		return nil, err
	}

	resp, err := compatHTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("openai-compatible error: %s", strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage compatUsage `json:"usage"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return nil, fmt.Errorf("openai-compatible error: %s", result.Error.Message)
	}
	if strings.TrimSpace(result.Message) != "" && len(result.Choices) == 0 {
		return nil, fmt.Errorf("openai-compatible error: %s", result.Message)
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("empty response from AI")
	}
	text := result.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty response from AI")
	}
	return &Response{Text: text, Usage: result.Usage.normalize()}, nil
}

func (c *Client) streamCompatible(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	body, err := c.compatRequestBody(req, true)
	if err != nil {
		return nil, err
	}
	httpReq, err := c.newCompatRequest(ctx, body, true)
	if err != nil {
		return nil, err
	}

	resp, err := compatHTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openai-compatible stream error: %s", strings.TrimSpace(string(respBody)))
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		var full strings.Builder
		var usage compatUsage
		buf := make([]byte, 4096)
		remainder := ""
		done := false

		for !done {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				chunk := remainder + string(buf[:n])
				remainder = ""
				lines := splitLines(chunk)
				for i, line := range lines {
					if i == len(lines)-1 && readErr == nil {
						remainder = line
						continue
					}
					line = strings.TrimSpace(line)
					if !strings.HasPrefix(line, "data:") {
						continue
					}
					data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
					if data == "" {
						continue
					}
					if data == "[DONE]" {
						done = true
						break
					}

					var event struct {
						Choices []struct {
							Delta struct {
								Content string `json:"content"`
							} `json:"delta"`
						} `json:"choices"`
						Usage *compatUsage `json:"usage"`
					}
					if err2 := json.Unmarshal([]byte(data), &event); err2 != nil {
						continue
					}
					if event.Usage != nil {
						usage = *event.Usage
					}
					if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
						continue
					}

					token := event.Choices[0].Delta.Content
					full.WriteString(token)
					events <- StreamEvent{Delta: token}
				}
			}

			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				events <- StreamEvent{Err: readErr}
				return
			}
		}

		text := full.String()
		if strings.TrimSpace(text) == "" {
			events <- StreamEvent{Err: errors.New("empty response from AI")}
			return
		}
		events <- StreamEvent{Completed: &Response{Text: text, Usage: usage.normalize()}}
	}()
	return events, nil
}

// Synthesize converts text to speech through the compatible audio endpoint
// and returns the whole audio file, never a partial artifact.
func (c *Client) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	apiKey := strings.TrimSpace(c.provider.APIKey)
	if apiKey == "" {
		return nil, errors.New("AI provider api key is empty")
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("speech input is empty")
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":           strings.TrimSpace(req.Model),
		"input":           req.Input,
		"voice":           strings.TrimSpace(req.Voice),
		"response_format": strings.TrimSpace(req.Format),
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.compatEndpoint()+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := compatHTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("speech error: %s", strings.TrimSpace(string(respBody)))
	}
	if len(respBody) == 0 {
		return nil, errors.New("empty audio response")
	}
	return respBody, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
