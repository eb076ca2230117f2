package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	appcfg "github.com/bookforge/core/internal/config"
)

func compatClient(endpoint string) *Client {
	return NewClient(appcfg.AIConfig{
		Provider: appcfg.AIProvider{
			Type:     "openai-compatible",
			APIKey:   "test-key",
			Endpoint: endpoint,
		},
		MaxOutputTokens: 4096,
	})
}

func TestGenerateCompatible(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		fmt.Fprint(w, `{
			"choices": [{"message": {"content": "the generated text"}}],
			"usage": {
				"prompt_tokens": 1000,
				"completion_tokens": 200,
				"completion_tokens_details": {"reasoning_tokens": 50}
			}
		}`)
	}))
	defer srv.Close()

	resp, err := compatClient(srv.URL).Generate(context.Background(), Request{
		Model:        "gemini-3-pro-preview",
		Instructions: "be brief",
		Prompt:       "write something",
	})
	require.NoError(t, err)
	require.Equal(t, "the generated text", resp.Text)
	require.Equal(t, Usage{PromptTokens: 1000, CompletionTokens: 200, ThoughtTokens: 50}, resp.Usage)

	require.Equal(t, "gemini-3-pro-preview", gotBody["model"])
	require.Equal(t, float64(4096), gotBody["max_tokens"])
	messages := gotBody["messages"].([]interface{})
	require.Len(t, messages, 2)
	require.Equal(t, "system", messages[0].(map[string]interface{})["role"])
}

func TestGenerateCompatibleSendsSchema(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		fmt.Fprint(w, `{"choices": [{"message": {"content": "{}"}}]}`)
	}))
	defer srv.Close()

	_, err := compatClient(srv.URL).Generate(context.Background(), Request{
		Model:      "m",
		Prompt:     "p",
		Schema:     map[string]interface{}{"type": "object"},
		SchemaName: "book_plan",
	})
	require.NoError(t, err)

	rf := gotBody["response_format"].(map[string]interface{})
	require.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]interface{})
	require.Equal(t, "book_plan", js["name"])
}

func TestGenerateCompatibleSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited"}}`)
	}))
	defer srv.Close()

	_, err := compatClient(srv.URL).Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestGenerateCompatibleRejectsEmptyPrompt(t *testing.T) {
	_, err := compatClient("http://unused").Generate(context.Background(), Request{Model: "m", Prompt: "  "})
	require.Error(t, err)
}

func TestStreamCompatible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\": [{\"delta\": {\"content\": \"Hello\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\": [{\"delta\": {\"content\": \", world\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\": [], \"usage\": {\"prompt_tokens\": 10, \"completion_tokens\": 4}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	events, err := compatClient(srv.URL).Stream(context.Background(), Request{Model: "m", Prompt: "p"})
	require.NoError(t, err)

	var deltas []string
	var final *Response
	for ev := range events {
		require.NoError(t, ev.Err)
		if ev.Completed != nil {
			final = ev.Completed
			continue
		}
		deltas = append(deltas, ev.Delta)
	}

	require.Equal(t, []string{"Hello", ", world"}, deltas)
	require.NotNil(t, final)
	require.Equal(t, "Hello, world", final.Text)
	require.Equal(t, int64(10), final.Usage.PromptTokens)
	require.Equal(t, int64(4), final.Usage.CompletionTokens)
}

func TestSynthesizeReturnsAudioBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/speech", r.URL.Path)
		var body map[string]string
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Equal(t, "Charon", body["voice"])
		require.Equal(t, "wav", body["response_format"])
		w.Write([]byte("RIFF-audio-bytes"))
	}))
	defer srv.Close()

	audio, err := compatClient(srv.URL).Synthesize(context.Background(), SpeechRequest{
		Model:  "tts-model",
		Voice:  "Charon",
		Format: "wav",
		Input:  "Read this aloud.",
	})
	require.NoError(t, err)
	require.Equal(t, []byte("RIFF-audio-bytes"), audio)
}

func TestSynthesizeRejectsEmptyInput(t *testing.T) {
	_, err := compatClient("http://unused").Synthesize(context.Background(), SpeechRequest{Model: "m", Input: " "})
	require.Error(t, err)
}

func TestProviderTypeNormalization(t *testing.T) {
	require.True(t, isOpenAICompatibleProviderType(""))
	require.True(t, isOpenAICompatibleProviderType("openai-compatible"))
	require.True(t, isOpenAICompatibleProviderType("OpenAI_Compatible"))
	require.False(t, isOpenAICompatibleProviderType("anthropic"))
	require.False(t, isOpenAICompatibleProviderType("openai"))
}
