// Package llm adapts hosted generative-text backends behind one narrow
// request/response surface. Usage counters are normalized here; no
// provider-specific usage shape escapes the package.
package llm

import "context"

// Usage is the normalized token accounting for one backend call. Thought
// tokens are hidden reasoning tokens billed as output.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	ThoughtTokens    int64
}

// Request carries one generation call. Schema, when set, asks the backend for
// structured JSON output matching the given JSON schema.
type Request struct {
	Model        string
	Instructions string
	Prompt       string
	Schema       map[string]interface{}
	SchemaName   string
}

// Response is the full, accumulated result of one generation call.
type Response struct {
	Text  string
	Usage Usage
}

// StreamEvent is the discriminated union of streamed generation events:
// either a text delta or the terminal completion carrying the final text and
// usage. Exactly one Completed event ends a healthy stream.
type StreamEvent struct {
	Delta     string
	Completed *Response
	Err       error
}

// Generator issues generation requests against a backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// Stream emits TextDelta events followed by one Completed (or Err)
	// event, then closes the channel.
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

// SpeechRequest carries one text-to-speech call.
type SpeechRequest struct {
	Model  string
	Voice  string
	Format string // wav | mp3 | opus
	Input  string
}

// Synthesizer converts text into whole-file audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}
