package tts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bookforge/core/internal/cost"
)

// batchRequest is one JSONL line in an openai-compatible batch submission.
type batchRequest struct {
	CustomID string        `json:"custom_id"`
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Body     batchBodyJSON `json:"body"`
}

type batchBodyJSON struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// BatchManifest is the result of preparing a batch submission: the JSONL
// file on disk, the custom-id to source-file mapping needed to place results,
// and the discounted cost estimate.
type BatchManifest struct {
	Path          string
	Requests      int
	Mapping       map[string]string // custom_id -> relative markdown path
	EstimatedCost float64
}

// WriteBatchManifest walks bookDir and writes one batch request per markdown
// file that has no audio yet. The mapping sidecar is written next to the
// manifest so results can be matched back after the batch completes.
func (p *Pipeline) WriteBatchManifest(bookDir, audioBookDir, manifestPath string) (*BatchManifest, error) {
	files, err := listMarkdown(bookDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(manifestPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	m := &BatchManifest{Path: manifestPath, Mapping: make(map[string]string)}
	characters := 0

	for _, rel := range files {
		if _, err := os.Stat(p.outputPath(audioBookDir, rel)); err == nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(bookDir, rel))
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			continue
		}

		id := uuid.NewString()
		if err := enc.Encode(batchRequest{
			CustomID: id,
			Method:   "POST",
			URL:      "/v1/audio/speech",
			Body: batchBodyJSON{
				Model:          p.cfg.Model,
				Input:          text,
				Voice:          p.cfg.Voice,
				ResponseFormat: p.cfg.Format,
			},
		}); err != nil {
			return nil, err
		}
		m.Mapping[id] = rel
		m.Requests++
		characters += utf8.RuneCountInString(text)
	}

	m.EstimatedCost = cost.EstimateSpeech(p.pricing, characters, true)

	mapping, err := json.MarshalIndent(m.Mapping, "", "  ")
	if err != nil {
		return nil, err
	}
	sidecar := strings.TrimSuffix(manifestPath, filepath.Ext(manifestPath)) + "_mapping.json"
	if err := os.WriteFile(sidecar, mapping, 0o644); err != nil {
		return nil, err
	}
	return m, nil
}
