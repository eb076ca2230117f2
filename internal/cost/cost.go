// Package cost converts backend usage counters into money under tiered
// pricing and keeps a running total across a pipeline run.
package cost

import (
	"fmt"
	"sync"

	appcfg "github.com/bookforge/core/internal/config"
	"github.com/bookforge/core/internal/llm"
)

// Tier names the pricing bracket selected by prompt size.
type Tier string

const (
	TierStandard    Tier = "standard"
	TierLongContext Tier = "long-context"
)

// Report is the cost estimate for a single backend call.
type Report struct {
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
	Tier         Tier
	PromptTokens int64
	OutputTokens int64 // completion + thought tokens
}

// Estimate prices one call's usage. Prompts above the long-context threshold
// rate both input and output at the higher table; thought tokens are billed
// as output.
func Estimate(pricing appcfg.PricingConfig, usage llm.Usage) Report {
	rates := pricing.Standard
	tier := TierStandard
	if usage.PromptTokens > pricing.LongContextThreshold {
		rates = pricing.LongContext
		tier = TierLongContext
	}

	outputTokens := usage.CompletionTokens + usage.ThoughtTokens
	inputCost := float64(usage.PromptTokens) / 1_000_000 * rates.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000 * rates.OutputPerMillion

	return Report{
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
		Tier:         tier,
		PromptTokens: usage.PromptTokens,
		OutputTokens: outputTokens,
	}
}

// EstimateSpeech prices one text-to-speech call by input character count.
// Batch submissions apply the configured discount multiplier.
func EstimateSpeech(pricing appcfg.PricingConfig, characters int, batch bool) float64 {
	c := float64(characters) / 1_000_000 * pricing.TTS.PerMillionChars
	if batch && pricing.TTS.BatchDiscount > 0 {
		c *= pricing.TTS.BatchDiscount
	}
	return c
}

// Tracker accumulates total cost across calls. Safe for concurrent use; the
// parallel audio stage updates it from multiple workers.
type Tracker struct {
	mu    sync.Mutex
	total float64
}

// NewTracker returns a zeroed tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Add increments the running total and returns the new value.
func (t *Tracker) Add(cost float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += cost
	return t.total
}

// Total returns the running total so far.
func (t *Tracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// FormatUSD renders a cost the way progress lines print it.
func FormatUSD(v float64) string {
	return fmt.Sprintf("$%.6f", v)
}
