// Package tts narrates generated book content into per-file audio, either
// synchronously through a worker pool or as a batch-job manifest.
package tts

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appcfg "github.com/bookforge/core/internal/config"
	"github.com/bookforge/core/internal/cost"
	"github.com/bookforge/core/internal/llm"
)

// Pipeline converts every markdown file under a book folder into one audio
// file under the audio root, mirroring the folder layout.
type Pipeline struct {
	synth   llm.Synthesizer
	cfg     appcfg.TTSConfig
	pricing appcfg.PricingConfig
	log     *zap.Logger
	tracker *cost.Tracker
}

// Summary reports what one pipeline run did.
type Summary struct {
	Converted int
	Skipped   int
	Failed    int
}

// New builds an audio pipeline. Logger and tracker may be nil.
func New(synth llm.Synthesizer, cfg appcfg.TTSConfig, pricing appcfg.PricingConfig, log *zap.Logger, tracker *cost.Tracker) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if tracker == nil {
		tracker = cost.NewTracker()
	}
	return &Pipeline{synth: synth, cfg: cfg, pricing: pricing, log: log, tracker: tracker}
}

// Tracker exposes the pipeline's running cost total.
func (p *Pipeline) Tracker() *cost.Tracker { return p.tracker }

// listMarkdown returns all *.md paths under root, relative to root, in
// deterministic order.
func listMarkdown(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// outputPath maps a markdown file to its audio counterpart.
func (p *Pipeline) outputPath(audioBookDir, rel string) string {
	return filepath.Join(audioBookDir, strings.TrimSuffix(rel, ".md")+"."+p.cfg.Format)
}

// Run narrates bookDir into audioBookDir. Files whose audio already exists
// are skipped; per-file synthesis failures are logged and counted but do not
// stop the run. Cancelling the context abandons queued work.
func (p *Pipeline) Run(ctx context.Context, bookDir, audioBookDir string) (Summary, error) {
	files, err := listMarkdown(bookDir)
	if err != nil {
		return Summary{}, err
	}

	var mu sync.Mutex
	var sum Summary

	g, ctx := errgroup.WithContext(ctx)
	threads := p.cfg.Threads
	if threads < 1 {
		threads = 1
	}
	g.SetLimit(threads)

	for _, rel := range files {
		rel := rel
		out := p.outputPath(audioBookDir, rel)
		if _, err := os.Stat(out); err == nil {
			p.log.Info("audio exists, skipping", zap.String("file", rel))
			mu.Lock()
			sum.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.convert(ctx, filepath.Join(bookDir, rel), out, rel); err != nil {
				p.log.Error("audio conversion failed", zap.String("file", rel), zap.Error(err))
				mu.Lock()
				sum.Failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			sum.Converted++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return sum, err
	}
	return sum, nil
}

func (p *Pipeline) convert(ctx context.Context, src, dst, rel string) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		p.log.Info("empty file, skipping", zap.String("file", rel))
		return nil
	}

	audio, err := p.synth.Synthesize(ctx, llm.SpeechRequest{
		Model:  p.cfg.Model,
		Voice:  p.cfg.Voice,
		Format: p.cfg.Format,
		Input:  text,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, audio, 0o644); err != nil {
		return err
	}

	c := cost.EstimateSpeech(p.pricing, utf8.RuneCountInString(text), false)
	total := p.tracker.Add(c)
	p.log.Info("audio generated",
		zap.String("file", rel),
		zap.Int("characters", utf8.RuneCountInString(text)),
		zap.String("cost", cost.FormatUSD(c)),
		zap.String("total_so_far", cost.FormatUSD(total)))
	return nil
}
