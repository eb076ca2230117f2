// Package execute walks a book plan in document order and generates every
// content unit not already present in the content store. Generation is
// strictly sequential so the progress context handed to each prompt reflects
// everything written before it; resumption relies on the per-unit
// check-before-generate pattern only.
package execute

import (
	"context"
	"fmt"
	"strings"

	appcfg "github.com/bookforge/core/internal/config"
	"github.com/bookforge/core/internal/cost"
	"github.com/bookforge/core/internal/llm"
	"github.com/bookforge/core/internal/plan"
	"github.com/bookforge/core/internal/store"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ChapterSpec binds a chapter to its derived numbering. Built once per run by
// flattening the plan tree; never persisted. Chapter numbers run continuously
// across the whole book, part numbers restart nothing.
type ChapterSpec struct {
	Part          *plan.Part
	PartNumber    int
	Chapter       *plan.Chapter
	ChapterNumber int
	Sections      []plan.Section
}

// Options configures an Executor.
type Options struct {
	Model   string
	Pricing appcfg.PricingConfig
	Logger  *zap.Logger
	Tracker *cost.Tracker
}

// Executor orchestrates one generation run over a book plan.
type Executor struct {
	plan    *plan.BookPlan
	store   store.ContentStore
	backend llm.Generator
	model   string
	pricing appcfg.PricingConfig
	tracker *cost.Tracker
	logger  *zap.Logger
}

// New builds an executor. The plan is treated as read-only for the run.
func New(bookPlan *plan.BookPlan, contentStore store.ContentStore, backend llm.Generator, opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = cost.NewTracker()
	}
	return &Executor{
		plan:    bookPlan,
		store:   contentStore,
		backend: backend,
		model:   opts.Model,
		pricing: opts.Pricing,
		tracker: tracker,
		logger:  logger,
	}
}

// Tracker exposes the running cost accumulator.
func (e *Executor) Tracker() *cost.Tracker {
	return e.tracker
}

// Execute runs the whole plan: back cover, part intros, then every chapter in
// global document order. Already-present units are skipped, which makes a
// rerun after interruption strictly additive. Backend and storage errors
// propagate and halt the run.
func (e *Executor) Execute(ctx context.Context) error {
	if err := e.processBackCover(ctx); err != nil {
		return err
	}
	if err := e.processPartIntros(ctx); err != nil {
		return err
	}

	specs := e.buildChapterSpecs()
	e.logger.Info("total chapters to write", zap.Int("count", len(specs)))

	for i, spec := range specs {
		bookProgress := RenderProgress(specs[:i], spec, specs[i+1:], func(s ChapterSpec) string {
			return s.Chapter.Name
		})

		e.logger.Info("processing chapter",
			zap.Int("chapter", spec.ChapterNumber),
			zap.String("name", spec.Chapter.Name))
		startCost := e.tracker.Total()

		var err error
		if spec.Chapter.Mode() == plan.ModeSectioned {
			err = e.processSectionedChapter(ctx, spec, bookProgress)
		} else {
			err = e.processFlatChapter(ctx, spec, bookProgress)
		}
		if err != nil {
			return err
		}

		e.logger.Info("chapter completed",
			zap.Int("chapter", spec.ChapterNumber),
			zap.String("cost", cost.FormatUSD(e.tracker.Total()-startCost)))
	}

	e.logger.Info("execution completed", zap.String("total_cost", cost.FormatUSD(e.tracker.Total())))
	return nil
}

func (e *Executor) buildChapterSpecs() []ChapterSpec {
	var specs []ChapterSpec
	chapterIdx := 0
	for pi := range e.plan.Parts {
		part := &e.plan.Parts[pi]
		for ci := range part.Chapters {
			chapterIdx++
			specs = append(specs, ChapterSpec{
				Part:          part,
				PartNumber:    pi + 1,
				Chapter:       &part.Chapters[ci],
				ChapterNumber: chapterIdx,
				Sections:      part.Chapters[ci].Sections,
			})
		}
	}
	return specs
}

// processBackCover persists the back-cover text straight from the plan; no
// backend call is involved.
func (e *Executor) processBackCover(ctx context.Context) error {
	exists, err := e.store.Exists(ctx, store.KindBackCover, store.Position{})
	if err != nil {
		return err
	}
	if exists {
		e.logger.Info("back cover already exists, skipping")
		return nil
	}
	e.logger.Info("saving back cover")
	return e.store.Save(ctx, store.KindBackCover, store.Position{}, e.plan.BackCoverDescription)
}

// processPartIntros persists each part's introduction from the plan under a
// localized part heading; no backend call is involved.
func (e *Executor) processPartIntros(ctx context.Context) error {
	label := PartLabel(e.plan.Language)
	for i, part := range e.plan.Parts {
		partNumber := i + 1
		pos := store.Position{Part: partNumber}

		exists, err := e.store.Exists(ctx, store.KindPartIntro, pos)
		if err != nil {
			return err
		}
		if exists {
			e.logger.Info("part intro already exists, skipping", zap.Int("part", partNumber))
			continue
		}

		e.logger.Info("saving part intro", zap.Int("part", partNumber))
		content := fmt.Sprintf("# %s %d: %s\n\n%s", label, partNumber, part.Name, part.Introduction)
		if err := e.store.Save(ctx, store.KindPartIntro, pos, content); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) processSectionedChapter(ctx context.Context, spec ChapterSpec, bookProgress string) error {
	if err := e.processChapterIntro(ctx, spec); err != nil {
		return err
	}
	for i := range spec.Sections {
		if err := e.processSection(ctx, spec, i, bookProgress); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) processChapterIntro(ctx context.Context, spec ChapterSpec) error {
	pos := store.Position{Part: spec.PartNumber, Chapter: spec.ChapterNumber}
	exists, err := e.store.Exists(ctx, store.KindChapterIntro, pos)
	if err != nil {
		return err
	}
	if exists {
		e.logger.Info("chapter intro already exists, skipping", zap.Int("chapter", spec.ChapterNumber))
		return nil
	}

	overview, err := yaml.Marshal(spec.Chapter)
	if err != nil {
		return fmt.Errorf("encode chapter overview: %w", err)
	}

	resp, err := e.generate(ctx, "intro", chapterIntroInstructions, string(overview))
	if err != nil {
		return err
	}

	content := strings.TrimSpace(fmt.Sprintf("# %d. %s\n\n%s", spec.ChapterNumber, spec.Chapter.Name, resp.Text))
	return e.store.Save(ctx, store.KindChapterIntro, pos, content)
}

func (e *Executor) processSection(ctx context.Context, spec ChapterSpec, i int, bookProgress string) error {
	section := spec.Sections[i]
	sectionNumber := i + 1
	pos := store.Position{Part: spec.PartNumber, Chapter: spec.ChapterNumber, Section: sectionNumber}

	exists, err := e.store.Exists(ctx, store.KindSection, pos)
	if err != nil {
		return err
	}
	if exists {
		e.logger.Info("section already exists, skipping",
			zap.Int("chapter", spec.ChapterNumber),
			zap.Int("section", sectionNumber),
			zap.String("name", section.Name))
		return nil
	}

	chapterProgress := RenderProgress(spec.Sections[:i], section, spec.Sections[i+1:], func(s plan.Section) string {
		return s.Name
	})

	e.logger.Info("writing section", zap.String("name", section.Name))
	prompt := buildSectionPrompt(spec.Chapter.Name, section, chapterProgress, bookProgress)
	resp, err := e.generate(ctx, "section", sectionWriterInstructions, prompt)
	if err != nil {
		return err
	}

	content := strings.TrimSpace(fmt.Sprintf("### %s\n\n%s", section.Name, resp.Text))
	return e.store.Save(ctx, store.KindSection, pos, content)
}

func (e *Executor) processFlatChapter(ctx context.Context, spec ChapterSpec, bookProgress string) error {
	pos := store.Position{Part: spec.PartNumber, Chapter: spec.ChapterNumber}
	exists, err := e.store.Exists(ctx, store.KindChapterBody, pos)
	if err != nil {
		return err
	}
	if exists {
		e.logger.Info("chapter already exists, skipping",
			zap.Int("chapter", spec.ChapterNumber),
			zap.String("name", spec.Chapter.Name))
		return nil
	}

	e.logger.Info("writing chapter", zap.String("name", spec.Chapter.Name))
	prompt := buildChapterPrompt(e.plan.Name, spec.Chapter, bookProgress)
	resp, err := e.generate(ctx, "chapter", chapterWriterInstructions, prompt)
	if err != nil {
		return err
	}

	content := strings.TrimSpace(fmt.Sprintf("# %d. %s\n\n%s", spec.ChapterNumber, spec.Chapter.Name, resp.Text))
	return e.store.Save(ctx, store.KindChapterBody, pos, content)
}

// generate issues one backend call and records its cost against the running
// total. Backend errors are not retried here.
func (e *Executor) generate(ctx context.Context, unit, instructions, prompt string) (*llm.Response, error) {
	resp, err := e.backend.Generate(ctx, llm.Request{
		Model:        e.model,
		Instructions: instructions,
		Prompt:       prompt,
	})
	if err != nil {
		return nil, err
	}

	report := cost.Estimate(e.pricing, resp.Usage)
	total := e.tracker.Add(report.TotalCost)
	e.logger.Info("unit generated",
		zap.String("unit", unit),
		zap.String("tier", string(report.Tier)),
		zap.String("cost", cost.FormatUSD(report.TotalCost)),
		zap.String("total_so_far", cost.FormatUSD(total)))
	return resp, nil
}
