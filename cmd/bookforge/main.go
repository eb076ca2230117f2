package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bookforge/core/internal/config"
	"github.com/bookforge/core/internal/cost"
	"github.com/bookforge/core/internal/ebook"
	"github.com/bookforge/core/internal/execute"
	"github.com/bookforge/core/internal/llm"
	"github.com/bookforge/core/internal/plan"
	"github.com/bookforge/core/internal/reader"
	"github.com/bookforge/core/internal/store"
	"github.com/bookforge/core/internal/tts"
)

const usage = `Usage: bookforge [--config file] <command> [options]

Commands:
  plan      draft and save a new book plan
  write     generate content for planned books
  tts       narrate generated books to audio
  assemble  build manuscript.md and book.html for a book
  serve     run the preview reader server
`

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.IsDev() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "plan":
		err = runPlan(ctx, cfg, logger, args)
	case "write":
		err = runWrite(ctx, cfg, logger, args)
	case "tts":
		err = runTTS(ctx, cfg, logger, args)
	case "assemble":
		err = runAssemble(cfg, args)
	case "serve":
		err = runServe(ctx, cfg, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", cmd), zap.Error(err))
	}
}

// buildStore selects the content store backend for one book.
func buildStore(cfg *config.AppConfig, slug string) (store.ContentStore, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Backend), "s3") {
		opts := cfg.Storage.S3
		opts.Prefix = path.Join(opts.Prefix, slug)
		return store.NewS3(opts)
	}
	return store.NewFS(filepath.Join(cfg.BooksDir, slug)), nil
}

func runPlan(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	topic := fs.String("topic", "", "What the book is about")
	size := fs.String("size", "a standard non-fiction book", "Rough target size")
	flat := fs.Bool("flat", false, "Plan flat chapters with bullet points instead of sections")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*topic) == "" {
		return errors.New("--topic is required")
	}

	client := llm.NewClient(cfg.AI)
	tracker := cost.NewTracker()
	stdin := bufio.NewReader(os.Stdin)

	outline, err := drainStream(ctx, tracker, cfg, func() (<-chan llm.StreamEvent, error) {
		return plan.StreamOutline(ctx, client, cfg.AI.PlannerModel, *topic, *size)
	})
	if err != nil {
		return err
	}

	for {
		fmt.Print("\n\nPress Enter to accept the plan, or describe what to change: ")
		line, err := stdin.ReadString('\n')
		if err != nil && strings.TrimSpace(line) == "" {
			break
		}
		feedback := strings.TrimSpace(line)
		if feedback == "" {
			break
		}
		outline, err = drainStream(ctx, tracker, cfg, func() (<-chan llm.StreamEvent, error) {
			return plan.RefineOutline(ctx, client, cfg.AI.PlannerModel, outline, feedback)
		})
		if err != nil {
			return err
		}
	}

	mode := plan.ModeSectioned
	if *flat {
		mode = plan.ModeFlat
	}
	logger.Info("generating structured plan")
	p, usage, err := plan.Generate(ctx, client, cfg.AI.PlannerModel, outline, mode)
	if err != nil {
		return err
	}
	report := cost.Estimate(cfg.Pricing, usage)
	tracker.Add(report.TotalCost)

	planPath, err := plan.Save(p, filepath.Join(cfg.BooksDir, p.Slug))
	if err != nil {
		return err
	}
	logger.Info("plan saved",
		zap.String("path", planPath),
		zap.String("book", p.Name),
		zap.Int("chapters", p.ChapterCount()))
	fmt.Println("Total cost:", cost.FormatUSD(tracker.Total()))
	return nil
}

// drainStream prints deltas to stdout and returns the completed text,
// charging the call's usage to the tracker.
func drainStream(ctx context.Context, tracker *cost.Tracker, cfg *config.AppConfig, start func() (<-chan llm.StreamEvent, error)) (string, error) {
	events, err := start()
	if err != nil {
		return "", err
	}
	var final *llm.Response
	for ev := range events {
		switch {
		case ev.Err != nil:
			return "", ev.Err
		case ev.Completed != nil:
			final = ev.Completed
		default:
			fmt.Print(ev.Delta)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if final == nil {
		return "", errors.New("stream ended without completion")
	}
	tracker.Add(cost.Estimate(cfg.Pricing, final.Usage).TotalCost)
	return final.Text, nil
}

func runWrite(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	book := fs.String("book", "", "Book slug to write; default is every unfinished book")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var folders []string
	if strings.TrimSpace(*book) != "" {
		folder := filepath.Join(cfg.BooksDir, *book)
		if plan.IsReady(folder) {
			logger.Info("book marked ready, skipping", zap.String("folder", folder))
			return nil
		}
		folders = []string{folder}
	} else {
		all, err := plan.ListPlanFolders(cfg.BooksDir)
		if err != nil {
			return err
		}
		for _, f := range all {
			if plan.IsReady(f) {
				logger.Info("book marked ready, skipping", zap.String("folder", f))
				continue
			}
			folders = append(folders, f)
		}
	}
	if len(folders) == 0 {
		logger.Info("nothing to write", zap.String("books_dir", cfg.BooksDir))
		return nil
	}

	client := llm.NewClient(cfg.AI)
	tracker := cost.NewTracker()

	for _, folder := range folders {
		p, err := plan.LoadFromFolder(folder)
		if err != nil {
			if errors.Is(err, plan.ErrPlanNotFound) {
				logger.Warn("no plan file, skipping", zap.String("folder", folder))
				continue
			}
			return err
		}

		contentStore, err := buildStore(cfg, filepath.Base(folder))
		if err != nil {
			return err
		}

		logger.Info("writing book", zap.String("book", p.Name), zap.String("folder", folder))
		ex := execute.New(p, contentStore, client, execute.Options{
			Model:   cfg.AI.WriterModel,
			Pricing: cfg.Pricing,
			Logger:  logger,
			Tracker: tracker,
		})
		if err := ex.Execute(ctx); err != nil {
			return err
		}
	}

	fmt.Println("Total cost:", cost.FormatUSD(tracker.Total()))
	return nil
}

func runTTS(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("tts", flag.ExitOnError)
	book := fs.String("book", "", "Book slug to narrate")
	batch := fs.Bool("batch", false, "Write a batch manifest instead of synthesizing now")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*book) == "" {
		return errors.New("--book is required")
	}

	bookDir := filepath.Join(cfg.BooksDir, *book)
	if _, err := plan.LoadFromFolder(bookDir); err != nil {
		return err
	}
	audioDir := filepath.Join(cfg.AudioDir, *book)

	client := llm.NewClient(cfg.AI)
	pipeline := tts.New(client, cfg.TTS, cfg.Pricing, logger, cost.NewTracker())

	if *batch {
		manifest, err := pipeline.WriteBatchManifest(bookDir, audioDir, filepath.Join(audioDir, "batch.jsonl"))
		if err != nil {
			return err
		}
		logger.Info("batch manifest written",
			zap.String("path", manifest.Path),
			zap.Int("requests", manifest.Requests),
			zap.String("estimated_cost", cost.FormatUSD(manifest.EstimatedCost)))
		return nil
	}

	sum, err := pipeline.Run(ctx, bookDir, audioDir)
	if err != nil {
		return err
	}
	logger.Info("audio run finished",
		zap.Int("converted", sum.Converted),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	fmt.Println("Total cost:", cost.FormatUSD(pipeline.Tracker().Total()))
	return nil
}

func runAssemble(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	book := fs.String("book", "", "Book slug to assemble")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*book) == "" {
		return errors.New("--book is required")
	}

	bookDir := filepath.Join(cfg.BooksDir, *book)
	p, err := plan.LoadFromFolder(bookDir)
	if err != nil {
		return err
	}
	mdPath, htmlPath, err := ebook.Build(bookDir, p.Name)
	if err != nil {
		return err
	}
	fmt.Println("Wrote", mdPath)
	fmt.Println("Wrote", htmlPath)
	return nil
}

func runServe(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	server := reader.New(cfg.Reader, cfg.BooksDir, cfg.AudioDir, logger)
	srv := &http.Server{
		Addr:    server.Addr(),
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reader starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down reader...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
