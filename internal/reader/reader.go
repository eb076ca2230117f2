// Package reader serves generated books over HTTP for proofreading: a book
// listing plus rendered HTML and raw manuscripts per book.
package reader

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcfg "github.com/bookforge/core/internal/config"
	"github.com/bookforge/core/internal/ebook"
	"github.com/bookforge/core/internal/plan"
)

// Server lists and renders the books under one books directory.
type Server struct {
	cfg      appcfg.ReaderConfig
	booksDir string
	audioDir string
	router   *gin.Engine
	log      *zap.Logger
}

// bookSummary is one row of the listing endpoint.
type bookSummary struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Ready    bool   `json:"ready"`
	Chapters int    `json:"chapters"`
}

// New builds the reader server and registers its routes.
func New(cfg appcfg.ReaderConfig, booksDir, audioDir string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	s := &Server{cfg: cfg, booksDir: booksDir, audioDir: audioDir, router: router, log: log}
	s.registerRoutes()
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string { return fmt.Sprintf(":%d", s.cfg.Port) }

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/books", s.handleList)
	s.router.GET("/books/:slug", s.handleBook)
	s.router.GET("/books/:slug/manuscript", s.handleManuscript)
	s.router.GET("/books/:slug/audio/*path", s.handleAudio)
}

func (s *Server) handleList(c *gin.Context) {
	folders, err := plan.ListPlanFolders(s.booksDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	books := make([]bookSummary, 0, len(folders))
	for _, folder := range folders {
		p, err := plan.LoadFromFolder(folder)
		if err != nil {
			s.log.Warn("unreadable plan, skipping", zap.String("folder", folder), zap.Error(err))
			continue
		}
		books = append(books, bookSummary{
			Slug:     filepath.Base(folder),
			Name:     p.Name,
			Language: string(p.Language),
			Ready:    plan.IsReady(folder),
			Chapters: p.ChapterCount(),
		})
	}
	c.JSON(http.StatusOK, books)
}

// resolveBook rejects slugs that escape the books directory.
func (s *Server) resolveBook(c *gin.Context) (string, *plan.BookPlan, bool) {
	slug := c.Param("slug")
	if slug != filepath.Base(slug) || slug == "." || slug == ".." {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book slug"})
		return "", nil, false
	}
	dir := filepath.Join(s.booksDir, slug)
	p, err := plan.LoadFromFolder(dir)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return "", nil, false
	}
	return dir, p, true
}

func (s *Server) handleBook(c *gin.Context) {
	dir, p, ok := s.resolveBook(c)
	if !ok {
		return
	}
	manuscript, err := ebook.Assemble(dir)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book has no content yet"})
		return
	}
	page, err := ebook.RenderHTML(p.Name, manuscript)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleManuscript(c *gin.Context) {
	dir, _, ok := s.resolveBook(c)
	if !ok {
		return
	}
	manuscript, err := ebook.Assemble(dir)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book has no content yet"})
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(manuscript))
}

func (s *Server) handleAudio(c *gin.Context) {
	slug := c.Param("slug")
	if slug != filepath.Base(slug) || slug == "." || slug == ".." {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book slug"})
		return
	}
	root := filepath.Join(s.audioDir, slug)
	rel := filepath.Clean(c.Param("path"))
	full := filepath.Join(root, rel)
	if !filepath.IsLocal(filepath.Join(slug, rel)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
		return
	}
	if _, err := os.Stat(full); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audio not found"})
		return
	}
	c.File(full)
}

// requestLogger logs each request with zap.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
