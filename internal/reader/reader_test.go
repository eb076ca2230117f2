package reader

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	appcfg "github.com/bookforge/core/internal/config"
	"github.com/bookforge/core/internal/plan"
)

func seedLibrary(t *testing.T) (string, string) {
	t.Helper()
	booksDir := t.TempDir()
	audioDir := t.TempDir()

	p := &plan.BookPlan{
		Language:             plan.LanguageEnglish,
		Name:                 "Bread at Home",
		Slug:                 "bread-at-home",
		TargetReader:         "home bakers",
		BackCoverDescription: "Flour, water, salt, patience.",
		Parts: []plan.Part{
			{
				Name:         "Basics",
				Introduction: "Start here.",
				Chapters: []plan.Chapter{
					{Name: "Ingredients", Sections: []plan.Section{
						{Name: "Flour", BulletPoints: []string{"protein"}},
					}},
				},
			},
		},
	}
	bookDir := filepath.Join(booksDir, p.Slug)
	_, err := plan.Save(p, bookDir)
	require.NoError(t, err)

	write := func(rel, content string) {
		full := filepath.Join(bookDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	write("back_cover.md", "Flour, water, salt, patience.")
	write("part_01/_part_01_intro.md", "# Part 1: Basics\n\nStart here.")
	write("part_01/01_00_intro.md", "# 1. Ingredients\n\nIntro body.")

	audioBook := filepath.Join(audioDir, p.Slug, "part_01")
	require.NoError(t, os.MkdirAll(audioBook, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(audioBook, "01_00_intro.wav"), []byte("RIFF"), 0o644))

	return booksDir, audioDir
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	booksDir, audioDir := seedLibrary(t)
	s := New(appcfg.ReaderConfig{Port: 2333}, booksDir, audioDir, nil)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestListBooks(t *testing.T) {
	srv := testServer(t)

	resp, body := get(t, srv.URL+"/books")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var books []bookSummary
	require.NoError(t, json.Unmarshal(body, &books))
	require.Len(t, books, 1)
	require.Equal(t, "bread-at-home", books[0].Slug)
	require.Equal(t, "Bread at Home", books[0].Name)
	require.Equal(t, "en", books[0].Language)
	require.Equal(t, 1, books[0].Chapters)
	require.False(t, books[0].Ready)
}

func TestGetBookRendersHTML(t *testing.T) {
	srv := testServer(t)

	resp, body := get(t, srv.URL+"/books/bread-at-home")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, string(body), "<title>Bread at Home</title>")
	require.Contains(t, string(body), "Ingredients")
}

func TestGetManuscript(t *testing.T) {
	srv := testServer(t)

	resp, body := get(t, srv.URL+"/books/bread-at-home/manuscript")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "# Part 1: Basics")
}

func TestGetAudioFile(t *testing.T) {
	srv := testServer(t)

	resp, body := get(t, srv.URL+"/books/bread-at-home/audio/part_01/01_00_intro.wav")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "RIFF", string(body))
}

func TestUnknownBookIs404(t *testing.T) {
	srv := testServer(t)

	resp, _ := get(t, srv.URL+"/books/no-such-book")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)

	resp, _ := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
