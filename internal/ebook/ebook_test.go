package ebook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedBook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(rel, content string) {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	write("back_cover.md", "A blurb.")
	write("part_01/_part_01_intro.md", "# Part 1: Basics")
	write("part_01/01_00_intro.md", "# 1. Ingredients")
	write("part_01/01_01_section.md", "### Flour")
	write("part_01/01_02_section.md", "### Water")
	write("part_02/_part_02_intro.md", "# Part 2: Technique")
	write("part_02/02_chapter.md", "# 2. Kneading")
	return dir
}

func TestAssembleOrdersContent(t *testing.T) {
	manuscript, err := Assemble(seedBook(t))
	require.NoError(t, err)

	want := strings.Join([]string{
		"A blurb.",
		"# Part 1: Basics",
		"# 1. Ingredients",
		"### Flour",
		"### Water",
		"# Part 2: Technique",
		"# 2. Kneading",
	}, "\n\n") + "\n"
	require.Equal(t, want, manuscript)
}

func TestAssembleIgnoresForeignFiles(t *testing.T) {
	dir := seedBook(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.yaml"), []byte("name: x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_ready"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "part_01", "notes.txt"), []byte("scratch"), 0o644))

	manuscript, err := Assemble(dir)
	require.NoError(t, err)
	require.NotContains(t, manuscript, "scratch")
	require.NotContains(t, manuscript, "name: x")
}

func TestAssembleEmptyBookFails(t *testing.T) {
	_, err := Assemble(t.TempDir())
	require.Error(t, err)
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML(`Bread & Butter <"quoted">`, "# Title\n\nSome **bold** text.")
	require.NoError(t, err)

	html := string(page)
	require.Contains(t, html, "<title>Bread &amp; Butter &lt;&quot;quoted&quot;&gt;</title>")
	require.Contains(t, html, "<h1>Title</h1>")
	require.Contains(t, html, "<strong>bold</strong>")
}

func TestBuildWritesArtifacts(t *testing.T) {
	dir := seedBook(t)

	mdPath, htmlPath, err := Build(dir, "Bread at Home")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, ManuscriptName), mdPath)
	require.Equal(t, filepath.Join(dir, HTMLName), htmlPath)

	raw, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "<title>Bread at Home</title>")
}

func TestAssembleExcludesOwnOutputs(t *testing.T) {
	dir := seedBook(t)
	_, _, err := Build(dir, "Bread at Home")
	require.NoError(t, err)

	// Reassembling after a build must not fold manuscript.md back in.
	manuscript, err := Assemble(dir)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(manuscript, "A blurb."))
}
