// Package ebook assembles a generated book folder into a single manuscript
// and renders it to HTML.
package ebook

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	ManuscriptName = "manuscript.md"
	HTMLName       = "book.html"

	backCoverName = "back_cover.md"
	partPrefix    = "part_"
)

// partIntroName returns the intro file name inside one part folder,
// "_part_01_intro.md" for "part_01".
func partIntroName(partDir string) string {
	return "_" + partDir + "_intro.md"
}

// Assemble concatenates a book folder into one markdown manuscript: back
// cover first, then each part folder in order, each part's introduction
// before its chapter files. Returns the assembled markdown.
func Assemble(bookDir string) (string, error) {
	var parts []string

	appendFile := func(path string) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(string(raw))
		if text != "" {
			parts = append(parts, text)
		}
		return nil
	}

	backCover := filepath.Join(bookDir, backCoverName)
	if _, err := os.Stat(backCover); err == nil {
		if err := appendFile(backCover); err != nil {
			return "", err
		}
	}

	entries, err := os.ReadDir(bookDir)
	if err != nil {
		return "", err
	}
	var partDirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), partPrefix) {
			partDirs = append(partDirs, e.Name())
		}
	}
	sort.Strings(partDirs)

	for _, dir := range partDirs {
		intro := filepath.Join(bookDir, dir, partIntroName(dir))
		if _, err := os.Stat(intro); err == nil {
			if err := appendFile(intro); err != nil {
				return "", err
			}
		}

		files, err := os.ReadDir(filepath.Join(bookDir, dir))
		if err != nil {
			return "", err
		}
		var names []string
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, ".md") || name == partIntroName(dir) {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := appendFile(filepath.Join(bookDir, dir, name)); err != nil {
				return "", err
			}
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no content found in %s", bookDir)
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

// RenderHTML converts assembled markdown into a standalone HTML page.
func RenderHTML(title, markdown string) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, err
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 46em; margin: 2em auto; padding: 0 1em; font-family: Georgia, serif; line-height: 1.6; }
h1 { margin-top: 2em; }
</style>
</head>
<body>
`, htmlEscape(title))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Build assembles bookDir and writes both manuscript.md and book.html into
// it. Returns the two written paths.
func Build(bookDir, title string) (string, string, error) {
	manuscript, err := Assemble(bookDir)
	if err != nil {
		return "", "", err
	}
	mdPath := filepath.Join(bookDir, ManuscriptName)
	if err := os.WriteFile(mdPath, []byte(manuscript), 0o644); err != nil {
		return "", "", err
	}

	page, err := RenderHTML(title, manuscript)
	if err != nil {
		return "", "", err
	}
	htmlPath := filepath.Join(bookDir, HTMLName)
	if err := os.WriteFile(htmlPath, page, 0o644); err != nil {
		return "", "", err
	}
	return mdPath, htmlPath, nil
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
