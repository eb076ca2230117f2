package plan

import (
	"fmt"
	"strings"
)

// Language is the book language tag. Only a small fixed set is supported.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
	LanguageGerman  Language = "de"
)

const maxSlugLength = 50

// ChapterMode distinguishes the two plan shapes a book plan can take.
type ChapterMode string

const (
	// ModeSectioned means chapters are broken into named sections, each with
	// its own bullet-point outline. Generation happens section by section.
	ModeSectioned ChapterMode = "sectioned"
	// ModeFlat means chapters carry a flat bullet-point outline and are
	// generated as one whole chapter body.
	ModeFlat ChapterMode = "flat"
)

// Section is one named unit of a sectioned chapter.
type Section struct {
	Name         string   `yaml:"name" json:"name"`
	BulletPoints []string `yaml:"bullet_points" json:"bullet_points"`
}

// Chapter is either sectioned or flat, never both. Which of the two slices is
// populated decides the shape; Validate rejects chapters carrying both.
type Chapter struct {
	Name         string    `yaml:"name" json:"name"`
	Sections     []Section `yaml:"sections,omitempty" json:"sections,omitempty"`
	BulletPoints []string  `yaml:"bullet_points,omitempty" json:"bullet_points,omitempty"`
}

// Mode reports the shape of this chapter.
func (c *Chapter) Mode() ChapterMode {
	if len(c.Sections) > 0 {
		return ModeSectioned
	}
	return ModeFlat
}

// Part groups chapters. Part numbers are never stored; they are derived from
// the 1-based position in BookPlan.Parts.
type Part struct {
	Name         string    `yaml:"name" json:"name"`
	Introduction string    `yaml:"introduction" json:"introduction"`
	Chapters     []Chapter `yaml:"chapters" json:"chapters"`
}

// BookPlan is the validated, immutable root of a book plan. Field order
// matters: it is preserved on YAML write to keep plan files human-diffable.
type BookPlan struct {
	Language             Language `yaml:"book_language" json:"book_language"`
	Name                 string   `yaml:"name" json:"name"`
	Slug                 string   `yaml:"slug" json:"slug"`
	TargetReader         string   `yaml:"target_reader" json:"target_reader"`
	BackCoverDescription string   `yaml:"back_cover_description" json:"back_cover_description"`
	Parts                []Part   `yaml:"parts" json:"parts"`
}

// ValidationError describes a structural problem in a plan, pointing at the
// offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid plan: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SupportedLanguages lists the language tags a plan may declare.
func SupportedLanguages() []Language {
	return []Language{LanguageEnglish, LanguageRussian, LanguageGerman}
}

func isSupportedLanguage(lang Language) bool {
	for _, l := range SupportedLanguages() {
		if lang == l {
			return true
		}
	}
	return false
}

func isValidSlug(slug string) bool {
	if slug == "" || len(slug) > maxSlugLength {
		return false
	}
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

// Validate checks the plan for structural consistency. A valid plan declares a
// supported language, a filesystem-safe slug, and is entirely one chapter
// shape (sectioned or flat).
func (p *BookPlan) Validate() error {
	if !isSupportedLanguage(p.Language) {
		return invalid("book_language", "unsupported language %q, expected one of %v", p.Language, SupportedLanguages())
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "name is required")
	}
	if !isValidSlug(p.Slug) {
		return invalid("slug", "slug %q must be non-empty, lowercase, hyphenated and at most %d chars", p.Slug, maxSlugLength)
	}
	if len(p.Parts) == 0 {
		return invalid("parts", "at least one part is required")
	}

	var mode ChapterMode
	for pi, part := range p.Parts {
		if strings.TrimSpace(part.Name) == "" {
			return invalid(fmt.Sprintf("parts[%d].name", pi), "part name is required")
		}
		for ci, chapter := range part.Chapters {
			field := fmt.Sprintf("parts[%d].chapters[%d]", pi, ci)
			if strings.TrimSpace(chapter.Name) == "" {
				return invalid(field+".name", "chapter name is required")
			}
			if len(chapter.Sections) > 0 && len(chapter.BulletPoints) > 0 {
				return invalid(field, "chapter mixes sections and bullet points")
			}
			if len(chapter.Sections) == 0 && len(chapter.BulletPoints) == 0 {
				return invalid(field, "chapter has neither sections nor bullet points")
			}
			chapterMode := chapter.Mode()
			if mode == "" {
				mode = chapterMode
			} else if mode != chapterMode {
				return invalid(field, "plan mixes sectioned and flat chapters")
			}
			for si, section := range chapter.Sections {
				if strings.TrimSpace(section.Name) == "" {
					return invalid(fmt.Sprintf("%s.sections[%d].name", field, si), "section name is required")
				}
			}
		}
	}
	return nil
}

// Mode reports the generation mode of the whole plan. Only meaningful after
// Validate has passed; a plan with no chapters defaults to flat.
func (p *BookPlan) Mode() ChapterMode {
	for _, part := range p.Parts {
		for i := range part.Chapters {
			return part.Chapters[i].Mode()
		}
	}
	return ModeFlat
}

// ChapterCount returns the number of chapters across all parts.
func (p *BookPlan) ChapterCount() int {
	total := 0
	for _, part := range p.Parts {
		total += len(part.Chapters)
	}
	return total
}
