// Package store persists generated content units, addressed by kind and
// position. The relative path of a unit is a pure function of its key, which
// makes existence checks stable across runs and storage media.
package store

import (
	"context"
	"fmt"
)

// Kind identifies a content unit type.
type Kind string

const (
	KindBackCover    Kind = "back-cover"
	KindPartIntro    Kind = "part-intro"
	KindChapterIntro Kind = "chapter-intro"
	KindChapterBody  Kind = "chapter-body"
	KindSection      Kind = "section"
)

// Position locates a content unit. Part numbers are 1-based per book,
// chapter numbers 1-based and continuous across the whole book, section
// numbers 1-based per chapter. Unused components are zero.
type Position struct {
	Part    int
	Chapter int
	Section int
}

// ContentStore is the capability contract for generated content persistence.
// Save is an unconditional whole-unit write; callers check Exists first.
type ContentStore interface {
	Exists(ctx context.Context, kind Kind, pos Position) (bool, error)
	Save(ctx context.Context, kind Kind, pos Position, text string) error
}

// Key returns the slash-separated relative path for a content unit. It is
// deterministic: the generated-content layout IS the existence-check key
// space.
func Key(kind Kind, pos Position) (string, error) {
	switch kind {
	case KindBackCover:
		return "back_cover.md", nil
	case KindPartIntro:
		return fmt.Sprintf("part_%02d/_part_%02d_intro.md", pos.Part, pos.Part), nil
	case KindChapterIntro:
		return fmt.Sprintf("part_%02d/%02d_00_intro.md", pos.Part, pos.Chapter), nil
	case KindChapterBody:
		return fmt.Sprintf("part_%02d/%02d_chapter.md", pos.Part, pos.Chapter), nil
	case KindSection:
		return fmt.Sprintf("part_%02d/%02d_%02d_section.md", pos.Part, pos.Chapter, pos.Section), nil
	default:
		return "", fmt.Errorf("unknown content kind %q", kind)
	}
}
