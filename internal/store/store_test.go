package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyLayout(t *testing.T) {
	cases := []struct {
		kind Kind
		pos  Position
		want string
	}{
		{KindBackCover, Position{}, "back_cover.md"},
		{KindPartIntro, Position{Part: 1}, "part_01/_part_01_intro.md"},
		{KindPartIntro, Position{Part: 12}, "part_12/_part_12_intro.md"},
		{KindChapterIntro, Position{Part: 1, Chapter: 3}, "part_01/03_00_intro.md"},
		{KindChapterBody, Position{Part: 2, Chapter: 11}, "part_02/11_chapter.md"},
		{KindSection, Position{Part: 1, Chapter: 3, Section: 2}, "part_01/03_02_section.md"},
	}
	for _, c := range cases {
		got, err := Key(c.kind, c.pos)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestKeyRejectsUnknownKind(t *testing.T) {
	_, err := Key(Kind("poem"), Position{})
	require.Error(t, err)
}

func TestFSSaveAndExists(t *testing.T) {
	ctx := context.Background()
	fs := NewFS(t.TempDir())

	pos := Position{Part: 1, Chapter: 2, Section: 1}
	exists, err := fs.Exists(ctx, KindSection, pos)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, fs.Save(ctx, KindSection, pos, "### Flour\n\nbody"))

	exists, err = fs.Exists(ctx, KindSection, pos)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestFSSaveWritesUnderKeyPath(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := NewFS(root)

	require.NoError(t, fs.Save(ctx, KindChapterIntro, Position{Part: 2, Chapter: 5}, "# 5. Heat"))

	raw, err := os.ReadFile(filepath.Join(root, "part_02", "05_00_intro.md"))
	require.NoError(t, err)
	require.Equal(t, "# 5. Heat", string(raw))
}

func TestFSSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	fs := NewFS(t.TempDir())

	require.NoError(t, fs.Save(ctx, KindBackCover, Position{}, "first"))
	require.NoError(t, fs.Save(ctx, KindBackCover, Position{}, "second"))

	exists, err := fs.Exists(ctx, KindBackCover, Position{})
	require.NoError(t, err)
	require.True(t, exists)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	exists, err := mem.Exists(ctx, KindBackCover, Position{})
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, mem.Save(ctx, KindBackCover, Position{}, "blurb"))

	exists, err = mem.Exists(ctx, KindBackCover, Position{})
	require.NoError(t, err)
	require.True(t, exists)

	text, ok := mem.Get(KindBackCover, Position{})
	require.True(t, ok)
	require.Equal(t, "blurb", text)
	require.Equal(t, 1, mem.Len())
}
