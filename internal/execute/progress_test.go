package execute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderProgressMarksCurrentLine(t *testing.T) {
	out := RenderProgress([]string{"A"}, "B", []string{"C", "D"}, func(s string) string { return s })
	require.Equal(t, "[x] A\n[ ] B <-- YOU'RE CURRENTLY HERE\n[ ] C\n[ ] D", out)
}

func TestRenderProgressSingleItem(t *testing.T) {
	out := RenderProgress(nil, "Only", nil, func(s string) string { return s })
	require.Equal(t, "[ ] Only <-- YOU'RE CURRENTLY HERE", out)
}

func TestRenderProgressAllDoneButLast(t *testing.T) {
	out := RenderProgress([]string{"A", "B"}, "C", nil, func(s string) string { return s })
	require.Equal(t, "[x] A\n[x] B\n[ ] C <-- YOU'RE CURRENTLY HERE", out)
}

func TestRenderProgressUsesLabelFunc(t *testing.T) {
	type item struct{ name string }
	out := RenderProgress([]item{{"one"}}, item{"two"}, []item{{"three"}}, func(i item) string { return i.name })
	require.Equal(t, "[x] one\n[ ] two <-- YOU'RE CURRENTLY HERE\n[ ] three", out)
}
