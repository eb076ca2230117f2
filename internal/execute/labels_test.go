package execute

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookforge/core/internal/plan"
)

func TestPartLabel(t *testing.T) {
	require.Equal(t, "Part", PartLabel(plan.LanguageEnglish))
	require.Equal(t, "Часть", PartLabel(plan.LanguageRussian))
	require.Equal(t, "Teil", PartLabel(plan.LanguageGerman))
}

func TestPartLabelFallsBackToEnglish(t *testing.T) {
	require.Equal(t, "Part", PartLabel(plan.Language("fr")))
	require.Equal(t, "Part", PartLabel(plan.Language("")))
}
