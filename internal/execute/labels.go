package execute

import "github.com/bookforge/core/internal/plan"

var partLabels = map[plan.Language]string{
	plan.LanguageEnglish: "Part",
	plan.LanguageRussian: "Часть",
	plan.LanguageGerman:  "Teil",
}

// PartLabel returns the localized word for "Part". Unknown languages fall
// back to the English label.
func PartLabel(lang plan.Language) string {
	if label, ok := partLabels[lang]; ok {
		return label
	}
	return partLabels[plan.LanguageEnglish]
}
