package execute

import (
	"fmt"
	"strings"

	"github.com/bookforge/core/internal/plan"
)

const sectionWriterInstructions = `Your task is based on the plan write a book section.
You execute it section-by-section and you're given the current progress

A section should contain 800-1200 words. Don't use lists, use proper sentences,
The style is a a popular science book.

Output markdown, and use only level-3 headings.

The output language should match the input language.`

const chapterIntroInstructions = `Based on the chapter outline, you should write an introduction to the chapter
describing what the chapter will cover.

It should be 50-80 words. Don't include lists, it should be proper sentences.

The output language should match the input language.`

const chapterWriterInstructions = `Your task is to write a complete chapter based on the given outline.

You should write a comprehensive chapter that covers all the bullet points provided.
A chapter should contain approximately 3000-5000 words.

The style should be that of a popular science book - engaging, informative, and accessible.

Output markdown, and use level-2 (##) and level-3 (###) headings for sections within the chapter.
Do not use level-1 headings as the chapter title will be added automatically.

The output language should match the input language.`

const sectionPromptTemplate = `The chapter name: %s

The section name: %s

Outline:

%s

Current chapter progress:

%s

Current book progress:

%s`

const chapterPromptTemplate = `The book title: %s

The chapter name: %s

Chapter outline (bullet points to cover):

%s

Current book progress:

%s`

func buildSectionPrompt(chapterName string, section plan.Section, chapterProgress, bookProgress string) string {
	outline := strings.Join(section.BulletPoints, "\n")
	return fmt.Sprintf(sectionPromptTemplate, chapterName, section.Name, outline, chapterProgress, bookProgress)
}

func buildChapterPrompt(bookTitle string, chapter *plan.Chapter, bookProgress string) string {
	points := make([]string, 0, len(chapter.BulletPoints))
	for _, bp := range chapter.BulletPoints {
		points = append(points, "- "+bp)
	}
	return fmt.Sprintf(chapterPromptTemplate, bookTitle, chapter.Name, strings.Join(points, "\n"), bookProgress)
}
