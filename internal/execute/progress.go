package execute

import "strings"

// HereMarker suffixes the current item's line in a progress rendering.
const HereMarker = "<-- YOU'RE CURRENTLY HERE"

// RenderProgress turns an ordered position within a sequence into a
// done/current/todo checklist. Done items keep input order and carry "[x] ",
// the current item carries "[ ] " plus the marker, todo items keep input
// order and carry "[ ] ". Pure function, one line per item.
func RenderProgress[T any](done []T, current T, todo []T, label func(T) string) string {
	lines := make([]string, 0, len(done)+1+len(todo))

	for _, item := range done {
		lines = append(lines, "[x] "+label(item))
	}
	lines = append(lines, "[ ] "+label(current)+" "+HereMarker)
	for _, item := range todo {
		lines = append(lines, "[ ] "+label(item))
	}

	return strings.Join(lines, "\n")
}
