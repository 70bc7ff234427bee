package engine

import (
	"cuestionarios/internal/model"
)

// Counts returns how many questions are visible and how many of those hold a
// valid answer. A question counts once: either it needs no unlock or it is
// currently unlocked. Unlocked ids outside the catalog are ignored.
func Counts(answers map[int]model.Answer, unlocked Set, catalog *model.Catalog) model.Progress {
	var p model.Progress
	for i := range catalog.Questions {
		q := &catalog.Questions[i]
		if !Visible(q, unlocked) {
			continue
		}
		p.Total++
		if a, ok := answers[q.ID]; ok && IsValid(a, q.Tipo, q) {
			p.Answered++
		}
	}
	return p
}
