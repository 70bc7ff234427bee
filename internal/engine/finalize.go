package engine

import (
	"fmt"
	"strings"

	"cuestionarios/internal/model"
)

// Missing is a visible question that blocks finalization
type Missing struct {
	Index        int                `json:"index"` // 1-based position among visible questions
	QuestionID   int                `json:"pregunta"`
	Texto        string             `json:"texto"`
	Tipo         model.QuestionType `json:"tipo"`
	Hint         string             `json:"hint"`
	SectionIndex int                `json:"seccion"`
}

// IncompleteError is returned when finalization is attempted with missing answers
type IncompleteError struct {
	Missing []Missing
}

func (e *IncompleteError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, fmt.Sprintf("%d. %s", m.Index, m.Texto))
	}
	return fmt.Sprintf("questionnaire incomplete, %d unanswered: %s", len(e.Missing), strings.Join(parts, "; "))
}

// First returns the first missing question in catalog order
func (e *IncompleteError) First() Missing {
	return e.Missing[0]
}

// MissingRequired lists every visible question without a valid answer, in catalog
// order. sections may be nil, in which case SectionIndex is -1.
func MissingRequired(answers map[int]model.Answer, unlocked Set, catalog *model.Catalog, sections []model.Section) []Missing {
	nav := NewNavigator(sections)
	var missing []Missing
	position := 0
	for i := range catalog.Questions {
		q := &catalog.Questions[i]
		if !Visible(q, unlocked) {
			continue
		}
		position++
		if a, ok := answers[q.ID]; ok && IsValid(a, q.Tipo, q) {
			continue
		}
		missing = append(missing, Missing{
			Index:        position,
			QuestionID:   q.ID,
			Texto:        q.Texto,
			Tipo:         q.Tipo,
			Hint:         Hint(q.Tipo),
			SectionIndex: nav.SectionOf(q.ID),
		})
	}
	return missing
}

// CheckComplete wraps MissingRequired into an *IncompleteError
func CheckComplete(answers map[int]model.Answer, unlocked Set, catalog *model.Catalog, sections []model.Section) error {
	if missing := MissingRequired(answers, unlocked, catalog, sections); len(missing) > 0 {
		return &IncompleteError{Missing: missing}
	}
	return nil
}
