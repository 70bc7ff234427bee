package engine

import (
	"strings"
	"time"

	"cuestionarios/internal/model"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// IsValid decides whether answer counts as answered for a question of type tipo.
// q may be nil; it is only consulted for the profile-field carve-out.
func IsValid(answer model.Answer, tipo model.QuestionType, q *model.Question) bool {
	if model.IsNull(answer) {
		return false
	}

	// Profile-linked questions store real field values; 0 and false are answers.
	if q != nil && q.ProfileFieldPath != "" {
		switch a := answer.(type) {
		case model.Number:
			if a == 0 {
				return true
			}
		case model.Bool:
			if !a {
				return true
			}
		}
	}

	spec, err := lookup(tipo)
	if err != nil {
		return false
	}

	switch spec.family {
	case familyText:
		t, ok := answer.(model.Text)
		return ok && strings.TrimSpace(string(t)) != ""
	case familyNumeric:
		return parseableNumber(answer)
	case familyChoice:
		switch a := answer.(type) {
		case model.Number:
			_, ok := finite(float64(a))
			return ok
		case model.Text:
			return strings.TrimSpace(string(a)) != ""
		}
		return false
	case familyCheckbox:
		return nonEmptySelection(answer)
	case familyDate:
		t, ok := answer.(model.Text)
		return ok && validDate(string(t))
	case familyBinary:
		_, ok := answer.(model.Bool)
		return ok
	case familyComposite:
		o, ok := answer.(model.Object)
		return ok && len(o) > 0
	case familyProfile:
		switch a := answer.(type) {
		case model.Text:
			return strings.TrimSpace(string(a)) != ""
		case model.Selection:
			return len(a) > 0
		case model.Object:
			return len(a) > 0
		case model.Number, model.Bool, model.Raw:
			return true
		}
	}
	return false
}

func parseableNumber(answer model.Answer) bool {
	switch a := answer.(type) {
	case model.Number:
		_, ok := finite(float64(a))
		return ok
	case model.Text:
		_, ok := parseFinite(string(a))
		return ok
	}
	return false
}

// nonEmptySelection accepts the selection variant plus the legacy shapes: a
// JSON-encoded array string and a plain object. Array items must be option ids.
func nonEmptySelection(answer model.Answer) bool {
	switch a := answer.(type) {
	case model.Selection:
		return len(a) > 0
	case model.Object:
		return len(a) > 0
	case model.Text:
		return len(selectionFromJSON([]byte(strings.TrimSpace(string(a))))) > 0
	case model.Raw:
		return len(selectionFromJSON(a)) > 0
	}
	return false
}

func validDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
