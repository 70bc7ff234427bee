package engine

import (
	"strings"

	"cuestionarios/internal/model"
)

// Rehydrate turns a stored payload echoed by the backend back into the shape the
// question's input works with, so stored and freshly typed answers go through the
// same validity and unlock rules.
func Rehydrate(q *model.Question, stored model.Answer) (model.Answer, error) {
	spec, err := lookup(q.Tipo)
	if err != nil {
		return nil, err
	}
	if model.IsNull(stored) {
		return model.Null{}, nil
	}

	switch spec.family {
	case familyChoice:
		if o, ok := stored.(model.Object); ok {
			if v, ok := choiceValue(o); ok {
				return model.Number(v), nil
			}
			return model.Null{}, nil
		}
	case familyCheckbox:
		switch stored.(type) {
		case model.Object, model.Text, model.Raw:
			return selectionOf(stored), nil
		}
	case familyBinary:
		if t, ok := stored.(model.Text); ok {
			switch strings.ToLower(strings.TrimSpace(string(t))) {
			case "sí", "si", "true", "1":
				return model.Bool(true), nil
			case "no", "false", "0":
				return model.Bool(false), nil
			}
		}
	case familyNumeric:
		if o, ok := stored.(model.Object); ok {
			return model.Number(coerceFloat(o)), nil
		}
	}
	return stored, nil
}
