package engine

import (
	"errors"

	"cuestionarios/internal/model"
)

// ErrFieldDisabled is returned when a read-only field receives a change
var ErrFieldDisabled = errors.New("field is disabled")

// ChangeFunc receives a new raw answer from an input and reports whether it was accepted
type ChangeFunc func(questionID int, answer model.Answer) error

// Field is the uniform input contract every question type renders through
type Field struct {
	QuestionID int                   `json:"pregunta"`
	Tipo       model.QuestionType    `json:"tipo"`
	Component  string                `json:"component"`
	Texto      string                `json:"texto"`
	Options    []model.Option        `json:"opciones,omitempty"`
	Value      model.Answer          `json:"-"`
	Disabled   bool                  `json:"disabled"`
	State      model.SubmissionState `json:"state"`
	Hint       string                `json:"hint"`
	// Valid mirrors IsValid on the current value
	Valid bool `json:"valid"`

	onChange ChangeFunc
}

// Change forwards a new value to the registered callback. Disabled fields drop it.
func (f Field) Change(answer model.Answer) error {
	if f.Disabled || f.onChange == nil {
		return ErrFieldDisabled
	}
	return f.onChange(f.QuestionID, answer)
}

// Dispatch maps a question onto its input component
func Dispatch(q *model.Question, value model.Answer, state model.SubmissionState, disabled bool, onChange ChangeFunc) (Field, error) {
	spec, err := lookup(q.Tipo)
	if err != nil {
		return Field{}, err
	}
	if value == nil {
		value = model.Null{}
	}
	if state == "" {
		state = model.SubmissionNone
	}
	return Field{
		QuestionID: q.ID,
		Tipo:       q.Tipo,
		Component:  spec.component,
		Texto:      q.Texto,
		Options:    q.Opciones,
		Value:      value,
		Disabled:   disabled,
		State:      state,
		Hint:       spec.hint,
		Valid:      IsValid(value, q.Tipo, q),
		onChange:   onChange,
	}, nil
}
