package engine

import (
	"fmt"

	"cuestionarios/internal/model"
)

const (
	hintText     = "Por favor, ingresa un texto."
	hintNumber   = "Por favor, ingresa un número válido."
	hintChoice   = "Por favor, selecciona una opción."
	hintCheckbox = "Por favor, selecciona al menos una opción."
	hintDate     = "Por favor, selecciona una fecha válida."
	hintBinary   = "Por favor, responde Sí o No."
	hintSIS      = "Por favor, completa la valoración de apoyos."
	hintGoal     = "Por favor, define la meta y sus pasos."
	hintForm     = "Por favor, completa el formulario."
	hintDefault  = "Por favor, responde esta pregunta."
)

// Hint returns the type-specific guidance shown for an unanswered question
func Hint(t model.QuestionType) string {
	if spec, ok := typeSpecs[t]; ok {
		return spec.hint
	}
	return hintDefault
}

// UnansweredMessage is the banner text for a question whose answer was rejected
func UnansweredMessage(q *model.Question) string {
	return fmt.Sprintf("La pregunta %q no tiene una respuesta válida. %s", q.Texto, Hint(q.Tipo))
}
