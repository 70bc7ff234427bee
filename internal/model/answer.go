package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnswerKind tags the variant held by an Answer
type AnswerKind int

const (
	KindNull AnswerKind = iota
	KindText
	KindNumber
	KindBool
	KindSelection
	KindObject
	KindRaw
)

func (k AnswerKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindSelection:
		return "selection"
	case KindObject:
		return "object"
	case KindRaw:
		return "raw"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Answer is the value of one question. The concrete variant depends on what the
// input emitted: Null, Text, Number, Bool, Selection, Object or Raw.
type Answer interface {
	Kind() AnswerKind
}

// Null is an absent answer
type Null struct{}

// Text is a string answer (open text, dates, raw choice strings)
type Text string

// Number is a numeric answer (numeric inputs, sliders, choice values)
type Number float64

// Bool is a binary answer
type Bool bool

// Selection is an ordered list of selected option ids
type Selection []int

// Object is a composite answer owned by its question type (SIS, goals, forms)
type Object map[string]any

// Raw is any other JSON shape, kept verbatim
type Raw json.RawMessage

func (Null) Kind() AnswerKind      { return KindNull }
func (Text) Kind() AnswerKind      { return KindText }
func (Number) Kind() AnswerKind    { return KindNumber }
func (Bool) Kind() AnswerKind      { return KindBool }
func (Selection) Kind() AnswerKind { return KindSelection }
func (Object) Kind() AnswerKind    { return KindObject }
func (Raw) Kind() AnswerKind       { return KindRaw }

// IsNull reports whether a is missing or the Null variant
func IsNull(a Answer) bool {
	if a == nil {
		return true
	}
	_, ok := a.(Null)
	return ok
}

// DecodeAnswer maps arbitrary JSON onto the answer variants without any
// question-type knowledge. Arrays of integers (or integer strings) become a
// Selection, other arrays are kept as Raw.
func DecodeAnswer(data []byte) (Answer, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Null{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}

	switch t := v.(type) {
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("decode answer number: %w", err)
		}
		return Number(f), nil
	case string:
		return Text(t), nil
	case []any:
		if sel, ok := SelectionFromList(t); ok {
			return sel, nil
		}
		return Raw(append([]byte(nil), data...)), nil
	case map[string]any:
		return Object(normalizeNumbers(t).(map[string]any)), nil
	}
	return Raw(append([]byte(nil), data...)), nil
}

// SelectionFromList converts a decoded JSON list of ids into a Selection
func SelectionFromList(items []any) (Selection, bool) {
	sel := make(Selection, 0, len(items))
	for _, item := range items {
		id, ok := IntFrom(item)
		if !ok {
			return nil, false
		}
		sel = append(sel, id)
	}
	return sel, true
}

// IntFrom extracts an integer from a decoded JSON scalar
func IntFrom(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil && f == float64(int(f)) {
			return int(f), true
		}
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
	case int:
		return t, true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// normalizeNumbers turns json.Number leaves into float64 so Object values
// compare and re-encode predictably.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, child := range t {
			t[k] = normalizeNumbers(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = normalizeNumbers(child)
		}
		return t
	}
	return v
}

// EncodeAnswer renders an answer back to JSON
func EncodeAnswer(a Answer) (json.RawMessage, error) {
	switch t := a.(type) {
	case nil, Null:
		return json.RawMessage("null"), nil
	case Text:
		return json.Marshal(string(t))
	case Number:
		return json.Marshal(float64(t))
	case Bool:
		return json.Marshal(bool(t))
	case Selection:
		if t == nil {
			return json.RawMessage("[]"), nil
		}
		return json.Marshal([]int(t))
	case Object:
		return json.Marshal(map[string]any(t))
	case Raw:
		return json.RawMessage(t), nil
	}
	return nil, fmt.Errorf("encode answer: unsupported variant %T", a)
}

// AnswerRecord is the wire shape of one persisted answer
type AnswerRecord struct {
	Usuario       int             `json:"usuario"`
	Cuestionario  int             `json:"cuestionario"`
	Pregunta      int             `json:"pregunta"`
	Respuesta     json.RawMessage `json:"respuesta"`
	ActualizadoEn *time.Time      `json:"actualizado_en,omitempty"`
}

// Finalization is the completion status of a questionnaire for a user
type Finalization struct {
	Usuario      int        `json:"usuario"`
	Cuestionario int        `json:"cuestionario"`
	Finalizado   bool       `json:"finalizado"`
	FinalizadoEn *time.Time `json:"finalizado_en,omitempty"`
}

// ProfileFieldValue is the denormalized value of a profile field
type ProfileFieldValue struct {
	Usuario int             `json:"usuario"`
	Path    string          `json:"path"`
	Valor   json.RawMessage `json:"valor"`
}
