package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"cuestionarios/internal/model"
)

const (
	binaryYes = "Sí"
	binaryNo  = "No"
)

// Normalized is an answer prepared for the backend and for unlock matching
type Normalized struct {
	// Payload is the storage payload sent as "respuesta"
	Payload json.RawMessage
	// Comparable is the value unlock matching runs against; it is itself a
	// valid input for Normalize.
	Comparable model.Answer
}

// ChoicePayload is stored for single-choice questions
type ChoicePayload struct {
	Valor         int    `json:"valor"`
	Indice        int    `json:"indice"`
	ValorOriginal string `json:"valor_original"`
	Texto         string `json:"texto"`
	ID            int    `json:"id"`
}

// SelectedOption describes one checked option
type SelectedOption struct {
	ID     int    `json:"id"`
	Texto  string `json:"texto"`
	Valor  int    `json:"valor"`
	Indice int    `json:"indice"`
}

// CheckboxPayload is stored for checkbox questions
type CheckboxPayload struct {
	Opciones      []int            `json:"opciones"`
	Seleccionadas []SelectedOption `json:"seleccionadas"`
	Texto         string           `json:"texto"`
}

// NumericPayload is stored for numeric inputs and sliders
type NumericPayload struct {
	Valor         float64 `json:"valor"`
	ValorOriginal string  `json:"valor_original"`
}

// Normalize converts a raw answer into its storage payload and comparable value.
// Malformed input never fails; only an unknown question type does.
func Normalize(q *model.Question, answer model.Answer) (Normalized, error) {
	spec, err := lookup(q.Tipo)
	if err != nil {
		return Normalized{}, err
	}
	if answer == nil {
		answer = model.Null{}
	}

	switch spec.family {
	case familyChoice:
		return normalizeChoice(q, answer)
	case familyCheckbox:
		return normalizeCheckbox(q, answer)
	case familyBinary:
		s := binaryText(answer)
		payload, err := json.Marshal(s)
		if err != nil {
			return Normalized{}, err
		}
		return Normalized{Payload: payload, Comparable: model.Text(s)}, nil
	case familyNumeric:
		f := coerceFloat(answer)
		payload, err := json.Marshal(NumericPayload{Valor: f, ValorOriginal: rawString(answer)})
		if err != nil {
			return Normalized{}, err
		}
		return Normalized{Payload: payload, Comparable: model.Number(f)}, nil
	default:
		// Text, dates and composites own their contract and pass through.
		payload, err := model.EncodeAnswer(answer)
		if err != nil {
			return Normalized{}, err
		}
		return Normalized{Payload: payload, Comparable: answer}, nil
	}
}

func normalizeChoice(q *model.Question, answer model.Answer) (Normalized, error) {
	p := ChoicePayload{Indice: -1, ValorOriginal: rawString(answer)}
	var comparable model.Answer = model.Null{}

	if v, ok := choiceValue(answer); ok {
		p.Valor = v
		comparable = model.Number(v)
		if opt, idx := q.OptionByValor(v); opt != nil {
			p.Indice = idx
			p.Texto = opt.Texto
			p.ID = opt.ID
		}
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return Normalized{}, err
	}
	return Normalized{Payload: payload, Comparable: comparable}, nil
}

func normalizeCheckbox(q *model.Question, answer model.Answer) (Normalized, error) {
	p := CheckboxPayload{Opciones: []int{}, Seleccionadas: []SelectedOption{}}
	texts := make([]string, 0)
	seen := make(map[int]bool)

	for _, id := range selectionOf(answer) {
		if seen[id] {
			continue
		}
		opt, idx := q.OptionByID(id)
		if opt == nil {
			continue
		}
		seen[id] = true
		p.Opciones = append(p.Opciones, id)
		p.Seleccionadas = append(p.Seleccionadas, SelectedOption{ID: opt.ID, Texto: opt.Texto, Valor: opt.Valor, Indice: idx})
		texts = append(texts, opt.Texto)
	}
	p.Texto = strings.Join(texts, ", ")

	payload, err := json.Marshal(p)
	if err != nil {
		return Normalized{}, err
	}
	return Normalized{Payload: payload, Comparable: model.Selection(append([]int{}, p.Opciones...))}, nil
}

// IsAffirmative reports whether a binary input means "Sí"
func IsAffirmative(answer model.Answer) bool {
	switch a := answer.(type) {
	case model.Bool:
		return bool(a)
	case model.Text:
		switch strings.ToLower(strings.TrimSpace(string(a))) {
		case "true", "1", "sí", "si":
			return true
		}
	}
	return false
}

func binaryText(answer model.Answer) string {
	if IsAffirmative(answer) {
		return binaryYes
	}
	return binaryNo
}

// choiceValue extracts the integer option value from a single-choice input
func choiceValue(answer model.Answer) (int, bool) {
	switch a := answer.(type) {
	case model.Number:
		f := float64(a)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	case model.Text:
		s := strings.TrimSpace(string(a))
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, ok := parseFinite(s); ok {
			return int(f), true
		}
	case model.Object:
		if v, ok := a["valor"]; ok {
			return model.IntFrom(v)
		}
	}
	return 0, false
}

// selectionOf reads option ids out of every shape a checkbox has ever emitted
func selectionOf(answer model.Answer) model.Selection {
	switch a := answer.(type) {
	case model.Selection:
		return a
	case model.Text:
		return selectionFromJSON([]byte(strings.TrimSpace(string(a))))
	case model.Raw:
		return selectionFromJSON(a)
	case model.Number:
		if _, ok := finite(float64(a)); !ok {
			return nil
		}
		return model.Selection{int(a)}
	case model.Object:
		if list, ok := a["opciones"].([]any); ok {
			sel, _ := model.SelectionFromList(list)
			return sel
		}
		// Legacy map of option id -> checked
		ids := make([]int, 0, len(a))
		for k, v := range a {
			id, err := strconv.Atoi(k)
			if err != nil || !truthy(v) {
				continue
			}
			ids = append(ids, id)
		}
		sort.Ints(ids)
		return ids
	}
	return nil
}

func selectionFromJSON(data []byte) model.Selection {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	sel := make(model.Selection, 0, len(items))
	for _, item := range items {
		if id, ok := model.IntFrom(item); ok {
			sel = append(sel, id)
		}
	}
	return sel
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	}
	return true
}

// parseFinite parses s as a float, refusing NaN and the infinities that
// strconv accepts but JSON cannot carry.
func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func coerceFloat(answer model.Answer) float64 {
	switch a := answer.(type) {
	case model.Number:
		f, _ := finite(float64(a))
		return f
	case model.Text:
		f, _ := parseFinite(string(a))
		return f
	case model.Object:
		if v, ok := a["valor"].(float64); ok {
			return v
		}
	}
	return 0
}

func rawString(answer model.Answer) string {
	switch a := answer.(type) {
	case model.Text:
		return string(a)
	case model.Number:
		return strconv.FormatFloat(float64(a), 'f', -1, 64)
	case model.Bool:
		return strconv.FormatBool(bool(a))
	case model.Object:
		if v, ok := a["valor_original"].(string); ok {
			return v
		}
	case nil, model.Null:
		return ""
	}
	raw, err := model.EncodeAnswer(answer)
	if err != nil {
		return fmt.Sprintf("%v", answer)
	}
	return string(raw)
}
