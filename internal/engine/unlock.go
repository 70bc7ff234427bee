package engine

import (
	"strings"

	"cuestionarios/internal/model"
)

// UnlockMode selects how far unlock resolution follows chains
type UnlockMode string

const (
	// UnlockSinglePass honors only first-order unlocks from the current answers
	UnlockSinglePass UnlockMode = "single"
	// UnlockTransitive iterates to a fixpoint, counting only visible questions' answers
	UnlockTransitive UnlockMode = "transitive"
)

// ParseUnlockMode maps a config value onto a mode, defaulting to single-pass
func ParseUnlockMode(s string) UnlockMode {
	if strings.EqualFold(strings.TrimSpace(s), string(UnlockTransitive)) {
		return UnlockTransitive
	}
	return UnlockSinglePass
}

// Resolve dispatches to the resolver for mode
func Resolve(mode UnlockMode, answers map[int]model.Answer, catalog *model.Catalog) Set {
	if mode == UnlockTransitive {
		return ResolveUnlockedClosure(answers, catalog)
	}
	return ResolveUnlocked(answers, catalog)
}

// ResolveUnlocked computes the unlocked question ids from scratch. It is a single
// pass: an unlock granted here does not make the unlocked question's own answer
// count until the next recomputation.
func ResolveUnlocked(answers map[int]model.Answer, catalog *model.Catalog) Set {
	unlocked := make(Set)
	for id, answer := range answers {
		q, ok := catalog.Question(id)
		if !ok || len(q.Opciones) == 0 {
			continue
		}
		for _, opt := range matchingOptions(q, answer) {
			for _, u := range opt.Desbloqueos {
				unlocked.Add(u.PreguntaDesbloqueada)
			}
		}
	}
	return unlocked
}

// ResolveUnlockedClosure follows unlock chains to a fixpoint. Answers of questions
// that are gated and not unlocked contribute nothing.
func ResolveUnlockedClosure(answers map[int]model.Answer, catalog *model.Catalog) Set {
	unlocked := make(Set)
	for {
		next := make(Set)
		for id, answer := range answers {
			q, ok := catalog.Question(id)
			if !ok || len(q.Opciones) == 0 || !Visible(q, unlocked) {
				continue
			}
			for _, opt := range matchingOptions(q, answer) {
				for _, u := range opt.Desbloqueos {
					next.Add(u.PreguntaDesbloqueada)
				}
			}
		}
		if next.Equal(unlocked) {
			return next
		}
		unlocked = next
	}
}

// Visible reports whether q is shown given the unlocked set
func Visible(q *model.Question, unlocked Set) bool {
	return !q.Gated() || unlocked.Has(q.ID)
}

// IsBinaryLike reports whether q must be matched by "Sí"/"No" option text.
// Besides declared binaria questions this includes any question whose exactly two
// options read "Sí" and "No"; that text heuristic is kept for older catalogs.
func IsBinaryLike(q *model.Question) bool {
	if q.Tipo == model.TipoBinaria {
		return true
	}
	if len(q.Opciones) != 2 {
		return false
	}
	a, b := q.Opciones[0].Texto, q.Opciones[1].Texto
	return (a == binaryYes && b == binaryNo) || (a == binaryNo && b == binaryYes)
}

func matchingOptions(q *model.Question, answer model.Answer) []model.Option {
	if model.IsNull(answer) {
		return nil
	}

	var matched []model.Option
	switch {
	case q.Tipo == model.TipoCheckbox:
		selected := NewSet(selectionOf(answer)...)
		for _, opt := range q.Opciones {
			if selected.Has(opt.ID) {
				matched = append(matched, opt)
			}
		}
	case IsBinaryLike(q):
		text, ok := binaryComparable(q, answer)
		if !ok {
			return nil
		}
		for _, opt := range q.Opciones {
			if opt.Texto == text {
				matched = append(matched, opt)
			}
		}
	case q.Tipo == model.TipoMultiple, q.Tipo == model.TipoDropdown, q.Tipo == model.TipoCampoPerfilOpcion:
		v, ok := choiceValue(answer)
		if !ok {
			return nil
		}
		for _, opt := range q.Opciones {
			if opt.Valor == v {
				matched = append(matched, opt)
			}
		}
	}
	return matched
}

// binaryComparable reduces an answer to "Sí"/"No". Numeric answers (a binary-like
// multiple answered by option valor) resolve through the option carrying that valor.
func binaryComparable(q *model.Question, answer model.Answer) (string, bool) {
	switch a := answer.(type) {
	case model.Bool:
		return binaryText(a), true
	case model.Number:
		if opt, _ := q.OptionByValor(int(a)); opt != nil {
			return opt.Texto, true
		}
		return "", false
	case model.Text:
		s := strings.TrimSpace(string(a))
		if v, ok := choiceValue(model.Text(s)); ok && q.Tipo != model.TipoBinaria {
			if opt, _ := q.OptionByValor(v); opt != nil {
				return opt.Texto, true
			}
		}
		return binaryText(a), true
	case model.Object:
		if v, ok := choiceValue(a); ok {
			if opt, _ := q.OptionByValor(v); opt != nil {
				return opt.Texto, true
			}
		}
	}
	return "", false
}
