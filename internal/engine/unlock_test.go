package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cuestionarios/internal/model"
)

func TestResolveUnlockedBinaryLikeMultiple(t *testing.T) {
	catalog := model.NewCatalog([]model.Question{
		siNoQuestion(5, model.TipoMultiple, 7),
		gated(7, model.TipoAbierta, 5, 1),
	})

	unlocked := ResolveUnlocked(map[int]model.Answer{5: model.Number(0)}, catalog)
	assert.True(t, unlocked.Has(7))

	unlocked = ResolveUnlocked(map[int]model.Answer{5: model.Number(1)}, catalog)
	assert.False(t, unlocked.Has(7))
}

func TestResolveUnlockedBinaryRawString(t *testing.T) {
	catalog := model.NewCatalog([]model.Question{
		siNoQuestion(8, model.TipoBinaria, 9),
		gated(9, model.TipoAbierta, 8, 1),
	})

	assert.True(t, ResolveUnlocked(map[int]model.Answer{8: model.Text("si")}, catalog).Has(9))
	assert.True(t, ResolveUnlocked(map[int]model.Answer{8: model.Bool(true)}, catalog).Has(9))
	assert.False(t, ResolveUnlocked(map[int]model.Answer{8: model.Bool(false)}, catalog).Has(9))
}

func TestResolveUnlockedCheckboxAndChoice(t *testing.T) {
	choice := model.Question{
		ID:   1,
		Tipo: model.TipoDropdown,
		Opciones: []model.Option{
			{ID: 11, Valor: 1, Texto: "Uno", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 40}}},
			{ID: 12, Valor: 2, Texto: "Dos", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 41}}},
			{ID: 13, Valor: 3, Texto: "Tres"},
		},
	}
	catalog := model.NewCatalog([]model.Question{choice, colorsQuestion(20)})

	got := ResolveUnlocked(map[int]model.Answer{
		1:  model.Text("2"),
		20: model.Selection{2, 3},
	}, catalog)
	assert.Equal(t, []int{30, 31, 41}, got.Sorted())
}

func TestResolveUnlockedSkipsUnknownAndNull(t *testing.T) {
	catalog := model.NewCatalog([]model.Question{siNoQuestion(5, model.TipoMultiple, 7)})

	got := ResolveUnlocked(map[int]model.Answer{
		5:   model.Null{},
		404: model.Number(0),
	}, catalog)
	assert.Empty(t, got)
}

func TestResolveUnlockedIsSinglePass(t *testing.T) {
	// 1 unlocks 2, 2 unlocks 3; 2 is answered before it became visible.
	catalog := model.NewCatalog([]model.Question{
		siNoQuestion(1, model.TipoMultiple, 2),
		func() model.Question {
			q := siNoQuestion(2, model.TipoMultiple, 3)
			q.DesbloqueosRecibidos = []model.ReceivedUnlock{{PreguntaOrigen: 1, Opcion: 1}}
			return q
		}(),
		gated(3, model.TipoAbierta, 2, 1),
	})
	answers := map[int]model.Answer{1: model.Number(1), 2: model.Number(0)}

	single := ResolveUnlocked(answers, catalog)
	assert.Equal(t, []int{3}, single.Sorted(), "hidden answers still count in a single pass")

	closure := ResolveUnlockedClosure(answers, catalog)
	assert.Empty(t, closure, "answers of hidden questions do not unlock")

	answers[1] = model.Number(0)
	closure = ResolveUnlockedClosure(answers, catalog)
	assert.Equal(t, []int{2, 3}, closure.Sorted())
}

func TestResolveUnlockedClosureTerminatesOnCycles(t *testing.T) {
	a := siNoQuestion(1, model.TipoMultiple, 2)
	a.DesbloqueosRecibidos = []model.ReceivedUnlock{{PreguntaOrigen: 2, Opcion: 1}}
	b := siNoQuestion(2, model.TipoMultiple, 1)
	b.DesbloqueosRecibidos = []model.ReceivedUnlock{{PreguntaOrigen: 1, Opcion: 1}}
	catalog := model.NewCatalog([]model.Question{a, b})

	got := ResolveUnlockedClosure(map[int]model.Answer{1: model.Number(0), 2: model.Number(0)}, catalog)
	assert.Empty(t, got)
}

func TestUnlockSoundness(t *testing.T) {
	catalog := model.NewCatalog([]model.Question{
		{ID: 1, Tipo: model.TipoAbierta},
		siNoQuestion(5, model.TipoMultiple, 7),
		gated(7, model.TipoAbierta, 5, 1),
		colorsQuestion(20),
		gated(30, model.TipoNumero, 20, 2),
		gated(31, model.TipoNumero, 20, 3),
	})

	answerSets := []map[int]model.Answer{
		{},
		{5: model.Number(0)},
		{5: model.Number(1), 20: model.Selection{3}},
		{5: model.Text("0"), 20: model.Selection{1, 2, 3}},
	}
	for _, answers := range answerSets {
		unlocked := ResolveUnlocked(answers, catalog)
		for i := range catalog.Questions {
			q := &catalog.Questions[i]
			if !q.Gated() {
				assert.True(t, Visible(q, unlocked), "ungated %d hidden", q.ID)
				continue
			}
			assert.Equal(t, upstreamGrants(answers, catalog, q.ID), unlocked.Has(q.ID), "gated %d", q.ID)
		}
	}
}

func upstreamGrants(answers map[int]model.Answer, catalog *model.Catalog, target int) bool {
	for id, a := range answers {
		q, ok := catalog.Question(id)
		if !ok {
			continue
		}
		for _, opt := range matchingOptions(q, a) {
			for _, u := range opt.Desbloqueos {
				if u.PreguntaDesbloqueada == target {
					return true
				}
			}
		}
	}
	return false
}

func TestIsBinaryLike(t *testing.T) {
	yesNo := siNoQuestion(1, model.TipoMultiple)
	assert.True(t, IsBinaryLike(&yesNo))

	reversed := siNoQuestion(1, model.TipoDropdown)
	reversed.Opciones[0], reversed.Opciones[1] = reversed.Opciones[1], reversed.Opciones[0]
	assert.True(t, IsBinaryLike(&reversed))

	lower := siNoQuestion(1, model.TipoMultiple)
	lower.Opciones[0].Texto = "si"
	assert.False(t, IsBinaryLike(&lower))

	three := colorsQuestion(2)
	assert.False(t, IsBinaryLike(&three))

	assert.True(t, IsBinaryLike(&model.Question{Tipo: model.TipoBinaria}))
}

func TestParseUnlockMode(t *testing.T) {
	assert.Equal(t, UnlockTransitive, ParseUnlockMode(" Transitive "))
	assert.Equal(t, UnlockSinglePass, ParseUnlockMode(""))
	assert.Equal(t, UnlockSinglePass, ParseUnlockMode("other"))
}
