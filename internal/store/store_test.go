package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuestionarios/internal/engine"
	"cuestionarios/internal/model"
)

func testCatalog() *model.Catalog {
	return model.NewCatalog([]model.Question{
		{ID: 1, Tipo: model.TipoAbierta, Texto: "Nombre"},
		{
			ID:   5,
			Tipo: model.TipoMultiple,
			Opciones: []model.Option{
				{ID: 1, Valor: 0, Texto: "Sí", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 7}}},
				{ID: 2, Valor: 1, Texto: "No", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 8}}},
			},
		},
		{ID: 7, Tipo: model.TipoAbierta, DesbloqueosRecibidos: []model.ReceivedUnlock{{PreguntaOrigen: 5, Opcion: 1}}},
		{ID: 8, Tipo: model.TipoAbierta, DesbloqueosRecibidos: []model.ReceivedUnlock{{PreguntaOrigen: 5, Opcion: 2}}},
	})
}

func TestRecomputeUnlockedRevokesAndGrants(t *testing.T) {
	s := New(testCatalog(), engine.UnlockSinglePass)

	s.SetAnswer(5, model.Number(0))
	unlocked, changed := s.RecomputeUnlocked()
	assert.True(t, changed)
	assert.Equal(t, []int{7}, unlocked.Sorted())

	s.SetAnswer(5, model.Number(1))
	unlocked, changed = s.RecomputeUnlocked()
	assert.True(t, changed)
	assert.Equal(t, []int{8}, unlocked.Sorted())

	_, changed = s.RecomputeUnlocked()
	assert.False(t, changed)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(testCatalog(), engine.UnlockSinglePass)
	s.SetAnswer(1, model.Text("Ana"))
	s.MarkSubmissionState(1, model.SubmissionSuccess)
	s.MarkUnanswered(7, "falta")

	snap := s.Snapshot()
	snap.Answers[1] = model.Text("otro")
	delete(snap.Unanswered, 7)

	a, ok := s.Answer(1)
	require.True(t, ok)
	assert.Equal(t, model.Text("Ana"), a)
	assert.Equal(t, model.SubmissionSuccess, s.SubmissionState(1))
	assert.Equal(t, model.SubmissionNone, s.SubmissionState(5))
	assert.Equal(t, map[int]string{7: "falta"}, s.Unanswered())

	s.ClearUnanswered(7)
	assert.Empty(t, s.Unanswered())
}

func TestProgressFollowsUnlocks(t *testing.T) {
	s := New(testCatalog(), engine.UnlockSinglePass)
	assert.Equal(t, model.Progress{Total: 2}, s.Progress())

	s.SetAnswer(5, model.Number(0))
	s.SetAnswer(1, model.Text("Ana"))
	s.RecomputeUnlocked()
	assert.Equal(t, model.Progress{Total: 3, Answered: 2}, s.Progress())
}

func TestConcurrentWrites(t *testing.T) {
	s := New(testCatalog(), engine.UnlockSinglePass)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SetAnswer(5, model.Number(float64(i%2)))
			s.RecomputeUnlocked()
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	s.SetAnswer(5, model.Number(1))
	unlocked, _ := s.RecomputeUnlocked()
	assert.Equal(t, []int{8}, unlocked.Sorted())
	assert.False(t, s.Finalized())
	s.MarkFinalized()
	assert.True(t, s.Finalized())
}
