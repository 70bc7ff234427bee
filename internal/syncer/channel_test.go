package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cuestionarios/internal/engine"
	"cuestionarios/internal/model"
	"cuestionarios/internal/store"
)

type savedAnswer struct {
	pregunta  int
	respuesta string
}

type fakePersister struct {
	mu    sync.Mutex
	saved []savedAnswer
	fail  error
	// block makes the first call wait for its context
	block bool
	calls chan struct{}
}

func newFakePersister() *fakePersister {
	return &fakePersister{calls: make(chan struct{}, 64)}
}

func (p *fakePersister) SaveAnswer(ctx context.Context, questionID int, respuesta json.RawMessage) error {
	p.mu.Lock()
	block := p.block
	p.block = false
	fail := p.fail
	p.mu.Unlock()

	defer func() { p.calls <- struct{}{} }()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail != nil {
		return fail
	}
	p.mu.Lock()
	p.saved = append(p.saved, savedAnswer{pregunta: questionID, respuesta: string(respuesta)})
	p.mu.Unlock()
	return nil
}

func (p *fakePersister) Saved() []savedAnswer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]savedAnswer(nil), p.saved...)
}

func (p *fakePersister) waitCalls(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("waited for %d persister calls, got %d", n, i)
		}
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []model.EventType
	last   map[model.EventType]any
}

func (l *eventLog) notify(eventType model.EventType, payload any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		l.last = make(map[model.EventType]any)
	}
	l.events = append(l.events, eventType)
	l.last[eventType] = payload
}

func (l *eventLog) Last(eventType model.EventType) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last[eventType]
}

func channelCatalog() *model.Catalog {
	return model.NewCatalog([]model.Question{
		{ID: 1, Tipo: model.TipoAbierta, Texto: "Nombre completo"},
		{
			ID:   5,
			Tipo: model.TipoMultiple,
			Opciones: []model.Option{
				{ID: 1, Valor: 0, Texto: "Sí", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 7}}},
				{ID: 2, Valor: 1, Texto: "No"},
			},
		},
		{ID: 7, Tipo: model.TipoNumero, DesbloqueosRecibidos: []model.ReceivedUnlock{{PreguntaOrigen: 5, Opcion: 1}}},
		{ID: 9, Tipo: model.TipoSIS},
	})
}

func newTestChannel(t *testing.T, p Persister, opts Options) (*Channel, *store.Store, *eventLog) {
	t.Helper()
	st := store.New(channelCatalog(), engine.UnlockSinglePass)
	events := &eventLog{}
	ch := NewChannel(context.Background(), st, p, events.notify, zaptest.NewLogger(t), opts)
	t.Cleanup(ch.Close)
	return ch, st, events
}

func TestSubmitCollapsesRapidEdits(t *testing.T) {
	p := newFakePersister()
	ch, st, _ := newTestChannel(t, p, Options{QuietPeriod: 30 * time.Millisecond})

	for _, v := range []string{"A", "An", "Ana", "Ana M", "Ana María"} {
		require.NoError(t, ch.Submit(1, model.Text(v)))
	}
	assert.Equal(t, model.SubmissionPending, st.SubmissionState(1))

	p.waitCalls(t, 1)
	require.NoError(t, ch.Flush(context.Background()))

	require.Len(t, p.Saved(), 1)
	assert.Equal(t, savedAnswer{pregunta: 1, respuesta: `"Ana María"`}, p.Saved()[0])
	assert.Equal(t, model.SubmissionSuccess, st.SubmissionState(1))
}

func TestSubmitRejectsWhitespaceText(t *testing.T) {
	p := newFakePersister()
	ch, st, events := newTestChannel(t, p, Options{QuietPeriod: time.Millisecond})

	require.NoError(t, ch.Submit(1, model.Text("   ")))
	require.NoError(t, ch.Flush(context.Background()))

	assert.Empty(t, p.Saved())
	assert.Equal(t, 0, ch.Pending())
	msg, ok := st.Unanswered()[1]
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(msg, "Por favor, ingresa un texto."), msg)
	assert.Equal(t, model.ValidationEvent{Pregunta: 1, Message: msg}, events.Last(model.EventValidation))

	a, _ := st.Answer(1)
	assert.Equal(t, model.Text("   "), a, "local state keeps the typed value")
}

func TestInvalidEditDropsPendingWrite(t *testing.T) {
	p := newFakePersister()
	ch, st, _ := newTestChannel(t, p, Options{QuietPeriod: time.Hour})

	require.NoError(t, ch.Submit(1, model.Text("Ana")))
	require.NoError(t, ch.Submit(1, model.Text("")))
	require.NoError(t, ch.Flush(context.Background()))

	assert.Empty(t, p.Saved())
	assert.Contains(t, st.Unanswered(), 1)
}

func TestSuccessfulWriteRecomputesUnlocks(t *testing.T) {
	p := newFakePersister()
	ch, st, events := newTestChannel(t, p, Options{QuietPeriod: time.Hour})

	require.NoError(t, ch.Submit(5, model.Number(0)))
	require.NoError(t, ch.Flush(context.Background()))
	assert.True(t, st.Unlocked().Has(7))
	assert.Equal(t, model.UnlockedEvent{Preguntas: []int{7}}, events.Last(model.EventUnlocked))
	assert.Equal(t, model.Progress{Total: 4, Answered: 1}, events.Last(model.EventProgress))

	require.NoError(t, ch.Submit(5, model.Number(1)))
	require.NoError(t, ch.Flush(context.Background()))
	assert.False(t, st.Unlocked().Has(7))

	saved := p.Saved()
	require.Len(t, saved, 2)
	assert.JSONEq(t, `{"valor":1,"indice":1,"valor_original":"1","texto":"No","id":2}`, saved[1].respuesta)
}

func TestFailedWriteIsNotRetriedAutomatically(t *testing.T) {
	p := newFakePersister()
	p.fail = errors.New("boom")
	ch, st, events := newTestChannel(t, p, Options{QuietPeriod: time.Millisecond})

	require.NoError(t, ch.Submit(1, model.Text("Ana")))
	p.waitCalls(t, 1)
	require.NoError(t, ch.Flush(context.Background()))

	assert.Equal(t, model.SubmissionError, st.SubmissionState(1))
	ev, ok := events.Last(model.EventSubmissionState).(model.SubmissionEvent)
	require.True(t, ok)
	assert.Equal(t, "boom", ev.Error)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, ch.Pending())

	p.mu.Lock()
	p.fail = nil
	p.mu.Unlock()
	require.NoError(t, ch.Retry(1))
	require.NoError(t, ch.Flush(context.Background()))
	assert.Equal(t, model.SubmissionSuccess, st.SubmissionState(1))
	assert.Len(t, p.Saved(), 1)
}

func TestNewerEditAbortsInFlightWrite(t *testing.T) {
	p := newFakePersister()
	p.block = true
	ch, st, _ := newTestChannel(t, p, Options{QuietPeriod: time.Millisecond})

	require.NoError(t, ch.Submit(1, model.Text("primero")))
	require.Eventually(t, func() bool {
		return st.SubmissionState(1) == model.SubmissionLoading
	}, time.Second, time.Millisecond)

	require.NoError(t, ch.Submit(1, model.Text("segundo")))
	p.waitCalls(t, 2)
	require.NoError(t, ch.Flush(context.Background()))

	assert.Equal(t, []savedAnswer{{pregunta: 1, respuesta: `"segundo"`}}, p.Saved())
	assert.Equal(t, model.SubmissionSuccess, st.SubmissionState(1))
}

func TestCompositeTypesUseShortQuietPeriod(t *testing.T) {
	p := newFakePersister()
	ch, _, _ := newTestChannel(t, p, Options{QuietPeriod: time.Hour, ShortQuietPeriod: 5 * time.Millisecond})

	require.NoError(t, ch.Submit(9, model.Object{"frecuencia": 2.0}))
	p.waitCalls(t, 1)
	assert.Len(t, p.Saved(), 1)
}

func TestSubmitErrors(t *testing.T) {
	p := newFakePersister()
	ch, st, _ := newTestChannel(t, p, Options{})

	assert.ErrorIs(t, ch.Submit(404, model.Text("x")), ErrUnknownQuestion)

	st.MarkFinalized()
	assert.ErrorIs(t, ch.Submit(1, model.Text("x")), ErrReadOnly)
	assert.ErrorIs(t, ch.Retry(1), ErrReadOnly)
}
