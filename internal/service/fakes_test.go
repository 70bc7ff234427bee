package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cuestionarios/internal/model"
)

type fakeBackend struct {
	mu            sync.Mutex
	questionnaire *model.Questionnaire
	records       []model.AnswerRecord
	finalized     bool
	profile       map[string]json.RawMessage
	saved         []model.AnswerRecord
	finalizeCalls int
	loadErr       error
	finalizeErr   error
}

func (b *fakeBackend) GetQuestionnaire(ctx context.Context, id int) (*model.Questionnaire, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	if b.questionnaire == nil || b.questionnaire.ID != id {
		return nil, fmt.Errorf("cuestionario %d: %w", id, ErrNotFound)
	}
	return b.questionnaire, nil
}

func (b *fakeBackend) ListAnswers(ctx context.Context, usuario, cuestionario int) ([]model.AnswerRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.AnswerRecord(nil), b.records...), nil
}

func (b *fakeBackend) SaveAnswer(ctx context.Context, rec model.AnswerRecord) (*model.AnswerRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, rec)
	return &rec, nil
}

func (b *fakeBackend) GetFinalization(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &model.Finalization{Usuario: usuario, Cuestionario: cuestionario, Finalizado: b.finalized}, nil
}

func (b *fakeBackend) Finalize(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalizeCalls++
	if b.finalizeErr != nil {
		return nil, b.finalizeErr
	}
	b.finalized = true
	return &model.Finalization{Usuario: usuario, Cuestionario: cuestionario, Finalizado: true}, nil
}

func (b *fakeBackend) GetProfileFieldValue(ctx context.Context, usuario int, path string) (*model.ProfileFieldValue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.profile[path]
	if !ok {
		return nil, ErrNotFound
	}
	return &model.ProfileFieldValue{Usuario: usuario, Path: path, Valor: v}, nil
}

func (b *fakeBackend) Saved() []model.AnswerRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.AnswerRecord(nil), b.saved...)
}

func (b *fakeBackend) FinalizeCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalizeCalls
}

type fakeSessionCache struct {
	mu     sync.Mutex
	metas  map[string]model.SessionMeta
	byUser map[string]string
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{metas: map[string]model.SessionMeta{}, byUser: map[string]string{}}
}

func (c *fakeSessionCache) Set(ctx context.Context, meta *model.SessionMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.ID] = *meta
	c.byUser[sessionKey(meta.Usuario, meta.Cuestionario)] = meta.ID
	return nil
}

func (c *fakeSessionCache) Get(ctx context.Context, id string) (*model.SessionMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.metas[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (c *fakeSessionCache) FindByUser(ctx context.Context, usuario, cuestionario int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byUser[sessionKey(usuario, cuestionario)], nil
}

func (c *fakeSessionCache) Touch(ctx context.Context, id string) error { return nil }

func (c *fakeSessionCache) Delete(ctx context.Context, meta *model.SessionMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, meta.ID)
	delete(c.byUser, sessionKey(meta.Usuario, meta.Cuestionario))
	return nil
}

type recordingBroadcaster struct {
	mu           sync.Mutex
	events       []model.Event
	disconnected []string
}

func (b *recordingBroadcaster) BroadcastToSession(sessionID string, event model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) DisconnectSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, sessionID)
}

func (b *recordingBroadcaster) Types() []model.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

// intake is a small catalog: an open question, a Sí/No gate, the gated
// follow-up, a profile-linked choice and an ED interview question.
func intake() *model.Questionnaire {
	return &model.Questionnaire{
		ID:     3,
		Nombre: "Entrevista inicial",
		Preguntas: []model.Question{
			{ID: 1, Tipo: model.TipoAbierta, Texto: "Nombre completo", NombreSeccion: "Datos"},
			{
				ID: 5, Tipo: model.TipoMultiple, Texto: "¿Trabaja actualmente?", NombreSeccion: "Datos",
				Opciones: []model.Option{
					{ID: 1, Valor: 0, Texto: "Sí", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 7}}},
					{ID: 2, Valor: 1, Texto: "No"},
				},
			},
			{
				ID: 7, Tipo: model.TipoAbierta, Texto: "¿Dónde trabaja?", NombreSeccion: "Empleo",
				DesbloqueosRecibidos: []model.ReceivedUnlock{{PreguntaOrigen: 5, Opcion: 1}},
			},
			{
				ID: 9, Tipo: model.TipoCampoPerfilOpcion, Texto: "Escolaridad", NombreSeccion: "Empleo",
				ProfileFieldPath: "datos.escolaridad",
				Opciones: []model.Option{
					{ID: 1, Valor: 0, Texto: "Primaria"},
					{ID: 2, Valor: 1, Texto: "Secundaria", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 10}}},
				},
			},
			{
				ID: 10, Tipo: model.TipoNumero, Texto: "Años cursados", NombreSeccion: "Empleo",
				DesbloqueosRecibidos: []model.ReceivedUnlock{{PreguntaOrigen: 9, Opcion: 2}},
			},
			{ID: 20, Tipo: model.TipoED, Texto: "Entrevista ED", NombreSeccion: "Entrevista"},
		},
	}
}
