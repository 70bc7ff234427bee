package rest

import (
	"context"
	"sync"
	"time"

	"cuestionarios/internal/model"
)

type memQuestionnaires struct {
	mu    sync.Mutex
	items map[int]model.Questionnaire
}

func (r *memQuestionnaires) GetByID(ctx context.Context, id int) (*model.Questionnaire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r *memQuestionnaires) List(ctx context.Context) ([]*model.Questionnaire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Questionnaire, 0, len(r.items))
	for _, q := range r.items {
		q := q
		q.Preguntas = nil
		out = append(out, &q)
	}
	return out, nil
}

func (r *memQuestionnaires) Upsert(ctx context.Context, q *model.Questionnaire) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[q.ID] = *q
	return nil
}

func (r *memQuestionnaires) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type memAnswers struct {
	mu   sync.Mutex
	rows map[[3]int]model.AnswerRecord
}

func (r *memAnswers) Upsert(ctx context.Context, rec *model.AnswerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	rec.ActualizadoEn = &now
	r.rows[[3]int{rec.Usuario, rec.Cuestionario, rec.Pregunta}] = *rec
	return nil
}

func (r *memAnswers) List(ctx context.Context, usuario, cuestionario int) ([]model.AnswerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AnswerRecord
	for k, v := range r.rows {
		if k[0] == usuario && k[1] == cuestionario {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memAnswers) DeleteAll(ctx context.Context, usuario, cuestionario int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.rows {
		if k[0] == usuario && k[1] == cuestionario {
			delete(r.rows, k)
		}
	}
	return nil
}

func (r *memAnswers) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memFinalizations struct {
	mu   sync.Mutex
	rows map[[2]int]model.Finalization
}

func (r *memFinalizations) Get(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[[2]int{usuario, cuestionario}]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *memFinalizations) Upsert(ctx context.Context, f *model.Finalization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[[2]int{f.Usuario, f.Cuestionario}] = *f
	return nil
}

type memProfiles struct {
	mu     sync.Mutex
	values map[string]model.ProfileFieldValue
}

func (r *memProfiles) GetValue(ctx context.Context, usuario int, path string) (*model.ProfileFieldValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[path]
	if !ok || v.Usuario != usuario {
		return nil, nil
	}
	return &v, nil
}

func (r *memProfiles) SetValue(ctx context.Context, v *model.ProfileFieldValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[v.Path] = *v
	return nil
}

// noCatalogCache always misses
type noCatalogCache struct{}

func (noCatalogCache) Get(ctx context.Context, id int) (*model.Questionnaire, error) { return nil, nil }
func (noCatalogCache) Set(ctx context.Context, q *model.Questionnaire) error          { return nil }
func (noCatalogCache) Invalidate(ctx context.Context, id int) error                   { return nil }

type memSessionCache struct {
	mu     sync.Mutex
	metas  map[string]model.SessionMeta
	byUser map[[2]int]string
}

func (c *memSessionCache) Set(ctx context.Context, meta *model.SessionMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.ID] = *meta
	c.byUser[[2]int{meta.Usuario, meta.Cuestionario}] = meta.ID
	return nil
}

func (c *memSessionCache) Get(ctx context.Context, id string) (*model.SessionMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.metas[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (c *memSessionCache) FindByUser(ctx context.Context, usuario, cuestionario int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byUser[[2]int{usuario, cuestionario}], nil
}

func (c *memSessionCache) Touch(ctx context.Context, id string) error { return nil }

func (c *memSessionCache) Delete(ctx context.Context, meta *model.SessionMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, meta.ID)
	delete(c.byUser, [2]int{meta.Usuario, meta.Cuestionario})
	return nil
}

func intake() model.Questionnaire {
	return model.Questionnaire{
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
				ProfileFieldPath: "datos/escolaridad",
				Opciones: []model.Option{
					{ID: 1, Valor: 0, Texto: "Primaria"},
					{ID: 2, Valor: 1, Texto: "Secundaria"},
				},
			},
			{ID: 20, Tipo: model.TipoED, Texto: "Entrevista ED", NombreSeccion: "Entrevista"},
		},
	}
}
