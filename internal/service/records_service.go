package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"cuestionarios/internal/cache"
	"cuestionarios/internal/engine"
	"cuestionarios/internal/model"
	"cuestionarios/internal/repository"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrFinalized      = errors.New("questionnaire already finalized")
)

// RecordsService implements the questionnaire backend: catalogs, answers,
// completion status and profile field values.
type RecordsService struct {
	questionnaires repository.QuestionnaireRepo
	answers        repository.AnswerRepo
	finalizations  repository.FinalizationRepo
	profiles       repository.ProfileRepo
	catalogs       cache.CatalogCache
	unlockMode     engine.UnlockMode
	logger         *zap.Logger
	group          singleflight.Group
}

// NewRecordsService creates a new records service
func NewRecordsService(
	questionnaires repository.QuestionnaireRepo,
	answers repository.AnswerRepo,
	finalizations repository.FinalizationRepo,
	profiles repository.ProfileRepo,
	catalogs cache.CatalogCache,
	unlockMode engine.UnlockMode,
	logger *zap.Logger,
) *RecordsService {
	return &RecordsService{
		questionnaires: questionnaires,
		answers:        answers,
		finalizations:  finalizations,
		profiles:       profiles,
		catalogs:       catalogs,
		unlockMode:     unlockMode,
		logger:         logger.Named("records"),
	}
}

// GetQuestionnaire reads through the catalog cache
func (s *RecordsService) GetQuestionnaire(ctx context.Context, id int) (*model.Questionnaire, error) {
	if q, err := s.catalogs.Get(ctx, id); err != nil {
		s.logger.Warn("catalog cache read failed", zap.Int("cuestionario", id), zap.Error(err))
	} else if q != nil {
		return q, nil
	}

	v, err, _ := s.group.Do(strconv.Itoa(id), func() (interface{}, error) {
		q, err := s.questionnaires.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if q == nil {
			return nil, nil
		}
		if err := s.catalogs.Set(ctx, q); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Int("cuestionario", id), zap.Error(err))
		}
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load questionnaire %d: %w", id, err)
	}
	q, _ := v.(*model.Questionnaire)
	if q == nil {
		return nil, fmt.Errorf("cuestionario %d: %w", id, ErrNotFound)
	}
	return q, nil
}

// ListQuestionnaires returns catalog headers without questions
func (s *RecordsService) ListQuestionnaires(ctx context.Context) ([]*model.Questionnaire, error) {
	return s.questionnaires.List(ctx)
}

// PutQuestionnaire validates and stores a catalog
func (s *RecordsService) PutQuestionnaire(ctx context.Context, q *model.Questionnaire) error {
	if err := ValidateCatalog(q); err != nil {
		return err
	}
	if err := s.questionnaires.Upsert(ctx, q); err != nil {
		return fmt.Errorf("failed to store questionnaire: %w", err)
	}
	if err := s.catalogs.Invalidate(ctx, q.ID); err != nil {
		s.logger.Warn("catalog cache invalidate failed", zap.Int("cuestionario", q.ID), zap.Error(err))
	}
	s.logger.Info("questionnaire stored", zap.Int("cuestionario", q.ID), zap.Int("preguntas", len(q.Preguntas)))
	return nil
}

// ValidateCatalog checks question types, duplicate ids and unlock references
func ValidateCatalog(q *model.Questionnaire) error {
	if q.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidCatalog)
	}
	ids := make(map[int]bool, len(q.Preguntas))
	for _, p := range q.Preguntas {
		if ids[p.ID] {
			return fmt.Errorf("%w: duplicate pregunta %d", ErrInvalidCatalog, p.ID)
		}
		ids[p.ID] = true
		if !engine.KnownType(p.Tipo) {
			return fmt.Errorf("%w: pregunta %d: %w", ErrInvalidCatalog, p.ID, engine.ErrUnknownQuestionType)
		}
	}
	for _, p := range q.Preguntas {
		for _, opt := range p.Opciones {
			for _, u := range opt.Desbloqueos {
				if !ids[u.PreguntaDesbloqueada] {
					return fmt.Errorf("%w: pregunta %d unlocks missing pregunta %d", ErrInvalidCatalog, p.ID, u.PreguntaDesbloqueada)
				}
			}
		}
		for _, r := range p.DesbloqueosRecibidos {
			if !ids[r.PreguntaOrigen] {
				return fmt.Errorf("%w: pregunta %d gated by missing pregunta %d", ErrInvalidCatalog, p.ID, r.PreguntaOrigen)
			}
		}
	}
	return nil
}

// ListAnswers returns the stored answers of a user
func (s *RecordsService) ListAnswers(ctx context.Context, usuario, cuestionario int) ([]model.AnswerRecord, error) {
	if usuario <= 0 || cuestionario <= 0 {
		return nil, fmt.Errorf("%w: usuario and cuestionario are required", ErrInvalidRecord)
	}
	return s.answers.List(ctx, usuario, cuestionario)
}

// SaveAnswer upserts one answer. The payload is stored verbatim.
func (s *RecordsService) SaveAnswer(ctx context.Context, rec *model.AnswerRecord) error {
	if rec.Usuario <= 0 || rec.Cuestionario <= 0 || rec.Pregunta <= 0 {
		return fmt.Errorf("%w: usuario, cuestionario and pregunta are required", ErrInvalidRecord)
	}
	if len(rec.Respuesta) == 0 || !json.Valid(rec.Respuesta) {
		return fmt.Errorf("%w: respuesta must be valid JSON", ErrInvalidRecord)
	}

	q, err := s.GetQuestionnaire(ctx, rec.Cuestionario)
	if err != nil {
		return err
	}
	if _, ok := model.NewCatalog(q.Preguntas).Question(rec.Pregunta); !ok {
		return fmt.Errorf("pregunta %d: %w", rec.Pregunta, ErrNotFound)
	}

	f, err := s.finalizations.Get(ctx, rec.Usuario, rec.Cuestionario)
	if err != nil {
		return fmt.Errorf("failed to read finalization: %w", err)
	}
	if f != nil && f.Finalizado {
		return ErrFinalized
	}

	if err := s.answers.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to store answer: %w", err)
	}
	return nil
}

// GetFinalization returns the completion status, not finalized when never recorded
func (s *RecordsService) GetFinalization(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error) {
	if usuario <= 0 || cuestionario <= 0 {
		return nil, fmt.Errorf("%w: usuario and cuestionario are required", ErrInvalidRecord)
	}
	f, err := s.finalizations.Get(ctx, usuario, cuestionario)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return &model.Finalization{Usuario: usuario, Cuestionario: cuestionario}, nil
	}
	return f, nil
}

// Finalize marks a questionnaire complete after checking every visible question
// holds a valid answer. Finalizing twice returns the stored status.
func (s *RecordsService) Finalize(ctx context.Context, req *model.Finalization) (*model.Finalization, error) {
	current, err := s.GetFinalization(ctx, req.Usuario, req.Cuestionario)
	if err != nil {
		return nil, err
	}
	if current.Finalizado {
		return current, nil
	}
	if !req.Finalizado {
		return current, nil
	}

	q, err := s.GetQuestionnaire(ctx, req.Cuestionario)
	if err != nil {
		return nil, err
	}
	records, err := s.answers.List(ctx, req.Usuario, req.Cuestionario)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	catalog := model.NewCatalog(q.Preguntas)
	answers := answersFromRecords(catalog, records, s.logger)
	s.seedProfileAnswers(ctx, req.Usuario, catalog, answers)
	unlocked := engine.Resolve(s.unlockMode, answers, catalog)
	if err := engine.CheckComplete(answers, unlocked, catalog, engine.BuildSections(catalog)); err != nil {
		return nil, err
	}

	f := &model.Finalization{Usuario: req.Usuario, Cuestionario: req.Cuestionario, Finalizado: true}
	if err := s.finalizations.Upsert(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to store finalization: %w", err)
	}
	s.logger.Info("questionnaire finalized", zap.Int("usuario", f.Usuario), zap.Int("cuestionario", f.Cuestionario))
	return f, nil
}

func (s *RecordsService) seedProfileAnswers(ctx context.Context, usuario int, catalog *model.Catalog, answers map[int]model.Answer) {
	for _, q := range profileQuestions(catalog) {
		if _, ok := answers[q.ID]; ok {
			continue
		}
		v, err := s.profiles.GetValue(ctx, usuario, q.ProfileFieldPath)
		if err != nil {
			s.logger.Warn("profile field read failed", zap.String("path", q.ProfileFieldPath), zap.Error(err))
			continue
		}
		if v == nil {
			continue
		}
		if a, err := decodeProfileValue(q, v); err == nil {
			answers[q.ID] = a
		}
	}
}

// GetProfileFieldValue returns a profile field value
func (s *RecordsService) GetProfileFieldValue(ctx context.Context, usuario int, path string) (*model.ProfileFieldValue, error) {
	v, err := s.profiles.GetValue(ctx, usuario, path)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("profile field %q: %w", path, ErrNotFound)
	}
	return v, nil
}

// SetProfileFieldValue stores a profile field value
func (s *RecordsService) SetProfileFieldValue(ctx context.Context, v *model.ProfileFieldValue) error {
	if v.Usuario <= 0 || v.Path == "" || !json.Valid(v.Valor) {
		return fmt.Errorf("%w: usuario, path and a JSON valor are required", ErrInvalidRecord)
	}
	return s.profiles.SetValue(ctx, v)
}

func decodeProfileValue(q *model.Question, v *model.ProfileFieldValue) (model.Answer, error) {
	stored, err := model.DecodeAnswer(v.Valor)
	if err != nil {
		return nil, err
	}
	return engine.Rehydrate(q, stored)
}
