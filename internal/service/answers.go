package service

import (
	"go.uber.org/zap"

	"cuestionarios/internal/engine"
	"cuestionarios/internal/model"
)

// answersFromRecords decodes stored payloads into the answer map the engine
// works on. Records for unknown questions or undecodable payloads are skipped.
func answersFromRecords(catalog *model.Catalog, records []model.AnswerRecord, logger *zap.Logger) map[int]model.Answer {
	answers := make(map[int]model.Answer, len(records))
	for _, rec := range records {
		q, ok := catalog.Question(rec.Pregunta)
		if !ok {
			logger.Debug("answer for question outside catalog", zap.Int("pregunta", rec.Pregunta))
			continue
		}
		stored, err := model.DecodeAnswer(rec.Respuesta)
		if err != nil {
			logger.Warn("undecodable stored answer", zap.Int("pregunta", rec.Pregunta), zap.Error(err))
			continue
		}
		answer, err := engine.Rehydrate(q, stored)
		if err != nil {
			logger.Error("cannot rehydrate answer", zap.Int("pregunta", rec.Pregunta), zap.Error(err))
			continue
		}
		answers[rec.Pregunta] = answer
	}
	return answers
}

// profileQuestions lists the questions seeded from profile fields
func profileQuestions(catalog *model.Catalog) []*model.Question {
	var out []*model.Question
	for i := range catalog.Questions {
		if catalog.Questions[i].ProfileFieldPath != "" {
			out = append(out, &catalog.Questions[i])
		}
	}
	return out
}
