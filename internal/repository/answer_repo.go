package repository

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"cuestionarios/internal/model"
)

// AnswerRepo handles MongoDB operations for stored answers
type AnswerRepo interface {
	Upsert(ctx context.Context, rec *model.AnswerRecord) error
	List(ctx context.Context, usuario, cuestionario int) ([]model.AnswerRecord, error)
	DeleteAll(ctx context.Context, usuario, cuestionario int) error
}

// answerDoc keeps respuesta as JSON text so it is echoed back byte for byte
type answerDoc struct {
	Usuario       int       `bson:"usuario"`
	Cuestionario  int       `bson:"cuestionario"`
	Pregunta      int       `bson:"pregunta"`
	Respuesta     string    `bson:"respuesta"`
	ActualizadoEn time.Time `bson:"actualizado_en"`
}

type answerRepo struct {
	collection *mongo.Collection
}

// NewAnswerRepo creates a new answer repository with its unique index
func NewAnswerRepo(db *mongo.Database, logger *zap.Logger) AnswerRepo {
	repo := &answerRepo{
		collection: db.Collection("answers"),
	}
	createIndex(context.Background(), logger, repo.collection, bson.D{
		{Key: "usuario", Value: 1},
		{Key: "cuestionario", Value: 1},
		{Key: "pregunta", Value: 1},
	}, true)
	return repo
}

func (r *answerRepo) Upsert(ctx context.Context, rec *model.AnswerRecord) error {
	now := time.Now().UTC()
	rec.ActualizadoEn = &now

	doc := answerDoc{
		Usuario:       rec.Usuario,
		Cuestionario:  rec.Cuestionario,
		Pregunta:      rec.Pregunta,
		Respuesta:     string(rec.Respuesta),
		ActualizadoEn: now,
	}
	filter := bson.M{"usuario": rec.Usuario, "cuestionario": rec.Cuestionario, "pregunta": rec.Pregunta}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, filter, doc, opts)
	return err
}

func (r *answerRepo) List(ctx context.Context, usuario, cuestionario int) ([]model.AnswerRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "pregunta", Value: 1}})
	cursor, err := r.collection.Find(ctx, userKey(usuario, cuestionario), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []answerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]model.AnswerRecord, 0, len(docs))
	for _, d := range docs {
		updated := d.ActualizadoEn
		out = append(out, model.AnswerRecord{
			Usuario:       d.Usuario,
			Cuestionario:  d.Cuestionario,
			Pregunta:      d.Pregunta,
			Respuesta:     json.RawMessage(d.Respuesta),
			ActualizadoEn: &updated,
		})
	}
	return out, nil
}

func (r *answerRepo) DeleteAll(ctx context.Context, usuario, cuestionario int) error {
	_, err := r.collection.DeleteMany(ctx, userKey(usuario, cuestionario))
	return err
}
