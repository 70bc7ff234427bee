package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"cuestionarios/internal/model"
)

// FinalizationRepo handles MongoDB operations for questionnaire completion
type FinalizationRepo interface {
	Get(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error)
	Upsert(ctx context.Context, f *model.Finalization) error
}

type finalizationRepo struct {
	collection *mongo.Collection
}

// NewFinalizationRepo creates a new finalization repository with its unique index
func NewFinalizationRepo(db *mongo.Database, logger *zap.Logger) FinalizationRepo {
	repo := &finalizationRepo{
		collection: db.Collection("finalizations"),
	}
	createIndex(context.Background(), logger, repo.collection, bson.D{
		{Key: "usuario", Value: 1},
		{Key: "cuestionario", Value: 1},
	}, true)
	return repo
}

// Get returns nil, nil when no status was ever recorded
func (r *finalizationRepo) Get(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error) {
	var doc struct {
		Usuario      int        `bson:"usuario"`
		Cuestionario int        `bson:"cuestionario"`
		Finalizado   bool       `bson:"finalizado"`
		FinalizadoEn *time.Time `bson:"finalizado_en,omitempty"`
	}
	err := r.collection.FindOne(ctx, userKey(usuario, cuestionario)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.Finalization{
		Usuario:      doc.Usuario,
		Cuestionario: doc.Cuestionario,
		Finalizado:   doc.Finalizado,
		FinalizadoEn: doc.FinalizadoEn,
	}, nil
}

func (r *finalizationRepo) Upsert(ctx context.Context, f *model.Finalization) error {
	if f.Finalizado && f.FinalizadoEn == nil {
		now := time.Now().UTC()
		f.FinalizadoEn = &now
	}
	doc := bson.M{
		"usuario":      f.Usuario,
		"cuestionario": f.Cuestionario,
		"finalizado":   f.Finalizado,
	}
	if f.FinalizadoEn != nil {
		doc["finalizado_en"] = *f.FinalizadoEn
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, userKey(f.Usuario, f.Cuestionario), doc, opts)
	return err
}
