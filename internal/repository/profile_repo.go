package repository

import (
	"context"
	"encoding/json"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"cuestionarios/internal/model"
)

// ProfileRepo handles MongoDB operations for denormalized profile field values
type ProfileRepo interface {
	GetValue(ctx context.Context, usuario int, path string) (*model.ProfileFieldValue, error)
	SetValue(ctx context.Context, v *model.ProfileFieldValue) error
}

type profileDoc struct {
	Usuario int    `bson:"usuario"`
	Path    string `bson:"path"`
	Valor   string `bson:"valor"`
}

type profileRepo struct {
	collection *mongo.Collection
}

// NewProfileRepo creates a new profile field repository with its unique index
func NewProfileRepo(db *mongo.Database, logger *zap.Logger) ProfileRepo {
	repo := &profileRepo{
		collection: db.Collection("profile_fields"),
	}
	createIndex(context.Background(), logger, repo.collection, bson.D{
		{Key: "usuario", Value: 1},
		{Key: "path", Value: 1},
	}, true)
	return repo
}

// GetValue returns nil, nil when the field has no value
func (r *profileRepo) GetValue(ctx context.Context, usuario int, path string) (*model.ProfileFieldValue, error) {
	var doc profileDoc
	err := r.collection.FindOne(ctx, bson.M{"usuario": usuario, "path": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.ProfileFieldValue{Usuario: doc.Usuario, Path: doc.Path, Valor: json.RawMessage(doc.Valor)}, nil
}

func (r *profileRepo) SetValue(ctx context.Context, v *model.ProfileFieldValue) error {
	doc := profileDoc{Usuario: v.Usuario, Path: v.Path, Valor: string(v.Valor)}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"usuario": v.Usuario, "path": v.Path}, doc, opts)
	return err
}
