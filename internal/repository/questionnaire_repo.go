package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cuestionarios/internal/model"
)

// QuestionnaireRepo handles MongoDB operations for questionnaire catalogs
type QuestionnaireRepo interface {
	GetByID(ctx context.Context, id int) (*model.Questionnaire, error)
	List(ctx context.Context) ([]*model.Questionnaire, error)
	Upsert(ctx context.Context, q *model.Questionnaire) error
	Delete(ctx context.Context, id int) error
}

type questionnaireRepo struct {
	collection *mongo.Collection
}

// NewQuestionnaireRepo creates a new questionnaire repository
func NewQuestionnaireRepo(db *mongo.Database) QuestionnaireRepo {
	return &questionnaireRepo{
		collection: db.Collection("questionnaires"),
	}
}

// GetByID returns nil, nil when the questionnaire does not exist
func (r *questionnaireRepo) GetByID(ctx context.Context, id int) (*model.Questionnaire, error) {
	var q model.Questionnaire
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionnaireRepo) List(ctx context.Context) ([]*model.Questionnaire, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"preguntas": 0})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.Questionnaire
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionnaireRepo) Upsert(ctx context.Context, q *model.Questionnaire) error {
	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": q.ID}, q, opts)
	return err
}

func (r *questionnaireRepo) Delete(ctx context.Context, id int) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
