package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func createIndex(ctx context.Context, logger *zap.Logger, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		logger.Warn("failed to create index", zap.String("collection", coll.Name()), zap.Error(err))
	}
}

func userKey(usuario, cuestionario int) bson.M {
	return bson.M{"usuario": usuario, "cuestionario": cuestionario}
}
