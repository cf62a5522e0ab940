package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type counterDoc struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}

// Increment atomically bumps the named counter and returns the new value. A missing
// counter is created at 1.
func (s *Store) Increment(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := s.collection(countersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"value": int64(1)}}, opts).
		Decode(&doc)
	if err != nil {
		s.logger.Error("counter increment failed", zap.String("counter", name), zap.Error(err))
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return doc.Value, nil
}
