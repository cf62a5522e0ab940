package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/siea/ricequote/internal/domain/models"
)

// AppendHistory inserts an audit entry. History is append-only: there is no update path.
func (s *Store) AppendHistory(ctx context.Context, entry models.AuditEntry) error {
	if _, err := s.collection(historyCollection).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert history entry for %s: %w", entry.Path, err)
	}
	return nil
}

// HistoryFor returns the most recent entries recorded for path, newest first.
func (s *Store) HistoryFor(ctx context.Context, path string, limit int64) ([]models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.collection(historyCollection).Find(ctx, bson.M{"path": path}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", path, err)
	}
	defer cur.Close(ctx)

	var out []models.AuditEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", path, err)
	}
	return out, nil
}
