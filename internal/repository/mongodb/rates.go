package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

type ratesDoc struct {
	ID               string `bson:"_id"`
	models.RateTable `bson:",inline"`
}

// GetRates loads the stored rate table.
func (s *Store) GetRates(ctx context.Context) (models.RateTable, error) {
	var doc ratesDoc
	err := s.collection(ratesCollection).FindOne(ctx, bson.M{"_id": exchangeRatesDocKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RateTable{}, fmt.Errorf("exchange rates: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.RateTable{}, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	return doc.RateTable, nil
}

// SaveRates replaces the stored rate table.
func (s *Store) SaveRates(ctx context.Context, table models.RateTable) error {
	doc := ratesDoc{ID: exchangeRatesDocKey, RateTable: table}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection(ratesCollection).ReplaceOne(ctx, bson.M{"_id": exchangeRatesDocKey}, doc, opts); err != nil {
		return fmt.Errorf("failed to save exchange rates: %w", err)
	}
	return nil
}
