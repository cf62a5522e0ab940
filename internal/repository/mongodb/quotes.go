package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

// InsertQuote stores a new quote. An existing id is an error; quotes are never overwritten on create.
func (s *Store) InsertQuote(ctx context.Context, quote models.Quote) error {
	if _, err := s.collection(quotesCollection).InsertOne(ctx, quote); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("quote %s already exists: %w", quote.QuoteID, err)
		}
		return fmt.Errorf("failed to insert quote %s: %w", quote.QuoteID, err)
	}
	return nil
}

// GetQuote loads a quote by id.
func (s *Store) GetQuote(ctx context.Context, quoteID string) (models.Quote, error) {
	var quote models.Quote
	err := s.collection(quotesCollection).FindOne(ctx, bson.M{"_id": quoteID}).Decode(&quote)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Quote{}, fmt.Errorf("quote %s: %w", quoteID, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to load quote %s: %w", quoteID, err)
	}
	return quote, nil
}

// ReplaceQuote overwrites an existing quote.
func (s *Store) ReplaceQuote(ctx context.Context, quote models.Quote) error {
	res, err := s.collection(quotesCollection).ReplaceOne(ctx, bson.M{"_id": quote.QuoteID}, quote)
	if err != nil {
		return fmt.Errorf("failed to update quote %s: %w", quote.QuoteID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("quote %s: %w", quote.QuoteID, apperr.ErrNotFound)
	}
	return nil
}

// DeleteQuote removes a quote.
func (s *Store) DeleteQuote(ctx context.Context, quoteID string) error {
	res, err := s.collection(quotesCollection).DeleteOne(ctx, bson.M{"_id": quoteID})
	if err != nil {
		return fmt.Errorf("failed to delete quote %s: %w", quoteID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("quote %s: %w", quoteID, apperr.ErrNotFound)
	}
	return nil
}
