package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/siea/ricequote/internal/domain/models"
)

// GetCart loads the cart of owner. A missing cart is returned empty.
func (s *Store) GetCart(ctx context.Context, owner string) (models.Cart, error) {
	var cart models.Cart
	err := s.collection(cartsCollection).FindOne(ctx, bson.M{"_id": owner}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{Owner: owner}, nil
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("failed to load cart %s: %w", owner, err)
	}
	return cart, nil
}

// SaveCart replaces the cart of cart.Owner.
func (s *Store) SaveCart(ctx context.Context, cart models.Cart) error {
	cart.UpdatedAt = s.now().UTC()
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection(cartsCollection).ReplaceOne(ctx, bson.M{"_id": cart.Owner}, cart, opts); err != nil {
		return fmt.Errorf("failed to save cart %s: %w", cart.Owner, err)
	}
	return nil
}

// DeleteCart removes the cart of owner. Deleting a missing cart is not an error.
func (s *Store) DeleteCart(ctx context.Context, owner string) error {
	if _, err := s.collection(cartsCollection).DeleteOne(ctx, bson.M{"_id": owner}); err != nil {
		return fmt.Errorf("failed to delete cart %s: %w", owner, err)
	}
	return nil
}
