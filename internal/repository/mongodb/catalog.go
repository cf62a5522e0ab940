package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

// GetProduct loads a catalog entry.
func (s *Store) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	var product models.Product
	err := s.collection(productsCollection).FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	return product, nil
}

// ProductGrades returns the grades of a product in key order.
func (s *Store) ProductGrades(ctx context.Context, productID string) ([]models.Grade, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return models.GradeList(product.Grades), nil
}

// SaveProduct upserts a catalog entry.
func (s *Store) SaveProduct(ctx context.Context, product models.Product) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection(productsCollection).ReplaceOne(ctx, bson.M{"_id": product.ID}, product, opts); err != nil {
		return fmt.Errorf("failed to save product %s: %w", product.ID, err)
	}
	return nil
}

type productChange struct {
	OperationType string          `bson:"operationType"`
	FullDocument  *models.Product `bson:"fullDocument"`
}

// WatchGrades delivers the current grades of productID and then every later snapshot
// until the returned cancel func is called or ctx ends. A deleted product is delivered
// as an empty snapshot. The deployment must be a replica set for change streams.
func (s *Store) WatchGrades(ctx context.Context, productID string, fn func([]models.Grade)) (func(), error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: productID}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	watchCtx, cancel := context.WithCancel(ctx)
	stream, err := s.collection(productsCollection).Watch(watchCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch product %s: %w", productID, err)
	}

	initial, err := s.ProductGrades(ctx, productID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}
	fn(initial)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())

		for stream.Next(watchCtx) {
			var change productChange
			if err := stream.Decode(&change); err != nil {
				s.logger.Warn("undecodable product change", zap.String("product_id", productID), zap.Error(err))
				continue
			}
			if change.OperationType == "delete" || change.FullDocument == nil {
				fn(nil)
				continue
			}
			fn(models.GradeList(change.FullDocument.Grades))
		}
		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("product change stream stopped", zap.String("product_id", productID), zap.Error(err))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
