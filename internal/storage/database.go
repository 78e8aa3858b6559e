package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/RivalWatch/internal/config"
)

// MongoStorage mirrors artifacts into a MongoDB collection, one document per item.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	runID      string
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects and pings the server.
func NewMongoStorage(ctx context.Context, cfg config.MongoConfig, runID string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		runID:      runID,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(a *Artifact) error {
	docs := artifactDocuments(a, s.runID, time.Now().UTC())
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	s.count += len(docs)
	s.logger.Debug("items stored in mongodb", "company", a.Company, "count", len(docs), "total", s.count)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_items", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// artifactDocuments flattens an artifact into per-item documents.
func artifactDocuments(a *Artifact, runID string, storedAt time.Time) []any {
	docs := make([]any, 0, len(a.Items))
	for _, it := range a.Items {
		docs = append(docs, bson.M{
			"run_id":    runID,
			"company":   a.Company,
			"kind":      string(a.Kind),
			"title":     it.Title,
			"summary":   it.Summary,
			"date":      it.Date,
			"url":       it.URL,
			"source":    it.Source,
			"stored_at": storedAt,
		})
	}
	return docs
}
