package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/logger"
)

// SyncRunRepo journals sync cycles, one document per run.
type SyncRunRepo struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewSyncRunRepo creates a new sync run repository
func NewSyncRunRepo(db *mongo.Database, logger logger.Logger) repository.SyncRunRepository {
	return &SyncRunRepo{
		collection: db.Collection("sync_runs"),
		logger:     logger,
	}
}

func (r *SyncRunRepo) Record(ctx context.Context, run *entity.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, err := r.collection.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

func (r *SyncRunRepo) Latest(ctx context.Context, kind string, limit int) ([]entity.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.M{"startedAt": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"kind": kind}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []entity.SyncRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode sync runs: %w", err)
	}
	return runs, nil
}
