package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/logger"
)

// ScheduleSnapshotRepo keeps one snapshot document per entity kind.
type ScheduleSnapshotRepo struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewScheduleSnapshotRepo creates a new schedule snapshot repository
func NewScheduleSnapshotRepo(db *mongo.Database, logger logger.Logger) repository.ScheduleSnapshotRepository {
	return &ScheduleSnapshotRepo{
		collection: db.Collection("schedule_snapshots"),
		logger:     logger,
	}
}

func (r *ScheduleSnapshotRepo) Put(ctx context.Context, snapshot *entity.ScheduleSnapshot) error {
	filter := bson.M{"kind": snapshot.Kind}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, snapshot, opts); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	r.logger.Debug("Stored schedule snapshot", "kind", snapshot.Kind, "fetchedAt", snapshot.FetchedAt)
	return nil
}

func (r *ScheduleSnapshotRepo) Get(ctx context.Context, kind string) (*entity.ScheduleSnapshot, error) {
	var snapshot entity.ScheduleSnapshot
	err := r.collection.FindOne(ctx, bson.M{"kind": kind}).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snapshot, nil
}
