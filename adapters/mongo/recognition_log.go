package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/entities"
)

const recognitionLogCollection = "recognition_logs"

// RecognitionLogRepository implements
// repositories.RecognitionLogRepository on MongoDB.
type RecognitionLogRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewRecognitionLogRepository creates the repository on the client's
// database.
func NewRecognitionLogRepository(client *Client, logger *zap.Logger) *RecognitionLogRepository {
	return &RecognitionLogRepository{
		collection: client.Database.Collection(recognitionLogCollection),
		logger:     logger,
	}
}

// Insert stores one recognition record.
func (r *RecognitionLogRepository) Insert(ctx context.Context, log *entities.RecognitionLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("failed to insert recognition log: %w", err)
	}
	return nil
}

// ListBySession returns the most recent records for one session, newest
// first. An empty sessionID lists across all sessions.
func (r *RecognitionLogRepository) ListBySession(ctx context.Context, sessionID string, limit int64) ([]entities.RecognitionLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{}
	if sessionID != "" {
		filter["session_id"] = sessionID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recognition logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []entities.RecognitionLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode recognition logs: %w", err)
	}
	return logs, nil
}
