package repositories

import (
	"context"

	"github.com/siseonlab/voicecoach/domain/entities"
)

// RecognitionLogRepository persists completed recognitions so coaches can
// review what commands a session produced. Logging is best-effort
// everywhere it is called: a failed insert never fails a recognition.
type RecognitionLogRepository interface {
	Insert(ctx context.Context, log *entities.RecognitionLog) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]entities.RecognitionLog, error)
}
