package entities

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecognitionLog is one persisted record of a completed recognition:
// which session or API mode produced it, what was heard and what command
// it resolved to. Raw audio is never stored.
type RecognitionLog struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID  string             `json:"session_id" bson:"session_id"`
	Mode       string             `json:"mode" bson:"mode"`
	Transcript string             `json:"transcript" bson:"transcript"`
	Action     *Action            `json:"action" bson:"action,omitempty"`
	Confidence float64            `json:"confidence" bson:"confidence"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}
