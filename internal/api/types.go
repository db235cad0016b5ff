package api

import "time"

// ClientAuthRequest represents the request payload for client authentication
type ClientAuthRequest struct {
	ClientID  string `json:"client_id" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
}

// ClientAuthResponse represents the response payload for client authentication
type ClientAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RecognitionLogEntry is one recent recognition returned by the listing
// endpoint.
type RecognitionLogEntry struct {
	SessionID  string    `json:"session_id"`
	Mode       string    `json:"mode"`
	Transcript string    `json:"transcript"`
	Action     *string   `json:"action"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}
