package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/repositories"
	"github.com/siseonlab/voicecoach/internal/auth"
	"github.com/siseonlab/voicecoach/internal/websocket"
)

// Routes bundles everything the HTTP surface needs.
type Routes struct {
	Hub  *websocket.Hub
	STT  *STTHandler
	Auth *auth.Authenticator

	// Known API clients: client_id -> secret.
	Clients map[string]string

	// When set, /ws rejects connections without a valid bearer token.
	WSAuthRequired bool

	Logs     repositories.RecognitionLogRepository
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, r Routes) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voicecoach-server",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/clients/auth", func(c echo.Context) error {
		return clientAuth(c, r)
	})

	v1.POST("/stt/:mode", r.STT.Handle)

	v1.GET("/recognitions", func(c echo.Context) error {
		return listRecognitions(c, r)
	})

	// WebSocket endpoint, optionally behind JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketEndpoint(r, c)
	})
}

// clientAuth exchanges a client_id/secret pair for a signed token.
func clientAuth(c echo.Context, r Routes) error {
	var req ClientAuthRequest

	if err := c.Bind(&req); err != nil {
		r.Logger.Error("Failed to bind client auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.ClientID == "" || req.SecretKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Client ID and secret key are required",
		})
	}

	secret, ok := r.Clients[req.ClientID]
	if !ok || subtle.ConstantTimeCompare([]byte(secret), []byte(req.SecretKey)) != 1 {
		r.Logger.Warn("Client authentication failed",
			zap.String("client_id", req.ClientID))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid client credentials",
		})
	}

	token, expiresAt, err := r.Auth.GenerateClientToken(req.ClientID)
	if err != nil {
		r.Logger.Error("Failed to generate client token",
			zap.String("client_id", req.ClientID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	r.Logger.Info("Client authenticated successfully",
		zap.String("client_id", req.ClientID))

	return c.JSON(http.StatusOK, ClientAuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		ClientID:  req.ClientID,
	})
}

// listRecognitions returns recent recognition logs, newest first.
func listRecognitions(c echo.Context, r Routes) error {
	if r.Logs == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "logging_disabled",
			Message: "Recognition logging is not configured",
		})
	}

	sessionID := c.QueryParam("session_id")
	var limit int64
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a non-negative integer",
			})
		}
		limit = parsed
	}

	logs, err := r.Logs.ListBySession(c.Request().Context(), sessionID, limit)
	if err != nil {
		r.Logger.Error("Failed to list recognitions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list recognitions",
		})
	}

	entries := make([]RecognitionLogEntry, 0, len(logs))
	for _, log := range logs {
		entry := RecognitionLogEntry{
			SessionID:  log.SessionID,
			Mode:       log.Mode,
			Transcript: log.Transcript,
			Confidence: log.Confidence,
			CreatedAt:  log.CreatedAt,
		}
		if log.Action != nil {
			action := string(*log.Action)
			entry.Action = &action
		}
		entries = append(entries, entry)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"recognitions": entries,
	})
}

// websocketEndpoint upgrades the connection, validating the bearer token
// first when authentication is required.
func websocketEndpoint(r Routes, c echo.Context) error {
	if r.WSAuthRequired {
		var token string
		authHeader := c.Request().Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
		if token == "" {
			token = c.QueryParam("token")
		}

		if token == "" {
			r.Logger.Warn("WebSocket connection rejected: missing token")
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "JWT token is required",
			})
		}

		claims, err := r.Auth.ValidateToken(token)
		if err != nil {
			r.Logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired JWT token",
			})
		}

		r.Logger.Info("WebSocket connection authenticated",
			zap.String("client_id", claims.ClientID))
	}

	return websocket.HandleWebSocket(r.Hub, c, r.Logger)
}
