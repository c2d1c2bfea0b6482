package api

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// WorkspaceMiddleware requires the X-Workspace-ID header on management routes.
// Every entity query is scoped to the workspace named by the header.
func (s *Server) WorkspaceMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Workspace-ID") == "" {
				s.writeError(w, http.StatusBadRequest, "X-Workspace-ID header required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IngestAuthConfig controls ingest authentication behavior.
type IngestAuthConfig struct {
	// Enabled controls whether authentication is enforced.
	// When false, authentication is checked but not required (grace period mode).
	Enabled bool

	// Logger for authentication events.
	Logger *slog.Logger
}

// IngestAuthMiddleware creates middleware that validates workspace API keys.
// During the grace period (Enabled=false), it logs but doesn't reject unauthenticated requests.
func (s *Server) IngestAuthMiddleware(config IngestAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Enforcement can be switched on after route registration, so the
			// server flag is consulted per request.
			enforce := config.Enabled || s.ingestAuthEnabled

			// Extract workspace ID and API key
			wsID := r.Header.Get("X-Workspace-ID")
			authHeader := r.Header.Get("Authorization")

			// Check if auth headers are present
			if wsID == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				if enforce {
					config.Logger.Warn("ingest auth failed: missing credentials",
						"path", r.URL.Path,
						"workspace_id", wsID,
						"has_auth_header", authHeader != "",
					)
					http.Error(w, "unauthorized: missing credentials", http.StatusUnauthorized)
					return
				}
				// Grace period: log but allow
				config.Logger.Debug("ingest auth: missing credentials (grace period)",
					"path", r.URL.Path,
					"workspace_id", wsID,
				)
				next.ServeHTTP(w, r)
				return
			}

			apiKey := strings.TrimPrefix(authHeader, "Bearer ")

			// Look up expected hash from database
			expectedHash, err := s.workspaces.GetWorkspaceAPIKeyHash(r.Context(), wsID)
			if err != nil {
				config.Logger.Error("ingest auth failed: database error",
					"workspace_id", wsID,
					"error", err,
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			// No key set for this workspace
			if expectedHash == "" {
				if enforce {
					config.Logger.Warn("ingest auth failed: no API key configured",
						"workspace_id", wsID,
						"path", r.URL.Path,
					)
					http.Error(w, "unauthorized: no API key configured", http.StatusUnauthorized)
					return
				}
				// Grace period: log but allow
				config.Logger.Debug("ingest auth: no API key configured (grace period)",
					"workspace_id", wsID,
				)
				next.ServeHTTP(w, r)
				return
			}

			// Verify the key hash
			if err := bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(apiKey)); err != nil {
				if enforce {
					config.Logger.Warn("ingest auth failed: invalid API key",
						"workspace_id", wsID,
						"path", r.URL.Path,
					)
					http.Error(w, "unauthorized: invalid API key", http.StatusUnauthorized)
					return
				}
				// Grace period: log but allow
				config.Logger.Warn("ingest auth: invalid API key (grace period - would reject)",
					"workspace_id", wsID,
				)
				next.ServeHTTP(w, r)
				return
			}

			// Authentication successful
			config.Logger.Debug("ingest auth successful",
				"workspace_id", wsID,
				"path", r.URL.Path,
			)
			next.ServeHTTP(w, r)
		})
	}
}

// wrapHandler converts an http.HandlerFunc to use middleware.
func wrapHandler(h http.HandlerFunc, middleware func(http.Handler) http.Handler) http.HandlerFunc {
	return middleware(h).ServeHTTP
}
