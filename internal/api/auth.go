package api

import (
	"net/http"

	"github.com/mattjoyce/mercury/internal/auth"
)

// authMiddleware admits requests whose bearer token is the configured Slack
// token and stores it on the request context for the handler.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearerToken(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if !auth.Equal(token, string(s.config.SlackToken)) {
			s.writeError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithToken(r.Context(), token)))
	})
}
