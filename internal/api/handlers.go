package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/mattjoyce/mercury/internal/auth"
	"github.com/mattjoyce/mercury/internal/heroku"
	"github.com/mattjoyce/mercury/internal/slack"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

var errBodyTooLarge = errors.New("payload too large")

// handleHealth handles GET /api/v1/health (no auth).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleSlack handles POST /api/v1/slack.
// Posts a message using the caller's bearer token for the Slack calls.
func (s *Server) handleSlack(w http.ResponseWriter, r *http.Request) {
	mediaType := parseMediaType(r)
	if mediaType != contentTypeForm && mediaType != contentTypeJSON {
		s.writeError(w, http.StatusUnsupportedMediaType,
			"requests must have Content-Type: application/x-www-form-urlencoded or application/json")
		return
	}

	body, err := s.readBody(r)
	if err != nil {
		s.writeBodyError(w, err)
		return
	}

	var req MessageRequest
	if mediaType == contentTypeForm {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, "failed to parse form body: "+err.Error())
			return
		}
		req = messageRequestFromForm(form)
	} else if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "failed to parse JSON body: "+err.Error())
		return
	}

	msg, err := req.Message()
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token, _ := auth.TokenFromContext(r.Context())
	if err := s.notifier.Deliver(r.Context(), msg, slack.AccessToken(token)); err != nil {
		status := slackErrorStatus(err)
		s.logger.Error("slack delivery failed", "channel", msg.Channel, "status", status, "error", err)
		s.writeError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, DeliveryResponse{Status: "delivered", Channel: msg.Channel.String()})
}

// handleHerokuHook handles POST /api/v1/heroku/hook.
// The body must be signed with the shared secret; the target platform and
// channel come from the query string.
func (s *Server) handleHerokuHook(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") == "" {
		s.writeError(w, http.StatusBadRequest, "missing Content-Type header")
		return
	}
	if parseMediaType(r) != contentTypeJSON {
		s.writeError(w, http.StatusUnsupportedMediaType, "requests must have Content-Type: application/json")
		return
	}

	target, err := heroku.ParseTarget(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := s.readBody(r)
	if err != nil {
		s.writeBodyError(w, err)
		return
	}

	if s.config.HerokuSecret == "" {
		s.logger.Warn("webhook rejected: no heroku secret configured")
		s.writeError(w, http.StatusUnauthorized, "webhook verification is not configured")
		return
	}
	if err := heroku.CheckSignature(s.config.HerokuSecret, body, r.Header.Get(heroku.SignatureHeader)); err != nil {
		s.logger.Warn("webhook rejected", "error", err)
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := s.forwarder.Forward(r.Context(), target, body)
	if err != nil {
		if heroku.IsDecodeError(err) {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to forward webhook")
		return
	}

	respondJSON(w, http.StatusOK, WebhookResponse{Result: string(result)})
}

// slackErrorStatus maps a delivery failure to a response status.
func slackErrorStatus(err error) int {
	switch {
	case slack.IsAuthError(err):
		return http.StatusUnauthorized
	case slack.IsUnknownChannel(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseMediaType(r *http.Request) string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mediaType
}

// readBody reads at most MaxBodySize bytes of the request body.
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.config.MaxBodySize {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func (s *Server) writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		s.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	s.writeError(w, http.StatusBadRequest, "failed to read request body")
}

// respondJSON is a helper to write JSON responses
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
