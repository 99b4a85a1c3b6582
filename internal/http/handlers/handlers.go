// Package handlers implements the trigger and preference endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/feed"
	"github.com/preston-bernstein/matchday-notifier/internal/logging"
	"github.com/preston-bernstein/matchday-notifier/internal/runner"
	"github.com/preston-bernstein/matchday-notifier/internal/scheduler"
	"github.com/preston-bernstein/matchday-notifier/internal/store"
)

const maxPreferenceBody = 64 << 10

// PollRunner is the slice of runner.Runner the handlers need.
type PollRunner interface {
	Competitions() []matches.Competition
	RunCompetition(ctx context.Context, id string) (matches.RunSummary, error)
}

// Handler wires HTTP routes to the poll pipeline.
type Handler struct {
	runner      PollRunner
	subscribers store.SubscriberWriter
	logger      *slog.Logger
	statusFn    func() scheduler.Report
}

// NewHandler constructs a Handler. statusFn may be nil when no scheduler runs in-process.
func NewHandler(r PollRunner, subscribers store.SubscriberWriter, logger *slog.Logger, statusFn func() scheduler.Report) *Handler {
	return &Handler{
		runner:      r,
		subscribers: subscribers,
		logger:      logger,
		statusFn:    statusFn,
	}
}

// Health reports the service health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := r.Context().Err(); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports readiness for traffic. Without a scheduler the service is ready once it serves.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.statusFn == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	report := h.statusFn()
	if report.IsReady() {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ready",
			"competitions": report.Competitions,
		}, h.logger)
		return
	}
	msg := report.LastError
	if msg == "" {
		msg = "not ready"
	}
	writeJSON(w, http.StatusServiceUnavailable, errorBody(r, map[string]any{
		"error":        msg,
		"competitions": report.Competitions,
	}), h.logger)
}

// Competitions lists the configured competitions.
func (h *Handler) Competitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"competitions": h.runner.Competitions(),
	}, h.logger)
}

type pollResponse struct {
	Success             bool     `json:"success"`
	Competition         string   `json:"competition"`
	RunID               string   `json:"runId"`
	MatchesProcessed    int      `json:"matchesProcessed"`
	MatchesSkipped      int      `json:"matchesSkipped"`
	NotificationsSent   int      `json:"notificationsSent"`
	NotificationsFailed int      `json:"notificationsFailed"`
	StateWriteFailures  int      `json:"stateWriteFailures"`
	Details             []string `json:"details"`
}

// Poll runs one poll cycle for the competition in the path.
func (h *Handler) Poll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "competition")
	logger := loggerFromContext(r, h.logger)

	// a client hanging up must not abandon a run between dispatch and persist
	ctx := context.WithoutCancel(r.Context())
	summary, err := h.runner.RunCompetition(ctx, id)

	switch {
	case errors.Is(err, runner.ErrUnknownCompetition):
		writeError(w, r, http.StatusNotFound, "unknown competition", logger)
		return
	case errors.Is(err, runner.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, errorBody(r, map[string]any{
			"success":     false,
			"competition": id,
			"error":       err.Error(),
		}), logger)
		return
	case err != nil:
		if !errors.Is(err, feed.ErrFeedUnavailable) {
			logging.Error(logger, "poll run failed", err, slog.String(logging.FieldCompetition, id))
		}
		writeJSON(w, http.StatusInternalServerError, errorBody(r, map[string]any{
			"success":     false,
			"competition": id,
			"error":       err.Error(),
		}), logger)
		return
	}

	writeJSON(w, http.StatusOK, pollResponse{
		Success:             true,
		Competition:         summary.Competition,
		RunID:               summary.RunID,
		MatchesProcessed:    summary.MatchesProcessed,
		MatchesSkipped:      summary.MatchesSkipped,
		NotificationsSent:   summary.NotificationsSent,
		NotificationsFailed: summary.NotificationsFailed,
		StateWriteFailures:  summary.StateWriteFailures,
		Details:             summary.TransitionSummaries,
	}, logger)
}

type preferencesRequest struct {
	Teams  []string `json:"teams"`
	Active *bool    `json:"active"`
}

// SetSubscriberTeams replaces the teams a subscriber follows and optionally flips its active flag.
func (h *Handler) SetSubscriberTeams(w http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r, h.logger)
	if h.subscribers == nil {
		writeError(w, r, http.StatusServiceUnavailable, "subscriber store not configured", logger)
		return
	}

	id := chi.URLParam(r, "subscriber")
	if err := store.ValidateSubscriberID(id); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), logger)
		return
	}

	var req preferencesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreferenceBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", logger)
		return
	}
	teams := cleanTeams(req.Teams)

	if err := h.subscribers.SetTeams(r.Context(), id, teams); err != nil {
		logging.Error(logger, "subscriber teams update failed", err, slog.String(logging.FieldRecipient, id))
		writeError(w, r, http.StatusInternalServerError, "failed to update subscriber", logger)
		return
	}
	if req.Active != nil {
		if err := h.subscribers.SetActive(r.Context(), id, *req.Active); err != nil {
			logging.Error(logger, "subscriber active update failed", err, slog.String(logging.FieldRecipient, id))
			writeError(w, r, http.StatusInternalServerError, "failed to update subscriber", logger)
			return
		}
	}

	logging.Info(logger, "subscriber preferences updated",
		slog.String(logging.FieldRecipient, id),
		slog.Int(logging.FieldCount, len(teams)),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"subscriber": id,
		"teams":      teams,
	}, logger)
}

func cleanTeams(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, team := range raw {
		team = strings.TrimSpace(team)
		if team == "" {
			continue
		}
		if _, dup := seen[team]; dup {
			continue
		}
		seen[team] = struct{}{}
		out = append(out, team)
	}
	return out
}
