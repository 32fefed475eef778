package presence

import (
	"context"
	"encoding/json"
	"errors"
	"gameboard-server/core"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// Registry is the subset of presence.Registry the handlers call.
type Registry interface {
	Register(ctx context.Context, nickname, participantID string) (core.PresenceEntry, error)
	Unregister(ctx context.Context, participantID string) error
	List(ctx context.Context) ([]core.PresenceEntry, error)
	Clear(ctx context.Context) error
}

type (
	// LegacyEntry is the /buscar row shape; the timestamp is a decimal string.
	LegacyEntry struct {
		Nickname  string `json:"nickname"`
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
	}

	RegisterRequest struct {
		Nickname string `json:"nickname"`
		ID       string `json:"id"`
	}
)

func message(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": msg})
}

// writeError maps registry errors to status codes. Storage details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		message(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		message(w, r, http.StatusNotFound, "id not found")
	default:
		message(w, r, http.StatusInternalServerError, failure)
	}
}

func register(reg Registry, nickname, id string, w http.ResponseWriter, r *http.Request) {
	if nickname == "" || id == "" {
		message(w, r, http.StatusBadRequest, "nickname and id are required")
		return
	}

	if _, err := reg.Register(r.Context(), nickname, id); err != nil {
		writeError(w, r, err, "failed to save registration")
		return
	}
	message(w, r, http.StatusCreated, "registration successful")
}

func unregister(reg Registry, id string, w http.ResponseWriter, r *http.Request) {
	if id == "" {
		message(w, r, http.StatusBadRequest, "id is required")
		return
	}

	if err := reg.Unregister(r.Context(), id); err != nil {
		writeError(w, r, err, "failed to delete registration")
		return
	}
	message(w, r, http.StatusOK, "registration deleted")
}

func clearAll(reg Registry, w http.ResponseWriter, r *http.Request) {
	if err := reg.Clear(r.Context()); err != nil {
		writeError(w, r, err, "failed to delete all registrations")
		return
	}
	message(w, r, http.StatusOK, "all registrations deleted")
}

// HandleLegacyRegister serves GET /cadastro?nickname=&id=.
func HandleLegacyRegister(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		register(reg, q.Get("nickname"), q.Get("id"), w, r)
	}
}

// HandleLegacyDelete serves GET /delete?id=.
func HandleLegacyDelete(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unregister(reg, r.URL.Query().Get("id"), w, r)
	}
}

// HandleLegacyList serves GET /buscar.
func HandleLegacyList(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := reg.List(r.Context())
		if err != nil {
			writeError(w, r, err, "failed to read registrations")
			return
		}

		rows := make([]LegacyEntry, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, LegacyEntry{
				Nickname:  e.Nickname,
				ID:        e.ParticipantID,
				Timestamp: strconv.FormatInt(e.JoinedAt, 10),
			})
		}
		render.JSON(w, r, rows)
	}
}

// HandleLegacyDeleteAll serves GET /deleteAll.
func HandleLegacyDeleteAll(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearAll(reg, w, r)
	}
}

func HandleRegister(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithError(err).Debug("Invalid presence registration body")
			message(w, r, http.StatusBadRequest, "invalid JSON in request body")
			return
		}
		register(reg, req.Nickname, req.ID, w, r)
	}
}

func HandleUnregister(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unregister(reg, chi.URLParam(r, "id"), w, r)
	}
}

func HandleList(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := reg.List(r.Context())
		if err != nil {
			writeError(w, r, err, "failed to read registrations")
			return
		}
		render.JSON(w, r, entries)
	}
}

func HandleClear(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearAll(reg, w, r)
	}
}

// Routes mounts the original query-string routes and the REST aliases on r.
// limit wraps the two registration routes.
func Routes(r chi.Router, reg Registry, limit func(http.Handler) http.Handler) {
	r.With(limit).Get("/cadastro", HandleLegacyRegister(reg))
	r.Get("/delete", HandleLegacyDelete(reg))
	r.Get("/buscar", HandleLegacyList(reg))
	r.Get("/deleteAll", HandleLegacyDeleteAll(reg))

	r.Route("/api/presence", func(r chi.Router) {
		r.Get("/", HandleList(reg))
		r.With(limit).Post("/", HandleRegister(reg))
		r.Delete("/", HandleClear(reg))
		r.Delete("/{id}", HandleUnregister(reg))
	})
}
