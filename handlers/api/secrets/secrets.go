package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"gameboard-server/core"
	"gameboard-server/middleware"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type Vault interface {
	Slots() []string
	SetSecret(ctx context.Context, slot, plaintext string) error
	GetSecret(ctx context.Context, slot string) (string, error)
}

type (
	SetSecretRequest struct {
		Value string `json:"value"`
	}

	SecretResponse struct {
		Slot  string `json:"slot"`
		Value string `json:"value"`
	}

	SlotsResponse struct {
		Slots []string `json:"slots"`
	}
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "Failed to access secret storage"
	switch {
	case errors.Is(err, core.ErrUnknownSlot):
		status, msg = http.StatusNotFound, "Unknown secret slot"
	case errors.Is(err, core.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrNotFound):
		status, msg = http.StatusNotFound, "Secret is not set"
	case errors.Is(err, core.ErrDecryption):
		msg = "stored secret could not be decrypted"
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func subject(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

func HandleListSlots(v Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, SlotsResponse{Slots: v.Slots()})
	}
}

func HandleSetSecret(v Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot := chi.URLParam(r, "slot")

		var req SetSecretRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}

		if err := v.SetSecret(r.Context(), slot, req.Value); err != nil {
			writeError(w, r, err)
			return
		}

		logrus.WithFields(logrus.Fields{
			"slot":    slot,
			"subject": subject(r),
		}).Info("Secret updated via API")
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleGetSecret(v Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot := chi.URLParam(r, "slot")

		value, err := v.GetSecret(r.Context(), slot)
		if err != nil {
			writeError(w, r, err)
			return
		}

		logrus.WithFields(logrus.Fields{
			"slot":    slot,
			"subject": subject(r),
		}).Info("Secret read via API")
		render.JSON(w, r, SecretResponse{Slot: slot, Value: value})
	}
}

// Routes mounts the slot routes on r. Callers wrap r with authentication.
func Routes(r chi.Router, v Vault) {
	r.Get("/", HandleListSlots(v))
	r.Route("/{slot}", func(r chi.Router) {
		r.Get("/", HandleGetSecret(v))
		r.Put("/", HandleSetSecret(v))
	})
}
