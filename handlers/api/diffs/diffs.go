package diffs

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"bindiff/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=diffs.go -destination=mocks/mocks.go -package=mocks Service,Notifier

type (
	// Service is the part of the diff service the handlers need.
	Service interface {
		Upsert(ctx context.Context, id int64, side core.Side, content string) error
		Compare(ctx context.Context, id int64) (*core.DiffResult, error)
	}

	// Notifier is told about every successful upsert.
	Notifier interface {
		RecordUpdated(id int64, side core.Side)
	}

	PostBinDataRequest struct {
		Data string `json:"data"`
	}

	ErrorResponse struct {
		Message string `json:"message"`
	}
)

// Register mounts the diff endpoints under /v1/diff.
func Register(r chi.Router, service Service, notifier Notifier) {
	r.Route("/v1/diff/{id}", func(r chi.Router) {
		r.Get("/", HandleGetDiff(service))
		r.Post("/left", HandleUpsert(service, core.SideLeft, notifier))
		r.Post("/right", HandleUpsert(service, core.SideRight, notifier))
	})
}

func HandleGetDiff(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		result, err := service.Compare(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, result)
	}
}

func HandleUpsert(service Service, side core.Side, notifier Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		data := &PostBinDataRequest{}
		// Clients do not always send a JSON content type, so decode unconditionally.
		if err := render.DecodeJSON(r.Body, data); err != nil {
			logrus.WithFields(logrus.Fields{
				"record_id": id,
				"side":      side,
				"error":     err,
			}).Debug("Failed to decode request body")
			writeMessage(w, r, http.StatusBadRequest, "Invalid request body.")
			return
		}
		if err := service.Upsert(r.Context(), id, side, data.Data); err != nil {
			writeError(w, r, err)
			return
		}
		if notifier != nil {
			notifier.RecordUpdated(id, side)
		}
		w.WriteHeader(http.StatusOK)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid id.")
		return 0, false
	}
	return id, true
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindInvalidArgument, core.KindFailedPrecondition:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	message := err.Error()
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		message = "Internal server error."
	}
	if status >= http.StatusInternalServerError {
		logrus.WithField("error", err).Error("Request failed")
	}
	writeMessage(w, r, status, message)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Message: message})
}
