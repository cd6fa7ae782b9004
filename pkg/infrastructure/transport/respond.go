package transport

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/model"
)

const authPagePath = "/auth"

type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	b, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(b); err != nil {
		log.WithField("err", err).Error("write response status")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if status == http.StatusUnauthorized {
		resp.Redirect = authPagePath
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("status", status).Error("request failed")
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrConfirmationRequired), errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUpload), errors.Is(err, model.ErrDataAccess):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(model.ErrValidation, "malformed JSON body")
	}
	return nil
}

// parseMultipart caps the request body at MaxUploadSize before parsing it.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(h.opts.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Wrapf(model.ErrValidation, "upload exceeds %d bytes", tooLarge.Limit)
		}
		return errors.Wrap(model.ErrValidation, "malformed multipart form")
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, errors.Wrapf(model.ErrValidation, "invalid %s", name)
	}
	return id, nil
}
