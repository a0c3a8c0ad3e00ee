package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jukedrop/jukedrop/internal/apperr"
)

const maxBodyBytes = 64 << 10

// errorBody is the JSON shape every failed operation returns.
type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// bind decodes the request body into dst and validates it. An empty body is
// allowed for inputs with no required fields.
func (h *Handlers) bind(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.NewInvalidInput("body", "malformed JSON")
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, ve := range verrs {
				fields[ve.Field()] = fmt.Sprintf("failed %q validation", ve.Tag())
			}
			return &apperr.InvalidInput{Fields: fields}
		}
		return apperr.NewInvalidInput("body", err.Error())
	}
	return nil
}

// writeJSON renders a success payload.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Errorw("encoding response", "error", err)
	}
}

// writeError normalizes an error onto the taxonomy's HTTP mapping.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var invalid *apperr.InvalidInput

	status := http.StatusInternalServerError
	code := "INTERNAL"
	var fields map[string]string

	switch {
	case errors.As(err, &invalid):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
		fields = invalid.Fields
	case errors.Is(err, apperr.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, apperr.ErrMissingRequesterIdentity):
		status, code = http.StatusBadRequest, "MISSING_REQUESTER_IDENTITY"
	case errors.Is(err, apperr.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperr.ErrQuotaExhausted):
		status, code = http.StatusTooManyRequests, "QUOTA_EXHAUSTED"
	case errors.Is(err, apperr.ErrNoActiveDevice):
		status, code = http.StatusConflict, "NO_ACTIVE_DEVICE"
	case errors.Is(err, apperr.ErrRemoteDataInvalid):
		status, code = http.StatusBadGateway, "REMOTE_DATA_INVALID"
	case errors.Is(err, apperr.ErrServiceAuthFailure):
		status, code = http.StatusBadGateway, "SERVICE_AUTH_FAILURE"
	}

	if status == http.StatusInternalServerError {
		h.log.Errorw("operation failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:  err.Error(),
		Code:   code,
		Fields: fields,
	})
}
