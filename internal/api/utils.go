package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// errorEnvelope is the uniform error body:
// {"success": false, "error": {"message": ..., "code": ...}}
type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WriteJSONResponse writes data as JSON. The body always passes through the
// safety layer so a pathological payload can never produce a broken response.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js := SafeMarshal(data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// WriteError is the central error-translation layer. AppErrors map to their
// own status/code; anything else is downgraded to a generic 500 and logged
// with full detail server-side.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		slog.ErrorContext(r.Context(), "Unexpected error",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		appErr = ErrInternal()
	}

	WriteJSONResponse(w, r, appErr.Status, errorEnvelope{
		Success: false,
		Error:   errorBody{Message: appErr.Message, Code: appErr.Code},
	})
}

// DecodeJSONBody reads and decodes a JSON request body safely. Decode
// failures are client faults and come back as 400 AppErrors, ready for
// WriteError.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return ErrValidation(fmt.Sprintf("body contains badly-formed JSON (at character %d)", syntaxError.Offset))

		case errors.Is(err, io.ErrUnexpectedEOF):
			return ErrValidation("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return ErrValidation(fmt.Sprintf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field))
			}
			return ErrValidation(fmt.Sprintf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset))

		case errors.Is(err, io.EOF):
			return ErrValidation("body must not be empty")

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			fieldName = strings.Trim(fieldName, `"`)
			return ErrValidation(fmt.Sprintf("body contains unknown key %q", fieldName))

		case errors.As(err, &maxBytesError):
			return ErrValidation(fmt.Sprintf("body must not be larger than %d bytes", maxBytesError.Limit))

		default:
			return ErrValidation("body could not be decoded as JSON")
		}
	}

	if err = dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrValidation("body must only contain a single JSON value")
	}

	return nil
}
