// Package httputil provides JSON request and response helpers for handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	svcerrors "github.com/R3E-Network/paneladmin/internal/errors"
)

// MaxBodyBytes bounds request bodies accepted by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON envelope for error responses.
type ErrorBody struct {
	Error *svcerrors.ServiceError `json:"error"`
}

// WriteJSON encodes data with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError renders err. ServiceErrors keep their status and code, anything
// else becomes an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	se, ok := svcerrors.As(err)
	if !ok {
		se = svcerrors.Internal("internal server error", err)
	}
	WriteJSON(w, se.HTTPStatus, ErrorBody{Error: se})
}

// DecodeJSON reads a single JSON document from r into dst, rejecting unknown
// fields and bodies larger than MaxBodyBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return svcerrors.BadRequest(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return svcerrors.BadRequest("request body is empty")
		default:
			return svcerrors.BadRequest("invalid JSON body: " + err.Error())
		}
	}
	if dec.More() {
		return svcerrors.BadRequest("request body must contain a single JSON document")
	}
	return nil
}
