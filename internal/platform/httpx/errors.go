// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/inkroom/inkroom/internal/shared"
)

type errorMapping struct {
	target error
	status int
	title  string
}

// errorMappings is checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{shared.ErrNotFound, http.StatusNotFound, "Not Found"},
	{shared.ErrAlreadyExists, http.StatusConflict, "Duplicate"},
	{shared.ErrInvalidInput, http.StatusBadRequest, "Validation Failed"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "Timeout"},
	{context.Canceled, http.StatusServiceUnavailable, "Request Canceled"},
}

// RespondError writes err as an RFC7807 problem. Errors outside the shared
// taxonomy become a 500 without detail.
func RespondError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			detail := err.Error()
			if m.status >= http.StatusInternalServerError {
				detail = ""
			}
			Problem(w, m.status, m.title, detail)
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
