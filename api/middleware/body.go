package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/papelisco/storefront/api/validators"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
)

// bufferBody reads at most validators.MaxBodyBytes and puts the bytes back on the request
// for the next handler.
func bufferBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
