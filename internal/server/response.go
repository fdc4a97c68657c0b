package server

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/pkg/errors"

	"github.com/hytous/RigidLabeler/internal/imageio"
	"github.com/hytous/RigidLabeler/internal/labels"
	"github.com/hytous/RigidLabeler/internal/logging"
	"github.com/hytous/RigidLabeler/internal/transform"
)

// Error codes beyond the transform kinds.
const (
	CodeLabelNotFound = "LABEL_NOT_FOUND"
	CodeIOError       = "IO_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
)

const maxBodyBytes = 10 << 20

// Response is the envelope of every API reply.
type Response struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Data      interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warning("failed to write response: %v", err)
	}
}

func writeOK(w http.ResponseWriter, data interface{}, message string) {
	writeJSON(w, http.StatusOK, Response{Status: "ok", Message: message, Data: data})
}

// writeError reports a failure inside the envelope. Clients read the
// outcome from the envelope, so the HTTP status stays 200.
func writeError(w http.ResponseWriter, err error) {
	code := errorCode(err)
	if code == CodeInternal {
		logging.Error("internal error: %+v", err)
	} else {
		logging.Debug("request failed with %s: %v", code, err)
	}
	writeJSON(w, http.StatusOK, Response{Status: "error", ErrorCode: code, Message: err.Error()})
}

func invalidInput(format string, v ...interface{}) error {
	return transform.Errorf(transform.InvalidInput, format, v...)
}

// errorCode maps an error onto the wire error codes.
func errorCode(err error) string {
	if kind, ok := transform.KindOf(err); ok {
		return kind.Code()
	}

	switch {
	case errors.Is(err, labels.ErrNotFound):
		return CodeLabelNotFound
	case errors.Is(err, labels.ErrInvalid):
		return transform.InvalidInput.Code()
	}

	var (
		imageErr  *imageio.Error
		pathErr   *fs.PathError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &imageErr), errors.As(err, &pathErr),
		errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return CodeIOError
	}
	return CodeInternal
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return invalidInput("invalid request body: %v", err)
	}
	return nil
}
