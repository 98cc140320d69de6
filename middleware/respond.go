package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	goAuthz "github.com/MrEthical07/goAuthz"
)

const (
	jsonKeyError      = "error"
	msgInternal       = "internal error"
	msgBodyTooLarge   = "request body too large"
	msgBodyUnreadable = "request body unreadable"
)

// ErrBodyTooLarge is returned by ReadBody when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// StatusFor maps a denial kind to its HTTP status.
func StatusFor(kind goAuthz.ErrorKind) int {
	switch kind {
	case goAuthz.KindUnauthorized:
		return http.StatusUnauthorized
	case goAuthz.KindNotAcceptable:
		return http.StatusNotAcceptable
	case goAuthz.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ReadBody buffers up to limit bytes of r's body and replaces r.Body with a
// reader over the buffered copy so handlers can still consume it.
// Read-style requests are not read.
func ReadBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return nil, nil
	}

	// One byte past the limit detects oversized bodies.
	readLimit := limit
	if limit < math.MaxInt64 {
		readLimit = limit + 1
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, readLimit))
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort write; the client may be gone
	json.NewEncoder(w).Encode(map[string]string{jsonKeyError: message})
}
