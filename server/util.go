// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bvk/steambot/api"
)

// maxRequestBytes limits the size of json request bodies.
const maxRequestBytes = 1 << 20

// statusError is an operation failure with a specific http status and
// response body.
type statusError struct {
	status int
	body   any
	err    error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d: %v", e.status, e.err)
}

func (e *statusError) Unwrap() error {
	return e.err
}

func newStatusError(status int, code string, err error) *statusError {
	return &statusError{
		status: status,
		err:    err,
		body: &api.ErrorResponse{
			Error: err.Error(),
			Code:  code,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("could not write json response", "err", err)
	}
}

func writeResult[RESP any](w http.ResponseWriter, r *http.Request, resp *RESP, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	var serr *statusError
	if errors.As(err, &serr) {
		slog.Info("http request failed", "path", r.URL.Path, "status", serr.status, "err", serr.err)
		writeJSON(w, serr.status, serr.body)
		return
	}
	slog.Error("http request failed", "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, &api.ErrorResponse{Error: err.Error(), Code: api.CodeInternal})
}

func httpPostJSONHandler[REQ, RESP any](fun func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, &api.ErrorResponse{Error: "method not allowed", Code: api.CodeInvalidRequest})
			return
		}
		req := new(REQ)
		decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
		if err := decoder.Decode(req); err != nil {
			writeJSON(w, http.StatusBadRequest, &api.ErrorResponse{
				Error: fmt.Sprintf("could not decode json request: %v", err),
				Code:  api.CodeInvalidRequest,
			})
			return
		}
		resp, err := fun(r.Context(), req)
		writeResult(w, r, resp, err)
	})
}

func httpGetJSONHandler[RESP any](fun func(context.Context) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, &api.ErrorResponse{Error: "method not allowed", Code: api.CodeInvalidRequest})
			return
		}
		resp, err := fun(r.Context())
		writeResult(w, r, resp, err)
	})
}

// checkPassword compares the input with the admin password in constant time.
func (s *Server) checkPassword(password string) bool {
	want := sha256.Sum256([]byte(s.secrets.AdminPassword))
	got := sha256.Sum256([]byte(password))
	return len(s.secrets.AdminPassword) != 0 && subtle.ConstantTimeCompare(want[:], got[:]) == 1
}
