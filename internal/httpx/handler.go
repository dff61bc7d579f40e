// Package httpx is a convenience wrapper around http.HandlerFunc that
// allows handlers to return errors.
// see https://blog.questionable.services/article/http-handler-error-handling-revisited/ for more details.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-json-experiment/json"
	"golang.org/x/exp/slog"
)

// Error is a convenience function for returning an error with an associated HTTP status code.
func Error(code int, err error) error {
	return &StatusError{code, err}
}

// StatusError represents an error with an associated HTTP status code.
type StatusError struct {
	Code int
	Err  error
}

func (se *StatusError) Error() string {
	return se.Err.Error()
}

func (se *StatusError) Unwrap() error {
	return se.Err
}

// Status returns the HTTP status code.
func (se *StatusError) Status() int {
	return se.Code
}

// Env is the per request environment handed to a handler.
type Env interface {
	Log() *slog.Logger
}

// HandlerFunc adapts a function that returns an error to an http.HandlerFunc.
// A StatusError is written with its code and message, any other error is a 500.
func HandlerFunc[E Env](envFn func(r *http.Request) E, fn func(E, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := envFn(r)
		err := fn(env, w, r)
		if err == nil {
			return
		}
		code, msg := http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
		if se := new(StatusError); errors.As(err, &se) {
			code, msg = se.Status(), se.Error()
		}
		env.Log().Error("http", "method", r.Method, "path", r.URL.Path, "status", code, "err", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		json.MarshalFull(w, map[string]any{
			"error": msg,
		})
	}
}
