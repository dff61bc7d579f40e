package httpx

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type testEnv struct{}

func (testEnv) Log() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func envFn(*http.Request) testEnv { return testEnv{} }

func TestHandlerFunc(t *testing.T) {
	t.Run("StatusError is written with its code", func(t *testing.T) {
		require := require.New(t)
		h := HandlerFunc(envFn, func(testEnv, http.ResponseWriter, *http.Request) error {
			return Error(http.StatusNotFound, errors.New("account not found"))
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest("GET", "/", nil))
		require.Equal(http.StatusNotFound, rec.Code)
		require.JSONEq(`{"error":"account not found"}`, rec.Body.String())
	})

	t.Run("wrapped StatusError is found", func(t *testing.T) {
		require := require.New(t)
		h := HandlerFunc(envFn, func(testEnv, http.ResponseWriter, *http.Request) error {
			return errors.Join(errors.New("context"), Error(http.StatusBadGateway, errors.New("delivery failed")))
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest("GET", "/", nil))
		require.Equal(http.StatusBadGateway, rec.Code)
	})

	t.Run("other errors are a 500", func(t *testing.T) {
		require := require.New(t)
		h := HandlerFunc(envFn, func(testEnv, http.ResponseWriter, *http.Request) error {
			return errors.New("database on fire")
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest("GET", "/", nil))
		require.Equal(http.StatusInternalServerError, rec.Code)
		require.NotContains(rec.Body.String(), "database on fire")
	})
}

type followParams struct {
	Reblogs   *bool    `schema:"reblogs" json:"reblogs"`
	Notify    bool     `schema:"notify" json:"notify"`
	Languages []string `schema:"languages[]" json:"languages"`
}

func TestParams(t *testing.T) {
	t.Run("form", func(t *testing.T) {
		require := require.New(t)
		req := httptest.NewRequest("POST", "/", strings.NewReader("reblogs=false&notify=true&languages[]=en&languages[]=de&unknown=1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var p followParams
		require.NoError(Params(req, &p))
		require.NotNil(p.Reblogs)
		require.False(*p.Reblogs)
		require.True(p.Notify)
		require.Equal([]string{"en", "de"}, p.Languages)
	})

	t.Run("json", func(t *testing.T) {
		require := require.New(t)
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"notify":true,"languages":["fr"]}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		var p followParams
		require.NoError(Params(req, &p))
		require.Nil(p.Reblogs)
		require.True(p.Notify)
		require.Equal([]string{"fr"}, p.Languages)
	})

	t.Run("query string when no content type", func(t *testing.T) {
		require := require.New(t)
		req := httptest.NewRequest("POST", "/?notify=true", nil)
		var p followParams
		require.NoError(Params(req, &p))
		require.True(p.Notify)
	})

	t.Run("unsupported media type", func(t *testing.T) {
		require := require.New(t)
		req := httptest.NewRequest("POST", "/", strings.NewReader("<xml/>"))
		req.Header.Set("Content-Type", "application/xml")
		var p followParams
		err := Params(req, &p)
		var se *StatusError
		require.ErrorAs(err, &se)
		require.Equal(http.StatusUnsupportedMediaType, se.Status())
	})
}
