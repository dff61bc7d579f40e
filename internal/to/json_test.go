package to_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lysand-org/lysand/internal/to"
	"github.com/stretchr/testify/require"
)

func TestJSONWritesEmptyArrayForNilSlice(t *testing.T) {
	require := require.New(t)

	rec := httptest.NewRecorder()
	require.NoError(to.JSON(rec, []string(nil)))
	require.Equal("[]", rec.Body.String())
	require.Equal(http.StatusOK, rec.Code)
	require.Equal("application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestJSONWritesEmptyObjectForNilMap(t *testing.T) {
	require := require.New(t)

	rec := httptest.NewRecorder()
	require.NoError(to.JSON(rec, map[string]string(nil)))
	require.Equal("{}", rec.Body.String())
}

func TestJSONDoesNotEscapeHTML(t *testing.T) {
	require := require.New(t)

	rec := httptest.NewRecorder()
	require.NoError(to.JSON(rec, map[string]any{"note": "<p>hi</p>"}))
	require.Equal("{\n  \"note\": \"<p>hi</p>\"\n}", rec.Body.String())
}

func TestJSONStatus(t *testing.T) {
	require := require.New(t)

	rec := httptest.NewRecorder()
	require.NoError(to.JSONStatus(rec, http.StatusAccepted, map[string]any{}))
	require.Equal(http.StatusAccepted, rec.Code)
}
