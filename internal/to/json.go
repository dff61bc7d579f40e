// Package to writes values to http responses.
package to

import (
	"net/http"

	"github.com/go-json-experiment/json"
)

// JSON writes obj to the response body as indented JSON with a 200 status.
// Nil slices and maps are written as [] and {} respectively.
func JSON(w http.ResponseWriter, obj any) error {
	return JSONStatus(w, http.StatusOK, obj)
}

// JSONStatus writes obj to the response body as indented JSON with the given status.
func JSONStatus(w http.ResponseWriter, code int, obj any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	return json.MarshalOptions{}.MarshalFull(json.EncodeOptions{
		Indent: "  ",
	}, w, obj)
}
