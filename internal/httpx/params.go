package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/gorilla/schema"
)

// Params decodes the request parameters into v based on the method and
// Content-Type header. Query and form values are decoded with gorilla/schema
// using `schema` tags, JSON bodies with `json` tags.
func Params(r *http.Request, v interface{}) error {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return decodeValues(v, r.URL.RawQuery)
	case http.MethodPost:
		switch mediaType(r) {
		case "application/json":
			if err := json.UnmarshalFull(r.Body, v); err != nil {
				return Error(http.StatusBadRequest, err)
			}
		case "":
			// some clients POST with their parameters in the query string
			return decodeValues(v, r.URL.RawQuery)
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return Error(http.StatusBadRequest, err)
			}
			return decode(v, r.Form)
		case "multipart/form-data":
			if err := r.ParseMultipartForm(0); err != nil {
				return Error(http.StatusBadRequest, err)
			}
			return decode(v, r.PostForm)
		default:
			return Error(http.StatusUnsupportedMediaType, fmt.Errorf("unsupported media type: %q", r.Header.Get("Content-Type")))
		}
	default:
		return Error(http.StatusMethodNotAllowed, errors.New("unsupported method: "+r.Method))
	}
	return nil
}

func decodeValues(v interface{}, rawQuery string) error {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Error(http.StatusBadRequest, err)
	}
	return decode(v, values)
}

func decode(v interface{}, values url.Values) error {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	if err := dec.Decode(v, values); err != nil {
		return Error(http.StatusBadRequest, err)
	}
	return nil
}

// mediaType returns the media type of the request.
func mediaType(req *http.Request) string {
	return strings.TrimSpace(strings.Split(req.Header.Get("Content-Type"), ";")[0])
}
