package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON document from the request body into v.
// Unknown fields are accepted; the engine only reads what it needs.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case isValidationError(err):
			// value errors from core types keep their sentinel for mapping
			return err
		default:
			return badRequest("invalid JSON: " + err.Error())
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("query parameter %q must be an integer", key))
	}
	return n, nil
}

// pathIndex reads a non-negative integer path variable.
func pathIndex(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)[key])
	if err != nil || n < 0 {
		return 0, badRequest(fmt.Sprintf("path parameter %q must be a non-negative integer", key))
	}
	return n, nil
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}
