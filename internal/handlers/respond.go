package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"nuclear/internal/apperr"
	"nuclear/internal/repository"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Invalid("request", "body", "is required")
		case errors.As(err, &maxErr):
			return apperr.Invalid("request", "body", "is too large")
		default:
			return apperr.Invalid("request", "body", "is not valid JSON: "+err.Error())
		}
	}
	if dec.More() {
		return apperr.Invalid("request", "body", "must contain a single JSON object")
	}
	return nil
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPagination(opts repository.ListOptions, total int) pagination {
	pages := 0
	if opts.Limit > 0 {
		pages = (total + opts.Limit - 1) / opts.Limit
	}
	return pagination{Page: opts.Page, Limit: opts.Limit, Total: total, Pages: pages}
}

// listOptions reads page, limit and search from the query string
func listOptions(r *http.Request) (repository.ListOptions, error) {
	q := r.URL.Query()
	opts := repository.ListOptions{Search: q.Get("search")}

	var err error
	if opts.Page, err = queryInt(r, "page"); err != nil {
		return opts, err
	}
	if opts.Limit, err = queryInt(r, "limit"); err != nil {
		return opts, err
	}
	return opts.Normalize(), nil
}

// queryInt returns 0 when the parameter is absent
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid("request", name, "must be an integer")
	}
	return n, nil
}
