package handlers

import (
	"context"
	"net/http"
	"strings"

	"nuclear/internal/apperr"
)

// search runs a case-insensitive term search from the q parameter
func search[T any](a *API, key string, find func(context.Context, string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := strings.TrimSpace(r.URL.Query().Get("q"))
		if term == "" {
			respondWithError(w, r, a.log, apperr.Invalid("request", "q", "is required"))
			return
		}
		items, err := find(r.Context(), term)
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{key: items})
	}
}

// random picks one row, restricted to blockId when given
func random[T any](a *API, entity string, pickAny func(context.Context) (*T, error), byBlock func(context.Context, string) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			item *T
			err  error
		)
		blockID := r.URL.Query().Get("blockId")
		if blockID != "" {
			item, err = byBlock(r.Context(), blockID)
		} else {
			item, err = pickAny(r.Context())
		}
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		if item == nil {
			respondWithError(w, r, a.log, &apperr.Error{Entity: entity, Kind: apperr.KindNotFound, Message: "no " + entity + " available"})
			return
		}
		respondJSON(w, http.StatusOK, item)
	}
}

type checkAnswerRequest struct {
	Answer string `json:"answer"`
}

// CheckAnswer grades a submitted fill-in-the-blank answer
func (a *API) CheckAnswer(w http.ResponseWriter, r *http.Request) {
	var req checkAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		respondWithError(w, r, a.log, apperr.Invalid("fillInTheBlank", "answer", "is required"))
		return
	}

	correct, err := a.repos.FillInTheBlanks.CheckAnswer(r.Context(), r.PathValue("id"), req.Answer)
	if err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"correct": correct})
}

// DeleteFolder deletes an empty folder, or any folder with ?force=true
func (a *API) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	folder, err := a.folders.Delete(r.Context(), r.PathValue("id"), force)
	if err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	respondDeleted(w, "folder", folder)
}
