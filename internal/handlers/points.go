package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nuclear/internal/apperr"
	"nuclear/internal/models"
	"nuclear/internal/service"
)

// BlockPoints lists a block's ledger. from/to select a date range, min a
// points threshold; otherwise all entries in order (desc by default).
func (a *API) BlockPoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := mustExist(ctx, "block", id, a.repos.Blocks.Exists); err != nil {
		respondWithError(w, r, a.log, err)
		return
	}

	q := r.URL.Query()
	var (
		updates []models.PointsUpdate
		err     error
	)
	switch {
	case q.Get("from") != "" || q.Get("to") != "":
		var from, to time.Time
		if from, err = queryTime(r, "from", time.Unix(0, 0).UTC()); err != nil {
			break
		}
		if to, err = queryTime(r, "to", time.Now().UTC()); err != nil {
			break
		}
		updates, err = a.repos.PointsUpdates.GetByDateRange(ctx, id, from, to)
	case q.Get("min") != "":
		var minPoints int
		if minPoints, err = queryInt(r, "min"); err != nil {
			break
		}
		updates, err = a.repos.PointsUpdates.GetAboveThreshold(ctx, id, minPoints)
	default:
		updates, err = a.repos.PointsUpdates.GetAllForBlockOrdered(ctx, id, models.ParseSortOrder(q.Get("order")))
	}
	if err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"pointsUpdates": updates})
}

func (a *API) BlockPointsTotal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := mustExist(r.Context(), "block", id, a.repos.Blocks.Exists); err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	total, err := a.repos.PointsUpdates.GetTotalPointsForBlock(r.Context(), id)
	if err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"blockId": id, "total": total})
}

func (a *API) BlockPointsLatest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := mustExist(r.Context(), "block", id, a.repos.Blocks.Exists); err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	latest, err := a.repos.PointsUpdates.GetLatestForBlock(r.Context(), id)
	if err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	if latest == nil {
		respondWithError(w, r, a.log, &apperr.Error{
			Entity: "pointsUpdate", Kind: apperr.KindNotFound, Message: "block " + id + " has no points updates",
		})
		return
	}
	respondJSON(w, http.StatusOK, latest)
}

// BlockPointsExport streams the ledger as an XLSX workbook
func (a *API) BlockPointsExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	block, err := a.repos.Blocks.MustGetByID(r.Context(), id)
	if err != nil {
		respondWithError(w, r, a.log, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ReportFilename(block, time.Now())))
	if _, err := a.reports.WritePointsLedger(r.Context(), id, w); err != nil {
		a.log.Error("points export failed", zap.String("block_id", id), zap.Error(err))
	}
}

// UserPoints returns the user's ledger and total
func (a *API) UserPoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := mustExist(ctx, "user", id, a.repos.Users.Exists); err != nil {
		respondWithError(w, r, a.log, err)
		return
	}

	updates, err := a.repos.Users.GetPointsUpdates(ctx, id)
	if err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	total, err := a.repos.Users.GetTotalPoints(ctx, id)
	if err != nil {
		respondWithError(w, r, a.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"pointsUpdates": updates, "total": total})
}

// queryTime parses an RFC 3339 parameter, returning def when absent
func queryTime(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.Invalid("request", name, "must be an RFC 3339 timestamp")
	}
	return t, nil
}
