package handlers

import (
	"fmt"
	"net/http"
	"time"
)

// ExportBackup streams a JSON backup of every table
func (a *API) ExportBackup(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("nuclear_backup_%s.json", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := a.backup.ExportToWriter(r.Context(), w); err != nil {
		w.Header().Del("Content-Disposition")
		respondWithError(w, r, a.log, err)
	}
}
