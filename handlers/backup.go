package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cmplx-xyttmt/personal-finance-tracker/services"
)

func ExportBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := services.ExportBackup()
	if err != nil {
		log.Printf("Error exporting backup: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("finance-backup-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	writeJSON(w, backup)
}

// ImportBackup replaces the entire local dataset with the uploaded backup.
// The restored rows keep their synced flags, so follow with mark-unsynced
// and a sync to push the restored state.
func ImportBackup(w http.ResponseWriter, r *http.Request) {
	if err := services.ImportBackup(r.Body); err != nil {
		log.Printf("Error importing backup: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}
