package handlers

import (
	"log"
	"net/http"
	"time"
)

// TriggerSync runs a sync right away and reports the result. If a sync is
// already in flight the request is a no-op and still returns ok.
func TriggerSync(w http.ResponseWriter, r *http.Request) {
	if syncController == nil {
		http.Error(w, "sync is not configured", http.StatusServiceUnavailable)
		return
	}

	if err := syncController.SyncNow(r.Context()); err != nil {
		log.Printf("Error running sync: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

func GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	if syncController == nil {
		writeJSON(w, map[string]interface{}{"state": "disabled"})
		return
	}

	status := map[string]interface{}{
		"state": syncController.State(),
	}
	if last, err := syncController.LastSync(); !last.IsZero() {
		status["lastSync"] = last.UTC().Format(time.RFC3339)
		if err != nil {
			status["lastError"] = err.Error()
		}
	}
	writeJSON(w, status)
}

// NotifyOnline tells the coordinator connectivity came back, which kicks
// off an immediate sync.
func NotifyOnline(w http.ResponseWriter, r *http.Request) {
	if syncController == nil {
		http.Error(w, "sync is not configured", http.StatusServiceUnavailable)
		return
	}
	syncController.NotifyOnline()
	w.WriteHeader(http.StatusAccepted)
}

// PullAll re-downloads the full remote dataset, overwriting local rows even
// when dirty. Recovery operation for a replica that drifted.
func PullAll(w http.ResponseWriter, r *http.Request) {
	if syncMaintenance == nil {
		http.Error(w, "sync is not configured", http.StatusServiceUnavailable)
		return
	}

	if err := syncMaintenance.PullAll(r.Context()); err != nil {
		log.Printf("Error pulling all records: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

// MarkAllUnsynced flags every local row dirty so the next sync re-pushes the
// whole dataset.
func MarkAllUnsynced(w http.ResponseWriter, r *http.Request) {
	if syncMaintenance == nil {
		http.Error(w, "sync is not configured", http.StatusServiceUnavailable)
		return
	}

	if err := syncMaintenance.MarkAllUnsynced(); err != nil {
		log.Printf("Error marking records unsynced: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	writeJSON(w, map[string]string{"status": "ok"})
}

// ResetSyncState clears the pull watermark and marks everything dirty.
func ResetSyncState(w http.ResponseWriter, r *http.Request) {
	if syncMaintenance == nil {
		http.Error(w, "sync is not configured", http.StatusServiceUnavailable)
		return
	}

	if err := syncMaintenance.ResetSyncState(); err != nil {
		log.Printf("Error resetting sync state: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	writeJSON(w, map[string]string{"status": "ok"})
}
