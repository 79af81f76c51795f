package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// SyncController is the part of the trigger coordinator handlers use.
type SyncController interface {
	RequestSync()
	SyncNow(ctx context.Context) error
	NotifyOnline()
	State() string
	LastSync() (time.Time, error)
}

// SyncMaintenance exposes the sync engine's recovery operations.
type SyncMaintenance interface {
	PullAll(ctx context.Context) error
	MarkAllUnsynced() error
	ResetSyncState() error
}

var (
	syncController  SyncController
	syncMaintenance SyncMaintenance
)

// SetSync wires the sync layer into the handlers. Both may be nil when the
// server runs offline; mutations then skip the sync request.
func SetSync(c SyncController, m SyncMaintenance) {
	syncController = c
	syncMaintenance = m
}

// requestSync schedules a debounced background sync after a local write.
func requestSync() {
	if syncController != nil {
		syncController.RequestSync()
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
