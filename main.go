package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/cmplx-xyttmt/personal-finance-tracker/auth"
	"github.com/cmplx-xyttmt/personal-finance-tracker/config"
	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/handlers"
	"github.com/cmplx-xyttmt/personal-finance-tracker/middleware"
	"github.com/cmplx-xyttmt/personal-finance-tracker/realtime"
	"github.com/cmplx-xyttmt/personal-finance-tracker/remote"
	"github.com/cmplx-xyttmt/personal-finance-tracker/sync"
)

// sessionStore persists the auth session in the sync_state table so a
// restart rehydrates the signed-in state instead of forcing a fresh login.
type sessionStore struct{}

func (sessionStore) LoadSession() (string, error) {
	return database.GetSyncState(database.SessionKey)
}

func (sessionStore) SaveSession(value string) error {
	return database.SetSyncState(database.SessionKey, value)
}

func (sessionStore) ClearSession() error {
	return database.DeleteSyncState(database.SessionKey)
}

func main() {
	resetDB := flag.Bool("reset-db", false, "Wipe local data on startup")
	flag.Parse()

	cfg := config.Load()

	if err := database.InitDB(); err != nil {
		log.Fatal(err)
	}

	if *resetDB {
		log.Println("Resetting local database")
		if err := database.ClearData(); err != nil {
			log.Fatal(err)
		}
		if err := database.DeleteSyncState(database.WatermarkKey); err != nil {
			log.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var coordinator *sync.Coordinator
	if cfg.SyncEnabled() {
		authClient := auth.NewClient(cfg.RemoteURL, cfg.RemoteAPIKey, sessionStore{})
		remoteClient := remote.NewClient(cfg.RemoteURL, cfg.RemoteAPIKey, authClient)
		engine := sync.NewEngine(remoteClient, authClient)
		listener := realtime.NewListener(cfg.RemoteURL, cfg.RemoteAPIKey, authClient, sync.Applier{})

		coordinator = sync.NewCoordinator(engine, listener, authClient,
			cfg.SyncDebounce, cfg.SyncInterval, cfg.InitialSyncWait)
		coordinator.Start(ctx)
		defer coordinator.Stop()

		handlers.SetAuth(authClient)
		handlers.SetSync(coordinator, engine)
	} else {
		log.Println("Warning: REMOTE_URL not set, running offline without sync")
	}

	r := mux.NewRouter()
	r.Use(middleware.EnableCORS)

	registerRoutes(r)
	registerRoutes(r.PathPrefix("/api").Subrouter())

	srv := &http.Server{
		Handler:      r,
		Addr:         ":" + cfg.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: server shutdown failed: %v", err)
	}
}

// registerRoutes sets up all API routes
func registerRoutes(r *mux.Router) {
	r.HandleFunc("/health", handlers.HealthCheck).Methods("GET", "OPTIONS")

	r.HandleFunc("/auth/signin", handlers.SignIn).Methods("POST")
	r.HandleFunc("/auth/signout", handlers.SignOut).Methods("POST")
	r.HandleFunc("/auth/session", handlers.GetAuthSession).Methods("GET")

	r.HandleFunc("/months", handlers.GetMonths).Methods("GET")
	r.HandleFunc("/months", handlers.PutMonth).Methods("POST")
	r.HandleFunc("/months/{id}", handlers.GetMonth).Methods("GET")
	r.HandleFunc("/months/{id}", handlers.DeleteMonth).Methods("DELETE")
	r.HandleFunc("/months/{id}/close", handlers.CloseMonth).Methods("POST")

	r.HandleFunc("/budgets", handlers.GetBudgets).Methods("GET")
	r.HandleFunc("/budgets", handlers.PutBudget).Methods("POST")
	r.HandleFunc("/budgets/{id}", handlers.GetBudget).Methods("GET")
	r.HandleFunc("/budgets/{id}", handlers.DeleteBudget).Methods("DELETE")

	r.HandleFunc("/transactions", handlers.GetTransactions).Methods("GET")
	r.HandleFunc("/transactions", handlers.PutTransaction).Methods("POST")
	r.HandleFunc("/transactions/{id}", handlers.GetTransaction).Methods("GET")
	r.HandleFunc("/transactions/{id}", handlers.DeleteTransaction).Methods("DELETE")

	r.HandleFunc("/bonds", handlers.GetBonds).Methods("GET")
	r.HandleFunc("/bonds", handlers.PutBond).Methods("POST")
	r.HandleFunc("/bonds/{id}", handlers.GetBond).Methods("GET")
	r.HandleFunc("/bonds/{id}", handlers.DeleteBond).Methods("DELETE")
	r.HandleFunc("/bonds/{id}/value", handlers.GetBondValue).Methods("GET")

	r.HandleFunc("/sync", handlers.TriggerSync).Methods("POST")
	r.HandleFunc("/sync/status", handlers.GetSyncStatus).Methods("GET")
	r.HandleFunc("/sync/online", handlers.NotifyOnline).Methods("POST")
	r.HandleFunc("/sync/pull-all", handlers.PullAll).Methods("POST")
	r.HandleFunc("/sync/mark-unsynced", handlers.MarkAllUnsynced).Methods("POST")
	r.HandleFunc("/sync/reset", handlers.ResetSyncState).Methods("POST")

	r.HandleFunc("/backup", handlers.ExportBackup).Methods("GET")
	r.HandleFunc("/backup", handlers.ImportBackup).Methods("POST")
}
