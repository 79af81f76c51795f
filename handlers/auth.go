package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/cmplx-xyttmt/personal-finance-tracker/auth"
)

var authClient *auth.Client

// SetAuth wires the identity provider client into the handlers. Nil when the
// server runs offline.
func SetAuth(c *auth.Client) {
	authClient = c
}

func SignIn(w http.ResponseWriter, r *http.Request) {
	if authClient == nil {
		http.Error(w, "auth is not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	session, err := authClient.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Printf("Error signing in %s: %v", req.Email, err)
		http.Error(w, "sign in failed", http.StatusUnauthorized)
		return
	}

	writeJSON(w, map[string]string{
		"userId": session.UserID,
		"email":  session.Email,
	})
}

func SignOut(w http.ResponseWriter, r *http.Request) {
	if authClient == nil {
		http.Error(w, "auth is not configured", http.StatusServiceUnavailable)
		return
	}

	if err := authClient.SignOut(r.Context()); err != nil {
		log.Printf("Error signing out: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func GetAuthSession(w http.ResponseWriter, r *http.Request) {
	if authClient == nil {
		writeJSON(w, map[string]interface{}{"signedIn": false})
		return
	}

	s := authClient.GetSession()
	if s == nil {
		writeJSON(w, map[string]interface{}{"signedIn": false})
		return
	}
	writeJSON(w, map[string]interface{}{
		"signedIn": true,
		"userId":   s.UserID,
		"email":    s.Email,
	})
}
