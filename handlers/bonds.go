package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
	"github.com/cmplx-xyttmt/personal-finance-tracker/services"
)

func GetBonds(w http.ResponseWriter, r *http.Request) {
	bonds, err := database.ListBonds()
	if err != nil {
		log.Printf("Error listing bonds: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if bonds == nil {
		bonds = []models.Bond{}
	}
	writeJSON(w, bonds)
}

func GetBond(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b, err := database.GetBond(id)
	if err != nil {
		log.Printf("Error fetching bond %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b == nil {
		http.Error(w, "bond not found", http.StatusNotFound)
		return
	}
	writeJSON(w, b)
}

// GetBondValue returns the bond's accrued value as of today.
func GetBondValue(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b, err := database.GetBond(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b == nil {
		http.Error(w, "bond not found", http.StatusNotFound)
		return
	}

	value, err := services.BondValue(b, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"id":        b.ID,
		"principal": b.Principal,
		"value":     value,
	})
}

func PutBond(w http.ResponseWriter, r *http.Request) {
	var b models.Bond
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.Principal <= 0 {
		http.Error(w, "principal must be positive", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", b.PurchaseDate); err != nil {
		http.Error(w, "purchaseDate must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	if err := database.PutBond(&b); err != nil {
		log.Printf("Error saving bond %s: %v", b.ID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	writeJSON(w, b)
}

func DeleteBond(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := database.DeleteBond(id); err != nil {
		log.Printf("Error deleting bond %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	w.WriteHeader(http.StatusOK)
}
