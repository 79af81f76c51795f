package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

func GetBudgets(w http.ResponseWriter, r *http.Request) {
	monthID := r.URL.Query().Get("monthId")
	if monthID == "" {
		http.Error(w, "monthId is required", http.StatusBadRequest)
		return
	}

	budgets, err := database.ListBudgetsByMonth(monthID)
	if err != nil {
		log.Printf("Error listing budgets for %s: %v", monthID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if budgets == nil {
		budgets = []models.Budget{}
	}
	writeJSON(w, budgets)
}

func GetBudget(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b, err := database.GetBudget(id)
	if err != nil {
		log.Printf("Error fetching budget %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b == nil {
		http.Error(w, "budget not found", http.StatusNotFound)
		return
	}
	writeJSON(w, b)
}

func PutBudget(w http.ResponseWriter, r *http.Request) {
	var b models.Budget
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.MonthID == "" || b.Category == "" {
		http.Error(w, "monthId and category are required", http.StatusBadRequest)
		return
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	if err := database.PutBudget(&b); err != nil {
		log.Printf("Error saving budget %s: %v", b.ID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	writeJSON(w, b)
}

func DeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := database.DeleteBudget(id); err != nil {
		log.Printf("Error deleting budget %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	w.WriteHeader(http.StatusOK)
}
