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

func GetTransactions(w http.ResponseWriter, r *http.Request) {
	budgetID := r.URL.Query().Get("budgetId")
	if budgetID == "" {
		http.Error(w, "budgetId is required", http.StatusBadRequest)
		return
	}

	txns, err := database.ListTransactionsByBudget(budgetID)
	if err != nil {
		log.Printf("Error listing transactions for %s: %v", budgetID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	writeJSON(w, txns)
}

func GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	t, err := database.GetTransaction(id)
	if err != nil {
		log.Printf("Error fetching transaction %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if t == nil {
		http.Error(w, "transaction not found", http.StatusNotFound)
		return
	}
	writeJSON(w, t)
}

func PutTransaction(w http.ResponseWriter, r *http.Request) {
	var t models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if t.BudgetID == "" {
		http.Error(w, "budgetId is required", http.StatusBadRequest)
		return
	}

	// The budget must exist locally so a sync never pushes an orphan.
	b, err := database.GetBudget(t.BudgetID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b == nil {
		http.Error(w, "budget not found", http.StatusBadRequest)
		return
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	if err := database.PutTransaction(&t); err != nil {
		log.Printf("Error saving transaction %s: %v", t.ID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	writeJSON(w, t)
}

func DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := database.DeleteTransaction(id); err != nil {
		log.Printf("Error deleting transaction %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	w.WriteHeader(http.StatusOK)
}
