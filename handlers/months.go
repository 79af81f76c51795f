package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
	"github.com/cmplx-xyttmt/personal-finance-tracker/services"
)

func GetMonths(w http.ResponseWriter, r *http.Request) {
	months, err := database.ListMonths()
	if err != nil {
		log.Printf("Error listing months: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if months == nil {
		months = []models.Month{}
	}
	writeJSON(w, months)
}

func GetMonth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	m, err := database.GetMonth(id)
	if err != nil {
		log.Printf("Error fetching month %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.Error(w, "month not found", http.StatusNotFound)
		return
	}
	writeJSON(w, m)
}

func PutMonth(w http.ResponseWriter, r *http.Request) {
	var m models.Month
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := models.ParseMonthID(m.ID); err != nil {
		http.Error(w, "id must be YYYY-MM", http.StatusBadRequest)
		return
	}

	if err := database.PutMonth(&m); err != nil {
		log.Printf("Error saving month %s: %v", m.ID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	writeJSON(w, m)
}

func DeleteMonth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := database.DeleteMonth(id); err != nil {
		log.Printf("Error deleting month %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	requestSync()
	w.WriteHeader(http.StatusOK)
}

func CloseMonth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req services.CloseMonthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.MonthID = id

	result, err := services.CloseMonth(req)
	if err != nil {
		log.Printf("Error closing month %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestSync()
	writeJSON(w, result)
}
