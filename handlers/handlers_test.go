package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

type fakeSync struct {
	mu        sync.Mutex
	requested int
	synced    int
	pulled    int
	marked    int
	resets    int
	state     string
	lastSync  time.Time
	syncErr   error
}

func (f *fakeSync) RequestSync() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested++
}

func (f *fakeSync) SyncNow(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced++
	return f.syncErr
}

func (f *fakeSync) NotifyOnline() {}

func (f *fakeSync) State() string { return f.state }

func (f *fakeSync) LastSync() (time.Time, error) { return f.lastSync, f.syncErr }

func (f *fakeSync) PullAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled++
	return nil
}

func (f *fakeSync) MarkAllUnsynced() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked++
	return nil
}

func (f *fakeSync) ResetSyncState() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeSync) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requested
}

func setupHandlerTest(t *testing.T) *fakeSync {
	t.Helper()
	os.Setenv("TEST_DB", "1")
	require.NoError(t, database.InitDB())
	require.NoError(t, database.ClearData())
	_, err := database.DB.Exec("DELETE FROM sync_state")
	require.NoError(t, err)

	fake := &fakeSync{state: "ready"}
	SetSync(fake, fake)

	t.Cleanup(func() {
		SetSync(nil, nil)
		database.DB.Close()
	})
	return fake
}

func doJSON(handler http.HandlerFunc, method, target string, body interface{}, vars map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestPutMonthStampsAndRequestsSync(t *testing.T) {
	fake := setupHandlerTest(t)

	w := doJSON(PutMonth, "POST", "/months", models.Month{ID: "2025-06", ExpectedIncome: 1000000}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	m, err := database.GetMonth("2025-06")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.False(t, m.Synced)
	assert.Equal(t, 1, fake.requests())
}

func TestPutMonthRejectsBadID(t *testing.T) {
	fake := setupHandlerTest(t)

	w := doJSON(PutMonth, "POST", "/months", models.Month{ID: "June 2025"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, fake.requests())
}

func TestGetMonthNotFound(t *testing.T) {
	setupHandlerTest(t)

	w := doJSON(GetMonth, "GET", "/months/2025-06", nil, map[string]string{"id": "2025-06"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMonthsEmptyIsArray(t *testing.T) {
	setupHandlerTest(t)

	w := doJSON(GetMonths, "GET", "/months", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestPutBudgetGeneratesID(t *testing.T) {
	fake := setupHandlerTest(t)

	w := doJSON(PutBudget, "POST", "/budgets", models.Budget{MonthID: "2025-06", Category: "Food", PlannedAmount: 100}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Budget
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 1, fake.requests())
}

func TestPutBudgetRequiresMonthAndCategory(t *testing.T) {
	setupHandlerTest(t)

	w := doJSON(PutBudget, "POST", "/budgets", models.Budget{Category: "Food"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutTransactionRejectsOrphan(t *testing.T) {
	fake := setupHandlerTest(t)

	w := doJSON(PutTransaction, "POST", "/transactions",
		models.Transaction{BudgetID: "missing", Amount: 10, Date: "2025-06-01"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, fake.requests())
}

func TestTransactionLifecycle(t *testing.T) {
	fake := setupHandlerTest(t)

	require.NoError(t, database.PutBudget(&models.Budget{ID: "b1", MonthID: "2025-06", Category: "Food"}))

	w := doJSON(PutTransaction, "POST", "/transactions",
		models.Transaction{BudgetID: "b1", Amount: 42, Description: "groceries", Date: "2025-06-01"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var created models.Transaction
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	w = doJSON(DeleteTransaction, "DELETE", "/transactions/"+created.ID, nil, map[string]string{"id": created.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, fake.requests())

	n, err := database.CountTombstones(models.TableTransactions, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteBudgetRequestsSync(t *testing.T) {
	fake := setupHandlerTest(t)

	require.NoError(t, database.PutBudget(&models.Budget{ID: "b1", MonthID: "2025-06", Category: "Food"}))

	w := doJSON(DeleteBudget, "DELETE", "/budgets/b1", nil, map[string]string{"id": "b1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fake.requests())
}

func TestPutBondValidation(t *testing.T) {
	setupHandlerTest(t)

	w := doJSON(PutBond, "POST", "/bonds", models.Bond{Principal: 0, PurchaseDate: "2025-01-01"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(PutBond, "POST", "/bonds", models.Bond{Principal: 1000, PurchaseDate: "bad"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBondValue(t *testing.T) {
	setupHandlerTest(t)

	require.NoError(t, database.PutBond(&models.Bond{
		ID: "bond1", Principal: 1000000, Rate: 0.1, PurchaseDate: "2020-01-01", DurationYears: 2,
	}))

	w := doJSON(GetBondValue, "GET", "/bonds/bond1/value", nil, map[string]string{"id": "bond1"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID        string  `json:"id"`
		Principal float64 `json:"principal"`
		Value     float64 `json:"value"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.InDelta(t, 1210000, resp.Value, 0.01)
}

func TestCloseMonthEndpoint(t *testing.T) {
	fake := setupHandlerTest(t)

	require.NoError(t, database.PutMonth(&models.Month{ID: "2025-06", ExpectedIncome: 1000000}))
	require.NoError(t, database.PutBudget(&models.Budget{ID: "b1", MonthID: "2025-06", Category: "Food"}))
	require.NoError(t, database.PutTransaction(&models.Transaction{ID: "t1", BudgetID: "b1", Amount: 1000000, Date: "2025-06-01"}))

	w := doJSON(CloseMonth, "POST", "/months/2025-06/close",
		map[string]string{}, map[string]string{"id": "2025-06"})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		NextMonthID string  `json:"nextMonthId"`
		Surplus     float64 `json:"surplus"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "2025-07", result.NextMonthID)
	assert.Equal(t, float64(0), result.Surplus)
	assert.Equal(t, 1, fake.requests())
}

func TestSyncStatusEndpoint(t *testing.T) {
	fake := setupHandlerTest(t)
	fake.state = "ready"
	fake.lastSync = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	w := doJSON(GetSyncStatus, "GET", "/sync/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "ready", status["state"])
	assert.Equal(t, "2025-06-15T12:00:00Z", status["lastSync"])
}

func TestSyncStatusDisabled(t *testing.T) {
	setupHandlerTest(t)
	SetSync(nil, nil)

	w := doJSON(GetSyncStatus, "GET", "/sync/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "disabled", status["state"])
}

func TestTriggerSyncEndpoint(t *testing.T) {
	fake := setupHandlerTest(t)

	w := doJSON(TriggerSync, "POST", "/sync", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fake.synced)
}

func TestMaintenanceEndpoints(t *testing.T) {
	fake := setupHandlerTest(t)

	w := doJSON(PullAll, "POST", "/sync/pull-all", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fake.pulled)

	w = doJSON(MarkAllUnsynced, "POST", "/sync/mark-unsynced", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fake.marked)

	w = doJSON(ResetSyncState, "POST", "/sync/reset", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fake.resets)
}

func TestBackupEndpointsRoundTrip(t *testing.T) {
	setupHandlerTest(t)

	require.NoError(t, database.PutMonth(&models.Month{ID: "2025-06", ExpectedIncome: 1000000}))

	w := doJSON(ExportBackup, "GET", "/backup", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "finance-backup-")
	exported := w.Body.Bytes()

	require.NoError(t, database.ClearData())

	req := httptest.NewRequest("POST", "/backup", bytes.NewReader(exported))
	w2 := httptest.NewRecorder()
	ImportBackup(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)

	m, err := database.GetMonth("2025-06")
	require.NoError(t, err)
	assert.NotNil(t, m)
}
