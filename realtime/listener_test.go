package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmplx-xyttmt/personal-finance-tracker/auth"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

type fakeSessions struct {
	session *auth.Session
}

func (f *fakeSessions) GetSession() *auth.Session { return f.session }

type appliedRow struct {
	table string
	id    string
}

type recordingApplier struct {
	mu      sync.Mutex
	applied []appliedRow
	deleted []appliedRow
	failing bool
}

func (a *recordingApplier) Apply(table string, row json.RawMessage, force bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failing {
		return assert.AnError
	}
	var r struct {
		ID string `json:"id"`
	}
	json.Unmarshal(row, &r)
	a.applied = append(a.applied, appliedRow{table: table, id: r.ID})
	return nil
}

func (a *recordingApplier) Delete(table, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, appliedRow{table: table, id: id})
	return nil
}

func (a *recordingApplier) appliedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.applied)
}

func (a *recordingApplier) deletedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.deleted)
}

// wsServer upgrades connections, records subscribe messages, and can
// broadcast events to the channel subscribed to a given table.
type wsServer struct {
	mu       sync.Mutex
	upgrader websocket.Upgrader
	conns    map[string]*websocket.Conn // table -> conn
	dials    int
	server   *httptest.Server
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{conns: map[string]*websocket.Conn{}}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		var sub struct {
			Action string `json:"action"`
			Table  string `json:"table"`
			UserID string `json:"user_id"`
		}
		if err := conn.ReadJSON(&sub); err != nil {
			conn.Close()
			return
		}

		s.mu.Lock()
		s.dials++
		s.conns[sub.Table] = conn
		s.mu.Unlock()
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *wsServer) send(t *testing.T, table string, ev Event) {
	t.Helper()
	s.mu.Lock()
	conn := s.conns[table]
	s.mu.Unlock()
	require.NotNil(t, conn, "no subscription for table %s", table)
	require.NoError(t, conn.WriteJSON(ev))
}

func (s *wsServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func testSession() *auth.Session {
	return &auth.Session{AccessToken: "tok", UserID: "user-1", ExpiresAt: time.Now().Unix() + 3600}
}

func waitSubscribed(t *testing.T, s *wsServer) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.dialCount() == len(models.SyncedTables)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeWithoutSessionIsNoop(t *testing.T) {
	s := newWSServer(t)
	l := NewListener(s.server.URL, "test-key", &fakeSessions{}, &recordingApplier{})

	require.NoError(t, l.Subscribe())
	assert.Equal(t, 0, s.dialCount())
}

func TestSubscribeOpensOneChannelPerTable(t *testing.T) {
	s := newWSServer(t)
	l := NewListener(s.server.URL, "test-key", &fakeSessions{session: testSession()}, &recordingApplier{})
	t.Cleanup(l.Unsubscribe)

	require.NoError(t, l.Subscribe())
	waitSubscribed(t, s)
}

func TestInsertEventIsApplied(t *testing.T) {
	s := newWSServer(t)
	applier := &recordingApplier{}
	l := NewListener(s.server.URL, "test-key", &fakeSessions{session: testSession()}, applier)
	t.Cleanup(l.Unsubscribe)

	require.NoError(t, l.Subscribe())
	waitSubscribed(t, s)

	row, _ := json.Marshal(map[string]string{"id": "b1", "updated_at": "2025-06-15T12:00:00Z"})
	s.send(t, models.TableBudgets, Event{Event: "INSERT", Table: models.TableBudgets, New: row})

	require.Eventually(t, func() bool { return applier.appliedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, appliedRow{table: models.TableBudgets, id: "b1"}, applier.applied[0])
}

func TestDeleteEventUsesOldRowID(t *testing.T) {
	s := newWSServer(t)
	applier := &recordingApplier{}
	l := NewListener(s.server.URL, "test-key", &fakeSessions{session: testSession()}, applier)
	t.Cleanup(l.Unsubscribe)

	require.NoError(t, l.Subscribe())
	waitSubscribed(t, s)

	old, _ := json.Marshal(map[string]string{"id": "t9"})
	s.send(t, models.TableTransactions, Event{Event: "DELETE", Table: models.TableTransactions, Old: old})

	require.Eventually(t, func() bool { return applier.deletedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, appliedRow{table: models.TableTransactions, id: "t9"}, applier.deleted[0])
}

func TestFailedApplyKeepsChannelAlive(t *testing.T) {
	s := newWSServer(t)
	applier := &recordingApplier{failing: true}
	l := NewListener(s.server.URL, "test-key", &fakeSessions{session: testSession()}, applier)
	t.Cleanup(l.Unsubscribe)

	require.NoError(t, l.Subscribe())
	waitSubscribed(t, s)

	row, _ := json.Marshal(map[string]string{"id": "b1"})
	s.send(t, models.TableBudgets, Event{Event: "UPDATE", Table: models.TableBudgets, New: row})

	// The rejected event is dropped; a subsequent good event still lands.
	time.Sleep(100 * time.Millisecond)
	applier.mu.Lock()
	applier.failing = false
	applier.mu.Unlock()

	s.send(t, models.TableBudgets, Event{Event: "UPDATE", Table: models.TableBudgets, New: row})
	require.Eventually(t, func() bool { return applier.appliedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s := newWSServer(t)
	l := NewListener(s.server.URL, "test-key", &fakeSessions{session: testSession()}, &recordingApplier{})

	require.NoError(t, l.Subscribe())
	waitSubscribed(t, s)

	l.Unsubscribe()
	l.Unsubscribe()
}

func TestResubscribeReplacesChannels(t *testing.T) {
	s := newWSServer(t)
	l := NewListener(s.server.URL, "test-key", &fakeSessions{session: testSession()}, &recordingApplier{})
	t.Cleanup(l.Unsubscribe)

	require.NoError(t, l.Subscribe())
	waitSubscribed(t, s)

	require.NoError(t, l.Subscribe())
	require.Eventually(t, func() bool {
		return s.dialCount() == 2*len(models.SyncedTables)
	}, 2*time.Second, 10*time.Millisecond)
}
