package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/cmplx-xyttmt/personal-finance-tracker/auth"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// Applier lands remote change events in the local store. Implemented by
// the sync package so realtime and pull share one dirty-flag guard.
type Applier interface {
	Apply(table string, row json.RawMessage, force bool) error
	Delete(table, id string) error
}

// SessionSource supplies the authenticated session for subscriptions.
type SessionSource interface {
	GetSession() *auth.Session
}

// Event is one server-push change notification.
type Event struct {
	Event string          `json:"event"` // INSERT, UPDATE or DELETE
	Table string          `json:"table"`
	Old   json.RawMessage `json:"old"`
	New   json.RawMessage `json:"new"`
}

// Listener owns the realtime channels: one websocket subscription per
// synced table, scoped server-side to the signed-in user. Events are
// applied immediately, subject to the same rule as pull - a locally dirty
// row is never overwritten.
type Listener struct {
	wsURL    string
	apiKey   string
	sessions SessionSource
	applier  Applier

	mu       sync.Mutex
	channels []*websocket.Conn
}

// NewListener derives the websocket endpoint from the backend base URL.
func NewListener(baseURL, apiKey string, sessions SessionSource, applier Applier) *Listener {
	wsURL := strings.TrimRight(baseURL, "/")
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	return &Listener{
		wsURL:    wsURL + "/realtime/v1/websocket",
		apiKey:   apiKey,
		sessions: sessions,
		applier:  applier,
	}
}

// Subscribe opens one channel per table. Without a session it is a no-op.
// An existing subscription is torn down first, so calling it twice is safe.
func (l *Listener) Subscribe() error {
	session := l.sessions.GetSession()
	if session == nil {
		return nil
	}

	l.Unsubscribe()

	l.mu.Lock()
	defer l.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+session.AccessToken)
	header.Set("apikey", l.apiKey)

	for _, table := range models.SyncedTables {
		conn, _, err := websocket.DefaultDialer.Dial(l.wsURL, header)
		if err != nil {
			l.closeLocked()
			return fmt.Errorf("error opening %s channel: %w", table, err)
		}

		sub := map[string]string{
			"action":  "subscribe",
			"table":   table,
			"user_id": session.UserID,
		}
		if err := conn.WriteJSON(sub); err != nil {
			conn.Close()
			l.closeLocked()
			return fmt.Errorf("error subscribing to %s: %w", table, err)
		}

		l.channels = append(l.channels, conn)
		go l.readLoop(conn, table)
	}
	return nil
}

// Unsubscribe closes every channel and clears the handles. Safe to call
// when nothing is subscribed.
func (l *Listener) Unsubscribe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
}

func (l *Listener) closeLocked() {
	for _, conn := range l.channels {
		conn.Close()
	}
	l.channels = nil
}

func (l *Listener) readLoop(conn *websocket.Conn, table string) {
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			// Closed by Unsubscribe or dropped by the network. Either way
			// the periodic sync reconciles whatever this channel misses.
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Realtime %s channel closed: %v", table, err)
			}
			return
		}
		l.handle(ev)
	}
}

// handle applies one change event. Failures are logged and dropped; the
// subscription stays up and the next periodic sync repairs the miss.
func (l *Listener) handle(ev Event) {
	switch ev.Event {
	case "DELETE":
		var old struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Old, &old); err != nil || old.ID == "" {
			log.Printf("Dropping %s delete event without id", ev.Table)
			return
		}
		if err := l.applier.Delete(ev.Table, old.ID); err != nil {
			log.Printf("Failed to apply %s delete %s: %v", ev.Table, old.ID, err)
		}
	case "INSERT", "UPDATE":
		if len(ev.New) == 0 {
			log.Printf("Dropping %s %s event without payload", ev.Table, ev.Event)
			return
		}
		if err := l.applier.Apply(ev.Table, ev.New, false); err != nil {
			log.Printf("Dropping %s %s event: %v", ev.Table, ev.Event, err)
		}
	default:
		log.Printf("Ignoring unknown realtime event %q on %s", ev.Event, ev.Table)
	}
}
