package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
)

func waitEvent(t *testing.T, ch <-chan []byte) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal ws event: %v", err)
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func registerAndWait(t *testing.T, hub *Hub, conn *Connection) {
	t.Helper()
	hub.Register(conn)
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifyDeliversToLocalConnections(t *testing.T) {
	hub := newHub(nil, "a")
	go hub.Run()
	defer hub.Shutdown()

	userID := uuid.New()
	conn := &Connection{UserID: userID, Send: make(chan []byte, 4)}
	registerAndWait(t, hub, conn)

	hub.Notify(context.Background(), userID, Event{Type: EventFriendRequest, Data: map[string]string{"from": "x"}})
	hub.Notify(context.Background(), uuid.New(), Event{Type: EventFriendRequest})

	event := waitEvent(t, conn.Send)
	if event.Type != EventFriendRequest || event.At.IsZero() {
		t.Fatalf("unexpected event %+v", event)
	}
	select {
	case extra := <-conn.Send:
		t.Fatalf("event for another user leaked: %s", extra)
	default:
	}
}

func TestNotifyPublishesForOtherInstances(t *testing.T) {
	var (
		mu        sync.Mutex
		published []string
	)
	sender := newHub(nil, "sender")
	sender.publishFn = func(_ context.Context, channel string, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, string(payload))
		return nil
	}

	receiver := newHub(nil, "receiver")
	go receiver.Run()
	defer receiver.Shutdown()

	userID := uuid.New()
	conn := &Connection{UserID: userID, Send: make(chan []byte, 4)}
	registerAndWait(t, receiver, conn)

	sender.Notify(context.Background(), userID, Event{Type: EventModeratorDecision})

	mu.Lock()
	if len(published) != 1 {
		mu.Unlock()
		t.Fatalf("expected one published message, got %d", len(published))
	}
	payload := published[0]
	mu.Unlock()

	// own messages are ignored
	sender.handleRemote(payload)

	receiver.handleRemote(payload)
	if event := waitEvent(t, conn.Send); event.Type != EventModeratorDecision {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestServeWSRequiresActor(t *testing.T) {
	h := NewHandler(newHub(nil, "x"), nil)
	w := httptest.NewRecorder()
	h.ServeWS(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestServeWSStreamsEvents(t *testing.T) {
	hub := newHub(nil, "x")
	go hub.Run()
	defer hub.Shutdown()

	userID := uuid.New()
	h := NewHandler(hub, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := access.WithActor(r.Context(), &access.Actor{ID: userID, Role: access.RoleUser})
		h.ServeWS(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Notify(context.Background(), userID, Event{Type: EventBirdIconReviewed})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := ws.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Type != EventBirdIconReviewed {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestRegisterAfterShutdownReturns(t *testing.T) {
	hub := newHub(nil, "a")
	go hub.Run()
	hub.Shutdown()

	conn := &Connection{UserID: uuid.New(), Send: make(chan []byte, 1)}
	done := make(chan struct{})
	go func() {
		hub.Register(conn)
		hub.Unregister(conn)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Register/Unregister blocked after Shutdown")
	}
}
