package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"qms-exporter/internal/worker"
)

// dial opens a websocket pair and returns the server side connection.
func dial(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	select {
	case server = <-conns:
	case <-time.After(5 * time.Second):
		t.Fatal("server side connection never arrived")
	}
	return server, client
}

func TestBroadcastDelivers(t *testing.T) {
	h := NewHub()
	server, client := dial(t)
	h.Register(server)

	var first JobUpdate
	if err := client.ReadJSON(&first); err != nil || first.Type != "client_count" || first.Clients != 1 {
		t.Fatalf("first update = %+v, %v", first, err)
	}

	h.JobChanged(worker.JobView{ID: "job-1", Kind: "procedure", Status: worker.StatusCompleted, Pages: 2})
	var got JobUpdate
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.Type != "job_update" || got.JobID != "job-1" || got.Pages != 2 {
		t.Errorf("update = %+v", got)
	}
}

// A client whose queue is full is dropped and never blocks the caller.
func TestBroadcastDropsStalledClient(t *testing.T) {
	h := NewHub()
	server, _ := dial(t)
	h.attach(server) // no write loop: nothing drains the queue

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i <= sendBuffer; i++ {
			h.Broadcast(JobUpdate{Type: "job_update", JobID: "job-1"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast() blocked on a stalled client")
	}
	if n := h.Count(); n != 0 {
		t.Errorf("Count() = %d after overflow, want 0", n)
	}

	// Later broadcasts and unregistering the dropped connection are no-ops.
	h.Broadcast(JobUpdate{Type: "job_update"})
	h.Unregister(server)
}
