package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoCodeAlone/docket/comms"
	"github.com/GoCodeAlone/docket/config"
)

func s0Config() config.Config {
	return config.Config{Server: config.ServerConfig{Addr: ":0"}}
}

// readData returns the payload of the next SSE data line.
func readData(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read sse: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.clientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("sse clients = %d, want %d", s.clientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSSE_RelaysBusEvents(t *testing.T) {
	s, bus := newTestServer(t)
	unsubscribe := bus.Subscribe("", s.relay)
	defer unsubscribe()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?case_id=c1&token="+mustToken(t, testAdmin), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	r := bufio.NewReader(resp.Body)
	if got := readData(t, r); !strings.Contains(got, "connected") {
		t.Fatalf("first event = %q", got)
	}
	waitForClients(t, s, 1)

	// Another case is filtered out; c1 comes through.
	bus.Publish(ctx, &comms.Event{Type: comms.TypeTaskCreated, TaskID: "t-other", CaseID: "c2"})
	bus.Publish(ctx, &comms.Event{Type: comms.TypeTaskCompleted, TaskID: "t-1", CaseID: "c1"})

	got := readData(t, r)
	if !strings.Contains(got, `"task_id":"t-1"`) || !strings.Contains(got, "task.completed") {
		t.Errorf("event = %q", got)
	}
}

func TestSSE_CaseStreamHidesTasksOfOtherRoles(t *testing.T) {
	s, bus := newTestServer(t)
	unsubscribe := bus.Subscribe("", s.relay)
	defer unsubscribe()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?case_id=c1&token="+mustToken(t, testManager), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readData(t, r)
	waitForClients(t, s, 1)

	// Intake creates three case manager tasks and three attorney tasks,
	// interleaved. The manager's stream carries only their own three.
	if _, err := s.svc.Generate(ctx, testAdmin, "c1", ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := 0; i < 3; i++ {
		var ev comms.Event
		if err := json.Unmarshal([]byte(readData(t, r)), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if _, err := s.svc.Task(ev.TaskID, testManager); err != nil {
			t.Errorf("event %d for task %s the manager cannot see: %v", i, ev.TaskID, err)
		}
	}
}

func TestSSE_RequiresToken(t *testing.T) {
	s, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestStop_WithoutStart(t *testing.T) {
	s, _ := newTestServer(t)
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
