package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/observability"
	"github.com/your-org/attendance/pkg/dto"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	r := gin.New()
	r.GET("/ws", hub.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		<-stopped
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d clients registered", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) dto.WSEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev dto.WSEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return ev
}

func TestHubPersonFilter(t *testing.T) {
	hub, url := startHub(t)
	ana, bo := uuid.New(), uuid.New()

	all := dial(t, url)
	onlyAna := dial(t, url+"?person_id="+ana.String())
	waitClients(t, hub, 2)

	ts := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	hub.BroadcastAttendance(models.AttendanceEvent{AttendanceID: uuid.New(), PersonID: bo, Name: "Bo", Timestamp: ts, Confidence: 0.8})
	hub.BroadcastAttendance(models.AttendanceEvent{AttendanceID: uuid.New(), PersonID: ana, Name: "Ana Lee", Timestamp: ts, Confidence: 0.9, SnapshotKey: "snapshots/x.jpg"})

	if ev := readEvent(t, all); ev.PersonID != bo {
		t.Errorf("unfiltered first event for %s, want Bo", ev.PersonID)
	}
	if ev := readEvent(t, all); ev.PersonID != ana {
		t.Errorf("unfiltered second event for %s, want Ana", ev.PersonID)
	}

	ev := readEvent(t, onlyAna)
	if ev.Type != EventAttendanceRecorded || ev.PersonID != ana {
		t.Fatalf("filtered event = %+v", ev)
	}
	if ev.Data.Name != "Ana Lee" || ev.Data.Timestamp != "2026-03-02T08:00:00Z" || ev.Data.SnapshotURL == "" {
		t.Errorf("data = %+v", ev.Data)
	}
}

func TestHubPublishAttendance(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitClients(t, hub, 1)

	id := uuid.New()
	if err := hub.PublishAttendance(context.Background(), models.AttendanceEvent{PersonID: id, Name: "Cy"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ev := readEvent(t, conn); ev.PersonID != id {
		t.Errorf("person = %s, want %s", ev.PersonID, id)
	}
}

func TestHubRejectsBadFilter(t *testing.T) {
	_, url := startHub(t)
	_, resp, err := websocket.DefaultDialer.Dial(url+"?person_id=nope", nil)
	if err == nil {
		t.Fatal("dial succeeded with an invalid filter")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("response = %v", resp)
	}
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitClients(t, hub, 1)

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still registered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubShutdownReleasesConnectionGauge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base := testutil.ToFloat64(observability.WSConnections)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	r := gin.New()
	r.GET("/ws", hub.HandleWS)
	srv := httptest.NewServer(r)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	dial(t, url)
	dial(t, url)
	waitClients(t, hub, 2)
	if got := testutil.ToFloat64(observability.WSConnections); got != base+2 {
		t.Fatalf("gauge = %v with two clients, want %v", got, base+2)
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("%d clients left after shutdown", hub.ClientCount())
	}
	if got := testutil.ToFloat64(observability.WSConnections); got != base {
		t.Errorf("gauge = %v after shutdown, want %v", got, base)
	}
}
