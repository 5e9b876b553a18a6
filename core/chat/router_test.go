package chat

import (
	"sync"
	"testing"
	"time"
)

// recordingSender captures every delivery for assertions.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentEvent
}

type sentEvent struct {
	connID string
	evt    ServerEvent
}

func (s *recordingSender) Send(connID string, evt ServerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEvent{connID: connID, evt: evt})
}

func (s *recordingSender) byKind(kind string) []sentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentEvent
	for _, se := range s.sent {
		if se.evt.Event == kind {
			out = append(out, se)
		}
	}
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}

func newTestRouter() (*Router, *Registry, *recordingSender) {
	reg := NewRegistry()
	sender := &recordingSender{}
	rtr := NewRouter(reg, sender)
	rtr.nowFunc = func() time.Time { return time.Date(2021, time.March, 8, 10, 0, 0, 0, time.UTC) }
	return rtr, reg, sender
}

func joinTestRoom(reg *Registry, connID, userID, name, roomID string) {
	reg.Register(connID, userID, name)
	reg.UpdateRoom(connID, roomID)
}

func TestRouterPublicMessageReachesWholeRoom(t *testing.T) {
	rtr, reg, sender := newTestRouter()
	joinTestRoom(reg, "c1", "u1", "Manea", "R1")
	joinTestRoom(reg, "c2", "u2", "Simba", "R1")
	joinTestRoom(reg, "c3", "u3", "Vola", "R2") // different room

	msg, ok := rtr.Route("c1", SendMessage{Content: "hello"})
	if !ok {
		t.Fatal("Route() reported not dispatched")
	}

	deliveries := sender.byKind(EvtPublicMessage)
	if len(deliveries) != 2 {
		t.Fatalf("got %d deliveries; want 2 (full room, sender included)", len(deliveries))
	}
	got := map[string]bool{}
	for _, d := range deliveries {
		got[d.connID] = true
	}
	if !got["c1"] || !got["c2"] || got["c3"] {
		t.Errorf("delivered to %v; want c1 and c2 only", got)
	}

	if msg.SenderID != "u1" || msg.SenderDisplayName != "Manea" {
		t.Errorf("sender identity = %s/%s; want resolved u1/Manea", msg.SenderID, msg.SenderDisplayName)
	}
	if msg.Timestamp.IsZero() || msg.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v; want server-side UTC stamp", msg.Timestamp)
	}
}

func TestRouterNeverTrustsClientIdentity(t *testing.T) {
	rtr, reg, sender := newTestRouter()
	joinTestRoom(reg, "c1", "u1", "Manea", "R1")

	// the payload carries no identity fields at all; whatever a client
	// managed to smuggle in never reaches the outbound message
	msg, ok := rtr.Route("c1", SendMessage{Content: "hi"})
	if !ok {
		t.Fatal("Route() reported not dispatched")
	}
	if msg.SenderID != "u1" {
		t.Errorf("SenderID = %s; want u1 from registry", msg.SenderID)
	}
	deliveries := sender.byKind(EvtPublicMessage)
	if len(deliveries) == 0 {
		t.Fatal("no deliveries")
	}
	if out := deliveries[0].evt.Data.(ChatMessage); out.SenderDisplayName != "Manea" {
		t.Errorf("SenderDisplayName = %s; want Manea from registry", out.SenderDisplayName)
	}
}

func TestRouterUnknownConnectionIsDropped(t *testing.T) {
	rtr, _, sender := newTestRouter()

	// stale send racing a disconnect
	if _, ok := rtr.Route("ghost", SendMessage{Content: "boo"}); ok {
		t.Error("Route(ghost) reported dispatched")
	}
	if len(sender.sent) != 0 {
		t.Errorf("got %d deliveries; want 0", len(sender.sent))
	}
}

func TestRouterPrivateMessage(t *testing.T) {
	rtr, reg, sender := newTestRouter()
	joinTestRoom(reg, "c1", "u1", "Manea", "R1")
	joinTestRoom(reg, "c2", "u2", "Simba", "R1")
	joinTestRoom(reg, "c3", "u3", "Vola", "R1")

	if _, ok := rtr.Route("c1", SendMessage{Content: "psst", IsPrivate: true, RecipientID: "u2"}); !ok {
		t.Fatal("Route() reported not dispatched")
	}

	deliveries := sender.byKind(EvtPrivateMessage)
	if len(deliveries) != 2 {
		t.Fatalf("got %d deliveries; want recipient + sender echo", len(deliveries))
	}
	got := map[string]bool{}
	for _, d := range deliveries {
		got[d.connID] = true
	}
	if !got["c1"] || !got["c2"] || got["c3"] {
		t.Errorf("delivered to %v; want c1 (echo) and c2 only", got)
	}
}

func TestRouterPrivateMessageOfflineRecipientOnlyEchoes(t *testing.T) {
	rtr, reg, sender := newTestRouter()
	joinTestRoom(reg, "c1", "u1", "Manea", "R1")

	if _, ok := rtr.Route("c1", SendMessage{Content: "psst", IsPrivate: true, RecipientID: "offline"}); !ok {
		t.Fatal("Route() reported not dispatched")
	}

	deliveries := sender.byKind(EvtPrivateMessage)
	if len(deliveries) != 1 || deliveries[0].connID != "c1" {
		t.Fatalf("deliveries = %v; want exactly one echo to c1", deliveries)
	}
}

func TestRouterPrivateMessageToSelfDeliversOnce(t *testing.T) {
	rtr, reg, sender := newTestRouter()
	joinTestRoom(reg, "c1", "u1", "Manea", "R1")

	if _, ok := rtr.Route("c1", SendMessage{Content: "note", IsPrivate: true, RecipientID: "u1"}); !ok {
		t.Fatal("Route() reported not dispatched")
	}
	if deliveries := sender.byKind(EvtPrivateMessage); len(deliveries) != 1 {
		t.Errorf("got %d deliveries; want 1", len(deliveries))
	}
}
