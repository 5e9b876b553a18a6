package chat

import (
	"context"
	"sync"
	"testing"
)

type memMessageRepo struct {
	mu    sync.Mutex
	saved []Message
}

func (r *memMessageRepo) SaveMessage(_ context.Context, msg Message) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, msg)
	return msg, nil
}

func (r *memMessageRepo) QueryCourseMessages(_ context.Context, courseID string, _ MessageFilter) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.saved {
		if m.CourseID == courseID {
			out = append(out, m)
		}
	}
	return out, nil
}

func newTestHub(history *Service) (*Hub, *Registry, *recordingSender) {
	reg := NewRegistry()
	sender := &recordingSender{}
	return NewHub(reg, sender, history, nil), reg, sender
}

func TestHubJoinBroadcasts(t *testing.T) {
	ctx := context.Background()
	hub, reg, sender := newTestHub(nil)

	hub.Handle(ctx, "c1", JoinRoom{RoomID: "R1", UserID: "u1", DisplayName: "Manea"})

	// first joiner: nobody to announce to, roster goes to the joiner
	if arrivals := sender.byKind(EvtMemberJoined); len(arrivals) != 0 {
		t.Errorf("got %d member-joined; want 0 for first joiner", len(arrivals))
	}
	rosters := sender.byKind(EvtRoster)
	if len(rosters) != 1 || rosters[0].connID != "c1" {
		t.Fatalf("rosters = %v; want one to c1", rosters)
	}

	sender.reset()
	hub.Handle(ctx, "c2", JoinRoom{RoomID: "R1", UserID: "u2", DisplayName: "Simba"})

	// arrival to existing members only, roster to everyone
	arrivals := sender.byKind(EvtMemberJoined)
	if len(arrivals) != 1 || arrivals[0].connID != "c1" {
		t.Errorf("arrivals = %v; want one to c1 (joiner excluded)", arrivals)
	}
	if evt := arrivals[0].evt.Data.(MemberEvent); evt.UserID != "u2" {
		t.Errorf("member-joined for %s; want u2", evt.UserID)
	}
	rosters = sender.byKind(EvtRoster)
	if len(rosters) != 2 {
		t.Errorf("got %d rosters; want 2 (joiner included)", len(rosters))
	}
	if entries := reg.Roster("R1"); len(entries) != 2 {
		t.Errorf("Roster(R1) = %v; want 2 entries", entries)
	}
}

func TestHubDisconnect(t *testing.T) {
	ctx := context.Background()
	hub, reg, sender := newTestHub(nil)

	hub.Handle(ctx, "c1", JoinRoom{RoomID: "R1", UserID: "u1", DisplayName: "Manea"})
	hub.Handle(ctx, "c2", JoinRoom{RoomID: "R1", UserID: "u2", DisplayName: "Simba"})
	sender.reset()

	hub.Disconnect("c2")

	left := sender.byKind(EvtMemberLeft)
	if len(left) != 1 || left[0].connID != "c1" {
		t.Fatalf("member-left = %v; want exactly one to c1", left)
	}
	if evt := left[0].evt.Data.(MemberEvent); evt.UserID != "u2" {
		t.Errorf("member-left for %s; want u2", evt.UserID)
	}
	// departure notification only; no roster rebroadcast
	if rosters := sender.byKind(EvtRoster); len(rosters) != 0 {
		t.Errorf("got %d rosters after leave; want 0", len(rosters))
	}
	if _, ok := reg.Lookup("c2"); ok {
		t.Error("Lookup(c2) after disconnect reported present")
	}

	// idempotent
	sender.reset()
	hub.Disconnect("c2")
	if len(sender.sent) != 0 {
		t.Errorf("second disconnect emitted %d events; want 0", len(sender.sent))
	}
}

func TestHubDisconnectBeforeJoinNotifiesNobody(t *testing.T) {
	hub, _, sender := newTestHub(nil)

	// the transport opened but the client never joined a room
	hub.Disconnect("c1")
	if len(sender.sent) != 0 {
		t.Errorf("got %d events; want 0", len(sender.sent))
	}
}

func TestHubPresence(t *testing.T) {
	ctx := context.Background()
	hub, _, sender := newTestHub(nil)

	hub.Handle(ctx, "c1", JoinRoom{RoomID: "R1", UserID: "u1", DisplayName: "Manea"})
	hub.Handle(ctx, "c2", JoinRoom{RoomID: "R1", UserID: "u2", DisplayName: "Simba"})
	sender.reset()

	hub.Handle(ctx, "c1", SetPresence{IsPresent: false})

	changes := sender.byKind(EvtPresenceChanged)
	if len(changes) != 2 {
		t.Fatalf("got %d presence-changed; want 2 (whole room)", len(changes))
	}
	if evt := changes[0].evt.Data.(PresenceEvent); evt.UserID != "u1" || evt.IsPresent {
		t.Errorf("presence event = %+v; want u1 not present", evt)
	}

	// toggling on an unknown connection is a no-op
	sender.reset()
	hub.Handle(ctx, "ghost", SetPresence{IsPresent: true})
	if len(sender.sent) != 0 {
		t.Errorf("got %d events for unknown connection; want 0", len(sender.sent))
	}
}

func TestHubPersistsRoutedMessages(t *testing.T) {
	ctx := context.Background()
	repo := &memMessageRepo{}
	hub, _, _ := newTestHub(NewService(repo))

	hub.Handle(ctx, "c1", JoinRoom{RoomID: "R1", UserID: "u1", DisplayName: "Manea"})
	hub.Handle(ctx, "c1", SendMessage{Content: "hello"})
	hub.Handle(ctx, "ghost", SendMessage{Content: "dropped"}) // never saved

	if len(repo.saved) != 1 {
		t.Fatalf("saved %d messages; want 1", len(repo.saved))
	}
	msg := repo.saved[0]
	if msg.CourseID != "R1" || msg.SenderID != "u1" || msg.Content != "hello" || msg.IsPrivate {
		t.Errorf("saved = %+v", msg)
	}
}

// The end-to-end classroom scenario: two students, a public message, a
// disconnect and a private message to an offline user.
func TestHubClassroomScenario(t *testing.T) {
	ctx := context.Background()
	hub, reg, sender := newTestHub(nil)

	hub.Handle(ctx, "c1", JoinRoom{RoomID: "R1", UserID: "u-manea", DisplayName: "Manea"})
	hub.Handle(ctx, "c2", JoinRoom{RoomID: "R1", UserID: "u-simba", DisplayName: "Simba"})

	sender.reset()
	hub.Handle(ctx, "c1", SendMessage{Content: "hello"})

	public := sender.byKind(EvtPublicMessage)
	if len(public) != 2 {
		t.Fatalf("public deliveries = %d; want 2", len(public))
	}
	if entries := reg.Roster("R1"); len(entries) != 2 {
		t.Fatalf("roster = %v; want 2 entries", entries)
	}

	sender.reset()
	hub.Disconnect("c2")
	left := sender.byKind(EvtMemberLeft)
	if len(left) != 1 || left[0].connID != "c1" {
		t.Fatalf("member-left = %v; want one to c1", left)
	}
	if entries := reg.Roster("R1"); len(entries) != 1 {
		t.Fatalf("roster after disconnect = %v; want 1 entry", entries)
	}

	sender.reset()
	hub.Handle(ctx, "c1", SendMessage{Content: "psst", IsPrivate: true, RecipientID: "u-nobody"})
	private := sender.byKind(EvtPrivateMessage)
	if len(private) != 1 || private[0].connID != "c1" {
		t.Fatalf("private deliveries = %v; want only the echo to c1", private)
	}
}
