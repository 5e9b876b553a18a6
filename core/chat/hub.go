package chat

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core"
)

// Hub is the classroom lifecycle controller. It owns the side effects of
// join, message, presence and disconnect events on the Registry, and fans
// the resulting broadcasts out through the Sender.
//
// Per-connection events must be handed to the Hub in the order the transport
// received them; the Hub gives no ordering guarantee across connections.
type Hub struct {
	registry *Registry
	router   *Router
	sender   Sender
	history  *Service // nil-safe; best-effort persistence
	logger   core.Logger
}

func NewHub(registry *Registry, sender Sender, history *Service, logger core.Logger) *Hub {
	return &Hub{
		registry: registry,
		router:   NewRouter(registry, sender),
		sender:   sender,
		history:  history,
		logger:   logger,
	}
}

// Handle dispatches one decoded client event.
func (h *Hub) Handle(ctx context.Context, connID string, evt ClientEvent) {
	switch e := evt.(type) {
	case JoinRoom:
		h.join(connID, e)
	case SendMessage:
		h.message(ctx, connID, e)
	case SetPresence:
		h.presence(connID, e)
	}
}

// join registers the connection's identity and room, announces the arrival
// to the existing members, then broadcasts the full roster to the whole room
// including the joiner. A second join from the same connection silently
// overwrites its room; the first room is not notified of the departure.
func (h *Hub) join(connID string, evt JoinRoom) {
	h.registry.Register(connID, evt.UserID, evt.DisplayName)
	h.registry.UpdateRoom(connID, evt.RoomID)

	arrival := ServerEvent{Event: EvtMemberJoined, Data: MemberEvent{UserID: evt.UserID, DisplayName: evt.DisplayName}}
	for _, member := range h.registry.MembersOf(evt.RoomID) {
		if member.ID == connID {
			continue
		}
		h.sender.Send(member.ID, arrival)
	}

	roster := ServerEvent{Event: EvtRoster, Data: RosterEvent{Entries: h.registry.Roster(evt.RoomID)}}
	for _, member := range h.registry.MembersOf(evt.RoomID) {
		h.sender.Send(member.ID, roster)
	}
}

func (h *Hub) message(ctx context.Context, connID string, evt SendMessage) {
	msg, ok := h.router.Route(connID, evt)
	if !ok {
		return
	}

	if h.history != nil {
		conn, ok := h.registry.Lookup(connID)
		if !ok || conn.RoomID == "" {
			return
		}
		if _, err := h.history.Save(ctx, Message{
			CourseID:    conn.RoomID,
			SenderID:    msg.SenderID,
			RecipientID: msg.RecipientID,
			Content:     msg.Content,
			IsPrivate:   msg.IsPrivate,
			CreatedAt:   msg.Timestamp,
		}); err != nil {
			// a failed save never blocks delivery
			h.logger.Error(fmt.Sprintf("saving chat message: %v", err), err)
		}
	}
}

// presence flips the connection's flag and notifies its room (sender
// included). Unknown connections are a benign race with disconnect: no
// broadcast, no error.
func (h *Hub) presence(connID string, evt SetPresence) {
	entry, ok := h.registry.SetPresence(connID, evt.IsPresent)
	if !ok {
		return
	}
	change := ServerEvent{Event: EvtPresenceChanged, Data: PresenceEvent{UserID: entry.UserID, IsPresent: entry.IsPresent}}
	for _, member := range h.registry.MembersOf(entry.RoomID) {
		h.sender.Send(member.ID, change)
	}
}

// Disconnect removes the connection and, when it had joined a room, notifies
// the remaining members of the departure. No roster rebroadcast follows: the
// departure notification suffices (deliberate asymmetry with join).
// Disconnect is idempotent and safe to call on an abrupt transport failure.
func (h *Hub) Disconnect(connID string) {
	conn, ok := h.registry.Remove(connID)
	if !ok || conn.RoomID == "" {
		return
	}
	left := ServerEvent{Event: EvtMemberLeft, Data: MemberEvent{UserID: conn.UserID, DisplayName: conn.DisplayName}}
	for _, member := range h.registry.MembersOf(conn.RoomID) {
		h.sender.Send(member.ID, left)
	}
}
