package chat

import "time"

// Sender delivers a ServerEvent to one live connection. Implementations must
// not block; an undeliverable event is dropped (best-effort, at-most-once).
type Sender interface {
	Send(connectionID string, evt ServerEvent)
}

// Router decides who receives a chat message: the sender's whole room for
// public messages, or a single resolved recipient plus the sender's own echo
// for private ones.
type Router struct {
	registry *Registry
	sender   Sender

	nowFunc func() time.Time // mockable
}

func NewRouter(registry *Registry, sender Sender) *Router {
	return &Router{
		registry: registry,
		sender:   sender,
		nowFunc:  time.Now,
	}
}

// Route resolves the sending connection, stamps identity and time
// server-side and dispatches. Events from connections absent from the
// registry are dropped silently: they are stale sends racing a disconnect,
// not errors.
//
// It returns the dispatched message so callers can persist it; ok is false
// when nothing was dispatched.
func (r *Router) Route(connID string, payload SendMessage) (ChatMessage, bool) {
	from, ok := r.registry.Lookup(connID)
	if !ok {
		return ChatMessage{}, false
	}

	// client-supplied identity is never trusted; only Content, IsPrivate and
	// RecipientID survive from the payload
	msg := ChatMessage{
		SenderID:          from.UserID,
		SenderDisplayName: from.DisplayName,
		Content:           payload.Content,
		Timestamp:         r.nowFunc().UTC(),
		IsPrivate:         payload.IsPrivate,
	}

	if payload.IsPrivate {
		msg.RecipientID = payload.RecipientID
		evt := ServerEvent{Event: EvtPrivateMessage, Data: msg}
		if rcpt, found := r.registry.FindByUserID(payload.RecipientID); found && rcpt.ID != from.ID {
			r.sender.Send(rcpt.ID, evt)
		}
		// the sender always sees its own echo, even when the recipient has
		// no live connection (no delivery-failure notice is surfaced)
		r.sender.Send(from.ID, evt)
		return msg, true
	}

	// public: the full room, sender included
	evt := ServerEvent{Event: EvtPublicMessage, Data: msg}
	for _, member := range r.registry.MembersOf(from.RoomID) {
		r.sender.Send(member.ID, evt)
	}
	return msg, true
}
