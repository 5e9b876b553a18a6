package chat

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Inbound event names.
const (
	evtJoinRoom    = "join-room"
	evtSendMessage = "send-message"
	evtSetPresence = "set-presence"
)

// Outbound event names.
const (
	EvtMemberJoined    = "member-joined"
	EvtRoster          = "roster"
	EvtPublicMessage   = "message-public"
	EvtPrivateMessage  = "message-private"
	EvtPresenceChanged = "presence-changed"
	EvtMemberLeft      = "member-left"
)

var ErrUnknownEvent = errors.New("unknown event")

// ClientEvent is the closed set of inbound classroom events. Dispatch on the
// concrete type; there is no string branching past the decoder.
type ClientEvent interface {
	clientEvent()
}

type JoinRoom struct {
	RoomID      string `json:"room_id" validate:"required"`
	UserID      string `json:"user_id" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
}

type SendMessage struct {
	Content     string `json:"content" validate:"required"`
	IsPrivate   bool   `json:"is_private"`
	RecipientID string `json:"recipient_id" validate:"required_if=IsPrivate true"`
}

type SetPresence struct {
	IsPresent bool `json:"is_present"`
}

func (JoinRoom) clientEvent()    {}
func (SendMessage) clientEvent() {}
func (SetPresence) clientEvent() {}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeClientEvent parses and validates one inbound frame. Malformed
// payloads never reach the Hub or Router.
func DecodeClientEvent(frame []byte, validate *validator.Validate) (ClientEvent, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, errors.Wrap(err, "decoding event envelope")
	}

	switch env.Event {
	case evtJoinRoom:
		var evt JoinRoom
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return nil, errors.Wrap(err, "decoding join-room")
		}
		if err := validate.Struct(evt); err != nil {
			return nil, err
		}
		return evt, nil
	case evtSendMessage:
		var evt SendMessage
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return nil, errors.Wrap(err, "decoding send-message")
		}
		if err := validate.Struct(evt); err != nil {
			return nil, err
		}
		return evt, nil
	case evtSetPresence:
		var evt SetPresence
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return nil, errors.Wrap(err, "decoding set-presence")
		}
		return evt, nil
	}
	return nil, ErrUnknownEvent
}

// ServerEvent is the outbound envelope broadcast to clients.
type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// MemberEvent announces an arrival or a departure.
type MemberEvent struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// RosterEvent carries the full live roster of a room.
type RosterEvent struct {
	Entries []RosterEntry `json:"entries"`
}

// PresenceEvent announces a presence flag change.
type PresenceEvent struct {
	UserID    string `json:"user_id"`
	IsPresent bool   `json:"is_present"`
}
