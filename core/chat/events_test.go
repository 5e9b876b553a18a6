package chat

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestDecodeClientEvent(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		frame   string
		want    ClientEvent
		wantErr bool
	}{
		{
			name:  "join-room",
			frame: `{"event":"join-room","data":{"room_id":"R1","user_id":"u1","display_name":"Manea"}}`,
			want:  JoinRoom{RoomID: "R1", UserID: "u1", DisplayName: "Manea"},
		},
		{
			name:    "join-room missing room",
			frame:   `{"event":"join-room","data":{"user_id":"u1","display_name":"Manea"}}`,
			wantErr: true,
		},
		{
			name:  "public message",
			frame: `{"event":"send-message","data":{"content":"hello"}}`,
			want:  SendMessage{Content: "hello"},
		},
		{
			name:    "private message without recipient",
			frame:   `{"event":"send-message","data":{"content":"psst","is_private":true}}`,
			wantErr: true,
		},
		{
			name:  "set-presence",
			frame: `{"event":"set-presence","data":{"is_present":false}}`,
			want:  SetPresence{},
		},
		{
			name:    "unknown event",
			frame:   `{"event":"raise-hand","data":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			frame:   `lol`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClientEvent([]byte(tt.frame), validate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeClientEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DecodeClientEvent() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
