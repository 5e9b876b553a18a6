package chat

import (
	"testing"
)

func TestRegistryRosterMatchesJoinedConnections(t *testing.T) {
	reg := NewRegistry()

	reg.Register("c1", "u1", "Manea")
	reg.UpdateRoom("c1", "R1")
	reg.Register("c2", "u2", "Simba")
	reg.UpdateRoom("c2", "R1")
	reg.Register("c3", "u3", "Vola")
	reg.UpdateRoom("c3", "R2")
	reg.Register("c4", "u4", "Lanto") // connected, never joined

	roster := reg.Roster("R1")
	if len(roster) != 2 {
		t.Fatalf("Roster(R1) len = %d; want 2", len(roster))
	}
	// registration order
	if roster[0].UserID != "u1" || roster[1].UserID != "u2" {
		t.Errorf("Roster(R1) order = %v", roster)
	}

	if _, ok := reg.Remove("c2"); !ok {
		t.Fatal("Remove(c2) reported absent")
	}
	roster = reg.Roster("R1")
	if len(roster) != 1 || roster[0].UserID != "u1" {
		t.Errorf("Roster(R1) after remove = %v; want [u1]", roster)
	}

	// removing again is a safe no-op
	if _, ok := reg.Remove("c2"); ok {
		t.Error("Remove(c2) twice reported present")
	}
	if _, ok := reg.Lookup("c2"); ok {
		t.Error("Lookup(c2) after remove reported present")
	}

	// connections without a room never appear in any roster
	if members := reg.MembersOf(""); members != nil {
		t.Errorf("MembersOf(\"\") = %v; want nil", members)
	}
}

func TestRegistryRegisterIsIdempotentPerConnection(t *testing.T) {
	reg := NewRegistry()

	reg.Register("c1", "u1", "Manea")
	reg.UpdateRoom("c1", "R1")
	reg.Register("c2", "u2", "Simba")
	reg.UpdateRoom("c2", "R1")

	// re-register overwrites identity, keeps room and position
	reg.Register("c1", "u1", "Manea R.")

	conn, ok := reg.Lookup("c1")
	if !ok {
		t.Fatal("Lookup(c1) reported absent")
	}
	if conn.DisplayName != "Manea R." || conn.RoomID != "R1" {
		t.Errorf("Lookup(c1) = %+v", conn)
	}
	if members := reg.MembersOf("R1"); len(members) != 2 || members[0].ID != "c1" {
		t.Errorf("MembersOf(R1) = %v; want [c1 c2]", members)
	}
}

func TestRegistryFindByUserIDFirstMatch(t *testing.T) {
	reg := NewRegistry()

	reg.Register("c1", "u1", "Manea laptop")
	reg.Register("c2", "u1", "Manea phone") // second session, same user
	reg.Register("c3", "u2", "Simba")

	conn, ok := reg.FindByUserID("u1")
	if !ok {
		t.Fatal("FindByUserID(u1) reported absent")
	}
	if conn.ID != "c1" {
		t.Errorf("FindByUserID(u1).ID = %s; want c1 (first session)", conn.ID)
	}

	if _, ok = reg.FindByUserID("ghost"); ok {
		t.Error("FindByUserID(ghost) reported present")
	}
}

func TestRegistrySetPresence(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1", "u1", "Manea")
	reg.UpdateRoom("c1", "R1")

	entry, ok := reg.SetPresence("c1", false)
	if !ok {
		t.Fatal("SetPresence(c1) reported absent")
	}
	if entry.IsPresent {
		t.Error("SetPresence(c1, false) left IsPresent true")
	}
	if entry.RoomID != "R1" {
		t.Errorf("entry.RoomID = %s; want R1", entry.RoomID)
	}

	// toggling presence does not remove the connection from the room
	if members := reg.MembersOf("R1"); len(members) != 1 {
		t.Errorf("MembersOf(R1) = %v; want 1 member", members)
	}

	// unknown connection: no entry, no panic
	if _, ok := reg.SetPresence("ghost", true); ok {
		t.Error("SetPresence(ghost) reported present")
	}
}

func TestRegistryUpdateRoomUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.UpdateRoom("ghost", "R1")
	if members := reg.MembersOf("R1"); members != nil {
		t.Errorf("MembersOf(R1) = %v; want nil", members)
	}
}
