package main

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistryCreate(t *testing.T) {
	reg := newRegistry()

	room, err := reg.create("asha", "session-1", "conn-1", 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(room.Code) != roomCodeLength {
		t.Errorf("code %q has length %d, want %d", room.Code, len(room.Code), roomCodeLength)
	}
	for _, c := range room.Code {
		if !strings.ContainsRune(roomCodeLetters, c) {
			t.Errorf("code %q contains %q, outside the allowed charset", room.Code, c)
		}
	}

	if room.Phase != PhaseLobby {
		t.Errorf("phase = %s, want %s", room.Phase, PhaseLobby)
	}
	if room.Round != 1 {
		t.Errorf("round = %d, want 1", room.Round)
	}
	if room.MaxRounds != 3 {
		t.Errorf("max rounds = %d, want 3", room.MaxRounds)
	}

	if len(room.Players) != 1 {
		t.Fatalf("player count = %d, want 1", len(room.Players))
	}
	creator := room.Players[0]
	if creator.Name != "asha" || creator.SessionID != "session-1" || creator.ConnID != "conn-1" {
		t.Errorf("unexpected creator seat: %+v", creator)
	}
	if creator.Role != "" || creator.Score != 0 || creator.TotalScore != 0 {
		t.Errorf("creator seat not zeroed: %+v", creator)
	}
}

func TestRegistryCreateInvalidConfig(t *testing.T) {
	reg := newRegistry()

	for _, maxRounds := range []int{0, -1, -5} {
		if _, err := reg.create("asha", "session-1", "conn-1", maxRounds); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("create with maxRounds=%d: err = %v, want ErrInvalidConfig", maxRounds, err)
		}
	}

	if reg.count() != 0 {
		t.Errorf("registry holds %d rooms after rejected creates, want 0", reg.count())
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := newRegistry()

	room, err := reg.create("asha", "session-1", "conn-1", 5)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Codes are case-insensitive on input.
	for _, code := range []string{room.Code, strings.ToLower(room.Code)} {
		got, err := reg.lookup(code)
		if err != nil {
			t.Fatalf("lookup(%q): %v", code, err)
		}
		if got != room {
			t.Errorf("lookup(%q) returned a different room", code)
		}
	}

	if _, err := reg.lookup("ZZZZ"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("lookup of unknown code: err = %v, want ErrRoomNotFound", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := newRegistry()

	room, err := reg.create("asha", "session-1", "conn-1", 5)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reg.remove(strings.ToLower(room.Code))

	if _, err := reg.lookup(room.Code); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("lookup after remove: err = %v, want ErrRoomNotFound", err)
	}
	if reg.count() != 0 {
		t.Errorf("registry holds %d rooms after remove, want 0", reg.count())
	}
}

func TestRegistryCodesAreUnique(t *testing.T) {
	reg := newRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room, err := reg.create("asha", "session", "conn", 5)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[room.Code] {
			t.Fatalf("code %q minted twice", room.Code)
		}
		seen[room.Code] = true
	}
}
