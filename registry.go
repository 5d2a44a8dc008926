package main

import (
	"crypto/rand"
	"strings"
)

const (
	roomCodeLength  = 4
	roomCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Registry owns every active room. It is only ever touched from the
// hub's run loop, so it carries no lock of its own.
type Registry struct {
	rooms map[string]*Room
}

func newRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// create mints a collision-checked code and opens a room with the
// creator in seat 0.
func (reg *Registry) create(name, sessionID, connID string, maxRounds int) (*Room, error) {
	if maxRounds <= 0 {
		return nil, ErrInvalidConfig
	}

	room := newRoom(reg.newRoomCode(), maxRounds)
	room.Players = append(room.Players, &Player{
		ConnID:    connID,
		SessionID: sessionID,
		Name:      name,
	})

	reg.rooms[room.Code] = room

	return room, nil
}

// lookup is case-insensitive on the code.
func (reg *Registry) lookup(code string) (*Room, error) {
	room, ok := reg.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (reg *Registry) remove(code string) {
	delete(reg.rooms, strings.ToUpper(code))
}

func (reg *Registry) count() int {
	return len(reg.rooms)
}

// newRoomCode generates a short crypto-random code and retries until it
// doesn't collide with a live room.
func (reg *Registry) newRoomCode() string {
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeLetters[int(buf[i])%len(roomCodeLetters)]
		}
		code := string(out)

		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}
