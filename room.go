package main

import (
	"fmt"
	"time"
)

type Phase string

const (
	PhaseLobby    Phase = "LOBBY"
	PhasePlay     Phase = "PLAY"
	PhaseResult   Phase = "RESULT"
	PhaseGameOver Phase = "GAME_OVER"
)

const maxPlayers = 5

// Player is a seat in a room. SessionID is the durable identity a client
// holds across reconnects; ConnID is whatever connection currently
// occupies the seat and is rewritten on every reconnection.
type Player struct {
	ConnID     string `json:"id"`
	SessionID  string `json:"sessionId"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	TotalScore int    `json:"totalScore"`
	Role       Role   `json:"role"`
}

// Room holds all state for one game session. Seating order is join
// order and never changes while the room lives; Revealed maps seat
// index to the role that seat is publicly known to hold.
type Room struct {
	Code       string       `json:"code"`
	Players    []*Player    `json:"players"`
	Phase      Phase        `json:"gameState"`
	ChainIndex int          `json:"chainIndex"`
	Revealed   map[int]Role `json:"revealedRoles"`
	Message    string       `json:"message"`
	Round      int          `json:"round"`
	MaxRounds  int          `json:"maxRounds"`

	lastActive time.Time
}

func newRoom(code string, maxRounds int) *Room {
	return &Room{
		Code:       code,
		Phase:      PhaseLobby,
		Revealed:   make(map[int]Role),
		Message:    "Waiting for players...",
		Round:      1,
		MaxRounds:  maxRounds,
		lastActive: time.Now(),
	}
}

func (r *Room) playerBySession(sessionID string) *Player {
	for _, p := range r.Players {
		if p.SessionID == sessionID {
			return p
		}
	}
	return nil
}

func (r *Room) playerByConn(connID string) (*Player, int) {
	for i, p := range r.Players {
		if p.ConnID == connID {
			return p, i
		}
	}
	return nil, -1
}

func (r *Room) holderOf(role Role) int {
	for i, p := range r.Players {
		if p.Role == role {
			return i
		}
	}
	return -1
}

// join resolves a durable session identity against the room. A matching
// session means a reconnection: the seat's connection id is updated and
// membership is unchanged. Otherwise a seat is allocated, provided the
// room still has space and no round has begun.
func (r *Room) join(name, sessionID, connID string) (rejoined bool, err error) {
	if existing := r.playerBySession(sessionID); existing != nil {
		existing.ConnID = connID
		return true, nil
	}

	if r.Phase != PhaseLobby || len(r.Players) >= maxPlayers {
		return false, ErrJoinRejected
	}

	r.Players = append(r.Players, &Player{
		ConnID:    connID,
		SessionID: sessionID,
		Name:      name,
	})

	return false, nil
}

// start begins the first round. Only seat 0 (the room's creator) may
// start, and only from a full lobby; anything else is a stale client
// and is ignored.
func (r *Room) start(connID string) bool {
	if r.Phase != PhaseLobby || len(r.Players) != maxPlayers {
		return false
	}
	if _, seat := r.playerByConn(connID); seat != 0 {
		return false
	}

	r.startRound()

	return true
}

// startRound deals fresh roles, rewinds the chain, and reveals Raju,
// whose identity anchors the guessing chain.
func (r *Room) startRound() {
	roles := shuffledRoles()
	for i, p := range r.Players {
		p.Role = roles[i]
		p.Score = 0
	}

	r.Phase = PhasePlay
	r.ChainIndex = 0
	r.Revealed = make(map[int]Role)

	raju := r.holderOf(RoleRaju)
	r.Revealed[raju] = RoleRaju
	r.Message = fmt.Sprintf("Mission Start. Raju (%s) identified. Find Rani.", r.Players[raju].Name)
}

type guessResult int

const (
	guessIgnored guessResult = iota
	guessCorrect
	guessIncorrect
)

// makeGuess applies one link of the chain. Only the current role holder
// may guess; a wrong guess swaps roles between guesser and target and
// the chain does not advance.
func (r *Room) makeGuess(connID string, targetIndex int) guessResult {
	if r.Phase != PhasePlay {
		return guessIgnored
	}
	if targetIndex < 0 || targetIndex >= len(r.Players) {
		return guessIgnored
	}

	currentRole := chainOrder[r.ChainIndex]
	targetRole := chainOrder[r.ChainIndex+1]

	guesserIndex := r.holderOf(currentRole)
	if guesserIndex < 0 {
		return guessIgnored
	}

	guesser := r.Players[guesserIndex]
	if guesser.ConnID != connID {
		return guessIgnored
	}

	target := r.Players[targetIndex]

	if target.Role != targetRole {
		guesser.Role, target.Role = target.Role, guesser.Role
		r.rebuildRevealed()
		r.Message = fmt.Sprintf("SWAP! %s and %s exchanged roles.", guesser.Name, target.Name)
		return guessIncorrect
	}

	r.Revealed[targetIndex] = targetRole

	if r.ChainIndex == len(chainOrder)-3 {
		// Bhatudu found: the one seat still hidden must be Donga.
		donga := r.holderOf(RoleDonga)
		r.Revealed[donga] = RoleDonga
		r.finishRound()
	} else {
		r.ChainIndex++
		r.Message = fmt.Sprintf("Correct! %s is %s. Next: %s -> %s",
			target.Name, targetRole, chainOrder[r.ChainIndex], chainOrder[r.ChainIndex+1])
	}

	return guessCorrect
}

// rebuildRevealed recomputes the reveal set from current role
// ownership. Patching the two swapped entries is not enough: a swap can
// hand an already-revealed role to a different seat, so the only safe
// move is to rebuild from scratch.
func (r *Room) rebuildRevealed() {
	r.Revealed = make(map[int]Role)

	r.Revealed[r.holderOf(RoleRaju)] = RoleRaju

	for i := 0; i < r.ChainIndex; i++ {
		role := chainOrder[i+1]
		r.Revealed[r.holderOf(role)] = role
	}
}

// finishRound scores every seat by its final role and moves the room to
// the result phase.
func (r *Room) finishRound() {
	for _, p := range r.Players {
		points := roleScores[p.Role]
		p.Score = points
		p.TotalScore += points
	}

	r.Phase = PhaseResult
	r.Message = "Mission Complete. Check scores."
}

// advance moves a finished round forward: another round if any remain,
// the final standings otherwise. Only recognized members may advance,
// and only from the result phase.
func (r *Room) advance(connID string) bool {
	if r.Phase != PhaseResult {
		return false
	}
	if p, _ := r.playerByConn(connID); p == nil {
		return false
	}

	if r.Round < r.MaxRounds {
		r.Round++
		r.startRound()
	} else {
		r.Phase = PhaseGameOver
		r.Message = "Game Over! Final Results."
	}

	return true
}

// leave removes the seat held by connID. The game needs exactly five
// players, so a departure mid-game aborts the round: roles cleared,
// all scores zeroed, room back to the lobby at round one.
func (r *Room) leave(connID string) bool {
	_, seat := r.playerByConn(connID)
	if seat < 0 {
		return false
	}

	r.Players = append(r.Players[:seat], r.Players[seat+1:]...)

	if len(r.Players) > 0 && r.Phase != PhaseLobby {
		r.Phase = PhaseLobby
		r.Round = 1
		r.ChainIndex = 0
		r.Revealed = make(map[int]Role)
		for _, p := range r.Players {
			p.Score = 0
			p.TotalScore = 0
			p.Role = ""
		}
		r.Message = "Mission Aborted. Player left. Waiting for crew..."
	}

	return true
}
