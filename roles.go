package main

import (
	"crypto/rand"
)

// Role is one of the five secret identities dealt each round. The zero
// value means the player currently holds no role (lobby, or an aborted
// round).
type Role string

const (
	RoleRaju    Role = "Raju"
	RoleRani    Role = "Rani"
	RoleManthri Role = "Manthri"
	RoleBhatudu Role = "Bhatudu"
	RoleDonga   Role = "Donga"
)

// chainOrder doubles as the guessing chain: the holder of chainOrder[i]
// must identify the holder of chainOrder[i+1]. Raju is public knowledge
// from the start, and Donga is never guessed directly; once Bhatudu is
// found, the last unrevealed seat has to be Donga.
var chainOrder = []Role{RoleRaju, RoleRani, RoleManthri, RoleBhatudu, RoleDonga}

var roleScores = map[Role]int{
	RoleRaju:    1000,
	RoleRani:    900,
	RoleManthri: 800,
	RoleBhatudu: 500,
	RoleDonga:   0,
}

// shuffledRoles deals the five roles in uniformly random order using a
// crypto/rand Fisher-Yates shuffle.
func shuffledRoles() []Role {
	roles := make([]Role, len(chainOrder))
	copy(roles, chainOrder)

	for i := len(roles) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		roles[i], roles[j] = roles[j], roles[i]
	}

	return roles
}

// randomInt returns a uniform value in [0, n) via rejection sampling,
// so small moduli don't bias the shuffle.
func randomInt(n int) int {
	max := 256 - (256 % n)
	var b [1]byte

	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		if int(b[0]) < max {
			return int(b[0]) % n
		}
	}
}
