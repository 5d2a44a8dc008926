package main

import (
	"testing"
)

func TestShuffledRolesIsPermutation(t *testing.T) {
	for i := 0; i < 100; i++ {
		roles := shuffledRoles()

		if len(roles) != len(chainOrder) {
			t.Fatalf("got %d roles, want %d", len(roles), len(chainOrder))
		}

		seen := make(map[Role]int)
		for _, role := range roles {
			seen[role]++
		}

		for _, role := range chainOrder {
			if seen[role] != 1 {
				t.Fatalf("role %s dealt %d times in %v", role, seen[role], roles)
			}
		}
	}
}

func TestRoleScores(t *testing.T) {
	cases := []struct {
		role Role
		want int
	}{
		{RoleRaju, 1000},
		{RoleRani, 900},
		{RoleManthri, 800},
		{RoleBhatudu, 500},
		{RoleDonga, 0},
	}

	for _, tc := range cases {
		if got := roleScores[tc.role]; got != tc.want {
			t.Errorf("score for %s = %d, want %d", tc.role, got, tc.want)
		}
	}

	if len(roleScores) != len(chainOrder) {
		t.Errorf("score table has %d entries, want %d", len(roleScores), len(chainOrder))
	}
}

func TestRandomIntRange(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for i := 0; i < 200; i++ {
			got := randomInt(n)
			if got < 0 || got >= n {
				t.Fatalf("randomInt(%d) = %d, out of range", n, got)
			}
		}
	}
}
