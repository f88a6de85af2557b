/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package turns

import (
	"errors"
	"fmt"
	"slices"
)

var ErrTeamCount = errors.New("invalid team count")

var TeamNames = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

func checkTeams(players, n int) error {
	if n < 1 || n > len(TeamNames) || n > players {
		return fmt.Errorf("%w: %d teams for %d players", ErrTeamCount, n, players)
	}

	return nil
}

// DivideRandom shuffles ids and deals them round-robin into n teams, so team
// sizes differ by at most one.
func DivideRandom(ids []string, n int, r Rand) (map[string][]string, error) {
	if err := checkTeams(len(ids), n); err != nil {
		return nil, err
	}

	shuffled := slices.Clone(ids)
	Shuffle(r, len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	teams := make(map[string][]string, n)
	for i, id := range shuffled {
		name := TeamNames[i%n]
		teams[name] = append(teams[name], id)
	}

	return teams, nil
}

// DivideLadder plays a ladder lottery: every player starts on their own rail,
// random rungs swap neighbouring rails, and the rail a player ends on decides
// the team. Rail j at the bottom belongs to team j mod n.
func DivideLadder(ids []string, n int, r Rand) (map[string][]string, error) {
	if err := checkTeams(len(ids), n); err != nil {
		return nil, err
	}

	rails := slices.Clone(ids)
	if len(rails) > 1 {
		rows := 3 * len(rails)
		for range rows {
			left := r.IntN(len(rails) - 1)
			rails[left], rails[left+1] = rails[left+1], rails[left]
		}
	}

	teams := make(map[string][]string, n)
	for j, id := range rails {
		name := TeamNames[j%n]
		teams[name] = append(teams[name], id)
	}

	return teams, nil
}

// Teams is a mutable assignment of clients to team names, used while a host is
// still arranging teams by hand.
type Teams struct {
	of map[string]string
}

func NewAssignment() *Teams {
	return &Teams{of: make(map[string]string)}
}

func (t *Teams) Set(client, team string) error {
	if !slices.Contains(TeamNames, team) {
		return fmt.Errorf("%w: unknown team %q", ErrTeamCount, team)
	}
	t.of[client] = team

	return nil
}

func (t *Teams) Load(teams map[string][]string) {
	clear(t.of)
	for name, members := range teams {
		for _, id := range members {
			t.of[id] = name
		}
	}
}

func (t *Teams) Of(client string) string {
	return t.of[client]
}

func (t *Teams) Remove(client string) {
	delete(t.of, client)
}

func (t *Teams) Reset() {
	clear(t.of)
}

func (t *Teams) Len() int {
	return len(t.of)
}

// Groups returns team name -> members, members in the order of ids.
func (t *Teams) Groups(ids []string) map[string][]string {
	out := make(map[string][]string)
	for _, id := range ids {
		if name, ok := t.of[id]; ok {
			out[name] = append(out[name], id)
		}
	}

	return out
}

// Complete reports whether every id has a team and at least two teams exist.
func (t *Teams) Complete(ids []string) bool {
	if len(ids) == 0 {
		return false
	}

	seen := make(map[string]struct{})
	for _, id := range ids {
		name, ok := t.of[id]
		if !ok {
			return false
		}
		seen[name] = struct{}{}
	}

	return len(seen) >= 2
}
