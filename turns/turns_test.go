/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package turns

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// zeroRand always picks the first candidate.
type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

// lastRand always picks the last candidate, which leaves a Fisher-Yates
// shuffle as the identity.
type lastRand struct{}

func (lastRand) IntN(n int) int { return n - 1 }

type mockRand struct {
	mock.Mock
}

func (m *mockRand) IntN(n int) int {
	return m.Called(n).Int(0)
}

func TestAdvanceIsCyclic(t *testing.T) {
	for _, n := range []int{1, 2, 5, 8} {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}

		o := NewSolo(ids, CryptoRand{})
		start := o.Current()
		startCursor := o.Cursor()

		for range n {
			o.Advance()
			assert.GreaterOrEqual(t, o.Cursor(), 0)
			assert.Less(t, o.Cursor(), n)
		}

		assert.Equal(t, startCursor, o.Cursor())
		assert.Equal(t, start, o.Current())
	}
}

func TestSoloOrderIsAPermutation(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}

	o := NewSolo(ids, CryptoRand{})
	got := o.Tokens()
	slices.Sort(got)
	assert.Equal(t, ids, got)

	for _, id := range ids {
		tok, ok := o.TokenOf(id)
		assert.True(t, ok)
		assert.Equal(t, id, tok)
		assert.Equal(t, []string{id}, o.Members(id))
	}
}

func TestShuffleDrivenByRand(t *testing.T) {
	o := NewSolo([]string{"a", "b", "c"}, lastRand{})
	assert.Equal(t, []string{"a", "b", "c"}, o.Tokens())

	// i=2 swaps with 0, i=1 swaps with 0
	o = NewSolo([]string{"a", "b", "c"}, zeroRand{})
	assert.Equal(t, []string{"b", "c", "a"}, o.Tokens())
}

func TestEmptyOrder(t *testing.T) {
	o := NewSolo(nil, CryptoRand{})

	assert.Equal(t, "", o.Current())
	assert.Equal(t, "", o.Advance())
	assert.Equal(t, 0, o.Cursor())
}

func TestTeamOrderMovesWholeTeams(t *testing.T) {
	o := NewTeams(map[string][]string{
		"A": {"p1", "p3"},
		"B": {"p2", "p4"},
	}, lastRand{})

	assert.Equal(t, []string{"A", "B"}, o.Tokens())
	assert.Equal(t, "A", o.Current())
	assert.True(t, o.CanAct("p1"))
	assert.True(t, o.CanAct("p3"))
	assert.False(t, o.CanAct("p2"))

	b := NewBoard(o)
	b.Move(o.Current(), 4)
	o.Advance()
	b.Move(o.Current(), 2)

	assert.Equal(t, map[string]int{"p1": 4, "p3": 4, "p2": 2, "p4": 2}, b.Positions())
}

func TestRemoveKeepsCursorInRange(t *testing.T) {
	o := NewSolo([]string{"a", "b", "c"}, lastRand{})
	o.Advance()
	o.Advance()
	require.Equal(t, "c", o.Current())

	o.Remove("c")
	assert.Equal(t, "a", o.Current())

	o.Remove("a")
	assert.Equal(t, "b", o.Current())

	o.Remove("b")
	assert.Equal(t, "", o.Current())
	assert.Equal(t, 0, o.Len())

	o.Remove("ghost")
}

func TestRemoveBeforeCursor(t *testing.T) {
	o := NewSolo([]string{"a", "b", "c"}, lastRand{})
	o.Advance()
	require.Equal(t, "b", o.Current())

	o.Remove("a")
	assert.Equal(t, "b", o.Current())
}

func TestRemoveTeamMember(t *testing.T) {
	o := NewTeams(map[string][]string{"A": {"p1", "p2"}, "B": {"p3"}}, lastRand{})

	o.Remove("p1")
	assert.Equal(t, []string{"p2"}, o.Members("A"))
	assert.Equal(t, 2, o.Len())

	o.Remove("p3")
	assert.Equal(t, []string{"A"}, o.Tokens())
}

func TestResolveLanding(t *testing.T) {
	items := []string{"x", "y", "z"}

	assert.Equal(t, Landing{Position: 0, Kind: KindStart}, ResolveLanding(0, items))
	assert.Equal(t, Landing{Position: 7, Kind: KindLoyaltyFill}, ResolveLanding(7, items))
	assert.Equal(t, Landing{Position: 21, Kind: KindLoyaltyDrink}, ResolveLanding(21, items))
	assert.Equal(t, Landing{Position: 4, Kind: KindItem, Text: "y"}, ResolveLanding(4, items))
	assert.Equal(t, Landing{Position: 3, Kind: KindItem, Text: "x"}, ResolveLanding(31, items))
	assert.Equal(t, Landing{Position: 5, Kind: KindEmpty}, ResolveLanding(5, nil))

	// same tile, different item list
	assert.Equal(t, "z", ResolveLanding(5, items).Text)
	assert.Equal(t, "y", ResolveLanding(5, []string{"x", "y"}).Text)
}

func TestBoardWrapsAndCountsLaps(t *testing.T) {
	o := NewSolo([]string{"a"}, CryptoRand{})
	b := NewBoard(o)

	assert.Equal(t, 6, b.Move("a", 6))
	assert.Equal(t, 2, b.Move("a", 24))
	assert.Equal(t, 1, b.Laps("a"))
	assert.Equal(t, 2, b.Position("a"))
}

func TestDivideRandomBalancesTeams(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}

	teams, err := DivideRandom(ids, 3, CryptoRand{})
	require.NoError(t, err)
	require.Len(t, teams, 3)

	var all []string
	for name, m := range teams {
		assert.Contains(t, []string{"A", "B", "C"}, name)
		assert.GreaterOrEqual(t, len(m), 2)
		assert.LessOrEqual(t, len(m), 3)
		all = append(all, m...)
	}
	slices.Sort(all)
	assert.Equal(t, ids, all)
}

func TestDivideRejectsBadCounts(t *testing.T) {
	_, err := DivideRandom([]string{"a", "b"}, 3, CryptoRand{})
	assert.ErrorIs(t, err, ErrTeamCount)

	_, err = DivideLadder([]string{"a", "b"}, 0, CryptoRand{})
	assert.ErrorIs(t, err, ErrTeamCount)
}

func TestDivideLadderFollowsRungs(t *testing.T) {
	r := &mockRand{}
	// three rails, nine rungs; every rung joins rails 0 and 1
	r.On("IntN", 2).Return(0).Times(9)

	teams, err := DivideLadder([]string{"a", "b", "c"}, 2, r)
	require.NoError(t, err)

	// nine swaps of rails 0/1 leave a and b exchanged
	assert.Equal(t, map[string][]string{"A": {"b", "c"}, "B": {"a"}}, teams)
	r.AssertExpectations(t)
}

func TestAssignment(t *testing.T) {
	a := NewAssignment()
	ids := []string{"p1", "p2", "p3"}

	require.NoError(t, a.Set("p1", "A"))
	require.NoError(t, a.Set("p2", "B"))
	assert.False(t, a.Complete(ids))

	require.NoError(t, a.Set("p3", "A"))
	assert.True(t, a.Complete(ids))
	assert.Equal(t, map[string][]string{"A": {"p1", "p3"}, "B": {"p2"}}, a.Groups(ids))

	assert.ErrorIs(t, a.Set("p1", "Z"), ErrTeamCount)

	a.Reset()
	assert.Equal(t, 0, a.Len())
}

func TestSixSided(t *testing.T) {
	d := SixSided{R: CryptoRand{}}
	for range 100 {
		n := d.Roll()
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 6)
	}

	assert.Equal(t, 6, SixSided{R: lastRand{}}.Roll())
}

func TestRewind(t *testing.T) {
	o := NewSolo([]string{"a", "b", "c"}, lastRand{})
	o.Advance()
	o.Advance()
	assert.Equal(t, "c", o.Current())

	assert.Equal(t, "a", o.Rewind())
	assert.Equal(t, 0, o.Cursor())

	empty := NewSolo(nil, lastRand{})
	assert.Equal(t, "", empty.Rewind())
}
