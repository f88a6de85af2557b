/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package votes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleParity(t *testing.T) {
	b := NewBoard()
	it, err := b.Submit("author", "Author", "sing a song", 2)
	require.NoError(t, err)

	for calls := 1; calls <= 7; calls++ {
		n, voted, err := b.Toggle(it.ID, "voter")
		require.NoError(t, err)

		odd := calls%2 == 1
		assert.Equal(t, odd, voted, "after %d toggles", calls)
		if odd {
			assert.Equal(t, 1, n)
		} else {
			assert.Equal(t, 0, n)
		}
	}

	items := b.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].Voted("voter"))
	assert.Equal(t, []string{"voter"}, items[0].Voters())
}

func TestConcurrentVotersAccumulate(t *testing.T) {
	b := NewBoard()
	it, err := b.Submit("a", "A", "x", 0)
	require.NoError(t, err)

	for _, v := range []string{"v1", "v2", "v3"} {
		_, _, err := b.Toggle(it.ID, v)
		require.NoError(t, err)
	}

	assert.Equal(t, map[string]int{it.ID: 3}, b.Counts())
}

func TestToggleUnknownItem(t *testing.T) {
	b := NewBoard()

	_, _, err := b.Toggle("missing", "v")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSubmitCap(t *testing.T) {
	b := NewBoard()

	_, err := b.Submit("p1", "P1", "first", 2)
	require.NoError(t, err)
	_, err = b.Submit("p1", "P1", "second", 2)
	require.NoError(t, err)

	before := b.Items()

	_, err = b.Submit("p1", "P1", "third", 2)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Equal(t, before, b.Items())
	assert.Equal(t, 2, b.Submitted("p1"))

	_, err = b.Submit("p2", "P2", "other", 2)
	assert.NoError(t, err)
	assert.Equal(t, 3, b.Len())
}

func TestSubmitRejectsBlankText(t *testing.T) {
	b := NewBoard()

	_, err := b.Submit("p1", "P1", "   ", 2)
	assert.ErrorIs(t, err, ErrEmptyItem)
	assert.Equal(t, 0, b.Submitted("p1"))
}

func TestMarkDone(t *testing.T) {
	b := NewBoard()

	assert.True(t, b.MarkDone("a"))
	assert.False(t, b.MarkDone("a"))
	assert.True(t, b.MarkDone("b"))
	assert.Equal(t, 2, b.DoneCount())
	assert.True(t, b.IsDone("a"))

	b.ResetDone()
	assert.Equal(t, 0, b.DoneCount())
}

func TestForgetRemovesContributions(t *testing.T) {
	b := NewBoard()

	mine, err := b.Submit("gone", "Gone", "mine", 2)
	require.NoError(t, err)
	theirs, err := b.Submit("stay", "Stay", "theirs", 2)
	require.NoError(t, err)

	_, _, err = b.Toggle(theirs.ID, "gone")
	require.NoError(t, err)
	_, _, err = b.Toggle(mine.ID, "stay")
	require.NoError(t, err)
	b.MarkDone("gone")

	b.Forget("gone")

	items := b.Items()
	require.Len(t, items, 1)
	assert.Equal(t, theirs.ID, items[0].ID)
	assert.Equal(t, 0, items[0].Votes)
	assert.Equal(t, 0, b.DoneCount())

	_, _, err = b.Toggle(mine.ID, "stay")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRankStableTieBreak(t *testing.T) {
	b := NewBoard()

	counts := []int{3, 1, 3, 2, 0, 3}
	ids := make([]string, len(counts))
	for i, n := range counts {
		it, err := b.Submit("p", "P", string(rune('a'+i)), 0)
		require.NoError(t, err)
		ids[i] = it.ID

		for v := range n {
			_, _, err := b.Toggle(it.ID, string(rune('A'+v)))
			require.NoError(t, err)
		}
	}

	ranked := Rank(b.Items())

	var got []string
	for _, it := range ranked {
		got = append(got, it.ID)
	}
	assert.Equal(t, []string{ids[0], ids[2], ids[5], ids[3], ids[1], ids[4]}, got)

	assert.Equal(t, ranked, Rank(ranked))
	assert.Equal(t, ranked, Rank(b.Items()))
}

func TestRankBreaksTiesBySubmissionNotInputOrder(t *testing.T) {
	b := NewBoard()
	first, _ := b.Submit("p", "P", "first", 0)
	second, _ := b.Submit("p", "P", "second", 0)

	items := b.Items()
	items[0], items[1] = items[1], items[0]

	ranked := Rank(items)
	assert.Equal(t, first.ID, ranked[0].ID)
	assert.Equal(t, second.ID, ranked[1].ID)
}

func TestTop(t *testing.T) {
	b := NewBoard()
	for i := range 30 {
		it, err := b.Submit("p", "P", string(rune('a'+i)), 0)
		require.NoError(t, err)
		if i == 29 {
			_, _, _ = b.Toggle(it.ID, "v")
		}
	}

	top := Top(b.Items(), 26)
	require.Len(t, top, 26)
	assert.Equal(t, 1, top[0].Votes)
	assert.Equal(t, "a", top[1].Text)

	assert.Len(t, Top(b.Items()[:3], 26), 3)
}

func TestBallotRecastReplaces(t *testing.T) {
	b := NewBallot()

	b.Cast("v1", "x")
	b.Cast("v2", "x")
	b.Cast("v1", "y")

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, map[string]int{"x": 1, "y": 1}, b.Tally())
	assert.Equal(t, []string{"v1", "v2"}, b.Voters())

	_, _, ok := b.Leader()
	assert.False(t, ok)

	b.Cast("v3", "y")
	leader, n, ok := b.Leader()
	assert.True(t, ok)
	assert.Equal(t, "y", leader)
	assert.Equal(t, 2, n)
}

func TestBallotYesNoAndForget(t *testing.T) {
	b := NewBallot()
	b.Cast("a", "yes")
	b.Cast("b", "no")
	b.Cast("c", "yes")

	y, n := b.YesNo("yes")
	assert.Equal(t, 2, y)
	assert.Equal(t, 1, n)

	b.Forget("a")
	y, n = b.YesNo("yes")
	assert.Equal(t, 1, y)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"b", "c"}, b.Voters())

	b.Reset()
	_, _, ok := b.Leader()
	assert.False(t, ok)
}
