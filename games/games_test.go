/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/Seednode/gamenight/turns"
	"github.com/Seednode/gamenight/votes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// lastRand leaves every shuffle as it is and always picks the last candidate.
type lastRand struct{}

func (lastRand) IntN(n int) int { return n - 1 }

type fixedDice int

func (d fixedDice) Roll() int { return int(d) }

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Verdict(answerer string, samples []float64) Verdict {
	return m.Called(answerer, samples).Get(0).(Verdict)
}

type mockWords struct {
	mock.Mock
}

func (m *mockWords) Categories() []string {
	return m.Called().Get(0).([]string)
}

func (m *mockWords) Words(category string) ([]string, error) {
	args := m.Called(category)

	return args.Get(0).([]string), args.Error(1)
}

type manualTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stopped
}

type tickers struct {
	mu   sync.Mutex
	made []*manualTicker
}

func (ts *tickers) New(time.Duration) session.Ticker {
	t := &manualTicker{ch: make(chan time.Time)}

	ts.mu.Lock()
	ts.made = append(ts.made, t)
	ts.mu.Unlock()

	return t
}

func (ts *tickers) last(tb testing.TB) *manualTicker {
	tb.Helper()

	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(tb, ts.made)

	return ts.made[len(ts.made)-1]
}

// fire delivers n ticks to the newest ticker, waiting for each to be taken.
func (ts *tickers) fire(tb testing.TB, n int) {
	tb.Helper()

	for range n {
		select {
		case ts.last(tb).ch <- time.Now():
		case <-time.After(time.Second):
			tb.Fatal("tick was not consumed")
		}
	}
}

type table struct {
	t     *testing.T
	ctx   context.Context
	m     *session.Manager
	ticks *tickers
	room  string
	feed  *events.Feed
}

func newTable(t *testing.T, d Deps, game session.Game, players int) *table {
	t.Helper()

	if d.Rand == nil {
		d.Rand = lastRand{}
	}

	ts := &tickers{}
	m, err := session.NewManager(session.Options{
		NewTicker:    ts.New,
		TickInterval: time.Millisecond,
	}, All(d)...)
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)

	tb := &table{t: t, ctx: context.Background(), m: m, ticks: ts, room: "1234"}

	_, created, err := m.Create(tb.ctx, tb.room, game)
	require.NoError(t, err)
	require.True(t, created)

	tb.feed = m.Broker().Subscribe(tb.room, events.RoleHost, "")
	t.Cleanup(tb.feed.Close)

	for i := range players {
		tb.join(fmt.Sprintf("p%d", i+1))
	}

	return tb
}

func (tb *table) join(id string) {
	tb.t.Helper()

	_, err := tb.m.AddPlayer(tb.ctx, tb.room, id, "nick-"+id)
	require.NoError(tb.t, err)
}

func (tb *table) start() session.Result {
	tb.t.Helper()

	res, err := tb.m.Start(tb.ctx, tb.room, "")
	require.NoError(tb.t, err)

	return res
}

func (tb *table) try(name string, act session.Action) (session.Result, error) {
	act.Kind = session.KindGame
	act.Name = name

	return tb.m.Apply(tb.ctx, tb.room, act)
}

func (tb *table) do(name string, act session.Action) session.Result {
	tb.t.Helper()

	res, err := tb.try(name, act)
	require.NoError(tb.t, err, name)

	return res
}

func (tb *table) move(to session.Phase) session.Result {
	tb.t.Helper()

	res, err := tb.m.ChangePhase(tb.ctx, tb.room, to, "")
	require.NoError(tb.t, err)

	return res
}

func (tb *table) snapshot() session.Snapshot {
	tb.t.Helper()

	snap, err := tb.m.Snapshot(tb.ctx, tb.room)
	require.NoError(tb.t, err)

	return snap
}

func (tb *table) view() map[string]any {
	tb.t.Helper()

	v, ok := tb.snapshot().View.(map[string]any)
	require.True(tb.t, ok)

	return v
}

func (tb *table) private(clientID string) map[string]any {
	tb.t.Helper()

	out, err := tb.m.Private(tb.ctx, tb.room, clientID)
	require.NoError(tb.t, err)

	v, ok := out.(map[string]any)
	require.True(tb.t, ok)

	return v
}

// latest drains the feed and returns the newest event called name.
func (tb *table) latest(name string) events.Event {
	tb.t.Helper()

	var (
		found events.Event
		ok    bool
	)
	for {
		select {
		case ev := <-tb.feed.C():
			if ev.Name == name {
				found, ok = ev, true
			}
		default:
			require.True(tb.t, ok, "no %s event", name)

			return found
		}
	}
}

func TestModulesAreValid(t *testing.T) {
	mods := All(Deps{})
	require.Len(t, mods, 5)
	assert.Equal(t, GameMarble, mods[0].Game)

	seen := map[session.Game]bool{}
	for _, m := range mods {
		require.NoError(t, m.Validate(), m.Game)
		assert.False(t, seen[m.Game])
		seen[m.Game] = true
	}
}

func TestMarbleSubmissionCap(t *testing.T) {
	tb := newTable(t, Deps{}, GameMarble, 4)
	tb.move(MarbleSubmit)

	for _, id := range []string{"p1", "p2", "p3"} {
		for i := range MarbleCap {
			tb.do("submit", session.Action{ClientID: id, Text: fmt.Sprintf("%s penalty %d", id, i)})
		}
	}

	ev := tb.latest(events.ItemSubmitted)
	assert.Equal(t, map[string]int{"totalCount": 6, "expectedCount": 8}, ev.Payload)

	_, err := tb.try("submit", session.Action{ClientID: "p1", Text: "one too many"})
	assert.ErrorIs(t, err, session.ErrLimitExceeded)

	_, err = tb.try("submit", session.Action{ClientID: "p4", Text: "   "})
	assert.ErrorIs(t, err, session.ErrBadRequest)

	assert.Equal(t, 6, tb.view()["totalCount"])
	assert.Equal(t, MarbleSubmit, tb.snapshot().Phase)
}

func TestMarbleFullRound(t *testing.T) {
	tb := newTable(t, Deps{Dice: fixedDice(3)}, GameMarble, 2)
	tb.move(MarbleSubmit)

	var ids []string
	for _, id := range []string{"p1", "p2"} {
		for i := range MarbleCap {
			res := tb.do("submit", session.Action{ClientID: id, Text: fmt.Sprintf("%s-%d", id, i)})
			ids = append(ids, res.Reply.(votes.Item).ID)
		}
	}
	assert.Equal(t, MarbleVote, tb.snapshot().Phase)

	res := tb.do("toggle-vote", session.Action{ClientID: "p1", ItemID: ids[3]})
	assert.Equal(t, map[string]any{"itemId": ids[3], "votes": 1, "voted": true}, res.Reply)

	_, err := tb.try("toggle-vote", session.Action{ClientID: "p1", ItemID: "missing"})
	assert.ErrorIs(t, err, votes.ErrItemNotFound)

	tb.do("vote-done", session.Action{ClientID: "p1"})
	res = tb.do("vote-done", session.Action{ClientID: "p2"})
	assert.Equal(t, MarbleModeSelect, res.Phase)

	selected := tb.view()["selected"].([]votes.Item)
	require.Len(t, selected, 4)
	assert.Equal(t, ids[3], selected[0].ID)

	_, err = tb.try("select-mode", session.Action{Mode: "chaos"})
	assert.ErrorIs(t, err, session.ErrBadRequest)

	res = tb.do("select-mode", session.Action{Mode: ModeSolo})
	assert.Equal(t, MarbleTeam, res.Phase)

	tb.move(MarbleGame)
	assert.Equal(t, "p1", tb.view()["current"])

	_, err = tb.try("roll", session.Action{ClientID: "p2"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	res = tb.do("roll", session.Action{ClientID: "p1"})
	roll := res.Reply.(*marbleRoll)
	assert.Equal(t, 3, roll.Value)
	assert.Equal(t, 3, roll.Landing.Position)
	assert.Equal(t, turns.KindItem, roll.Landing.Kind)
	assert.Equal(t, selected[3%len(selected)].Text, roll.Landing.Text)

	v := tb.view()
	assert.Equal(t, "p2", v["current"])
	assert.Equal(t, map[string]int{"p1": 3, "p2": 0}, v["positions"])
}

func TestMarbleTeamModeNeedsTeams(t *testing.T) {
	tb := newTable(t, Deps{}, GameMarble, 4)
	tb.move(MarbleSubmit)
	tb.move(MarbleVote)
	tb.move(MarbleModeSelect)
	tb.do("select-mode", session.Action{Mode: ModeTeam})

	_, err := tb.m.ChangePhase(tb.ctx, tb.room, MarbleGame, "")
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	res := tb.do("divide-teams", session.Action{Count: 2})
	assert.Equal(t, map[string][]string{"A": {"p1", "p3"}, "B": {"p2", "p4"}}, res.Reply)

	tb.move(MarbleGame)
	v := tb.view()
	assert.Equal(t, "A", v["current"])
	assert.Equal(t, []string{"A", "B"}, v["order"])

	_, err = tb.try("roll", session.Action{ClientID: "p2"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)
	tb.do("roll", session.Action{ClientID: "p3"})
}

func TestMarbleSnapshotAfterReconnect(t *testing.T) {
	tb := newTable(t, Deps{}, GameMarble, 2)
	tb.move(MarbleSubmit)
	tb.do("submit", session.Action{ClientID: "p1", Text: "sing"})
	tb.do("submit", session.Action{ClientID: "p1", Text: "dance"})

	require.NoError(t, tb.m.SetConnected(tb.ctx, tb.room, "p1", false))
	assert.False(t, tb.snapshot().Players[0].Connected)

	tb.join("p1")
	require.NoError(t, tb.m.SetConnected(tb.ctx, tb.room, "p1", true))

	snap := tb.snapshot()
	assert.Equal(t, MarbleSubmit, snap.Phase)
	require.Len(t, snap.Players, 2)
	assert.Equal(t, "p1", snap.Players[0].ClientID)
	assert.Equal(t, 2, snap.Players[0].Submitted)
	assert.True(t, snap.Players[0].Connected)
	assert.Equal(t, 2, tb.view()["totalCount"])

	assert.Len(t, tb.private("p1")["submitted"], 2)
}

func TestMafiaRoles(t *testing.T) {
	roles := assignRoles([]string{"a", "b", "c"}, lastRand{})
	assert.Equal(t, map[string]Role{"a": RoleMafia, "b": RoleCivilian, "c": RoleCivilian}, roles)

	roles = assignRoles([]string{"a", "b", "c", "d", "e", "f", "g", "h"}, lastRand{})
	assert.Equal(t, RoleMafia, roles["a"])
	assert.Equal(t, RoleMafia, roles["b"])
	assert.Equal(t, RoleDoctor, roles["c"])
	assert.Equal(t, RolePolice, roles["d"])
	assert.Equal(t, RoleCivilian, roles["h"])
}

func TestMafiaCitizensWin(t *testing.T) {
	tb := newTable(t, Deps{}, GameMafia, 4)
	res := tb.start()
	assert.Equal(t, MafiaNight, res.Phase)

	assert.Equal(t, RoleMafia, tb.private("p1")["role"])
	assert.Equal(t, RoleDoctor, tb.private("p2")["role"])

	_, err := tb.try("kill", session.Action{ClientID: "p3", TargetID: "p4"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	tb.do("kill", session.Action{ClientID: "p1", TargetID: "p3"})
	res = tb.do("role-action", session.Action{ClientID: "p2", Mode: "save", TargetID: "p4"})
	assert.Equal(t, MafiaDayAnnouncement, res.Phase)

	ev := tb.latest(events.RoundResult)
	assert.Equal(t, "p3", ev.Payload.(map[string]any)["killed"])
	assert.False(t, tb.snapshot().Players[2].Alive)

	tb.move(MafiaVote)
	_, err = tb.try("vote", session.Action{ClientID: "p3", TargetID: "p1"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	tb.do("vote", session.Action{ClientID: "p1", TargetID: "p2"})
	tb.do("vote", session.Action{ClientID: "p2", TargetID: "p1"})
	res = tb.do("vote", session.Action{ClientID: "p4", TargetID: "p1"})
	assert.Equal(t, MafiaVoteResult, res.Phase)
	assert.Equal(t, "p1", tb.view()["accused"])

	tb.move(MafiaFinalDefense)
	tb.move(MafiaFinalVote)

	_, err = tb.try("final-vote", session.Action{ClientID: "p1", Flag: false})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	tb.do("final-vote", session.Action{ClientID: "p2", Flag: true})
	res = tb.do("final-vote", session.Action{ClientID: "p4", Flag: true})
	assert.Equal(t, MafiaEnd, res.Phase)

	v := tb.view()
	assert.Equal(t, WinnerCitizen, v["winner"])
	assert.Equal(t, "p1", v["executed"])
	assert.NotNil(t, v["roles"])
}

func TestMafiaDoctorSaves(t *testing.T) {
	tb := newTable(t, Deps{}, GameMafia, 4)
	tb.start()

	tb.do("kill", session.Action{ClientID: "p1", TargetID: "p4"})
	tb.do("save", session.Action{ClientID: "p2", TargetID: "p4"})

	v := tb.view()
	assert.Equal(t, true, v["saved"])
	assert.Equal(t, "", v["killed"])
	assert.Nil(t, v["roles"])
}

func TestMafiaLateJoinerSitsOut(t *testing.T) {
	tb := newTable(t, Deps{}, GameMafia, 4)
	tb.start()
	tb.join("p5")

	_, err := tb.try("kill", session.Action{ClientID: "p1", TargetID: "p5"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	tb.do("kill", session.Action{ClientID: "p1", TargetID: "p3"})
	res := tb.do("save", session.Action{ClientID: "p2", TargetID: "p3"})
	assert.Equal(t, MafiaDayAnnouncement, res.Phase)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, tb.view()["alive"])

	tb.move(MafiaVote)

	_, err = tb.try("vote", session.Action{ClientID: "p5", TargetID: "p1"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)
	_, err = tb.try("vote", session.Action{ClientID: "p1", TargetID: "p5"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	tb.do("vote", session.Action{ClientID: "p1", TargetID: "p4"})
	tb.do("vote", session.Action{ClientID: "p2", TargetID: "p4"})
	tb.do("vote", session.Action{ClientID: "p3", TargetID: "p4"})
	res = tb.do("vote", session.Action{ClientID: "p4", TargetID: "p1"})
	assert.Equal(t, MafiaVoteResult, res.Phase)
	assert.Equal(t, "p4", tb.view()["accused"])
}

func TestMafiaManualMoveCancelsNightTimer(t *testing.T) {
	tb := newTable(t, Deps{}, GameMafia, 4)
	tb.start()

	night := tb.ticks.last(t)
	tb.ticks.fire(t, 1)
	assert.Equal(t, 29, tb.snapshot().Remaining)

	tb.move(MafiaDayAnnouncement)
	assert.True(t, night.isStopped())

	snap := tb.snapshot()
	assert.Equal(t, MafiaDayAnnouncement, snap.Phase)
	assert.Equal(t, 0, snap.Remaining)

	_, err := tb.m.ChangePhase(tb.ctx, tb.room, MafiaNight, MafiaDayAnnouncement)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestMafiaNightExpires(t *testing.T) {
	tb := newTable(t, Deps{}, GameMafia, 4)
	tb.start()

	tb.ticks.fire(t, 30)
	assert.Equal(t, MafiaDayAnnouncement, tb.snapshot().Phase)
}

func TestTruthRound(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Verdict", "p1", []float64{60, 70}).Return(Verdict{Stress: 65, Lie: true, Samples: 2})

	tb := newTable(t, Deps{Scorer: scorer}, GameTruth, 3)
	tb.start()

	res := tb.do("select-answerer", session.Action{TargetID: "p1"})
	assert.Equal(t, TruthSubmitQuestions, res.Phase)

	_, err := tb.try("submit", session.Action{ClientID: "p1", Text: "about me?"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)
	_, err = tb.try("submit", session.Action{ClientID: "p9", Text: "who?"})
	assert.ErrorIs(t, err, session.ErrPlayerNotFound)

	var first string
	for i := range TruthCap {
		res = tb.do("submit", session.Action{ClientID: "p2", Text: fmt.Sprintf("question %d", i)})
		if i == 0 {
			first = res.Reply.(question).ID
		}
	}
	_, err = tb.try("submit", session.Action{ClientID: "p2", Text: "extra"})
	assert.ErrorIs(t, err, session.ErrLimitExceeded)

	res = tb.do("finish-questions", session.Action{ClientID: "p3"})
	assert.Equal(t, TruthSelectQuestion, res.Phase)

	_, err = tb.try("select-question", session.Action{ClientID: "p2", ItemID: first})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	res = tb.do("select-question", session.Action{ClientID: "p1", ItemID: first, Flag: true})
	assert.Equal(t, TruthAnswering, res.Phase)

	_, err = tb.try("score", session.Action{ClientID: "p2", Score: 10})
	assert.ErrorIs(t, err, session.ErrNotPermitted)
	_, err = tb.try("score", session.Action{ClientID: "p1", Score: 150})
	assert.ErrorIs(t, err, session.ErrBadRequest)

	tb.do("score", session.Action{ClientID: "p1", Score: 60})
	tb.do("score", session.Action{ClientID: "p1", Score: 70})

	res = tb.do("finish-answering", session.Action{})
	assert.Equal(t, TruthResult, res.Phase)

	scorer.AssertExpectations(t)
	assert.Equal(t, &Verdict{Stress: 65, Lie: true, Samples: 2}, tb.view()["verdict"])

	tb.move(TruthSelectAnswerer)
	v := tb.view()
	assert.Equal(t, 2, v["round"])
	assert.Equal(t, "", v["answerer"])
}

func TestTruthNeedsAnswerer(t *testing.T) {
	tb := newTable(t, Deps{}, GameTruth, 2)
	tb.start()

	_, err := tb.m.ChangePhase(tb.ctx, tb.room, TruthSubmitQuestions, "")
	assert.ErrorIs(t, err, session.ErrNotPermitted)
}

func TestQuizRounds(t *testing.T) {
	words := Wordlist{"animals": {"cat", "dog"}}
	tb := newTable(t, Deps{Words: words}, GameQuiz, 4)
	tb.start()

	_, err := tb.m.ChangePhase(tb.ctx, tb.room, QuizWaiting, "")
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	tb.do("divide-teams", session.Action{Count: 2})
	tb.move(QuizWaiting)
	assert.Equal(t, "A", tb.view()["currentTeam"])

	_, err = tb.try("start-round", session.Action{ClientID: "p2", Text: "animals"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)
	_, err = tb.try("start-round", session.Action{ClientID: "p1", Text: "bogus"})
	assert.ErrorIs(t, err, session.ErrBadRequest)

	res := tb.do("start-round", session.Action{ClientID: "p1", Text: "animals"})
	assert.Equal(t, QuizPlaying, res.Phase)
	assert.Equal(t, "cat", tb.view()["word"])

	tb.do("pass", session.Action{ClientID: "p3"})
	assert.Equal(t, "dog", tb.view()["word"])

	res = tb.do("correct", session.Action{})
	assert.Equal(t, QuizRoundEnd, res.Phase)

	v := tb.view()
	assert.Equal(t, map[string]int{"A": 1, "B": 0}, v["allScores"])
	assert.Equal(t, "B", v["currentTeam"])

	res = tb.do("next-team", session.Action{})
	assert.Equal(t, QuizWaiting, res.Phase)

	tb.move(QuizFinished)
	ev := tb.latest(events.RoundResult)
	assert.Equal(t, []standing{{Team: "A", Score: 1}, {Team: "B", Score: 0}}, ev.Payload.(map[string]any)["standings"])
}

func TestQuizTeamLeavesMidRound(t *testing.T) {
	words := Wordlist{"animals": {"cat", "dog", "emu"}}
	tb := newTable(t, Deps{Words: words}, GameQuiz, 4)
	tb.start()

	tb.do("divide-teams", session.Action{Count: 2})
	tb.move(QuizWaiting)
	tb.do("start-round", session.Action{ClientID: "p1", Text: "animals"})
	tb.do("correct", session.Action{ClientID: "p1"})
	tb.do("correct", session.Action{ClientID: "p3"})

	require.NoError(t, tb.m.RemovePlayer(tb.ctx, tb.room, "p1"))
	require.NoError(t, tb.m.RemovePlayer(tb.ctx, tb.room, "p3"))
	assert.Equal(t, "A", tb.view()["currentTeam"])

	_, err := tb.try("correct", session.Action{ClientID: "p2"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	res := tb.do("end-round", session.Action{})
	assert.Equal(t, QuizRoundEnd, res.Phase)

	ev := tb.latest(events.ScoreUpdate)
	assert.Equal(t, "A", ev.Payload.(map[string]any)["team"])

	v := tb.view()
	assert.Equal(t, map[string]int{"A": 2, "B": 0}, v["allScores"])
	assert.Equal(t, "B", v["currentTeam"])

	tb.do("next-team", session.Action{})
	assert.Equal(t, "B", tb.view()["currentTeam"])
	assert.Equal(t, true, tb.private("p2")["onTurn"])
}

func TestLiarGame(t *testing.T) {
	keywords := &mockWords{}
	keywords.On("Words", "food").Return([]string{"pizza", "sushi"}, nil)

	tb := newTable(t, Deps{Keywords: keywords}, GameLiar, 2)

	_, err := tb.try("init", session.Action{Text: "food"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	tb.join("p3")
	res := tb.do("init", session.Action{Text: "food"})
	assert.Equal(t, LiarRoleReveal, res.Phase)
	keywords.AssertExpectations(t)

	assert.Equal(t, map[string]any{"liar": true, "category": "food"}, tb.private("p3"))
	assert.Equal(t, map[string]any{"liar": false, "category": "food", "keyword": "sushi"}, tb.private("p1"))

	tb.move(LiarExplanation)
	v := tb.view()
	assert.Equal(t, "p1", v["current"])
	assert.Equal(t, 1, v["round"])

	_, err = tb.try("next-explainer", session.Action{ClientID: "p2"})
	assert.ErrorIs(t, err, session.ErrNotPermitted)

	tb.do("next-explainer", session.Action{ClientID: "p1"})
	assert.Equal(t, "p2", tb.view()["current"])

	// the explainer's time runs out
	tb.ticks.fire(t, 30)
	assert.Equal(t, "p3", tb.view()["current"])

	res = tb.do("next-explainer", session.Action{})
	assert.Equal(t, LiarVoteMoreRound, res.Phase)

	tb.do("vote-more", session.Action{ClientID: "p1", Flag: true})
	tb.do("vote-more", session.Action{ClientID: "p2", Flag: true})
	res = tb.do("vote-more", session.Action{ClientID: "p3"})
	assert.Equal(t, LiarExplanation, res.Phase)

	v = tb.view()
	assert.Equal(t, "p1", v["current"])
	assert.Equal(t, 2, v["round"])

	for range 3 {
		tb.do("next-explainer", session.Action{})
	}
	assert.Equal(t, LiarVoteMoreRound, tb.snapshot().Phase)

	for _, id := range []string{"p1", "p2", "p3"} {
		tb.do("vote-more", session.Action{ClientID: id})
	}
	assert.Equal(t, LiarPointing, tb.snapshot().Phase)

	_, err = tb.try("point", session.Action{ClientID: "p1", TargetID: "ghost"})
	assert.ErrorIs(t, err, session.ErrPlayerNotFound)

	tb.do("point", session.Action{ClientID: "p1", TargetID: "p3"})
	tb.do("point", session.Action{ClientID: "p2", TargetID: "p3"})
	res = tb.do("point", session.Action{ClientID: "p3", TargetID: "p1"})
	assert.Equal(t, LiarGameEnd, res.Phase)

	v = tb.view()
	assert.Equal(t, "p3", v["liar"])
	assert.Equal(t, "sushi", v["keyword"])
	assert.Equal(t, true, v["caught"])
}
