/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/Seednode/gamenight/turns"
)

const (
	QuizTeamSetup session.Phase = "TEAM_SETUP"
	QuizWaiting   session.Phase = "WAITING"
	QuizPlaying   session.Phase = "PLAYING"
	QuizRoundEnd  session.Phase = "ROUND_END"
	QuizFinished  session.Phase = "FINISHED"
)

type standing struct {
	Team  string `json:"team"`
	Score int    `json:"score"`
}

type quizState struct {
	teams  *turns.Teams
	order  *turns.Order
	scores map[string]int

	// playing is the team acting out the current round. It outlives the
	// team's departure from order so the round is still credited to it.
	playing string

	round    int
	category string
	deck     []string
	next     int
	word     string
	points   int
	passes   int
}

func quizOf(r *session.Room) *quizState {
	return stateOf[quizState](r)
}

// draw moves to the next word of the deck. It reports false once the deck
// runs out.
func (st *quizState) draw() bool {
	if st.next >= len(st.deck) {
		st.word = ""

		return false
	}
	st.word = st.deck[st.next]
	st.next++

	return true
}

func (st *quizState) standings() []standing {
	out := make([]standing, 0, len(st.scores))
	for team, score := range st.scores {
		out = append(out, standing{Team: team, Score: score})
	}
	slices.SortFunc(out, func(a, b standing) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return strings.Compare(a.Team, b.Team)
	})

	return out
}

// turn is the team whose go it is: the playing team mid-round, otherwise the
// head of the order.
func (st *quizState) turn() string {
	if st.playing != "" {
		return st.playing
	}

	return st.order.Current()
}

func (st *quizState) onTurn(clientID string) bool {
	team, ok := st.order.TokenOf(clientID)

	return ok && team == st.turn()
}

func (st *quizState) wordPayload() map[string]any {
	return map[string]any{
		"team":      st.playing,
		"word":      st.word,
		"remaining": len(st.deck) - st.next,
		"score":     st.points,
	}
}

// Quiz is team charades: one team at a time acts out words from a category
// against the clock while the host counts correct guesses.
func Quiz(d Deps) *session.Module {
	d = d.withDefaults()

	onTurn := func(s *session.Scope) error {
		st := quizOf(s.Room)
		if s.Action.ClientID == "" || st.onTurn(s.Action.ClientID) {
			return nil
		}

		return notPermitted("it is team %s's turn", st.turn())
	}

	phases := map[session.Phase]session.PhaseSpec{
		QuizTeamSetup: {Next: []session.Phase{QuizWaiting}},
		QuizWaiting: {
			Next: []session.Phase{QuizPlaying, QuizFinished},
			Guard: func(s *session.Scope) error {
				st := quizOf(s.Room)
				if st.order == nil && !st.teams.Complete(s.Room.IDs()) {
					return notPermitted("every player needs a team and at least two teams must exist")
				}

				return nil
			},
			Enter: func(s *session.Scope) {
				st := quizOf(s.Room)
				if st.order == nil {
					st.order = turns.NewTeams(st.teams.Groups(s.Room.IDs()), d.Rand)
					for _, team := range st.order.Tokens() {
						st.scores[team] = 0
					}
				}

				s.Emit(events.TurnChanged, map[string]any{
					"current": st.order.Current(),
					"members": st.order.Members(st.order.Current()),
					"round":   st.round + 1,
				})
			},
		},
		QuizPlaying: {
			Next:  []session.Phase{QuizRoundEnd},
			Timer: 60 * time.Second,
			Enter: func(s *session.Scope) {
				st := quizOf(s.Room)
				st.round++
				st.points, st.passes = 0, 0
				st.playing = st.order.Current()

				// start-round has already vetted the category
				words, _ := d.Words.Words(st.category)
				turns.Shuffle(d.Rand, len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
				st.deck, st.next = words, 0

				if !st.draw() {
					s.Advance(QuizRoundEnd)

					return
				}
				s.Emit(events.WordChanged, st.wordPayload())
			},
		},
		QuizRoundEnd: {
			Next: []session.Phase{QuizWaiting, QuizFinished},
			Enter: func(s *session.Scope) {
				st := quizOf(s.Room)
				team := st.playing
				st.scores[team] += st.points
				st.word = ""
				st.playing = ""

				s.Emit(events.ScoreUpdate, map[string]any{
					"team":      team,
					"score":     st.points,
					"allScores": maps.Clone(st.scores),
				})
				s.Emit(events.RoundResult, map[string]any{
					"round":    st.round,
					"team":     team,
					"category": st.category,
					"correct":  st.points,
					"passes":   st.passes,
				})

				// A team that left mid-round is already gone from order and
				// the cursor sits on its successor.
				if st.order.Current() == team {
					st.order.Advance()
				}
			},
		},
		QuizFinished: {
			Enter: func(s *session.Scope) {
				s.Emit(events.RoundResult, map[string]any{
					"standings": quizOf(s.Room).standings(),
				})
			},
		},
	}

	actions := map[string]session.ActionSpec{
		"start-round": {
			Phases: []session.Phase{QuizWaiting},
			Handle: func(s *session.Scope) error {
				st := quizOf(s.Room)
				if err := onTurn(s); err != nil {
					return err
				}

				category := cmp.Or(s.Action.Text, s.Action.Mode)
				if category == "" || category == "random" {
					cats := d.Words.Categories()
					if len(cats) == 0 {
						return badRequest("no categories available")
					}
					category = pick(d.Rand, cats)
				}
				if _, err := d.Words.Words(category); err != nil {
					return err
				}

				st.category = category
				s.Reply(map[string]string{"category": category})
				s.Advance(QuizPlaying)

				return nil
			},
		},
		"correct": {
			Phases: []session.Phase{QuizPlaying},
			Handle: func(s *session.Scope) error {
				st := quizOf(s.Room)
				if err := onTurn(s); err != nil {
					return err
				}

				st.points++
				s.Emit(events.ScoreUpdate, map[string]any{
					"team":  st.playing,
					"score": st.points,
				})

				if !st.draw() {
					s.Advance(QuizRoundEnd)

					return nil
				}
				s.Emit(events.WordChanged, st.wordPayload())

				return nil
			},
		},
		"pass": {
			Phases: []session.Phase{QuizPlaying},
			Handle: func(s *session.Scope) error {
				st := quizOf(s.Room)
				if err := onTurn(s); err != nil {
					return err
				}

				st.passes++
				if !st.draw() {
					s.Advance(QuizRoundEnd)

					return nil
				}
				s.Emit(events.WordChanged, st.wordPayload())

				return nil
			},
		},
		"end-round": {
			Phases: []session.Phase{QuizPlaying},
			Handle: func(s *session.Scope) error {
				s.Advance(QuizRoundEnd)

				return nil
			},
		},
		"next-team": {
			Phases: []session.Phase{QuizRoundEnd},
			Handle: func(s *session.Scope) error {
				s.Advance(QuizWaiting)

				return nil
			},
		},
	}

	return &session.Module{
		Game:    GameQuiz,
		Initial: QuizTeamSetup,
		Phases:  phases,
		Actions: merge(actions, teamActions(QuizTeamSetup, d.Rand, func(r *session.Room) *turns.Teams {
			return quizOf(r).teams
		})),
		CanStart: minPlayers(2),
		NewState: func(*session.Room) any {
			return &quizState{
				teams:  turns.NewAssignment(),
				scores: make(map[string]int),
			}
		},
		Leave: func(s *session.Scope, clientID string) {
			st := quizOf(s.Room)
			st.teams.Remove(clientID)
			if st.order != nil {
				st.order.Remove(clientID)
			}
		},
		View: func(r *session.Room) any {
			st := quizOf(r)

			v := map[string]any{
				"teams":     teamPayload(r),
				"round":     st.round,
				"category":  st.category,
				"word":      st.word,
				"score":     st.points,
				"allScores": maps.Clone(st.scores),
				"standings": st.standings(),
			}
			if st.order != nil {
				v["order"] = st.order.Tokens()
				v["currentTeam"] = st.turn()
			}

			return v
		},
		Private: func(r *session.Room, clientID string) any {
			st := quizOf(r)

			out := map[string]any{"team": st.teams.Of(clientID)}
			if st.order != nil {
				out["onTurn"] = st.onTurn(clientID)
			}

			return out
		},
	}
}
