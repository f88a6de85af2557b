/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"errors"
	"fmt"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/Seednode/gamenight/votes"
)

const (
	TruthSelectAnswerer  session.Phase = "SELECT_ANSWERER"
	TruthSubmitQuestions session.Phase = "SUBMIT_QUESTIONS"
	TruthSelectQuestion  session.Phase = "SELECT_QUESTION"
	TruthAnswering       session.Phase = "ANSWERING"
	TruthResult          session.Phase = "RESULT"
	TruthEnd             session.Phase = "END"
)

// TruthCap is how many questions each asker may write per round.
const TruthCap = 3

const (
	minScore = 0
	maxScore = 100
)

type question struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type truthState struct {
	round    int
	answerer string
	board    *votes.Board
	selected *question
	samples  []float64
	verdict  *Verdict
}

func truthOf(r *session.Room) *truthState {
	return stateOf[truthState](r)
}

func (st *truthState) questions() []question {
	items := st.board.Items()
	out := make([]question, len(items))
	for i, it := range items {
		out[i] = question{ID: it.ID, Text: it.Text, Votes: it.Votes}
	}

	return out
}

func (st *truthState) askers(r *session.Room) []string {
	return without(r.IDs(), st.answerer)
}

// questionsDone reports whether every asker has either filled their quota or
// said they are finished.
func (st *truthState) questionsDone(r *session.Room) bool {
	askers := st.askers(r)
	if len(askers) == 0 {
		return false
	}

	for _, id := range askers {
		if st.board.Submitted(id) < TruthCap && !st.board.IsDone(id) {
			return false
		}
	}

	return true
}

func truthProgress(s *session.Scope, st *truthState) {
	askers := len(st.askers(s.Room))
	s.Emit(events.ItemSubmitted, map[string]int{
		"totalCount":    st.board.Len(),
		"expectedCount": askers * TruthCap,
		"doneCount":     st.board.DoneCount(),
		"totalAskers":   askers,
	})
}

// Truth is the lie detector game: the room writes questions for one answerer,
// whose stress readings decide whether they told the truth.
func Truth(d Deps) *session.Module {
	d = d.withDefaults()

	requireAnswerer := func(s *session.Scope) error {
		st := truthOf(s.Room)
		if st.answerer == "" {
			return notPermitted("no answerer selected")
		}
		if !isActor(s, st.answerer) {
			return notPermitted("only %s or the host may do that", st.answerer)
		}

		return nil
	}

	phases := map[session.Phase]session.PhaseSpec{
		TruthSelectAnswerer: {
			Next: []session.Phase{TruthSubmitQuestions},
			Enter: func(s *session.Scope) {
				st := truthOf(s.Room)
				st.round++
				st.answerer = ""
				st.board.Reset()
				st.selected = nil
				st.samples = nil
				st.verdict = nil
				for _, p := range s.Room.Roster() {
					p.Submitted = 0
					p.VoteDone = false
				}
			},
		},
		TruthSubmitQuestions: {
			Next: []session.Phase{TruthSelectQuestion},
			Guard: func(s *session.Scope) error {
				if truthOf(s.Room).answerer == "" {
					return notPermitted("no answerer selected")
				}

				return nil
			},
		},
		TruthSelectQuestion: {Next: []session.Phase{TruthAnswering}},
		TruthAnswering: {
			Next:  []session.Phase{TruthResult},
			Timer: 60 * time.Second,
			Guard: func(s *session.Scope) error {
				if truthOf(s.Room).selected == nil {
					return notPermitted("no question selected")
				}

				return nil
			},
			Enter: func(s *session.Scope) {
				truthOf(s.Room).samples = nil
			},
		},
		TruthResult: {
			Next: []session.Phase{TruthSelectAnswerer, TruthEnd},
			Enter: func(s *session.Scope) {
				st := truthOf(s.Room)
				v := d.Scorer.Verdict(st.answerer, st.samples)
				st.verdict = &v

				s.Emit(events.RoundResult, map[string]any{
					"round":    st.round,
					"answerer": st.answerer,
					"question": st.selected,
					"verdict":  v,
				})
			},
		},
		TruthEnd: {},
	}

	actions := map[string]session.ActionSpec{
		"select-answerer": {
			Phases: []session.Phase{TruthSelectAnswerer},
			Handle: func(s *session.Scope) error {
				st := truthOf(s.Room)

				target := s.Action.TargetID
				if s.Action.Mode == "random" || target == "" {
					if s.Room.Count() == 0 {
						return notPermitted("nobody is in room %s", s.Room.ID)
					}
					target = pick(d.Rand, s.Room.IDs())
				}
				if !s.Room.Has(target) {
					return fmt.Errorf("%w: %s", session.ErrPlayerNotFound, target)
				}

				st.answerer = target
				s.Emit(events.AnswererSelected, map[string]string{
					"answererId": target,
					"nickname":   s.Room.Nickname(target),
				})
				s.Reply(map[string]string{"answererId": target})
				s.Advance(TruthSubmitQuestions)

				return nil
			},
		},
		"submit": {
			Phases: []session.Phase{TruthSubmitQuestions},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := truthOf(s.Room)
				if s.Action.ClientID == st.answerer {
					return notPermitted("the answerer does not write questions")
				}

				p, err := s.Room.Player(s.Action.ClientID)
				if err != nil {
					return err
				}

				it, err := st.board.Submit(p.ClientID, p.Nickname, s.Action.Text, TruthCap)
				if err != nil {
					if errors.Is(err, votes.ErrEmptyItem) {
						return badRequest("empty question")
					}

					return err
				}
				p.Submitted = st.board.Submitted(p.ClientID)
				s.Reply(question{ID: it.ID, Text: it.Text})

				truthProgress(s, st)
				if st.questionsDone(s.Room) {
					s.Advance(TruthSelectQuestion)
				}

				return nil
			},
		},
		"finish-questions": {
			Phases: []session.Phase{TruthSubmitQuestions},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := truthOf(s.Room)
				if s.Action.ClientID == st.answerer {
					return notPermitted("the answerer does not write questions")
				}

				st.board.MarkDone(s.Action.ClientID)
				s.Room.Players[s.Action.ClientID].VoteDone = true

				truthProgress(s, st)
				if st.questionsDone(s.Room) {
					s.Advance(TruthSelectQuestion)
				}

				return nil
			},
		},
		"select-question": {
			Phases: []session.Phase{TruthSelectQuestion},
			Handle: func(s *session.Scope) error {
				st := truthOf(s.Room)
				if err := requireAnswerer(s); err != nil {
					return err
				}

				qs := st.questions()
				if len(qs) == 0 {
					return badRequest("no questions were written")
				}

				var chosen *question
				if s.Action.Mode == "random" || s.Action.ItemID == "" {
					q := pick(d.Rand, qs)
					chosen = &q
				} else {
					for _, q := range qs {
						if q.ID == s.Action.ItemID {
							chosen = &q
							break
						}
					}
				}
				if chosen == nil {
					return fmt.Errorf("%w: %s", votes.ErrItemNotFound, s.Action.ItemID)
				}

				st.selected = chosen
				s.Emit(events.QuestionSelected, chosen)
				s.Reply(chosen)

				if s.Action.Flag {
					s.Advance(TruthAnswering)
				}

				return nil
			},
		},
		"score": {
			Phases: []session.Phase{TruthAnswering},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := truthOf(s.Room)
				if s.Action.ClientID != st.answerer {
					return notPermitted("only the answerer reports stress levels")
				}
				if s.Action.Score < minScore || s.Action.Score > maxScore {
					return badRequest("score %v is outside %d..%d", s.Action.Score, minScore, maxScore)
				}

				st.samples = append(st.samples, s.Action.Score)
				s.Emit(events.ScoreUpdate, map[string]any{
					"score":   s.Action.Score,
					"samples": len(st.samples),
				})

				return nil
			},
		},
		"finish-answering": {
			Phases: []session.Phase{TruthAnswering},
			Handle: func(s *session.Scope) error {
				if err := requireAnswerer(s); err != nil {
					return err
				}
				s.Advance(TruthResult)

				return nil
			},
		},
	}

	return &session.Module{
		Game:     GameTruth,
		Initial:  TruthSelectAnswerer,
		Phases:   phases,
		Actions:  actions,
		CanStart: minPlayers(2),
		NewState: func(*session.Room) any {
			return &truthState{board: votes.NewBoard()}
		},
		Leave: func(s *session.Scope, clientID string) {
			st := truthOf(s.Room)
			st.board.Forget(clientID)

			if s.Room.Phase == TruthSubmitQuestions && clientID != st.answerer && st.questionsDone(s.Room) {
				s.Advance(TruthSelectQuestion)
			}
		},
		View: func(r *session.Room) any {
			st := truthOf(r)
			askers := len(st.askers(r))

			return map[string]any{
				"round":         st.round,
				"answerer":      st.answerer,
				"questions":     st.questions(),
				"totalCount":    st.board.Len(),
				"expectedCount": askers * TruthCap,
				"doneCount":     st.board.DoneCount(),
				"selected":      st.selected,
				"samples":       len(st.samples),
				"verdict":       st.verdict,
			}
		},
		Private: func(r *session.Room, clientID string) any {
			st := truthOf(r)

			return map[string]any{
				"answerer":  clientID == st.answerer,
				"submitted": st.board.Submitted(clientID),
				"done":      st.board.IsDone(clientID),
			}
		},
	}
}
