/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"cmp"
	"fmt"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/Seednode/gamenight/turns"
	"github.com/Seednode/gamenight/votes"
)

const (
	LiarLobby         session.Phase = "LOBBY"
	LiarRoleReveal    session.Phase = "ROLE_REVEAL"
	LiarExplanation   session.Phase = "EXPLANATION"
	LiarVoteMoreRound session.Phase = "VOTE_MORE_ROUND"
	LiarPointing      session.Phase = "POINTING"
	LiarGameEnd       session.Phase = "GAME_END"
)

const (
	voteMore = "more"
	voteStop = "stop"
)

type liarState struct {
	liar     string
	category string
	keyword  string

	order     *turns.Order
	speaking  bool
	explained int
	round     int

	more     *votes.Ballot
	pointing *votes.Ballot

	accused string
	caught  bool
	ended   bool
}

func liarOf(r *session.Room) *liarState {
	return stateOf[liarState](r)
}

// afterExplainer is where the room goes once the current explainer is done.
func (st *liarState) afterExplainer() session.Phase {
	if st.explained+1 < st.order.Len() {
		return LiarExplanation
	}

	return LiarVoteMoreRound
}

func (st *liarState) afterVote() session.Phase {
	more, stop := st.more.YesNo(voteMore)
	if more > stop {
		return LiarExplanation
	}

	return LiarPointing
}

func (st *liarState) turnPayload(r *session.Room) map[string]any {
	current := st.order.Current()

	return map[string]any{
		"current":   current,
		"nickname":  r.Nickname(current),
		"explained": st.explained,
		"total":     st.order.Len(),
		"round":     st.round,
	}
}

// Liar hides one player who does not know the secret keyword. Everyone
// describes the keyword in turn, then the room points at the liar.
func Liar(d Deps) *session.Module {
	d = d.withDefaults()

	phases := map[session.Phase]session.PhaseSpec{
		LiarLobby: {Next: []session.Phase{LiarRoleReveal}},
		LiarRoleReveal: {
			Next:  []session.Phase{LiarExplanation},
			Timer: 30 * time.Second,
			Guard: func(s *session.Scope) error {
				if liarOf(s.Room).liar == "" {
					return notPermitted("no liar has been chosen")
				}

				return nil
			},
			Enter: func(s *session.Scope) {
				st := liarOf(s.Room)
				st.order = turns.NewSolo(s.Room.IDs(), d.Rand)
				st.speaking = false
				st.explained = 0
				st.round = 0
			},
		},
		LiarExplanation: {
			Next:  []session.Phase{LiarExplanation, LiarVoteMoreRound},
			Timer: 30 * time.Second,
			Expire: func(s *session.Scope) session.Phase {
				return liarOf(s.Room).afterExplainer()
			},
			Enter: func(s *session.Scope) {
				st := liarOf(s.Room)
				if st.speaking {
					st.order.Advance()
					st.explained++
				} else {
					st.speaking = true
					st.round++
				}

				s.Emit(events.TurnChanged, st.turnPayload(s.Room))
			},
		},
		LiarVoteMoreRound: {
			Next:  []session.Phase{LiarExplanation, LiarPointing},
			Timer: 15 * time.Second,
			Expire: func(s *session.Scope) session.Phase {
				return liarOf(s.Room).afterVote()
			},
			Enter: func(s *session.Scope) {
				st := liarOf(s.Room)
				st.order.Rewind()
				st.speaking = false
				st.explained = 0
				st.more.Reset()
			},
		},
		LiarPointing: {
			Next: []session.Phase{LiarGameEnd},
			Enter: func(s *session.Scope) {
				liarOf(s.Room).pointing.Reset()
			},
		},
		LiarGameEnd: {
			Enter: func(s *session.Scope) {
				st := liarOf(s.Room)
				st.accused = ""
				if leader, _, ok := st.pointing.Leader(); ok {
					st.accused = leader
				}
				st.caught = st.accused == st.liar
				st.ended = true

				s.Emit(events.RoundResult, map[string]any{
					"liar":     st.liar,
					"nickname": s.Room.Nickname(st.liar),
					"keyword":  st.keyword,
					"category": st.category,
					"accused":  st.accused,
					"caught":   st.caught,
					"tally":    st.pointing.Tally(),
				})
			},
		},
	}

	actions := map[string]session.ActionSpec{
		"init": {
			Phases: []session.Phase{LiarLobby},
			Handle: func(s *session.Scope) error {
				st := liarOf(s.Room)
				if err := minPlayers(3)(s.Room); err != nil {
					return err
				}

				category := cmp.Or(s.Action.Text, s.Action.Mode)
				if category == "" || category == "random" {
					cats := d.Keywords.Categories()
					if len(cats) == 0 {
						return badRequest("no categories available")
					}
					category = pick(d.Rand, cats)
				}
				words, err := d.Keywords.Words(category)
				if err != nil {
					return err
				}

				st.category = category
				st.keyword = pick(d.Rand, words)
				st.liar = pick(d.Rand, s.Room.IDs())

				s.Emit(events.WordChanged, map[string]string{"category": category})
				s.Reply(map[string]string{"category": category})
				s.Advance(LiarRoleReveal)

				return nil
			},
		},
		"next-explainer": {
			Phases: []session.Phase{LiarExplanation},
			Handle: func(s *session.Scope) error {
				st := liarOf(s.Room)
				if !isActor(s, st.order.Current()) {
					return notPermitted("it is %s's turn", st.order.Current())
				}
				s.Advance(st.afterExplainer())

				return nil
			},
		},
		"vote-more": {
			Phases: []session.Phase{LiarVoteMoreRound},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := liarOf(s.Room)

				choice := voteStop
				if s.Action.Flag {
					choice = voteMore
				}
				st.more.Cast(s.Action.ClientID, choice)

				more, stop := st.more.YesNo(voteMore)
				s.Emit(events.VoteProgress, map[string]int{
					"moreCount":   more,
					"stopCount":   stop,
					"totalVoters": s.Room.Count(),
				})

				if st.more.Len() >= s.Room.Count() {
					s.Advance(st.afterVote())
				}

				return nil
			},
		},
		"point": {
			Phases: []session.Phase{LiarPointing},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := liarOf(s.Room)
				if !s.Room.Has(s.Action.TargetID) {
					return fmt.Errorf("%w: %s", session.ErrPlayerNotFound, s.Action.TargetID)
				}

				st.pointing.Cast(s.Action.ClientID, s.Action.TargetID)
				s.Emit(events.VoteProgress, map[string]int{
					"doneCount":   st.pointing.Len(),
					"totalVoters": s.Room.Count(),
				})

				if st.pointing.Len() >= s.Room.Count() {
					s.Advance(LiarGameEnd)
				}

				return nil
			},
		},
	}

	return &session.Module{
		Game:    GameLiar,
		Initial: LiarLobby,
		Phases:  phases,
		Actions: actions,
		NewState: func(*session.Room) any {
			return &liarState{
				more:     votes.NewBallot(),
				pointing: votes.NewBallot(),
			}
		},
		Leave: func(s *session.Scope, clientID string) {
			st := liarOf(s.Room)
			st.more.Forget(clientID)
			st.pointing.Forget(clientID)
			if st.order != nil {
				st.order.Remove(clientID)
			}

			if s.Room.Count() == 0 {
				return
			}
			switch s.Room.Phase {
			case LiarVoteMoreRound:
				if st.more.Len() >= s.Room.Count() {
					s.Advance(st.afterVote())
				}
			case LiarPointing:
				if st.pointing.Len() >= s.Room.Count() {
					s.Advance(LiarGameEnd)
				}
			}
		},
		View: func(r *session.Room) any {
			st := liarOf(r)
			more, stop := st.more.YesNo(voteMore)

			v := map[string]any{
				"category":  st.category,
				"round":     st.round,
				"explained": st.explained,
				"moreCount": more,
				"stopCount": stop,
				"pointed":   st.pointing.Len(),
			}
			if st.order != nil {
				v["order"] = st.order.Tokens()
				v["current"] = st.order.Current()
			}
			if st.ended {
				v["liar"] = st.liar
				v["keyword"] = st.keyword
				v["accused"] = st.accused
				v["caught"] = st.caught
			}

			return v
		},
		Private: func(r *session.Room, clientID string) any {
			st := liarOf(r)
			if st.liar == "" {
				return map[string]any{}
			}
			if clientID == st.liar {
				return map[string]any{"liar": true, "category": st.category}
			}

			return map[string]any{"liar": false, "category": st.category, "keyword": st.keyword}
		},
	}
}
