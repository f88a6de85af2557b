/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"errors"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/Seednode/gamenight/turns"
	"github.com/Seednode/gamenight/votes"
)

const (
	MarbleLobby      session.Phase = "LOBBY"
	MarbleSubmit     session.Phase = "SUBMIT"
	MarbleVote       session.Phase = "VOTE"
	MarbleModeSelect session.Phase = "MODE_SELECT"
	MarbleTeam       session.Phase = "TEAM"
	MarbleGame       session.Phase = "GAME"
)

const (
	// MarbleCap is how many penalties each player writes.
	MarbleCap = 2

	// MarbleTiles is how many ranked penalties make it onto the board.
	MarbleTiles = 26
)

const (
	ModeSolo = "solo"
	ModeTeam = "team"
)

type marbleState struct {
	board    *votes.Board
	selected []votes.Item
	mode     string
	teams    *turns.Teams
	order    *turns.Order
	track    *turns.Board
	lastRoll *marbleRoll
}

type marbleRoll struct {
	ClientID string        `json:"clientId"`
	Token    string        `json:"token"`
	Value    int           `json:"value"`
	Members  []string      `json:"members"`
	Landing  turns.Landing `json:"landing"`
}

func marbleOf(r *session.Room) *marbleState {
	return stateOf[marbleState](r)
}

func (st *marbleState) texts() []string {
	out := make([]string, len(st.selected))
	for i, it := range st.selected {
		out[i] = it.Text
	}

	return out
}

func submitProgress(s *session.Scope, st *marbleState) bool {
	expected := s.Room.Count() * MarbleCap
	s.Emit(events.ItemSubmitted, map[string]int{
		"totalCount":    st.board.Len(),
		"expectedCount": expected,
	})

	for _, p := range s.Room.Roster() {
		if st.board.Submitted(p.ClientID) < MarbleCap {
			return false
		}
	}

	return s.Room.Count() > 0
}

func voteProgress(s *session.Scope, st *marbleState) bool {
	s.Emit(events.VoteProgress, map[string]int{
		"doneCount":   st.board.DoneCount(),
		"totalVoters": s.Room.Count(),
	})

	return s.Room.Count() > 0 && st.board.DoneCount() >= s.Room.Count()
}

// Marble is a board game: players write penalties, vote the best ones onto a
// 28 tile board, then take turns rolling dice around it alone or in teams.
func Marble(d Deps) *session.Module {
	d = d.withDefaults()

	phases := map[session.Phase]session.PhaseSpec{
		MarbleLobby:  {Next: []session.Phase{MarbleSubmit}},
		MarbleSubmit: {Next: []session.Phase{MarbleVote}},
		MarbleVote: {
			Next: []session.Phase{MarbleModeSelect},
			Enter: func(s *session.Scope) {
				marbleOf(s.Room).board.ResetDone()
			},
		},
		MarbleModeSelect: {
			Next: []session.Phase{MarbleTeam},
			Enter: func(s *session.Scope) {
				st := marbleOf(s.Room)
				st.selected = votes.Top(st.board.Items(), MarbleTiles)
				st.board.Reset()
				for _, p := range s.Room.Roster() {
					p.Submitted = 0
					p.VoteDone = false
				}
				s.Emit(events.RoundResult, map[string]any{"items": st.selected})
			},
		},
		MarbleTeam: {
			Next: []session.Phase{MarbleTeam, MarbleGame},
		},
		MarbleGame: {
			Guard: func(s *session.Scope) error {
				st := marbleOf(s.Room)
				if s.Room.Count() == 0 {
					return notPermitted("nobody is in room %s", s.Room.ID)
				}
				if st.mode == ModeTeam && !st.teams.Complete(s.Room.IDs()) {
					return notPermitted("every player needs a team and at least two teams must exist")
				}

				return nil
			},
			Enter: func(s *session.Scope) {
				st := marbleOf(s.Room)
				if st.mode == ModeTeam {
					st.order = turns.NewTeams(st.teams.Groups(s.Room.IDs()), d.Rand)
				} else {
					st.order = turns.NewSolo(s.Room.IDs(), d.Rand)
				}
				st.track = turns.NewBoard(st.order)
				st.lastRoll = nil

				s.Emit(events.TurnChanged, map[string]any{
					"current": st.order.Current(),
					"members": st.order.Members(st.order.Current()),
				})
			},
		},
	}

	actions := map[string]session.ActionSpec{
		"submit": {
			Phases: []session.Phase{MarbleSubmit},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := marbleOf(s.Room)
				p, err := s.Room.Player(s.Action.ClientID)
				if err != nil {
					return err
				}

				it, err := st.board.Submit(p.ClientID, p.Nickname, s.Action.Text, MarbleCap)
				if err != nil {
					if errors.Is(err, votes.ErrEmptyItem) {
						return badRequest("empty penalty")
					}

					return err
				}
				p.Submitted = st.board.Submitted(p.ClientID)
				s.Reply(it)

				if submitProgress(s, st) {
					s.Advance(MarbleVote)
				}

				return nil
			},
		},
		"toggle-vote": {
			Phases: []session.Phase{MarbleVote},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := marbleOf(s.Room)
				n, voted, err := st.board.Toggle(s.Action.ItemID, s.Action.ClientID)
				if err != nil {
					return err
				}

				s.Emit(events.VoteProgress, map[string]any{"counts": st.board.Counts()})
				s.Reply(map[string]any{"itemId": s.Action.ItemID, "votes": n, "voted": voted})

				return nil
			},
		},
		"vote-done": {
			Phases: []session.Phase{MarbleVote},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := marbleOf(s.Room)
				st.board.MarkDone(s.Action.ClientID)
				s.Room.Players[s.Action.ClientID].VoteDone = true

				if voteProgress(s, st) {
					s.Advance(MarbleModeSelect)
				}

				return nil
			},
		},
		"select-mode": {
			Phases: []session.Phase{MarbleModeSelect},
			Handle: func(s *session.Scope) error {
				st := marbleOf(s.Room)
				switch s.Action.Mode {
				case ModeSolo, ModeTeam:
					st.mode = s.Action.Mode
				default:
					return badRequest("unknown mode %q", s.Action.Mode)
				}

				s.Emit(events.TeamUpdate, map[string]any{"mode": st.mode})
				s.Advance(MarbleTeam)

				return nil
			},
		},
		"roll": {
			Phases: []session.Phase{MarbleGame},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := marbleOf(s.Room)
				if !st.order.CanAct(s.Action.ClientID) {
					return notPermitted("it is %s's turn", st.order.Current())
				}

				token := st.order.Current()
				value := d.Dice.Roll()
				pos := st.track.Move(token, value)

				roll := &marbleRoll{
					ClientID: s.Action.ClientID,
					Token:    token,
					Value:    value,
					Members:  st.order.Members(token),
					Landing:  turns.ResolveLanding(pos, st.texts()),
				}
				st.lastRoll = roll
				s.Emit(events.DiceRolled, roll)

				next := st.order.Advance()
				s.Emit(events.TurnChanged, map[string]any{
					"current": next,
					"members": st.order.Members(next),
				})
				s.Reply(roll)

				return nil
			},
		},
	}

	return &session.Module{
		Game:    GameMarble,
		Initial: MarbleLobby,
		Phases:  phases,
		Actions: merge(actions, teamActions(MarbleTeam, d.Rand, func(r *session.Room) *turns.Teams {
			return marbleOf(r).teams
		})),
		CanStart: minPlayers(1),
		NewState: func(*session.Room) any {
			return &marbleState{
				board: votes.NewBoard(),
				mode:  ModeSolo,
				teams: turns.NewAssignment(),
			}
		},
		Leave: func(s *session.Scope, clientID string) {
			st := marbleOf(s.Room)
			st.board.Forget(clientID)
			st.teams.Remove(clientID)
			if st.order != nil {
				st.order.Remove(clientID)
			}

			switch s.Room.Phase {
			case MarbleSubmit:
				if submitProgress(s, st) {
					s.Advance(MarbleVote)
				}
			case MarbleVote:
				if voteProgress(s, st) {
					s.Advance(MarbleModeSelect)
				}
			}
		},
		View: func(r *session.Room) any {
			st := marbleOf(r)

			v := map[string]any{
				"mode":          st.mode,
				"items":         st.board.Items(),
				"counts":        st.board.Counts(),
				"totalCount":    st.board.Len(),
				"expectedCount": r.Count() * MarbleCap,
				"doneCount":     st.board.DoneCount(),
				"totalVoters":   r.Count(),
				"selected":      st.selected,
				"teams":         teamPayload(r),
			}
			if st.order != nil {
				v["order"] = st.order.Tokens()
				v["current"] = st.order.Current()
				v["positions"] = st.track.Positions()
			}
			if st.lastRoll != nil {
				v["lastRoll"] = *st.lastRoll
			}

			return v
		},
		Private: func(r *session.Room, clientID string) any {
			st := marbleOf(r)

			var mine, voted []string
			for _, it := range st.board.Items() {
				if it.Author == clientID {
					mine = append(mine, it.ID)
				}
				if it.Voted(clientID) {
					voted = append(voted, it.ID)
				}
			}

			return map[string]any{
				"submitted": mine,
				"voted":     voted,
				"done":      st.board.IsDone(clientID),
			}
		},
	}
}
