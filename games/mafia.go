/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"slices"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/Seednode/gamenight/turns"
	"github.com/Seednode/gamenight/votes"
)

const (
	MafiaNight           session.Phase = "NIGHT"
	MafiaDayAnnouncement session.Phase = "DAY_ANNOUNCEMENT"
	MafiaDayDiscussion   session.Phase = "DAY_DISCUSSION"
	MafiaVote            session.Phase = "VOTE"
	MafiaVoteResult      session.Phase = "VOTE_RESULT"
	MafiaFinalDefense    session.Phase = "FINAL_DEFENSE"
	MafiaFinalVote       session.Phase = "FINAL_VOTE"
	MafiaFinalVoteResult session.Phase = "FINAL_VOTE_RESULT"
	MafiaEnd             session.Phase = "END"
)

type Role string

const (
	RoleMafia    Role = "MAFIA"
	RoleDoctor   Role = "DOCTOR"
	RolePolice   Role = "POLICE"
	RoleCivilian Role = "CIVILIAN"
)

const (
	WinnerMafia   = "MAFIA"
	WinnerCitizen = "CITIZEN"
)

const (
	agree    = "agree"
	disagree = "disagree"
)

type investigation struct {
	TargetID string `json:"targetId"`
	Mafia    bool   `json:"mafia"`
}

type mafiaState struct {
	roles map[string]Role
	day   int

	kills  *votes.Ballot
	save   string
	acted  map[string]bool
	police map[string][]investigation

	killed string
	saved  bool

	ballot  *votes.Ballot
	accused string
	final   *votes.Ballot

	executed string
	winner   string
}

func mafiaOf(r *session.Room) *mafiaState {
	return stateOf[mafiaState](r)
}

// assignRoles hands out one mafia per four players (at least one), a doctor
// from four players and a police officer from five.
func assignRoles(ids []string, r turns.Rand) map[string]Role {
	shuffled := slices.Clone(ids)
	turns.Shuffle(r, len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	roles := make(map[string]Role, len(ids))
	mafias := max(1, len(ids)/4)
	for i, id := range shuffled {
		switch {
		case i < mafias:
			roles[id] = RoleMafia
		case i == mafias && len(ids) >= 4:
			roles[id] = RoleDoctor
		case i == mafias+1 && len(ids) >= 5:
			roles[id] = RolePolice
		default:
			roles[id] = RoleCivilian
		}
	}

	return roles
}

// living lists the alive players dealt a role at Start. Late joiners watch.
func (st *mafiaState) living(r *session.Room) []string {
	return slices.DeleteFunc(r.Alive(), func(id string) bool { return st.roles[id] == "" })
}

// inGame fails unless id is alive and holds a role.
func (st *mafiaState) inGame(r *session.Room, id string) error {
	if err := alivePlayer(r, id); err != nil {
		return err
	}
	if st.roles[id] == "" {
		return notPermitted("%s joined after the game started", id)
	}

	return nil
}

func (st *mafiaState) alive(r *session.Room, role Role) []string {
	var out []string
	for _, id := range st.living(r) {
		if st.roles[id] == role {
			out = append(out, id)
		}
	}

	return out
}

func (st *mafiaState) counts(r *session.Room) (mafia, citizens int) {
	for _, id := range st.living(r) {
		switch st.roles[id] {
		case RoleMafia:
			mafia++
		case "":
		default:
			citizens++
		}
	}

	return mafia, citizens
}

// checkWinner decides the game once the mafia are gone or match the citizens.
func (st *mafiaState) checkWinner(r *session.Room) string {
	if len(st.roles) == 0 {
		return ""
	}

	mafia, citizens := st.counts(r)
	switch {
	case mafia == 0:
		st.winner = WinnerCitizen
	case mafia >= citizens:
		st.winner = WinnerMafia
	}

	return st.winner
}

// nightDone reports whether every living special role has acted.
func (st *mafiaState) nightDone(r *session.Room) bool {
	expected := 0
	for _, id := range r.Alive() {
		if st.roles[id] == RoleCivilian || st.roles[id] == "" {
			continue
		}
		expected++
		if !st.acted[id] {
			return false
		}
	}

	return expected > 0
}

func (st *mafiaState) finalVoters(r *session.Room) []string {
	return without(st.living(r), st.accused)
}

func (st *mafiaState) kill(r *session.Room, id string) {
	if p, ok := r.Players[id]; ok {
		p.Alive = false
	}
}

var nightRoles = map[string]Role{
	"kill":        RoleMafia,
	"save":        RoleDoctor,
	"investigate": RolePolice,
}

func mafiaNightAction(kind string) func(s *session.Scope) error {
	return func(s *session.Scope) error {
		name := kind
		if name == "" {
			name = s.Action.Mode
		}
		want, ok := nightRoles[name]
		if !ok {
			return badRequest("unknown role action %q", name)
		}

		st := mafiaOf(s.Room)
		actor := s.Action.ClientID
		if err := st.inGame(s.Room, actor); err != nil {
			return err
		}
		if st.roles[actor] != want {
			return notPermitted("%s cannot %s", actor, name)
		}
		if err := st.inGame(s.Room, s.Action.TargetID); err != nil {
			return err
		}

		target := s.Action.TargetID
		switch want {
		case RoleMafia:
			st.kills.Cast(actor, target)
		case RoleDoctor:
			st.save = target
		case RolePolice:
			if st.acted[actor] {
				return notPermitted("one investigation per night")
			}
			res := investigation{TargetID: target, Mafia: st.roles[target] == RoleMafia}
			st.police[actor] = append(st.police[actor], res)
			s.Reply(res)
		}
		st.acted[actor] = true

		acted := 0
		for id := range st.acted {
			if s.Room.Has(id) {
				acted++
			}
		}
		s.Emit(events.VoteProgress, map[string]int{"acted": acted})

		if st.nightDone(s.Room) {
			s.Advance(MafiaDayAnnouncement)
		}

		return nil
	}
}

// Mafia is the social deduction game: the mafia kill at night, the town votes
// someone out by day.
func Mafia(d Deps) *session.Module {
	d = d.withDefaults()

	winOrStay := func(s *session.Scope) {
		st := mafiaOf(s.Room)
		if w := st.checkWinner(s.Room); w != "" {
			s.Advance(MafiaEnd)
		}
	}

	phases := map[session.Phase]session.PhaseSpec{
		MafiaNight: {
			Next:  []session.Phase{MafiaDayAnnouncement},
			Timer: 30 * time.Second,
			Enter: func(s *session.Scope) {
				st := mafiaOf(s.Room)
				st.day++
				st.kills.Reset()
				st.save = ""
				clear(st.acted)
				st.accused = ""
				st.executed = ""
			},
		},
		MafiaDayAnnouncement: {
			Next: []session.Phase{MafiaVote, MafiaDayDiscussion, MafiaEnd},
			Enter: func(s *session.Scope) {
				st := mafiaOf(s.Room)
				st.killed, st.saved = "", false

				if target, _, ok := st.kills.Leader(); ok {
					if target == st.save {
						st.saved = true
					} else {
						st.kill(s.Room, target)
						st.killed = target
					}
				}

				s.Emit(events.RoundResult, map[string]any{
					"day":    st.day,
					"killed": st.killed,
					"saved":  st.saved,
				})
				winOrStay(s)
			},
		},
		MafiaDayDiscussion: {Next: []session.Phase{MafiaVote}},
		MafiaVote: {
			Next:  []session.Phase{MafiaVoteResult},
			Timer: 60 * time.Second,
			Enter: func(s *session.Scope) {
				mafiaOf(s.Room).ballot.Reset()
			},
		},
		MafiaVoteResult: {
			Next: []session.Phase{MafiaFinalDefense, MafiaNight},
			Enter: func(s *session.Scope) {
				st := mafiaOf(s.Room)
				st.accused = ""
				if leader, _, ok := st.ballot.Leader(); ok {
					st.accused = leader
				}

				s.Emit(events.RoundResult, map[string]any{
					"tally":   st.ballot.Tally(),
					"accused": st.accused,
				})
			},
		},
		MafiaFinalDefense: {
			Next: []session.Phase{MafiaFinalVote},
			Guard: func(s *session.Scope) error {
				if mafiaOf(s.Room).accused == "" {
					return notPermitted("nobody was accused")
				}

				return nil
			},
		},
		MafiaFinalVote: {
			Next: []session.Phase{MafiaFinalVoteResult},
			Enter: func(s *session.Scope) {
				mafiaOf(s.Room).final.Reset()
			},
		},
		MafiaFinalVoteResult: {
			Next: []session.Phase{MafiaNight, MafiaEnd},
			Enter: func(s *session.Scope) {
				st := mafiaOf(s.Room)
				yes, no := st.final.YesNo(agree)

				st.executed = ""
				if yes > no && s.Room.Has(st.accused) {
					st.kill(s.Room, st.accused)
					st.executed = st.accused
				}

				s.Emit(events.RoundResult, map[string]any{
					"accused":  st.accused,
					"agree":    yes,
					"disagree": no,
					"executed": st.executed,
				})
				winOrStay(s)
			},
		},
		MafiaEnd: {
			Guard: func(s *session.Scope) error {
				if mafiaOf(s.Room).checkWinner(s.Room) == "" {
					return notPermitted("nobody has won yet")
				}

				return nil
			},
			Enter: func(s *session.Scope) {
				st := mafiaOf(s.Room)
				s.Emit(events.RoundResult, map[string]any{
					"winner": st.winner,
					"roles":  st.roles,
				})
			},
		},
	}

	actions := map[string]session.ActionSpec{
		"role-action": {Phases: []session.Phase{MafiaNight}, Member: true, Handle: mafiaNightAction("")},
		"kill":        {Phases: []session.Phase{MafiaNight}, Member: true, Handle: mafiaNightAction("kill")},
		"save":        {Phases: []session.Phase{MafiaNight}, Member: true, Handle: mafiaNightAction("save")},
		"investigate": {Phases: []session.Phase{MafiaNight}, Member: true, Handle: mafiaNightAction("investigate")},
		"vote": {
			Phases: []session.Phase{MafiaVote},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := mafiaOf(s.Room)
				if err := st.inGame(s.Room, s.Action.ClientID); err != nil {
					return err
				}
				if err := st.inGame(s.Room, s.Action.TargetID); err != nil {
					return err
				}

				st.ballot.Cast(s.Action.ClientID, s.Action.TargetID)

				alive := len(st.living(s.Room))
				s.Emit(events.VoteProgress, map[string]any{
					"tally":       st.ballot.Tally(),
					"doneCount":   st.ballot.Len(),
					"totalVoters": alive,
				})

				if st.ballot.Len() >= alive {
					s.Advance(MafiaVoteResult)
				}

				return nil
			},
		},
		"final-vote": {
			Phases: []session.Phase{MafiaFinalVote},
			Member: true,
			Handle: func(s *session.Scope) error {
				st := mafiaOf(s.Room)
				if err := st.inGame(s.Room, s.Action.ClientID); err != nil {
					return err
				}
				if s.Action.ClientID == st.accused {
					return notPermitted("the accused does not vote")
				}

				choice := disagree
				if s.Action.Flag {
					choice = agree
				}
				st.final.Cast(s.Action.ClientID, choice)

				yes, no := st.final.YesNo(agree)
				voters := len(st.finalVoters(s.Room))
				s.Emit(events.VoteProgress, map[string]int{
					"agree":       yes,
					"disagree":    no,
					"totalVoters": voters,
				})

				if yes+no >= voters {
					s.Advance(MafiaFinalVoteResult)
				}

				return nil
			},
		},
	}

	return &session.Module{
		Game:     GameMafia,
		Initial:  MafiaNight,
		Phases:   phases,
		Actions:  actions,
		CanStart: minPlayers(3),
		NewState: func(r *session.Room) any {
			st := &mafiaState{
				kills:  votes.NewBallot(),
				acted:  make(map[string]bool),
				police: make(map[string][]investigation),
				ballot: votes.NewBallot(),
				final:  votes.NewBallot(),
				roles:  map[string]Role{},
			}
			if r.Count() > 0 {
				st.roles = assignRoles(r.IDs(), d.Rand)
			}

			return st
		},
		Leave: func(s *session.Scope, clientID string) {
			st := mafiaOf(s.Room)
			st.kills.Forget(clientID)
			st.ballot.Forget(clientID)
			st.final.Forget(clientID)
			delete(st.acted, clientID)

			switch s.Room.Phase {
			case MafiaNight:
				if st.nightDone(s.Room) {
					s.Advance(MafiaDayAnnouncement)
				}
			case MafiaVote:
				if alive := len(st.living(s.Room)); alive > 0 && st.ballot.Len() >= alive {
					s.Advance(MafiaVoteResult)
				}
			case MafiaFinalVote:
				yes, no := st.final.YesNo(agree)
				if voters := len(st.finalVoters(s.Room)); voters > 0 && yes+no >= voters {
					s.Advance(MafiaFinalVoteResult)
				}
			}
		},
		View: func(r *session.Room) any {
			st := mafiaOf(r)
			mafia, citizens := st.counts(r)

			v := map[string]any{
				"day":       st.day,
				"alive":     st.living(r),
				"survivors": mafia + citizens,
				"mafias":    mafia,
				"killed":    st.killed,
				"saved":     st.saved,
				"accused":   st.accused,
				"executed":  st.executed,
				"tally":     st.ballot.Tally(),
				"winner":    st.winner,
			}
			yes, no := st.final.YesNo(agree)
			v["agree"], v["disagree"] = yes, no

			if st.winner != "" {
				v["roles"] = st.roles
			}

			return v
		},
		Private: func(r *session.Room, clientID string) any {
			st := mafiaOf(r)
			role := st.roles[clientID]

			out := map[string]any{"role": role}
			switch role {
			case RoleMafia:
				out["team"] = st.alive(r, RoleMafia)
			case RolePolice:
				out["investigations"] = slices.Clone(st.police[clientID])
			}

			return out
		},
	}
}
