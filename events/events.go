/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package events fans room notifications out to every subscribed feed.
//
// Delivery is at-most-once and never persisted. A subscriber whose buffer is full
// misses the event; after a reconnect it must pull a fresh room snapshot.
package events

import "time"

type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

func ParseRole(s string) Role {
	if s == string(RoleHost) {
		return RoleHost
	}

	return RolePlayer
}

// Event names published by the session engine and the game modules.
const (
	PhaseChanged     = "phase-changed"
	PlayerJoined     = "player-joined"
	PlayerLeft       = "player-left"
	GameChanged      = "game-changed"
	ItemSubmitted    = "item-submitted"
	VoteProgress     = "vote-progress"
	TurnChanged      = "turn-changed"
	RoundResult      = "round-result"
	TimerTick        = "timer-tick"
	TeamUpdate       = "team-update"
	DiceRolled       = "dice-rolled"
	AnswererSelected = "answerer-selected"
	QuestionSelected = "question-selected"
	ScoreUpdate      = "score-update"
	WordChanged      = "word-changed"
)

type Event struct {
	Seq     uint64    `json:"seq"`
	Room    string    `json:"room"`
	Name    string    `json:"name"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// PublishResult reports how many feeds got the event and how many were skipped.
type PublishResult struct {
	SendTo  int
	Dropped int
}

type Stats struct {
	Feeds     int    `json:"feeds"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}
