/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import "time"

// Ticker drives a phase countdown. Tests swap in a hand-fed implementation.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type NewTicker func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop() { t.t.Stop() }

func RealTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}
