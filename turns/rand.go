/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package turns

import (
	"crypto/rand"
	"math/big"
)

// Rand is the source of randomness for shuffles, ladders and dice.
type Rand interface {
	// IntN returns a uniform value in [0, n). n is always positive.
	IntN(n int) int
}

// CryptoRand draws from crypto/rand.
type CryptoRand struct{}

func (CryptoRand) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return int(v.Int64())
}

// Shuffle is a Fisher-Yates shuffle of n elements driven by r.
func Shuffle(r Rand, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, r.IntN(i+1))
	}
}

type Dice interface {
	Roll() int
}

// SixSided rolls 1 through 6.
type SixSided struct {
	R Rand
}

func (d SixSided) Roll() int {
	r := d.R
	if r == nil {
		r = CryptoRand{}
	}

	return 1 + r.IntN(6)
}
