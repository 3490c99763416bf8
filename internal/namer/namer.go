// Package namer generates human-friendly session names of the form
// "adjective-animal", such as "swift-fox".
package namer

import (
	"math/rand/v2"
	"strconv"
	"sync"
)

// maxAttempts bounds how many random names Unique tries before falling back
// to a numeric suffix.
const maxAttempts = 50

var adjectives = []string{
	"amber", "bold", "bright", "calm", "clever", "cool", "crisp", "daring", "eager", "fair",
	"fast", "fierce", "gentle", "glad", "golden", "grand", "happy", "hardy", "keen", "kind",
	"light", "lively", "lucky", "merry", "mighty", "noble", "pale", "proud", "quick", "quiet",
	"rapid", "ready", "rosy", "sharp", "shy", "sleek", "slim", "smart", "soft", "steady",
	"still", "stout", "strong", "sunny", "sure", "sweet", "swift", "tall", "warm", "wise",
}

var animals = []string{
	"ant", "bat", "bear", "bee", "bird", "buck", "bull", "cat", "colt", "crab",
	"crow", "deer", "doe", "dove", "duck", "elk", "fawn", "fish", "frog", "goat",
	"hare", "hawk", "jay", "lark", "lion", "lynx", "mole", "moth", "newt", "orca",
	"owl", "puma", "ram", "rat", "seal", "slug", "snail", "swan", "toad", "vole",
	"wasp", "whale", "wolf", "wren", "yak", "fox", "ape", "asp", "cod", "emu",
}

// Namer produces friendly names. It is safe for concurrent use. The zero
// value is not usable; call New.
type Namer struct {
	mu   sync.Mutex
	intn func(n int) int
}

// Option configures a Namer.
type Option func(*Namer)

// WithSource makes the Namer draw from src, for deterministic output. The
// Namer serializes its draws, so src need not be safe for concurrent use.
func WithSource(src rand.Source) Option {
	return func(n *Namer) {
		r := rand.New(src)
		n.intn = r.IntN
	}
}

// New creates a Namer drawing from the global random source.
func New(opts ...Option) *Namer {
	n := &Namer{intn: rand.IntN}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Generate returns a random "adjective-animal" name.
func (n *Namer) Generate() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return adjectives[n.intn(len(adjectives))] + "-" + animals[n.intn(len(animals))]
}

// Unique returns a name for which taken reports false. It tries random
// names first and then appends an increasing numeric suffix to the last
// candidate, so it always terminates.
func (n *Namer) Unique(taken func(string) bool) string {
	var name string
	for range maxAttempts {
		name = n.Generate()
		if !taken(name) {
			return name
		}
	}
	for i := 2; ; i++ {
		candidate := name + "-" + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Combinations returns the number of distinct unsuffixed names.
func Combinations() int {
	return len(adjectives) * len(animals)
}
