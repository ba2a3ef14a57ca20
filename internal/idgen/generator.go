package idgen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/Varun5711/shortbox/internal/shortcode"
)

const (
	DefaultLength = 6
	MinLength     = 4

	// DefaultAlphabet omits o, i, l, O, I, L, 0 and 1 and adds a handful of
	// umlauts so codes stay readable when printed or spoken.
	DefaultAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789üÜäÄöÖß"

	ambiguous = "oO0iI1lL"
)

var (
	ErrLengthTooShort = fmt.Errorf("short code length must be at least %d", MinLength)
	ErrEmptyAlphabet  = errors.New("alphabet has no unambiguous characters")
)

// Generator produces random candidate short codes. Candidates are folded to
// lowercase and never contain ambiguous glyphs. Uniqueness is not its job.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	alphabet []rune
	length   int
	strict   bool
}

type Option func(*Generator)

func WithLength(n int) Option {
	return func(g *Generator) { g.length = n }
}

func WithAlphabet(alphabet string) Option {
	return func(g *Generator) { g.alphabet = []rune(alphabet) }
}

// WithStrictLength controls what happens when stripping ambiguous glyphs
// shortens a draw. When strict (the default) the generator keeps drawing
// until the code has the full length; otherwise the shorter code is returned.
func WithStrictLength(strict bool) Option {
	return func(g *Generator) { g.strict = strict }
}

// WithSource makes generation deterministic. Used by tests.
func WithSource(src rand.Source) Option {
	return func(g *Generator) { g.rng = rand.New(src) }
}

func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{
		alphabet: []rune(DefaultAlphabet),
		length:   DefaultLength,
		strict:   true,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.length < MinLength {
		return nil, ErrLengthTooShort
	}

	usable := false
	for _, r := range g.alphabet {
		if !isAmbiguous(r) {
			usable = true
			break
		}
	}
	if !usable {
		return nil, ErrEmptyAlphabet
	}

	return g, nil
}

func (g *Generator) Length() int {
	return g.length
}

// Generate returns one candidate code.
func (g *Generator) Generate() string {
	var b strings.Builder

	if g.strict {
		for n := 0; n < g.length; {
			r := g.draw()
			if isAmbiguous(r) {
				continue
			}
			b.WriteRune(r)
			n++
		}
	} else {
		for i := 0; i < g.length; i++ {
			if r := g.draw(); !isAmbiguous(r) {
				b.WriteRune(r)
			}
		}
	}

	return shortcode.Fold(b.String())
}

func (g *Generator) draw() rune {
	if g.rng == nil {
		return g.alphabet[rand.IntN(len(g.alphabet))]
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.alphabet[g.rng.IntN(len(g.alphabet))]
}

func isAmbiguous(r rune) bool {
	return strings.ContainsRune(ambiguous, r)
}
