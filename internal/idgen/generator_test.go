package idgen

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestNewGenerator_Defaults(t *testing.T) {
	gen, err := NewGenerator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Length() != DefaultLength {
		t.Errorf("expected length %d, got %d", DefaultLength, gen.Length())
	}
}

func TestNewGenerator_RejectsShortLength(t *testing.T) {
	if _, err := NewGenerator(WithLength(3)); err != ErrLengthTooShort {
		t.Errorf("expected ErrLengthTooShort, got %v", err)
	}
	if _, err := NewGenerator(WithLength(MinLength)); err != nil {
		t.Errorf("expected length %d to be accepted, got %v", MinLength, err)
	}
}

func TestNewGenerator_RejectsAmbiguousOnlyAlphabet(t *testing.T) {
	if _, err := NewGenerator(WithAlphabet("oO0iI1lL")); err != ErrEmptyAlphabet {
		t.Errorf("expected ErrEmptyAlphabet, got %v", err)
	}
}

func TestGenerate_NoAmbiguousCharacters(t *testing.T) {
	gen, err := NewGenerator(WithSource(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5000; i++ {
		code := gen.Generate()
		if strings.ContainsAny(code, ambiguous) {
			t.Fatalf("code %q contains an ambiguous character", code)
		}
	}
}

func TestGenerate_Lowercase(t *testing.T) {
	gen, err := NewGenerator(WithSource(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5000; i++ {
		code := gen.Generate()
		if code != strings.ToLower(code) {
			t.Fatalf("code %q is not lowercase", code)
		}
	}
}

func TestGenerate_Length(t *testing.T) {
	for _, n := range []int{4, 6, 10} {
		gen, err := NewGenerator(WithLength(n))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := 0; i < 200; i++ {
			if got := utf8.RuneCountInString(gen.Generate()); got != n {
				t.Fatalf("length %d: got code with %d runes", n, got)
			}
		}
	}
}

func TestGenerate_StrictRefillsStrippedCharacters(t *testing.T) {
	gen, err := NewGenerator(WithAlphabet("aO"), WithSource(rand.NewPCG(5, 6)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 100; i++ {
		if code := gen.Generate(); code != "aaaaaa" {
			t.Fatalf("expected refilled code 'aaaaaa', got %q", code)
		}
	}
}

func TestGenerate_NonStrictMayShorten(t *testing.T) {
	gen, err := NewGenerator(
		WithAlphabet("aO"),
		WithStrictLength(false),
		WithSource(rand.NewPCG(7, 8)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shortened := false
	for i := 0; i < 100; i++ {
		code := gen.Generate()
		if strings.ContainsAny(code, ambiguous) {
			t.Fatalf("code %q contains an ambiguous character", code)
		}
		if len(code) < DefaultLength {
			shortened = true
		}
	}
	if !shortened {
		t.Error("expected at least one shortened code with a half-ambiguous alphabet")
	}
}

func TestGenerate_UppercaseAlphabetFolded(t *testing.T) {
	gen, err := NewGenerator(WithAlphabet("ÄÖÜ"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	code := gen.Generate()
	if strings.ContainsAny(code, "ÄÖÜ") {
		t.Errorf("expected umlauts folded to lowercase, got %q", code)
	}
}

func TestGenerate_Concurrent(t *testing.T) {
	gen, err := NewGenerator(WithSource(rand.NewPCG(9, 10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				gen.Generate()
			}
		}()
	}
	wg.Wait()
}
