package target_test

import (
	"errors"
	"math"
	"testing"

	"github.com/robalobadob/numguess/internal/difficulty"
	"github.com/robalobadob/numguess/internal/target"
)

func TestGenerateWithinRangeAndUniform(t *testing.T) {
	const trials = 10000
	gen := target.New()

	for _, rule := range difficulty.All() {
		t.Run(string(rule.Key), func(t *testing.T) {
			bins := rule.Max - rule.Min + 1
			counts := make([]int, bins)
			for i := 0; i < trials; i++ {
				n, err := gen.Generate(rule.Min, rule.Max)
				if err != nil {
					t.Fatalf("Generate(%d,%d) error: %v", rule.Min, rule.Max, err)
				}
				if n < rule.Min || n > rule.Max {
					t.Fatalf("Generate(%d,%d) = %d out of range", rule.Min, rule.Max, n)
				}
				counts[n-rule.Min]++
			}

			expected := float64(trials) / float64(bins)
			var chi2 float64
			for _, c := range counts {
				d := float64(c) - expected
				chi2 += d * d / expected
			}
			df := float64(bins - 1)
			limit := df + 6*math.Sqrt(2*df)
			if chi2 > limit {
				t.Fatalf("chi-square %.1f exceeds %.1f (df=%.0f)", chi2, limit, df)
			}
		})
	}
}

func TestGenerateSingleValueRange(t *testing.T) {
	n, err := target.New().Generate(7, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("Generate(7,7) = %d want 7", n)
	}
}

func TestGenerateInvalidRange(t *testing.T) {
	gens := map[string]target.Generator{
		"crypto": target.New(),
		"seeded": target.NewSeeded(1),
		"fixed":  target.Fixed(5),
	}
	for name, g := range gens {
		t.Run(name, func(t *testing.T) {
			if _, err := g.Generate(10, 1); !errors.Is(err, target.ErrInvalidRange) {
				t.Fatalf("err = %v want ErrInvalidRange", err)
			}
		})
	}
}

func TestGenerateExtremeRanges(t *testing.T) {
	gens := map[string]target.Generator{
		"crypto": target.New(),
		"seeded": target.NewSeeded(1),
	}
	ranges := []struct{ min, max int }{
		{math.MinInt, math.MaxInt},
		{0, math.MaxInt},
		{math.MinInt, 0},
		{math.MinInt32, math.MaxInt32},
		{math.MaxInt - 1, math.MaxInt},
	}
	for name, g := range gens {
		for _, rg := range ranges {
			n, err := g.Generate(rg.min, rg.max)
			if err != nil {
				// Only ranges wider than int64 can count are refused.
				if !errors.Is(err, target.ErrInvalidRange) {
					t.Fatalf("%s: Generate(%d,%d) err = %v want ErrInvalidRange", name, rg.min, rg.max, err)
				}
				if uint64(int64(rg.max)-int64(rg.min)) < math.MaxInt64 {
					t.Fatalf("%s: Generate(%d,%d) refused a countable range", name, rg.min, rg.max)
				}
				continue
			}
			if n < rg.min || n > rg.max {
				t.Fatalf("%s: Generate(%d,%d) = %d out of range", name, rg.min, rg.max, n)
			}
		}
	}
}

func TestSeededDeterministic(t *testing.T) {
	g1 := target.NewSeeded(42)
	g2 := target.NewSeeded(42)
	for i := 0; i < 100; i++ {
		a, _ := g1.Generate(1, 500)
		b, _ := g2.Generate(1, 500)
		if a != b {
			t.Fatalf("draw %d mismatch: %d vs %d", i, a, b)
		}
	}
}

func TestFixedOutsideRange(t *testing.T) {
	if _, err := target.Fixed(73).Generate(1, 50); !errors.Is(err, target.ErrInvalidRange) {
		t.Fatalf("err = %v want ErrInvalidRange", err)
	}
	n, err := target.Fixed(73).Generate(1, 100)
	if err != nil || n != 73 {
		t.Fatalf("Fixed(73).Generate(1,100) = %d, %v", n, err)
	}
}
