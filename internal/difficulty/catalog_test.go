package difficulty

import (
	"errors"
	"testing"
)

func TestLookupValues(t *testing.T) {
	tests := []struct {
		key         Key
		min, max    int
		maxAttempts int
		timeLimit   int
		basePoints  int
	}{
		{Easy, 1, 50, 10, 120, 100},
		{Medium, 1, 100, 8, 90, 200},
		{Hard, 1, 200, 6, 60, 300},
		{Expert, 1, 500, 5, 45, 500},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			r, err := Lookup(tt.key)
			if err != nil {
				t.Fatalf("Lookup(%q) error: %v", tt.key, err)
			}
			if r.Min != tt.min || r.Max != tt.max {
				t.Errorf("range = [%d,%d] want [%d,%d]", r.Min, r.Max, tt.min, tt.max)
			}
			if r.MaxAttempts != tt.maxAttempts {
				t.Errorf("MaxAttempts = %d want %d", r.MaxAttempts, tt.maxAttempts)
			}
			if r.TimeLimit != tt.timeLimit {
				t.Errorf("TimeLimit = %d want %d", r.TimeLimit, tt.timeLimit)
			}
			if r.BasePoints != tt.basePoints {
				t.Errorf("BasePoints = %d want %d", r.BasePoints, tt.basePoints)
			}
			if !r.Timed() {
				t.Errorf("catalog rule %q should be timed", tt.key)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, k := range []Key{"", "insane", "EASYY"} {
		if _, err := Lookup(k); !errors.Is(err, ErrUnknownDifficulty) {
			t.Fatalf("Lookup(%q) err = %v want ErrUnknownDifficulty", k, err)
		}
	}
}

func TestParseKeyNormalizes(t *testing.T) {
	k, err := ParseKey("  HARD ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != Hard {
		t.Fatalf("ParseKey = %q want %q", k, Hard)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	rules := All()
	if len(rules) != 4 {
		t.Fatalf("len(All()) = %d want 4", len(rules))
	}
	rules[0].Max = 9999

	r, _ := Lookup(Easy)
	if r.Max != 50 {
		t.Fatalf("catalog mutated through All(): Max = %d", r.Max)
	}
}

func TestCatalogInvariants(t *testing.T) {
	for _, r := range All() {
		if r.Min >= r.Max {
			t.Errorf("%s: min %d >= max %d", r.Key, r.Min, r.Max)
		}
		if r.MaxAttempts <= 0 || r.TimeLimit <= 0 || r.BasePoints <= 0 {
			t.Errorf("%s: non-positive counts %+v", r.Key, r)
		}
	}
}
