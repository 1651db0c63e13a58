package pricing

import (
	"regexp"
	"testing"
	"time"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-\d{6}-\d{4}$`)

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)

	got := GenerateOrderNumber(now, func() int { return 42 })
	if got != "ORD-20240309-070502-0042" {
		t.Fatalf("unexpected order number %q", got)
	}
}

func TestGenerateOrderNumberUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2024, 3, 9, 1, 0, 0, 0, loc)

	got := GenerateOrderNumber(now, func() int { return 7 })
	if got != "ORD-20240308-220000-0007" {
		t.Fatalf("unexpected order number %q", got)
	}
}

func TestGenerateOrderNumberRapidCreationsDiffer(t *testing.T) {
	now := time.Now()
	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		n := GenerateOrderNumber(now, nil)
		if !orderNumberPattern.MatchString(n) {
			t.Fatalf("order number %q does not match format", n)
		}
		seen[n] = struct{}{}
	}
	// Within one second only the random suffix varies; collisions are
	// possible but twenty draws from 10000 should not all coincide.
	if len(seen) < 2 {
		t.Fatalf("expected distinct order numbers within the same second, got %v", seen)
	}
}
