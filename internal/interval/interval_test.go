package interval

import (
	"errors"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{name: "valid one day", start: day(1), end: day(2), wantErr: false},
		{name: "zero duration", start: day(1), end: day(1), wantErr: true},
		{name: "negative duration", start: day(2), end: day(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.start, tt.end)
			if tt.wantErr && !errors.Is(err, ErrEmpty) {
				t.Fatalf("expected ErrEmpty, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestContains(t *testing.T) {
	iv := MustNew(day(1), day(2))

	if !iv.Contains(day(1)) {
		t.Error("expected start to be contained (half-open, inclusive start)")
	}
	if iv.Contains(day(2)) {
		t.Error("expected end to be excluded (half-open)")
	}
	if !iv.Contains(day(1).Add(time.Hour)) {
		t.Error("expected midpoint to be contained")
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{name: "identical", a: MustNew(day(1), day(2)), b: MustNew(day(1), day(2)), want: true},
		{name: "disjoint", a: MustNew(day(1), day(2)), b: MustNew(day(3), day(4)), want: false},
		{name: "touching boundary", a: MustNew(day(1), day(2)), b: MustNew(day(2), day(3)), want: false},
		{name: "partial overlap", a: MustNew(day(1), day(3)), b: MustNew(day(2), day(4)), want: true},
		{name: "nested", a: MustNew(day(1), day(4)), b: MustNew(day(2), day(3)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() symmetric case = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainsInterval(t *testing.T) {
	outer := MustNew(day(1), day(4))
	inner := MustNew(day(2), day(3))
	if !outer.ContainsInterval(inner) {
		t.Error("expected outer to contain inner")
	}
	if inner.ContainsInterval(outer) {
		t.Error("did not expect inner to contain outer")
	}
}

func TestCompare(t *testing.T) {
	a := MustNew(day(1), day(2))
	b := MustNew(day(1), day(3))
	c := MustNew(day(2), day(3))

	if Compare(a, a) != 0 {
		t.Error("expected equal intervals to compare 0")
	}
	if Compare(a, b) >= 0 {
		t.Error("expected a < b (same start, earlier end)")
	}
	if Compare(b, c) >= 0 {
		t.Error("expected b < c (earlier start)")
	}
	if Compare(c, a) <= 0 {
		t.Error("expected c > a")
	}
}
