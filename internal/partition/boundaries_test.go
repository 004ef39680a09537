package partition

import "testing"

func strp(s string) *string { return &s }

// TestBoundariesS5 reproduces the worked example from the spec's
// scenario S5: cut points c, f partition the dimension space into
// three buckets [-inf,c), [c,f), [f,+inf).
func TestBoundariesS5(t *testing.T) {
	b := NewBoundaries([]string{"c", "f"})

	if got, want := b.NumBuckets(), 3; got != want {
		t.Fatalf("NumBuckets() = %d, want %d", got, want)
	}

	cases := []struct {
		key  *string
		want int
	}{
		{strp("b"), 0},
		{strp("d"), 1},
		{strp("g"), 2},
		{nil, 0},
	}
	for _, c := range cases {
		if got := b.BucketFor(c.key); got != c.want {
			t.Errorf("BucketFor(%v) = %d, want %d", deref(c.key), got, c.want)
		}
	}
}

func TestBoundariesBoundaryValuesRouteToUpperBucket(t *testing.T) {
	b := NewBoundaries([]string{"c", "f"})

	// A key exactly equal to a cut point belongs to the bucket that
	// starts at that cut point (half-open [start, end)).
	if got, want := b.BucketFor(strp("c")), 1; got != want {
		t.Errorf("BucketFor(c) = %d, want %d", got, want)
	}
	if got, want := b.BucketFor(strp("f")), 2; got != want {
		t.Errorf("BucketFor(f) = %d, want %d", got, want)
	}
}

func TestBoundariesDedupesAndSorts(t *testing.T) {
	b := NewBoundaries([]string{"f", "c", "c", "f"})
	if got, want := b.NumBuckets(), 3; got != want {
		t.Fatalf("NumBuckets() = %d, want %d", got, want)
	}
}

func TestBoundariesEmptyInputStillHasOneBucket(t *testing.T) {
	b := NewBoundaries(nil)
	if got, want := b.NumBuckets(), 1; got != want {
		t.Fatalf("NumBuckets() = %d, want %d", got, want)
	}
	if got := b.BucketFor(strp("anything")); got != 0 {
		t.Fatalf("BucketFor(anything) = %d, want 0", got)
	}
}

func TestBoundariesSingleCutPoint(t *testing.T) {
	b := NewBoundaries([]string{"m"})
	if got, want := b.NumBuckets(), 2; got != want {
		t.Fatalf("NumBuckets() = %d, want %d", got, want)
	}
	if got, want := b.BucketFor(strp("a")), 0; got != want {
		t.Errorf("BucketFor(a) = %d, want %d", got, want)
	}
	if got, want := b.BucketFor(strp("z")), 1; got != want {
		t.Errorf("BucketFor(z) = %d, want %d", got, want)
	}
}

func TestBoundariesRangeSentinels(t *testing.T) {
	b := NewBoundaries([]string{"c", "f"})
	start, end := b.Range(0)
	if start != nil {
		t.Errorf("bucket 0 start = %v, want nil (-inf)", deref(start))
	}
	if end == nil || *end != "c" {
		t.Errorf("bucket 0 end = %v, want c", deref(end))
	}

	start, end = b.Range(2)
	if start == nil || *start != "f" {
		t.Errorf("bucket 2 start = %v, want f", deref(start))
	}
	if end != nil {
		t.Errorf("bucket 2 end = %v, want nil (+inf)", deref(end))
	}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
