package partition

import "testing"

func TestNumberedPartialCompleteFirstAndNext(t *testing.T) {
	p := NumberedPartial{NumCorePartitions: 2}

	first := p.Complete(nil)
	ns, ok := first.(NumberedShardSpec)
	if !ok || ns.PartitionNumber != 0 || ns.NumCorePartitions != 2 {
		t.Fatalf("Complete(nil) = %+v", first)
	}

	second := p.Complete(first)
	ns2 := second.(NumberedShardSpec)
	if ns2.PartitionNumber != 1 || ns2.NumCorePartitions != 2 {
		t.Fatalf("Complete(first) = %+v", ns2)
	}
}

func TestHashedPartialCompleteFirstAllocationResolvesToBucketID(t *testing.T) {
	p := HashedPartial{BucketID: 2, NumBuckets: 4, PartitionDimensions: []string{"host"}}
	s := p.Complete(nil)
	hs := s.(HashedShardSpec)
	if hs.PartitionNumber != 2 {
		t.Fatalf("first Complete() PartitionNumber = %d, want 2 (== bucketID)", hs.PartitionNumber)
	}
}

func TestHashedPartialCompleteKeepsCongruenceAcrossGenerations(t *testing.T) {
	p := HashedPartial{BucketID: 2, NumBuckets: 4}
	prev := HashedShardSpec{PartitionNumber: 2, BucketID: 2, NumBuckets: 4}
	s := p.Complete(prev)
	hs := s.(HashedShardSpec)
	if hs.PartitionNumber != 6 {
		t.Fatalf("Complete(prev) PartitionNumber = %d, want 6", hs.PartitionNumber)
	}
	if hs.PartitionNumber%p.NumBuckets != p.BucketID {
		t.Fatalf("PartitionNumber %d not congruent to bucketID %d mod %d", hs.PartitionNumber, p.BucketID, p.NumBuckets)
	}
}

func TestSingleDimPartialComplete(t *testing.T) {
	c := "c"
	p := SingleDimPartial{Dimension: "k", Start: nil, End: &c}
	s := p.Complete(nil)
	ss, ok := s.(SingleDimShardSpec)
	if !ok {
		t.Fatalf("Complete() returned %T, want SingleDimShardSpec", s)
	}
	if ss.Dimension != "k" || ss.Start != nil || ss.End == nil || *ss.End != "c" {
		t.Errorf("got %+v", ss)
	}
}

func TestNumberedOverwritePartialCompleteIncrementsMinorVersion(t *testing.T) {
	p := NumberedOverwritePartial{StartRootPartitionID: 0, EndRootPartitionID: 3, MinorVersion: 1}
	prev := NumberedOverwriteShardSpec{PartitionNumber: 0, MinorVersion: 1, StartRootPartitionID: 0, EndRootPartitionID: 3}

	s := p.Complete(prev)
	ns, ok := s.(NumberedOverwriteShardSpec)
	if !ok {
		t.Fatalf("Complete() returned %T, want NumberedOverwriteShardSpec", s)
	}
	if ns.MinorVersion != 2 || ns.PartitionNumber != 0 {
		t.Fatalf("got %+v, want MinorVersion=2 PartitionNumber=0", ns)
	}
}

func TestCompleteOrdinalAssignsPartitionNumberDirectly(t *testing.T) {
	partials := []PartialShardSpec{
		LinearPartial{},
		NumberedPartial{NumCorePartitions: 3},
		HashedPartial{BucketID: 1, NumBuckets: 4},
		SingleDimPartial{Dimension: "k"},
		NumberedOverwritePartial{StartRootPartitionID: 0, EndRootPartitionID: 2, MinorVersion: 5},
	}
	for _, p := range partials {
		s := p.CompleteOrdinal(7)
		if s.PartitionNum() != 7 {
			t.Errorf("%T.CompleteOrdinal(7).PartitionNum() = %d, want 7", p, s.PartitionNum())
		}
		if s.Kind() != p.Kind() {
			t.Errorf("%T: completed Kind() = %q, want %q", p, s.Kind(), p.Kind())
		}
	}
}
