package partition

import (
	"encoding/json"
	"testing"
)

func TestShardSpecWireRoundTrip(t *testing.T) {
	c, f := "c", "f"
	specs := []ShardSpec{
		LinearShardSpec{PartitionNumber: 3},
		NumberedShardSpec{PartitionNumber: 2, NumCorePartitions: 4},
		HashedShardSpec{PartitionNumber: 5, BucketID: 1, NumBuckets: 4, PartitionDimensions: []string{"country"}},
		SingleDimShardSpec{PartitionNumber: 1, Dimension: "region", Start: &c, End: &f},
		NumberedOverwriteShardSpec{PartitionNumber: 0, MinorVersion: 2, StartRootPartitionID: 0, EndRootPartitionID: 3},
	}

	for _, spec := range specs {
		data, err := json.Marshal(spec)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", spec, err)
		}
		got, err := UnmarshalShardSpec(data)
		if err != nil {
			t.Fatalf("UnmarshalShardSpec(%s): %v", data, err)
		}
		if got.Kind() != spec.Kind() {
			t.Errorf("round-tripped kind = %s, want %s", got.Kind(), spec.Kind())
		}
		if got.PartitionNum() != spec.PartitionNum() {
			t.Errorf("round-tripped partitionNum = %d, want %d", got.PartitionNum(), spec.PartitionNum())
		}
	}
}

func TestShardSpecWireDiscriminator(t *testing.T) {
	data, err := json.Marshal(HashedShardSpec{PartitionNumber: 1, BucketID: 2, NumBuckets: 8, PartitionDimensions: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var env map[string]any
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env["type"] != "hashed" {
		t.Errorf(`type = %v, want "hashed"`, env["type"])
	}
	if env["bucketId"] != float64(2) {
		t.Errorf(`bucketId = %v, want 2`, env["bucketId"])
	}
}

func TestUnmarshalShardSpecUnknownType(t *testing.T) {
	_, err := UnmarshalShardSpec([]byte(`{"type":"bogus"}`))
	if err == nil {
		t.Fatal("expected error for unrecognized shard spec type")
	}
}

func TestPartialShardSpecWireRoundTrip(t *testing.T) {
	c, f := "c", "f"
	partials := []PartialShardSpec{
		LinearPartial{},
		NumberedPartial{NumCorePartitions: 4},
		HashedPartial{BucketID: 1, NumBuckets: 4, PartitionDimensions: []string{"country"}},
		SingleDimPartial{Dimension: "region", Start: &c, End: &f},
		NumberedOverwritePartial{StartRootPartitionID: 0, EndRootPartitionID: 3, MinorVersion: 1},
	}

	for _, partial := range partials {
		data, err := json.Marshal(partial)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", partial, err)
		}
		got, err := UnmarshalPartialShardSpec(data)
		if err != nil {
			t.Fatalf("UnmarshalPartialShardSpec(%s): %v", data, err)
		}
		if got.Kind() != partial.Kind() {
			t.Errorf("round-tripped kind = %s, want %s", got.Kind(), partial.Kind())
		}
	}
}

func TestBoundariesWireRoundTrip(t *testing.T) {
	b := NewBoundaries([]string{"c", "f"})
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Boundaries
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.NumBuckets() != b.NumBuckets() {
		t.Fatalf("NumBuckets() = %d, want %d", got.NumBuckets(), b.NumBuckets())
	}
	for i := 0; i < b.NumBuckets(); i++ {
		wantStart, wantEnd := b.Range(i)
		gotStart, gotEnd := got.Range(i)
		if deref(wantStart) != deref(gotStart) || deref(wantEnd) != deref(gotEnd) {
			t.Errorf("bucket %d = (%v,%v), want (%v,%v)", i, deref(gotStart), deref(gotEnd), deref(wantStart), deref(wantEnd))
		}
	}
}

func TestAnalysisWireRoundTrip(t *testing.T) {
	analyses := []Analysis{
		DynamicAnalysis{NumCorePartitions: 2},
		HashedAnalysis{NumBuckets: 4, PartitionDimensions: []string{"country"}},
		SingleDimAnalysis{Dimension: "region", Boundaries: NewBoundaries([]string{"c", "f"})},
	}

	for _, a := range analyses {
		data, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", a, err)
		}
		got, err := UnmarshalAnalysis(data)
		if err != nil {
			t.Fatalf("UnmarshalAnalysis(%s): %v", data, err)
		}
		if got.Kind() != a.Kind() {
			t.Errorf("round-tripped kind = %s, want %s", got.Kind(), a.Kind())
		}
	}
}
