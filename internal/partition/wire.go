package partition

import (
	"encoding/json"
	"fmt"
)

// Wire field names below match spec §6 verbatim: every polymorphic
// record carries a "type" discriminator, and field names are shared
// across implementations so the journal stays round-trip compatible
// no matter which process wrote or reads a given record.

// MarshalJSON implements the ShardSpec wire encoding for LinearShardSpec.
func (s LinearShardSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string `json:"type"`
		PartitionNum int    `json:"partitionNum"`
	}{Type: s.Kind(), PartitionNum: s.PartitionNumber})
}

// MarshalJSON implements the ShardSpec wire encoding for NumberedShardSpec.
func (s NumberedShardSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type              string `json:"type"`
		PartitionNum      int    `json:"partitionNum"`
		NumCorePartitions int    `json:"numCorePartitions"`
	}{Type: s.Kind(), PartitionNum: s.PartitionNumber, NumCorePartitions: s.NumCorePartitions})
}

// MarshalJSON implements the ShardSpec wire encoding for HashedShardSpec.
func (s HashedShardSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string   `json:"type"`
		PartitionNum int      `json:"partitionNum"`
		BucketID     int      `json:"bucketId"`
		NumBuckets   int      `json:"numBuckets"`
		Dims         []string `json:"dims"`
	}{Type: s.Kind(), PartitionNum: s.PartitionNumber, BucketID: s.BucketID, NumBuckets: s.NumBuckets, Dims: s.PartitionDimensions})
}

// MarshalJSON implements the ShardSpec wire encoding for SingleDimShardSpec.
func (s SingleDimShardSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string  `json:"type"`
		PartitionNum int     `json:"partitionNum"`
		Dim          string  `json:"dim"`
		Start        *string `json:"start"`
		End          *string `json:"end"`
	}{Type: s.Kind(), PartitionNum: s.PartitionNumber, Dim: s.Dimension, Start: s.Start, End: s.End})
}

// MarshalJSON implements the ShardSpec wire encoding for NumberedOverwriteShardSpec.
func (s NumberedOverwriteShardSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string `json:"type"`
		PartitionNum int    `json:"partitionNum"`
		StartRoot    int    `json:"startRoot"`
		EndRoot      int    `json:"endRoot"`
		MinorVersion int    `json:"minorVersion"`
	}{Type: s.Kind(), PartitionNum: s.PartitionNumber, StartRoot: s.StartRootPartitionID, EndRoot: s.EndRootPartitionID, MinorVersion: s.MinorVersion})
}

// shardSpecEnvelope is the superset of fields any ShardSpec variant may
// carry on the wire; UnmarshalShardSpec reads the "type" discriminator
// first and then picks out only the fields that variant defines.
type shardSpecEnvelope struct {
	Type              string   `json:"type"`
	PartitionNum      int      `json:"partitionNum"`
	NumCorePartitions int      `json:"numCorePartitions"`
	BucketID          int      `json:"bucketId"`
	NumBuckets        int      `json:"numBuckets"`
	Dims              []string `json:"dims"`
	Dim               string   `json:"dim"`
	Start             *string  `json:"start"`
	End               *string  `json:"end"`
	StartRoot         int      `json:"startRoot"`
	EndRoot           int      `json:"endRoot"`
	MinorVersion      int      `json:"minorVersion"`
}

// UnmarshalShardSpec decodes a ShardSpec from its wire envelope,
// dispatching on the "type" discriminator (spec §6: "shardSpec ∈
// {linear, numbered, hashed, single_dim, numbered_overwrite}"). Since
// ShardSpec is an interface, there is no single concrete Go type
// encoding/json can unmarshal into directly — this function is the
// decode-side counterpart to each variant's own MarshalJSON.
func UnmarshalShardSpec(data []byte) (ShardSpec, error) {
	var env shardSpecEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("partition: unmarshal shard spec: %w", err)
	}
	switch env.Type {
	case "linear":
		return LinearShardSpec{PartitionNumber: env.PartitionNum}, nil
	case "numbered":
		return NumberedShardSpec{PartitionNumber: env.PartitionNum, NumCorePartitions: env.NumCorePartitions}, nil
	case "hashed":
		return HashedShardSpec{PartitionNumber: env.PartitionNum, BucketID: env.BucketID, NumBuckets: env.NumBuckets, PartitionDimensions: env.Dims}, nil
	case "single_dim":
		return SingleDimShardSpec{PartitionNumber: env.PartitionNum, Dimension: env.Dim, Start: env.Start, End: env.End}, nil
	case "numbered_overwrite":
		return NumberedOverwriteShardSpec{PartitionNumber: env.PartitionNum, StartRootPartitionID: env.StartRoot, EndRootPartitionID: env.EndRoot, MinorVersion: env.MinorVersion}, nil
	default:
		return nil, fmt.Errorf("partition: unrecognized shard spec type %q", env.Type)
	}
}

// MarshalJSON implements the PartialShardSpec wire encoding for LinearPartial.
func (p LinearPartial) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: p.Kind()})
}

// MarshalJSON implements the PartialShardSpec wire encoding for NumberedPartial.
func (p NumberedPartial) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type              string `json:"type"`
		NumCorePartitions int    `json:"numCorePartitions"`
	}{Type: p.Kind(), NumCorePartitions: p.NumCorePartitions})
}

// MarshalJSON implements the PartialShardSpec wire encoding for HashedPartial.
func (p HashedPartial) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string   `json:"type"`
		BucketID   int      `json:"bucketId"`
		NumBuckets int      `json:"numBuckets"`
		Dims       []string `json:"dims"`
	}{Type: p.Kind(), BucketID: p.BucketID, NumBuckets: p.NumBuckets, Dims: p.PartitionDimensions})
}

// MarshalJSON implements the PartialShardSpec wire encoding for SingleDimPartial.
func (p SingleDimPartial) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string  `json:"type"`
		Dim   string  `json:"dim"`
		Start *string `json:"start"`
		End   *string `json:"end"`
	}{Type: p.Kind(), Dim: p.Dimension, Start: p.Start, End: p.End})
}

// MarshalJSON implements the PartialShardSpec wire encoding for NumberedOverwritePartial.
func (p NumberedOverwritePartial) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string `json:"type"`
		StartRoot    int    `json:"startRoot"`
		EndRoot      int    `json:"endRoot"`
		MinorVersion int    `json:"minorVersion"`
	}{Type: p.Kind(), StartRoot: p.StartRootPartitionID, EndRoot: p.EndRootPartitionID, MinorVersion: p.MinorVersion})
}

type partialShardSpecEnvelope struct {
	Type              string   `json:"type"`
	NumCorePartitions int      `json:"numCorePartitions"`
	BucketID          int      `json:"bucketId"`
	NumBuckets        int      `json:"numBuckets"`
	Dims              []string `json:"dims"`
	Dim               string   `json:"dim"`
	Start             *string  `json:"start"`
	End               *string  `json:"end"`
	StartRoot         int      `json:"startRoot"`
	EndRoot           int      `json:"endRoot"`
	MinorVersion      int      `json:"minorVersion"`
}

// UnmarshalPartialShardSpec decodes a PartialShardSpec from its wire
// envelope (spec §6: "partialShardSpec ∈ {numbered, hashed, single_dim,
// numbered_overwrite}"; "linear" is accepted too since a completed
// LinearShardSpec's own partial round-trips through the same envelope).
func UnmarshalPartialShardSpec(data []byte) (PartialShardSpec, error) {
	var env partialShardSpecEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("partition: unmarshal partial shard spec: %w", err)
	}
	switch env.Type {
	case "linear":
		return LinearPartial{}, nil
	case "numbered":
		return NumberedPartial{NumCorePartitions: env.NumCorePartitions}, nil
	case "hashed":
		return HashedPartial{BucketID: env.BucketID, NumBuckets: env.NumBuckets, PartitionDimensions: env.Dims}, nil
	case "single_dim":
		return SingleDimPartial{Dimension: env.Dim, Start: env.Start, End: env.End}, nil
	case "numbered_overwrite":
		return NumberedOverwritePartial{StartRootPartitionID: env.StartRoot, EndRootPartitionID: env.EndRoot, MinorVersion: env.MinorVersion}, nil
	default:
		return nil, fmt.Errorf("partition: unrecognized partial shard spec type %q", env.Type)
	}
}

// MarshalJSON implements the Boundaries wire encoding: a plain JSON
// array with sentinel positions encoded as null, which round-trips
// through NewBoundaries' own sentinel convention.
func (b *Boundaries) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.values)
}

// UnmarshalJSON decodes a Boundaries from the array form MarshalJSON
// produces, reconstructing the sentinel invariants rather than
// trusting the input's first/last positions verbatim.
func (b *Boundaries) UnmarshalJSON(data []byte) error {
	var values []*string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("partition: unmarshal boundaries: %w", err)
	}
	cutPoints := make([]string, 0, len(values))
	for _, v := range values {
		if v != nil {
			cutPoints = append(cutPoints, *v)
		}
	}
	*b = *NewBoundaries(cutPoints)
	return nil
}

// MarshalJSON implements the Analysis wire encoding for DynamicAnalysis
// (spec §6 "partitionsSpec ∈ {dynamic, hashed, single_dim}").
func (a DynamicAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type              string `json:"type"`
		NumCorePartitions int    `json:"numCorePartitions"`
	}{Type: string(a.Kind()), NumCorePartitions: a.NumCorePartitions})
}

// MarshalJSON implements the Analysis wire encoding for HashedAnalysis.
func (a HashedAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string   `json:"type"`
		NumBuckets int      `json:"numBuckets"`
		Dims       []string `json:"dims"`
	}{Type: string(a.Kind()), NumBuckets: a.NumBuckets, Dims: a.PartitionDimensions})
}

// MarshalJSON implements the Analysis wire encoding for SingleDimAnalysis.
func (a SingleDimAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string      `json:"type"`
		Dim        string      `json:"dim"`
		Boundaries *Boundaries `json:"boundaries"`
	}{Type: string(a.Kind()), Dim: a.Dimension, Boundaries: a.Boundaries})
}

type analysisEnvelope struct {
	Type              string      `json:"type"`
	NumCorePartitions int         `json:"numCorePartitions"`
	NumBuckets        int         `json:"numBuckets"`
	Dims              []string    `json:"dims"`
	Dim               string      `json:"dim"`
	Boundaries        *Boundaries `json:"boundaries"`
}

// UnmarshalAnalysis decodes an Analysis from its wire envelope,
// dispatching on the "type" discriminator.
func UnmarshalAnalysis(data []byte) (Analysis, error) {
	var env analysisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("partition: unmarshal analysis: %w", err)
	}
	switch SchemeKind(env.Type) {
	case SchemeDynamic:
		return DynamicAnalysis{NumCorePartitions: env.NumCorePartitions}, nil
	case SchemeHashed:
		return HashedAnalysis{NumBuckets: env.NumBuckets, PartitionDimensions: env.Dims}, nil
	case SchemeSingleDim:
		return SingleDimAnalysis{Dimension: env.Dim, Boundaries: env.Boundaries}, nil
	default:
		return nil, fmt.Errorf("partition: unrecognized analysis type %q", env.Type)
	}
}
