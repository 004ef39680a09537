package partition

// SchemeKind names a partitioning scheme, used as the discriminator for
// Analysis below.
type SchemeKind string

const (
	SchemeDynamic   SchemeKind = "dynamic"
	SchemeHashed    SchemeKind = "hashed"
	SchemeSingleDim SchemeKind = "single_dim"
)

// Analysis summarizes the partitioning scheme an interval's shards were
// allocated under. Callers supply it on each allocation request, and the
// allocator picks the partial shard spec from its concrete type.
type Analysis interface {
	Kind() SchemeKind
}

// DynamicAnalysis describes append-only numbered partitioning: no
// partitioning dimension, just a running count of shards.
type DynamicAnalysis struct {
	NumCorePartitions int
}

func (DynamicAnalysis) Kind() SchemeKind { return SchemeDynamic }

// HashedAnalysis describes hashed partitioning: a fixed dimension set
// and bucket count.
type HashedAnalysis struct {
	NumBuckets          int
	PartitionDimensions []string
}

func (HashedAnalysis) Kind() SchemeKind { return SchemeHashed }

// SingleDimAnalysis describes single-dimension range partitioning: the
// partitioning dimension and the resolved boundary table.
type SingleDimAnalysis struct {
	Dimension  string
	Boundaries *Boundaries
}

func (SingleDimAnalysis) Kind() SchemeKind { return SchemeSingleDim }
