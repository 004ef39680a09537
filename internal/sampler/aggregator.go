package sampler

import "strconv"

// LongSumAggregator sums an integer-valued field, Druid's longSum
// aggregator (the common rollup aggregator for event counts/bytes).
// A missing or unparseable field is treated as zero rather than
// failing the whole rollup bucket.
type LongSumAggregator struct {
	Output string
	Field  string
}

func (a LongSumAggregator) Name() string { return a.Output }

func (a LongSumAggregator) Init(row RawRow) string {
	return strconv.FormatInt(parseIntOrZero(row[a.Field]), 10)
}

func (a LongSumAggregator) Combine(acc string, row RawRow) string {
	return strconv.FormatInt(parseIntOrZero(acc)+parseIntOrZero(row[a.Field]), 10)
}

func parseIntOrZero(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// DoubleSumAggregator sums a floating-point field, Druid's doubleSum
// aggregator.
type DoubleSumAggregator struct {
	Output string
	Field  string
}

func (a DoubleSumAggregator) Name() string { return a.Output }

func (a DoubleSumAggregator) Init(row RawRow) string {
	return strconv.FormatFloat(parseFloatOrZero(row[a.Field]), 'f', -1, 64)
}

func (a DoubleSumAggregator) Combine(acc string, row RawRow) string {
	return strconv.FormatFloat(parseFloatOrZero(acc)+parseFloatOrZero(row[a.Field]), 'f', -1, 64)
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// CountAggregator counts rows folded into a bucket, Druid's count
// aggregator.
type CountAggregator struct {
	Output string
}

func (a CountAggregator) Name() string { return a.Output }

func (a CountAggregator) Init(RawRow) string { return "1" }

func (a CountAggregator) Combine(acc string, _ RawRow) string {
	return strconv.FormatInt(parseIntOrZero(acc)+1, 10)
}
