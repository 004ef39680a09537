package sampler

import (
	"errors"
	"fmt"

	"github.com/UnicodeSec/druid/internal/logging"
	"github.com/UnicodeSec/druid/internal/metrics"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
)

// SampleEntry is one row's outcome in a SamplerResponse: either a
// successfully parsed row, or the raw payload plus an error message
// (spec §4.6 "{raw, parsed?, error?, unparseable}").
type SampleEntry struct {
	Raw         RawRow
	Parsed      RawRow
	Error       string
	Unparseable bool
}

// SamplerResponse is sample()'s full result (spec §4.6).
type SamplerResponse struct {
	NumRowsRead    int
	NumRowsIndexed int
	Data           []SampleEntry
}

// Sampler runs the single-threaded row-sampling pipeline. It holds no
// state across calls; every field is read-only configuration.
type Sampler struct {
	logger  kitlog.Logger
	metrics *metrics.SamplerMetrics
}

// New returns a Sampler that logs through logger (a nop logger if
// nil). reg is the prometheus.Registerer the row-count counter
// registers with; a nil reg is valid, per lockbox.New.
func New(logger kitlog.Logger, reg prometheus.Registerer) *Sampler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Sampler{logger: logger, metrics: metrics.NewSamplerMetrics(reg)}
}

// Sample implements the sample() contract of spec §4.6. schema and cfg
// may both be nil; a nil schema means every row is reported raw-only
// with an unparseable-timestamp error. Sample always releases the
// InputSource handle it opens, on every exit path, including a format
// or configuration error encountered before the first row is read.
func (s *Sampler) Sample(src InputSource, format InputFormat, schema *DataSchema, cfg *Config) (SamplerResponse, error) {
	effective := DefaultConfig()
	if cfg != nil {
		effective = *cfg
	}
	effective = effective.WithDefaults()

	cursor, err := src.Open()
	if err != nil {
		return SamplerResponse{}, fmt.Errorf("sampler: opening input source: %w", err)
	}
	defer func() {
		if cerr := cursor.Close(); cerr != nil {
			level.Warn(s.logger).Log("msg", "sampler: closing input source", "err", cerr)
		}
	}()

	var resp SamplerResponse
	rollup := newRollupAccumulator(schema)

	for resp.NumRowsRead < effective.MaxRows {
		line, ok, err := cursor.Next()
		if err != nil {
			return resp, fmt.Errorf("sampler: reading row: %w", err)
		}
		if !ok {
			break
		}

		raw, perr := format.Parse(line)
		if perr != nil {
			resp.NumRowsRead++
			s.metrics.SamplerRowsTotal.WithLabelValues("unparseable").Inc()
			resp.Data = append(resp.Data, SampleEntry{Unparseable: true, Error: perr.Error()})
			continue
		}

		if schema == nil {
			resp.NumRowsRead++
			s.metrics.SamplerRowsTotal.WithLabelValues("unparseable").Inc()
			resp.Data = append(resp.Data, SampleEntry{Raw: raw, Unparseable: true, Error: "unparseable-timestamp: no dataSchema configured"})
			continue
		}

		parsed, err := applySchema(raw, *schema)
		if errors.Is(err, errRowFiltered) {
			s.metrics.SamplerRowsTotal.WithLabelValues("filtered").Inc()
			continue
		}
		if err != nil {
			resp.NumRowsRead++
			s.metrics.SamplerRowsTotal.WithLabelValues("unparseable").Inc()
			resp.Data = append(resp.Data, SampleEntry{Raw: raw, Unparseable: true, Error: err.Error()})
			continue
		}

		resp.NumRowsRead++
		resp.NumRowsIndexed++
		s.metrics.SamplerRowsTotal.WithLabelValues("indexed").Inc()

		if schema.Granularity.Rollup {
			rollup.fold(raw, parsed)
			continue
		}
		resp.Data = append(resp.Data, SampleEntry{Raw: raw, Parsed: parsed})
	}

	resp.Data = append(resp.Data, rollup.entries()...)

	level.Debug(s.logger).Log("msg", "sample complete", "rowsRead", resp.NumRowsRead, "rowsIndexed", resp.NumRowsIndexed)
	return resp, nil
}

// applySchema runs the timestamp check, row-transforms, row-filter and
// dimension selection in the order spec §4.6 requires. It returns
// errRowFiltered (never wrapped) when the row-filter rejects the row.
func applySchema(raw RawRow, schema DataSchema) (RawRow, error) {
	if _, err := schema.Timestamp.Parse(raw); err != nil {
		return nil, err
	}

	row := raw
	for _, tr := range schema.Transform.Transforms {
		var err error
		row, err = tr.Apply(row)
		if err != nil {
			return nil, fmt.Errorf("sampler: row-transform: %w", err)
		}
	}

	if schema.Transform.Filter != nil && !schema.Transform.Filter.Accept(row) {
		return nil, errRowFiltered
	}

	return schema.Dimensions.apply(row), nil
}
