package sampler

// Config bounds how much work one sample() call will do, mirroring the
// shape of lockconfig.Config for the Sampler's own subsystem.
type Config struct {
	// MaxRows caps how many input rows are read in one call (spec §4.6
	// "numRowsRead = min(rows.size, config.maxRows)").
	MaxRows int
}

// DefaultConfig returns the Sampler's documented default bound.
func DefaultConfig() Config {
	return Config{MaxRows: 500}
}

// WithDefaults fills a zero-valued MaxRows with the default.
func (c Config) WithDefaults() Config {
	if c.MaxRows <= 0 {
		c.MaxRows = DefaultConfig().MaxRows
	}
	return c
}
