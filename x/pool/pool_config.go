package pool

import "github.com/xichen2020/sharedref/x/instrument"

// ObjectPoolWatermarkConfiguration contains watermark configuration for pools.
type ObjectPoolWatermarkConfiguration struct {
	// The low watermark to start refilling the pool, if zero none.
	RefillLowWatermark float64 `yaml:"low" validate:"min=0.0,max=1.0"`

	// The high watermark to stop refilling the pool, if zero none.
	RefillHighWatermark float64 `yaml:"high" validate:"min=0.0,max=1.0"`
}

// ObjectPoolConfiguration contains pool configuration.
type ObjectPoolConfiguration struct {
	// The size of the pool, if zero the default size.
	Size int `yaml:"size" validate:"min=0"`

	// The maximum number of values handed out at once, if zero unbounded.
	MaxOutstanding int `yaml:"maxOutstanding" validate:"min=0"`

	// The watermark configuration.
	Watermark ObjectPoolWatermarkConfiguration `yaml:"watermark"`
}

// NewPoolOptions creates a new set of pool options.
func (c *ObjectPoolConfiguration) NewPoolOptions(
	instrumentOpts *instrument.Options,
) *ObjectPoolOptions {
	opts := NewObjectPoolOptions().
		SetInstrumentOptions(instrumentOpts).
		SetMaxOutstanding(c.MaxOutstanding).
		SetRefillLowWatermark(c.Watermark.RefillLowWatermark).
		SetRefillHighWatermark(c.Watermark.RefillHighWatermark)
	if c.Size > 0 {
		opts = opts.SetSize(c.Size)
	}
	return opts
}
