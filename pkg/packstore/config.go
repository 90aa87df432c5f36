package packstore

import "fmt"

// Strategy selects when a mutation triggers compaction.
type Strategy int

const (
	// Never disables automatic compaction entirely.
	Never Strategy = iota

	// Always compacts after every write or delete.
	Always

	// CheckCount compacts when the ratio of deleted to total records
	// reaches Options.FillRate.
	CheckCount

	// CheckSize compacts when the ratio of deleted bytes to total bytes
	// reaches Options.FillRate. See [shouldCompact] for the exact
	// (intentionally unmodified) arithmetic.
	CheckSize
)

// String implements [fmt.Stringer].
func (s Strategy) String() string {
	switch s {
	case Never:
		return "Never"
	case Always:
		return "Always"
	case CheckCount:
		return "CheckCount"
	case CheckSize:
		return "CheckSize"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Options configures a [Store].
type Options struct {
	// Path is the backing file's location. Required.
	Path string

	// Strategy selects the compaction trigger. Default: [Never].
	Strategy Strategy

	// FillRate is the threshold in [0, 1] used by [CheckCount] and
	// [CheckSize]; ignored by [Never] and [Always]. Default: 0.0.
	FillRate float64
}

func (o Options) validate() error {
	if o.Path == "" {
		return fmt.Errorf("%w: Path is empty", ErrInvalidInput)
	}

	if o.Strategy < Never || o.Strategy > CheckSize {
		return fmt.Errorf("%w: unknown Strategy %d", ErrInvalidInput, int(o.Strategy))
	}

	if o.FillRate < 0.0 || o.FillRate > 1.0 {
		return fmt.Errorf("%w: FillRate %f out of range [0, 1]", ErrInvalidInput, o.FillRate)
	}

	return nil
}
