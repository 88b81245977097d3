// Package runconfig adapts the teacher's pkg/config struct-of-structs
// pattern into this estimator's configuration: one flat EstimatorConfig
// built by the CLI layer (cmd/trifab) and validated once before the
// orchestrator runs, per the CLI validation rules in spec.md §6.
package runconfig

import (
	"github.com/trifab/trifab/internal/dispatch"
	"github.com/trifab/trifab/pkg/apperr"
)

// MaxSampleSize bounds the -M flag. The original ties this to physical
// local-store capacity per accelerator; this software rewrite has no such
// hardware ceiling, so the bound is a generous constant guarding against
// accidental multi-gigabyte allocations from a typo'd flag value.
const MaxSampleSize = 1 << 26

// DefaultMaxAccelerators is the default cap used by the
// "binom(C+2,3) <= NR_DPUS" validation (spec.md §6). The original bounds C
// by a fixed physical accelerator count; this rewrite allocates one
// goroutine-backed Accelerator per triplet with no hardware limit, so the
// cap is configurable and defaults to a large constant rather than a real
// hardware number.
const DefaultMaxAccelerators = 1 << 20

// EstimatorConfig is the full set of parameters driving one process run,
// built directly from the CLI flags named in spec.md §6.
type EstimatorConfig struct {
	Seed             int64    // -s
	SampleSize       int      // -M
	P                float64  // -p
	MisraGriesK      int      // -k
	TopT             int      // -t
	Colors           uint32   // -c
	UpdateFiles      []string // -f
	MaxAccelerators  int      // hardware-ceiling stand-in, see DefaultMaxAccelerators
	NRThreads        int      // router goroutines
	NRTasklets       int      // per-accelerator worker goroutines
	BatchCapacity    int      // per-(thread,accelerator) batch capacity
	UpdateRegion     int      // per-accelerator secondary reservoir region, 0 disables it
	HistoryDBPath    string   // optional --history-db
	OtelEnabled      bool     // optional --otel
}

// Default returns an EstimatorConfig with every non-required field at its
// spec.md §6 default.
func Default() EstimatorConfig {
	return EstimatorConfig{
		SampleSize:      -1, // sentinel: "maximum allowed" resolved by the caller
		P:               1.0,
		MisraGriesK:     0,
		TopT:            5,
		MaxAccelerators: DefaultMaxAccelerators,
		NRThreads:       4,
		NRTasklets:      4,
		BatchCapacity:   4096,
	}
}

// Validate checks every rule in spec.md §6: sample <= MaxSampleSize,
// p in [0,1], t <= k (when heavy-hitters enabled), and
// binom(C+2,3) <= MaxAccelerators. File existence is checked by the CLI
// layer, which is what actually opens them.
func (c EstimatorConfig) Validate() error {
	if c.Colors < 1 {
		return apperr.Argument("runconfig: -c must be >= 1, got %d", c.Colors)
	}
	if c.SampleSize <= 0 {
		return apperr.Argument("runconfig: -M must be > 0, got %d", c.SampleSize)
	}
	if c.SampleSize > MaxSampleSize {
		return apperr.Capacity("runconfig: -M %d exceeds MAX_SAMPLE_SIZE %d", c.SampleSize, MaxSampleSize)
	}
	if c.P < 0 || c.P > 1 {
		return apperr.Argument("runconfig: -p must be in [0,1], got %f", c.P)
	}
	if c.MisraGriesK < 0 {
		return apperr.Argument("runconfig: -k must be >= 0, got %d", c.MisraGriesK)
	}
	if c.MisraGriesK > 0 && c.TopT > c.MisraGriesK {
		return apperr.Argument("runconfig: -t (%d) must be <= -k (%d)", c.TopT, c.MisraGriesK)
	}
	if len(c.UpdateFiles) == 0 {
		return apperr.Argument("runconfig: -f requires at least one update file")
	}

	triplets := dispatch.TotalTriplets(c.Colors)
	maxAcc := c.MaxAccelerators
	if maxAcc <= 0 {
		maxAcc = DefaultMaxAccelerators
	}
	if triplets > int64(maxAcc) {
		return apperr.Capacity("runconfig: binom(C+2,3)=%d exceeds the %d available accelerators", triplets, maxAcc)
	}
	return nil
}
