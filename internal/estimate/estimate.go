// Package estimate implements the final estimator (component C10): the
// per-accelerator reservoir-sampling scaling factor, the color-multiplicity
// correction for monochromatic triplets, and the edge-sampling-probability
// correction, combined into the final reported triangle count.
package estimate

import "github.com/trifab/trifab/internal/dispatch"

// AcceleratorReport is one accelerator's raw triangle count and the
// reservoir state it was computed from.
type AcceleratorReport struct {
	ID         dispatch.AcceleratorID
	RawCount   int64
	M          int
	TotalEdges int64
}

// ScalingFactor returns d, the reservoir-sampling correction (§4.10):
// (M/T)((M-1)/(T-1))((M-2)/(T-2)) when total_edges T exceeds the reservoir
// capacity M, else 1 (the reservoir holds every edge, so no correction is
// needed).
func ScalingFactor(m int, totalEdges int64) float64 {
	if totalEdges <= int64(m) {
		return 1
	}
	t := float64(totalEdges)
	mm := float64(m)
	return (mm / t) * ((mm - 1) / (t - 1)) * ((mm - 2) / (t - 2))
}

// Estimate sums every accelerator's corrected contribution and applies the
// color-multiplicity and edge-sampling-probability corrections.
//
// triplets must be the same Dispatcher's Triplets() slice, so
// triplets[report.ID] names the triplet that accelerator owns.
// edgesKept/edgesInGraph are the router's accepted-edge and total-input-edge
// counts; when no `-p` sampling was configured they are equal and the
// correction is a no-op.
func Estimate(reports []AcceleratorReport, triplets []dispatch.Triplet, colors uint32, edgesKept, edgesInGraph int64) int64 {
	var sum float64
	monoMultiplier := 2 - float64(colors)

	for _, r := range reports {
		d := ScalingFactor(r.M, r.TotalEdges)
		perAccelerator := float64(int64(float64(r.RawCount) / d))

		multiplier := 1.0
		if int(r.ID) >= 0 && int(r.ID) < len(triplets) && triplets[r.ID].Monochromatic() {
			multiplier = monoMultiplier
		}
		sum += perAccelerator * multiplier
	}

	if edgesInGraph > 0 && edgesKept < edgesInGraph {
		ratio := float64(edgesKept) / float64(edgesInGraph)
		if ratio > 0 {
			sum /= ratio * ratio * ratio
		}
	}

	return int64(sum)
}
