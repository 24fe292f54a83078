package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NumericStats summarizes the numeric values a group of features
// carries for one attribute key. Min and Max are drawn from actual
// member values; Mean is Sum/Count.
type NumericStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// CategoricalStats summarizes the non-numeric values a group carries
// for one attribute key. Mode is the highest-frequency value with ties
// broken by first-seen order.
type CategoricalStats struct {
	Mode          string `json:"mode"`
	DistinctCount int    `json:"distinct_count"`
}

// AttributeStats holds the per-key rollup. A key carrying both numeric
// and string values across different members gets both summaries; the
// numeric side never includes coerced strings.
type AttributeStats struct {
	Numeric     *NumericStats     `json:"numeric,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty"`
}

// categoricalAcc tracks value frequencies in first-seen order so mode
// tie-breaking is deterministic.
type categoricalAcc struct {
	counts map[string]int
	order  []string
}

// aggregateAttributes computes per-key statistics across group members.
// Missing or non-numeric values are excluded from numeric stats but
// never abort aggregation; keys with zero numeric contributors simply
// omit the numeric summary rather than emitting NaN or zero-filled
// stats.
func aggregateAttributes(members []Feature) map[string]AttributeStats {
	numeric := make(map[string][]float64)
	categorical := make(map[string]*categoricalAcc)
	var keyOrder []string
	seenKey := make(map[string]bool)

	for _, f := range members {
		for k, v := range f.Attributes {
			if v == nil {
				continue // treated as a missing key
			}
			if !seenKey[k] {
				seenKey[k] = true
				keyOrder = append(keyOrder, k)
			}
			if n, ok := numericValue(v); ok {
				numeric[k] = append(numeric[k], n)
				continue
			}
			acc := categorical[k]
			if acc == nil {
				acc = &categoricalAcc{counts: make(map[string]int)}
				categorical[k] = acc
			}
			s := stringValue(v)
			if acc.counts[s] == 0 {
				acc.order = append(acc.order, s)
			}
			acc.counts[s]++
		}
	}

	out := make(map[string]AttributeStats, len(keyOrder))
	for _, k := range keyOrder {
		var stats AttributeStats
		if vals := numeric[k]; len(vals) > 0 {
			stats.Numeric = &NumericStats{
				Min:   floats.Min(vals),
				Max:   floats.Max(vals),
				Mean:  stat.Mean(vals, nil),
				Count: len(vals),
			}
		}
		if acc := categorical[k]; acc != nil {
			mode := acc.order[0]
			for _, s := range acc.order[1:] {
				if acc.counts[s] > acc.counts[mode] {
					mode = s
				}
			}
			stats.Categorical = &CategoricalStats{
				Mode:          mode,
				DistinctCount: len(acc.order),
			}
		}
		if stats.Numeric != nil || stats.Categorical != nil {
			out[k] = stats
		}
	}

	return out
}

// numericValue type-checks an attribute value against the Go numeric
// kinds that survive JSON decoding and common caller construction.
// Strings are never coerced.
func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// stringValue renders a non-numeric attribute for frequency counting.
func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	switch b := v.(type) {
	case bool:
		if b {
			return "true"
		}
		return "false"
	}
	// Uncommon value types (arrays, objects) still participate in the
	// frequency table rather than erroring the aggregation.
	return fmt.Sprintf("%v", v)
}
