package pipeline

import (
	"math"
	"time"
)

// zScore95 is the critical value for a 95% confidence interval.
const zScore95 = 1.96

// Estimate computes a Progress snapshot from the counts observed so far.
// It is a pure function over its inputs; callers re-invoke it on every
// completion rather than updating state incrementally.
//
// The ETA assumes the remaining chunks run in waves of up to concurrency
// tasks, each wave taking the mean observed duration. The margin widens
// the estimate by the sample standard deviation scaled for the number of
// remaining waves. Durations come only from successful non-trivial
// syntheses, so failed and skipped chunks advance the percentage without
// polluting the timing model.
func Estimate(completed, total int, durations []time.Duration, concurrency int) Progress {
	if total <= 0 || concurrency <= 0 {
		return Progress{}
	}
	if completed > total {
		completed = total
	}
	p := Progress{
		Completed: completed,
		Total:     total,
		Percent:   100 * float64(completed) / float64(total),
	}
	if len(durations) == 0 {
		return p
	}

	remaining := total - completed
	mean := meanSeconds(durations)
	p.ETAKnown = true
	p.ETA = time.Duration(mean * float64(remaining) / float64(concurrency) * float64(time.Second))

	if len(durations) >= 2 && remaining > 0 {
		waves := math.Ceil(float64(remaining) / float64(concurrency))
		sigma := stddevSeconds(durations, mean)
		p.MarginKnown = true
		p.Margin = time.Duration(zScore95 * sigma * math.Sqrt(waves) * float64(time.Second))
	}
	return p
}

func meanSeconds(durations []time.Duration) float64 {
	var sum float64
	for _, d := range durations {
		sum += d.Seconds()
	}
	return sum / float64(len(durations))
}

// stddevSeconds is the sample standard deviation (n-1 denominator).
func stddevSeconds(durations []time.Duration, mean float64) float64 {
	var sum float64
	for _, d := range durations {
		diff := d.Seconds() - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(durations)-1))
}
