// Package sprt implements Wald's Sequential Probability Ratio Test for
// classifying a test target as reliable, unreliable, or undecided from a
// stream of pass/fail outcomes.
package sprt

import "math"

// Decision is the outcome of evaluating a SPRT boundary crossing.
type Decision string

const (
	Accept   Decision = "accept"
	Reject   Decision = "reject"
	Continue Decision = "continue"
)

// DemotionDecision is the outcome of the reverse-chronological demotion variant.
type DemotionDecision string

const (
	Demote       DemotionDecision = "demote"
	Retain       DemotionDecision = "retain"
	Inconclusive DemotionDecision = "inconclusive"
)

const (
	defaultMargin = 0.10
	epsilon       = 1e-10
)

// clamp restricts x to [epsilon, 1-epsilon] to avoid log(0)/log(inf).
func clamp(x float64) float64 {
	if x < epsilon {
		return epsilon
	}
	if x > 1.0-epsilon {
		return 1.0 - epsilon
	}
	return x
}

// boundaries computes the SPRT accept/reject log-likelihood boundaries and
// the two competing reliability hypotheses for a given target and significance.
func boundaries(minReliability, significance, margin float64) (upper, lower, p0, p1 float64) {
	alpha := 1.0 - significance
	beta := 1.0 - significance

	if alpha <= 0 {
		alpha = epsilon
	}
	if beta <= 0 {
		beta = epsilon
	}

	upper = math.Log((1.0 - beta) / alpha)
	lower = math.Log(beta / (1.0 - alpha))

	p0 = clamp(minReliability)
	p1 = clamp(math.Max(minReliability-margin, epsilon))

	return upper, lower, p0, p1
}

func logRatio(passes, runs int, p0, p1 float64) float64 {
	failures := runs - passes

	return float64(passes)*math.Log(p0/p1) + float64(failures)*math.Log((1.0-p0)/(1.0-p1))
}

// Evaluate returns accept, reject, or continue for the given run/pass counts
// against the target reliability and confidence, using the default 0.10 margin.
func Evaluate(runs, passes int, minReliability, significance float64) Decision {
	return EvaluateMargin(runs, passes, minReliability, significance, defaultMargin)
}

// EvaluateMargin is Evaluate with an explicit margin between the reliable and
// unreliable hypotheses.
func EvaluateMargin(runs, passes int, minReliability, significance, margin float64) Decision {
	if runs <= 0 {
		return Continue
	}

	upper, lower, p0, p1 := boundaries(minReliability, significance, margin)
	ratio := logRatio(passes, runs, p0, p1)

	switch {
	case ratio >= upper:
		return Accept
	case ratio <= lower:
		return Reject
	default:
		return Continue
	}
}

// EvaluateDemotion walks history newest-first, feeding a growing (runs,
// passes) count to the standard SPRT boundaries. On the first crossing it
// classifies the observed pass rate against minReliability; exhausting
// history without a crossing returns Inconclusive.
func EvaluateDemotion(history []bool, minReliability, significance float64) DemotionDecision {
	return EvaluateDemotionMargin(history, minReliability, significance, defaultMargin)
}

// EvaluateDemotionMargin is EvaluateDemotion with an explicit margin.
func EvaluateDemotionMargin(history []bool, minReliability, significance, margin float64) DemotionDecision {
	if len(history) == 0 {
		return Inconclusive
	}

	upper, lower, p0, p1 := boundaries(minReliability, significance, margin)

	runs, passes := 0, 0

	for _, passed := range history {
		runs++
		if passed {
			passes++
		}

		ratio := logRatio(passes, runs, p0, p1)
		if ratio >= upper || ratio <= lower {
			observed := float64(passes) / float64(runs)
			if observed < minReliability {
				return Demote
			}

			return Retain
		}
	}

	return Inconclusive
}
