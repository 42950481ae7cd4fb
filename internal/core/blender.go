package core

import "math"

// insufficientTextFactor scales the Stage-2 score when no usable text was available
const insufficientTextFactor = 0.5

// BlendConfidence merges a Stage-2 score with a Stage-3 verdict into a final
// confidence in [0,100], rounded to two decimals.
func BlendConfidence(stage2Score float64, verdict AIVerdict, policy *Policy) float64 {
	var final float64
	switch {
	case verdict.InsufficientText:
		final = stage2Score * insufficientTextFactor
	case verdict.IsMatch && verdict.Confidence >= policy.AIConfidenceCutoff:
		final = math.Min(100, stage2Score+verdict.Confidence*policy.AIWeight)
	default:
		final = math.Max(0, stage2Score-(1-verdict.Confidence)*policy.AIWeight)
	}
	return roundConfidence(clampConfidence(final))
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func roundConfidence(v float64) float64 {
	return math.Round(v*100) / 100
}
