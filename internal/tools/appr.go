package tools

// APPR compensation for delays within the carrier's control, per the
// Canadian Air Passenger Protection Regulations. Small carriers pay the
// s.19(1) tiers, large carriers the s.19(2) tiers.
//
// Delays under three hours carry no cash entitlement.

// CarrierSize selects which APPR compensation table applies.
type CarrierSize string

const (
	CarrierSmall CarrierSize = "small"
	CarrierLarge CarrierSize = "large"
)

type apprTier struct {
	minMinutes int
	amountCAD  float64
	section    string
}

var smallCarrierTiers = []apprTier{
	{9 * 60, 500, "APPR s.19(1)(c)"},
	{6 * 60, 250, "APPR s.19(1)(b)"},
	{3 * 60, 125, "APPR s.19(1)(a)"},
}

var largeCarrierTiers = []apprTier{
	{9 * 60, 1000, "APPR s.19(2)(c)"},
	{6 * 60, 700, "APPR s.19(2)(b)"},
	{3 * 60, 400, "APPR s.19(2)(a)"},
}

func apprTierFor(delayMinutes int, size CarrierSize) (apprTier, bool) {
	tiers := smallCarrierTiers
	if size == CarrierLarge {
		tiers = largeCarrierTiers
	}
	for _, tier := range tiers {
		if delayMinutes >= tier.minMinutes {
			return tier, true
		}
	}
	return apprTier{}, false
}

// APPRCompensationCAD returns the cash entitlement for a delay of the given
// length in minutes. Zero means no entitlement.
func APPRCompensationCAD(delayMinutes int, size CarrierSize) float64 {
	tier, ok := apprTierFor(delayMinutes, size)
	if !ok {
		return 0
	}
	return tier.amountCAD
}

// APPRRegulationSection names the regulation clause backing the entitlement,
// empty when the delay is under the compensable threshold.
func APPRRegulationSection(delayMinutes int, size CarrierSize) string {
	tier, ok := apprTierFor(delayMinutes, size)
	if !ok {
		return ""
	}
	return tier.section
}

// APPRTierLabel describes the tier a delay falls into, for customer-facing
// explanations.
func APPRTierLabel(delayMinutes int) string {
	switch {
	case delayMinutes >= 9*60:
		return "9 hours or more"
	case delayMinutes >= 6*60:
		return "6 to 9 hours"
	case delayMinutes >= 3*60:
		return "3 to 6 hours"
	default:
		return "under 3 hours"
	}
}
