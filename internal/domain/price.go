package domain

// Arm identifies which switchback treatment arm was active in a period.
type Arm string

// Treatment arms. ArmHigh is the reference price; ArmMid and ArmLow are the
// two discount levels of the three-point design.
const (
	ArmHigh Arm = "HIGH"
	ArmMid  Arm = "MID"
	ArmLow  Arm = "LOW"
)

// Arms lists all arms in reference-first order, matching the probability
// vector ordering used throughout (q_high, q_mid, q_low).
var Arms = []Arm{ArmHigh, ArmMid, ArmLow}

// PriceLevels holds the three admissible price levels of the design.
// Invariant (validated at config time): Low < Mid < High, equally spaced.
type PriceLevels struct {
	Low  float64
	Mid  float64
	High float64
}

// PriceFor returns the price posted under an arm.
func (p PriceLevels) PriceFor(arm Arm) float64 {
	switch arm {
	case ArmLow:
		return p.Low
	case ArmMid:
		return p.Mid
	default:
		return p.High
	}
}

// Step returns the spacing between adjacent levels.
func (p PriceLevels) Step() float64 {
	return p.Mid - p.Low
}
