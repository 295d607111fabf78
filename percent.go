package marketwatch

import (
	"fmt"
	"math"
)

type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}

// roundPercent rounds to the given number of decimal digits.
func roundPercent(v float64, digits int) Percent {
	shift := math.Pow(10, float64(digits))
	return Percent(math.Round(v*shift) / shift)
}
