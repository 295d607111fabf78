package marketwatch

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Quantity is a number of units of an instrument. It may be fractional;
// the engine documents, but does not enforce, that a meaningful valuation
// needs non-negative quantities.
type Quantity struct {
	value decimal.Decimal
}

func Q[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

func (q Quantity) Equal(p Quantity) bool { return q.value.Equal(p.value) }
func (q Quantity) String() string        { return q.value.String() }

func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.value.MarshalJSON()
}

func (q *Quantity) UnmarshalJSON(decimalBytes []byte) error {
	return q.value.UnmarshalJSON(decimalBytes)
}

// UnmarshalYAML reads a quantity from a YAML scalar, keeping the exact
// decimal representation of the configuration file.
func (q *Quantity) UnmarshalYAML(node *yaml.Node) error {
	value, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", node.Value, err)
	}
	q.value = value
	return nil
}
