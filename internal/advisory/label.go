package advisory

import (
	"fmt"

	"github.com/samber/lo"
)

// Label is one of the crop health states the classifier distinguishes.
// The declaration order is the order of the model's output vector.
type Label int

const (
	Healthy Label = iota
	LeafBlast
	BrownSpot
	SheathBlight

	labelCount
)

// Labels lists every label in model output order.
var Labels = [labelCount]Label{Healthy, LeafBlast, BrownSpot, SheathBlight}

// Count is the number of labels, and the width of the model's score vector.
const Count = int(labelCount)

var labelNames = [...]string{
	Healthy:      "Healthy",
	LeafBlast:    "Leaf Blast",
	BrownSpot:    "Brown Spot",
	SheathBlight: "Sheath Blight",
}

// compile-time check: one name per label
var _ = [1]struct{}{}[len(labelNames)-Count]

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// Valid reports whether l is a declared label.
func (l Label) Valid() bool {
	return l >= 0 && l < labelCount
}

// LabelAt returns the label for position i of a score vector.
func LabelAt(i int) (Label, bool) {
	l := Label(i)
	return l, l.Valid()
}

// ParseLabel maps a display name such as "Leaf Blast" back to its label.
func ParseLabel(name string) (Label, bool) {
	for _, l := range Labels {
		if labelNames[l] == name {
			return l, true
		}
	}
	return 0, false
}

// Names returns the display names in model output order.
func Names() []string {
	return lo.Map(Labels[:], func(l Label, _ int) string {
		return l.String()
	})
}
