package advisory

import (
	"fmt"
	"strings"
)

// NotAvailable is returned for a label that has no advisory text.
const NotAvailable = "Solution not available."

var advisories = [...]string{
	Healthy: "No treatment needed. Keep monitoring the crop regularly.",
	LeafBlast: "1. **Chemical Treatment:** Apply fungicides such as Pyricularia or Propiconazole. " +
		"2. **Cultural Practices:** Improve irrigation management to avoid excessive moisture. " +
		"3. **Resistant Varieties:** Use rice varieties resistant to Leaf Blast. " +
		"4. **Home Remedy:** Spray a mixture of water and garlic (1 bulb per liter) to help deter fungal growth.",
	BrownSpot: "1. **Chemical Treatment:** Use fungicides like Carbendazim or Mancozeb. " +
		"2. **Fertilization:** Ensure proper application of nutrients, especially nitrogen. " +
		"3. **Resistant Varieties:** Choose rice varieties that are less susceptible to Brown Spot. " +
		"4. **Home Remedy:** Mix neem oil with water (1 tablespoon per liter) and spray on affected leaves to reduce fungal spread.",
	SheathBlight: "1. **Chemical Treatment:** Apply fungicides such as Tricyclazole or Validamycin. " +
		"2. **Water Management:** Maintain optimal water levels and avoid excessive irrigation. " +
		"3. **Crop Rotation:** Rotate crops to disrupt the lifecycle of the pathogen. " +
		"4. **Home Remedy:** Spray a solution of baking soda (1 teaspoon per liter) to help inhibit fungal growth.",
}

// A new label without an advisory entry fails to compile here.
var _ = [1]struct{}{}[len(advisories)-Count]

// Advice returns the remediation text for a label.
func Advice(l Label) string {
	if !l.Valid() || advisories[l] == "" {
		return NotAvailable
	}
	return advisories[l]
}

// AdviceFor looks up the remediation text by display name.
func AdviceFor(name string) string {
	l, ok := ParseLabel(name)
	if !ok {
		return NotAvailable
	}
	return Advice(l)
}

// Validate checks that every label has a non-empty name and advisory.
// It is called once at startup.
func Validate() error {
	for _, l := range Labels {
		if strings.TrimSpace(labelNames[l]) == "" {
			return fmt.Errorf("%w: label %d has no name", ErrIncompleteTable, int(l))
		}
		if strings.TrimSpace(advisories[l]) == "" {
			return fmt.Errorf("%w: %s has no advisory", ErrIncompleteTable, l)
		}
		if strings.TrimSpace(library[l].Description) == "" {
			return fmt.Errorf("%w: %s has no library entry", ErrIncompleteTable, l)
		}
	}
	return nil
}
