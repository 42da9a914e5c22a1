package advisory

// Entry describes one crop health state for the disease library.
type Entry struct {
	Label       Label  `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Treatment   string `json:"treatment"`
	Advice      string `json:"advice"`
}

type libraryEntry struct {
	Description string
	Treatment   string
}

var library = [...]libraryEntry{
	Healthy: {
		Description: "The crop is healthy.",
		Treatment:   "No treatment needed. Keep monitoring the crop regularly.",
	},
	LeafBlast: {
		Description: "Leaf Blast is a common disease affecting rice crops. Symptoms include large, oval lesions on leaves, which eventually turn grayish-brown.",
		Treatment:   "Apply fungicides and improve irrigation management.",
	},
	BrownSpot: {
		Description: "Brown Spot causes small, brown lesions on leaves. It is often caused by improper fertilization.",
		Treatment:   "Use resistant varieties and apply proper fertilizers.",
	},
	SheathBlight: {
		Description: "Sheath Blight causes lesions on the sheaths of rice plants. It is often exacerbated by high humidity.",
		Treatment:   "Apply fungicides and manage water levels carefully.",
	},
}

var _ = [1]struct{}{}[len(library)-Count]

// Library returns the disease library. Diseases come first, in the order the
// library page lists them, and Healthy last.
func Library() []Entry {
	order := []Label{LeafBlast, BrownSpot, SheathBlight, Healthy}
	entries := make([]Entry, 0, len(order))
	for _, l := range order {
		entries = append(entries, Entry{
			Label:       l,
			Name:        l.String(),
			Description: library[l].Description,
			Treatment:   library[l].Treatment,
			Advice:      Advice(l),
		})
	}
	return entries
}
