package models

// MenuIndexEntry is one orderable catalog entry.
type MenuIndexEntry struct {
	ID        string              `json:"id" firestore:"id"`
	Name      string              `json:"name" firestore:"name" binding:"required"`
	Names     map[Language]string `json:"names" firestore:"names"`
	Category  string              `json:"category" firestore:"category"`
	Price     float64             `json:"price" firestore:"price"`
	Aliases   []string            `json:"aliases" firestore:"aliases"`
	Available bool                `json:"available" firestore:"available"`
	Upsell    bool                `json:"upsell" firestore:"upsell"`
}

// LocalizedName returns the entry name in lang, falling back to the canonical name.
func (e MenuIndexEntry) LocalizedName(lang Language) string {
	if n, ok := e.Names[lang]; ok && n != "" {
		return n
	}
	return e.Name
}

type MatchStrategy string

const (
	MatchExact    MatchStrategy = "exact"
	MatchAlias    MatchStrategy = "alias"
	MatchFuzzy    MatchStrategy = "fuzzy"
	MatchPhonetic MatchStrategy = "phonetic"
)

type MenuMatch struct {
	Item        MenuIndexEntry `json:"item"`
	Confidence  float64        `json:"confidence"`
	Strategy    MatchStrategy  `json:"strategy"`
	MatchedTerm string         `json:"matched_term"`
}

type QuantityResult struct {
	Quantity int    `json:"quantity"`
	ItemText string `json:"item_text"`
}

type ModificationResult struct {
	Modifications []string `json:"modifications"`
	ItemText      string   `json:"item_text"`
}
