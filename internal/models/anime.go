package models

// SubOrDub describes which audio/subtitle tracks an anime is available in.
// The zero value means the availability could not be determined.
type SubOrDub string

const (
	SubOrDubUnknown SubOrDub = ""
	Sub             SubOrDub = "sub"
	Dub             SubOrDub = "dub"
	Both            SubOrDub = "both"
	// SoftSub is only meaningful as a track preference when resolving servers
	SoftSub SubOrDub = "softsub"
)

// ParseSubOrDub maps a request parameter to a track preference, defaulting to Sub
func ParseSubOrDub(s string) SubOrDub {
	switch SubOrDub(s) {
	case Dub:
		return Dub
	case SoftSub:
		return SoftSub
	case Both:
		return Both
	default:
		return Sub
	}
}

// AvailabilityFor derives the availability from the sub and dub episode counters
func AvailabilityFor(subCount, dubCount int) SubOrDub {
	switch {
	case subCount > 0 && dubCount > 0:
		return Both
	case subCount > 0:
		return Sub
	case dubCount > 0:
		return Dub
	default:
		return SubOrDubUnknown
	}
}

// Relation is a related anime together with how it relates (sequel, prequel, ...)
type Relation struct {
	CatalogEntry
	Kind string `json:"relationType,omitempty"`
}

// AnimeDetail is the full record built from an anime's watch page and its episode list
type AnimeDetail struct {
	CatalogEntry
	Episodes        []Episode      `json:"episodes"`
	TotalEpisodes   int            `json:"totalEpisodes"`
	Season          string         `json:"season,omitempty"`
	Status          MediaStatus    `json:"status,omitempty"`
	SubOrDub        SubOrDub       `json:"subOrDub,omitempty"`
	HasSub          bool           `json:"hasSub"`
	HasDub          bool           `json:"hasDub"`
	Recommendations []CatalogEntry `json:"recommendations"`
	Relations       []Relation     `json:"relations"`
}

// SetCounts stores the sub/dub counters and recomputes the derived availability fields
func (a *AnimeDetail) SetCounts(subCount, dubCount int) {
	a.SubCount = subCount
	a.DubCount = dubCount
	a.HasSub = subCount > 0
	a.HasDub = dubCount > 0
	a.SubOrDub = AvailabilityFor(subCount, dubCount)
}

// Clone returns a deep copy of the detail record
func (a *AnimeDetail) Clone() *AnimeDetail {
	if a == nil {
		return nil
	}
	out := *a
	out.CatalogEntry = a.CatalogEntry.Clone()
	out.Episodes = append([]Episode(nil), a.Episodes...)
	out.Recommendations = make([]CatalogEntry, len(a.Recommendations))
	for i := range a.Recommendations {
		out.Recommendations[i] = a.Recommendations[i].Clone()
	}
	out.Relations = make([]Relation, len(a.Relations))
	for i := range a.Relations {
		out.Relations[i] = Relation{CatalogEntry: a.Relations[i].CatalogEntry.Clone(), Kind: a.Relations[i].Kind}
	}
	if out.Episodes == nil {
		out.Episodes = []Episode{}
	}
	return &out
}
