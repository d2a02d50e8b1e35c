package models

// Skip represents an intro or outro interval, in seconds
type Skip struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether the interval has a positive length
func (s Skip) Valid() bool {
	return s.Start >= 0 && s.End > s.Start
}
