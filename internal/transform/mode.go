package transform

import (
	"encoding/json"
	"strings"
)

// Mode selects the transformation model to estimate.
type Mode int

const (
	// Rigid is rotation plus translation.
	Rigid Mode = iota
	// Similarity adds one uniform scale factor to Rigid.
	Similarity
	// Affine is the full 6-parameter model.
	Affine
)

// ParseMode parses "rigid", "similarity" or "affine", ignoring case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rigid":
		return Rigid, nil
	case "similarity":
		return Similarity, nil
	case "affine":
		return Affine, nil
	}
	return 0, newError(InvalidInput,
		"unknown transform mode %q, use 'rigid', 'similarity' or 'affine'", s)
}

func (m Mode) String() string {
	switch m {
	case Rigid:
		return "rigid"
	case Similarity:
		return "similarity"
	case Affine:
		return "affine"
	default:
		return "unknown"
	}
}

// MinPoints returns the number of correspondences the mode needs.
func (m Mode) MinPoints() int {
	if m == Affine {
		return 3
	}
	return 2
}

// MarshalJSON encodes the mode as its name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts the mode name.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
