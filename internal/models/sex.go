package models

import (
	"fmt"
	"strings"
)

// Sex is the binary sex of an individual.
type Sex int

const (
	// Male is the zero value.
	Male Sex = iota
	Female
)

// Sexes lists both values in index order, for per-sex tallies.
var Sexes = [2]Sex{Male, Female}

// String returns "male" or "female".
func (s Sex) String() string {
	if s == Female {
		return "female"
	}
	return "male"
}

// Valid returns true if s is Male or Female.
func (s Sex) Valid() bool {
	return s == Male || s == Female
}

// ParseSex maps "male"/"female" (case-insensitive, also "m"/"f") to a Sex.
func ParseSex(v string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "male", "m":
		return Male, nil
	case "female", "f":
		return Female, nil
	}
	return Male, fmt.Errorf("invalid sex: %q (valid: male, female)", v)
}

// MarshalText encodes the sex as "male" or "female".
func (s Sex) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "male" or "female".
func (s *Sex) UnmarshalText(b []byte) error {
	v, err := ParseSex(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
