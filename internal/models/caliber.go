package models

import (
	"fmt"
	"strings"
)

// Caliber is the difficulty and cost tier of a counterpart.
type Caliber string

const (
	CaliberLow    Caliber = "low"
	CaliberMedium Caliber = "medium"
	CaliberHigh   Caliber = "high"
)

// Calibers lists every tier in ascending order.
var Calibers = []Caliber{CaliberLow, CaliberMedium, CaliberHigh}

func (c Caliber) String() string {
	return string(c)
}

// Valid reports whether c is one of the known tiers.
func (c Caliber) Valid() bool {
	switch c {
	case CaliberLow, CaliberMedium, CaliberHigh:
		return true
	}
	return false
}

// ParseCaliber converts a config or flag value to a Caliber.
func ParseCaliber(s string) (Caliber, error) {
	c := Caliber(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return CaliberLow, fmt.Errorf("invalid caliber %q: must be low, medium, or high", s)
	}
	return c, nil
}
