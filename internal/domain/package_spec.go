package domain

import (
	"fmt"
	"strings"
)

type PackageCategory string

const (
	CategorySmall  PackageCategory = "small"
	CategoryMedium PackageCategory = "medium"
	CategoryLarge  PackageCategory = "large"
)

// DefaultWeightKg is the weight a category implies until the user edits it.
func (c PackageCategory) DefaultWeightKg() float64 {
	switch c {
	case CategorySmall:
		return 2
	case CategoryMedium:
		return 5
	case CategoryLarge:
		return 10
	}
	return 0
}

func (c PackageCategory) Valid() bool { return c.DefaultWeightKg() > 0 }

func ParseCategory(s string) (PackageCategory, error) {
	c := PackageCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("parse category %q: %w", s, ErrInvalidInput)
	}
	return c, nil
}

// Urgency is the requested delivery speed tier. Higher tiers cost more and
// arrive sooner.
type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyExpress  Urgency = "express"
	UrgencyUrgent   Urgency = "urgent"
)

// CostMultiplier scales the base price of a delivery.
func (u Urgency) CostMultiplier() float64 {
	switch u {
	case UrgencyStandard:
		return 1.0
	case UrgencyExpress:
		return 1.5
	case UrgencyUrgent:
		return 2.0
	}
	return 0
}

// TimeFactor scales the base travel time of a delivery.
func (u Urgency) TimeFactor() float64 {
	switch u {
	case UrgencyStandard:
		return 1.0
	case UrgencyExpress:
		return 0.7
	case UrgencyUrgent:
		return 0.5
	}
	return 0
}

func (u Urgency) Valid() bool { return u.CostMultiplier() > 0 }

func ParseUrgency(s string) (Urgency, error) {
	u := Urgency(strings.ToLower(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("parse urgency %q: %w", s, ErrInvalidInput)
	}
	return u, nil
}

// PackageSpec describes what is being shipped and how fast.
type PackageSpec struct {
	Category PackageCategory
	WeightKg float64
	Urgency  Urgency
	Insured  bool
}

// NewPackageSpec returns a spec with the category's default weight and
// standard urgency.
func NewPackageSpec(c PackageCategory) PackageSpec {
	return PackageSpec{
		Category: c,
		WeightKg: c.DefaultWeightKg(),
		Urgency:  UrgencyStandard,
	}
}

func (p PackageSpec) Validate() error {
	if !(p.WeightKg > 0) {
		return fmt.Errorf("package spec: weight %v kg: %w", p.WeightKg, ErrInvalidWeight)
	}
	if p.Category != "" && !p.Category.Valid() {
		return fmt.Errorf("package spec: category %q: %w", p.Category, ErrInvalidInput)
	}
	if !p.Urgency.Valid() {
		return fmt.Errorf("package spec: urgency %q: %w", p.Urgency, ErrInvalidInput)
	}
	return nil
}
