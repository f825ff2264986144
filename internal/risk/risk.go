// Package risk defines the named risk profiles that bound position sizing.
package risk

import (
	"fmt"
	"strings"
)

// DefaultProfile is the fallback used when an unknown profile name is requested.
const DefaultProfile = "moderate"

// Profile pairs a volatility threshold with the largest cash fraction a single
// buy may commit.
type Profile struct {
	Threshold           float64 `yaml:"threshold"`
	MaxPositionFraction float64 `yaml:"max_position_fraction"`
}

// Profiles maps profile name to its parameters.
type Profiles map[string]Profile

// DefaultProfiles returns the aggressive/moderate/conservative presets.
func DefaultProfiles() Profiles {
	return Profiles{
		"aggressive":   {Threshold: 0.00005, MaxPositionFraction: 0.6},
		"moderate":     {Threshold: 0.0005, MaxPositionFraction: 0.4},
		"conservative": {Threshold: 0.001, MaxPositionFraction: 0.2},
	}
}

// Lookup resolves a profile by name, falling back to moderate when the name is
// unknown. The resolved name is returned alongside the profile.
func (p Profiles) Lookup(name string) (string, Profile) {
	name = strings.ToLower(strings.TrimSpace(name))
	if profile, ok := p[name]; ok {
		return name, profile
	}
	return DefaultProfile, p[DefaultProfile]
}

// Validate rejects malformed profile tables. Called once at construction so a
// bad profile never surfaces mid-simulation.
func (p Profiles) Validate() error {
	if _, ok := p[DefaultProfile]; !ok {
		return fmt.Errorf("risk profiles missing %q fallback", DefaultProfile)
	}
	for name, profile := range p {
		if profile.Threshold <= 0 {
			return fmt.Errorf("risk profile %q: threshold must be positive", name)
		}
		if profile.MaxPositionFraction <= 0 || profile.MaxPositionFraction > 1 {
			return fmt.Errorf("risk profile %q: max position fraction must be in (0,1]", name)
		}
	}
	return nil
}
