package ranking

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/ezpogue/IRProjectPhase2/internal/errors"
)

// WeightProfile weights the three components of the final score.
type WeightProfile struct {
	Name            string  `json:"name" yaml:"-"`
	UpvoteWeight    float64 `json:"upvote_weight" yaml:"upvote_weight"`
	TimeWeight      float64 `json:"time_weight" yaml:"time_weight"`
	RelevanceWeight float64 `json:"relevance_weight" yaml:"relevance_weight"`
	Builtin         bool    `json:"builtin" yaml:"-"`
}

// Validate checks that every weight is within [0, 1].
func (w WeightProfile) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"upvote_weight", w.UpvoteWeight},
		{"time_weight", w.TimeWeight},
		{"relevance_weight", w.RelevanceWeight},
	}
	for _, wt := range weights {
		if wt.value < 0 || wt.value > 1 {
			return fmt.Errorf("profile %q: %s must be within [0, 1], got %v", w.Name, wt.name, wt.value)
		}
	}
	return nil
}

// Built-in profile names.
const (
	ProfileRelevance = "relevance"
	ProfileUpvotes   = "upvotes"
	ProfileTime      = "time"
)

// BuiltinProfiles returns the three built-in weight profiles.
func BuiltinProfiles() []WeightProfile {
	return []WeightProfile{
		{Name: ProfileRelevance, UpvoteWeight: 0.1, TimeWeight: 0.1, RelevanceWeight: 0.8, Builtin: true},
		{Name: ProfileUpvotes, UpvoteWeight: 0.8, TimeWeight: 0.1, RelevanceWeight: 0.1, Builtin: true},
		{Name: ProfileTime, UpvoteWeight: 0.1, TimeWeight: 0.8, RelevanceWeight: 0.1, Builtin: true},
	}
}

// Profiles is an immutable table of weight profiles. Names are case-insensitive.
type Profiles struct {
	byName map[string]WeightProfile
}

// NewProfiles returns the built-in profiles plus custom. A custom profile may not reuse a
// built-in name, and every weight must be within [0, 1].
func NewProfiles(custom map[string]WeightProfile) (*Profiles, error) {
	p := &Profiles{byName: make(map[string]WeightProfile)}
	for _, wp := range BuiltinProfiles() {
		p.byName[wp.Name] = wp
	}
	for name, wp := range custom {
		key := normalizeProfileName(name)
		if key == "" {
			return nil, fmt.Errorf("profile name must not be empty")
		}
		if existing, ok := p.byName[key]; ok {
			if existing.Builtin {
				return nil, fmt.Errorf("profile %q is built-in and cannot be redefined", key)
			}
			return nil, fmt.Errorf("profile %q is defined twice", key)
		}
		wp.Name = key
		wp.Builtin = false
		if err := wp.Validate(); err != nil {
			return nil, err
		}
		p.byName[key] = wp
	}
	return p, nil
}

// DefaultProfiles returns just the built-in profiles.
func DefaultProfiles() *Profiles {
	p, _ := NewProfiles(nil)
	return p
}

// Lookup returns the profile called name or an UnknownWeightProfile error.
func (p *Profiles) Lookup(name string) (WeightProfile, error) {
	wp, ok := p.byName[normalizeProfileName(name)]
	if !ok {
		return WeightProfile{}, apperrors.NewUnknownWeightProfileError(name)
	}
	return wp, nil
}

// Has reports whether a profile called name exists.
func (p *Profiles) Has(name string) bool {
	_, ok := p.byName[normalizeProfileName(name)]
	return ok
}

// List returns every profile sorted by name.
func (p *Profiles) List() []WeightProfile {
	out := make([]WeightProfile, 0, len(p.byName))
	for _, wp := range p.byName {
		out = append(out, wp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalizeProfileName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
