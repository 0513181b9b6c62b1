package model

// Profile carries caller-supplied personalization preferences. It is
// read-only shared context: every stage passes it through unmodified.
type Profile struct {
	ExpertiseLevel   string   `json:"expertise_level" yaml:"expertise_level"`
	ResponseStyle    string   `json:"response_style" yaml:"response_style"`
	DepthPreference  string   `json:"depth_preference" yaml:"depth_preference"`
	FocusAreas       []string `json:"focus_areas,omitempty" yaml:"focus_areas"`
	PreferredSources []string `json:"preferred_sources,omitempty" yaml:"preferred_sources"`
	TimeSensitivity  string   `json:"time_sensitivity" yaml:"time_sensitivity"`
	Location         string   `json:"location,omitempty" yaml:"location"`
}

// DefaultProfile returns the profile used when the caller supplies none.
func DefaultProfile() *Profile {
	return &Profile{
		ExpertiseLevel:  "intermediate",
		ResponseStyle:   "balanced",
		DepthPreference: "moderate",
		TimeSensitivity: "moderate",
	}
}
