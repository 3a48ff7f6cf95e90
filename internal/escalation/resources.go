package escalation

import (
	"strings"

	"github.com/coachwell-ai/coaching-engine/internal/model"
)

// ResourceDirectory maps locales to regional crisis resources. Static and
// configurable; not part of the hard safety core.
type ResourceDirectory struct {
	byRegion map[string][]model.Resource
	fallback []model.Resource
}

// NewResourceDirectory returns the built-in directory.
func NewResourceDirectory() *ResourceDirectory {
	return &ResourceDirectory{
		byRegion: map[string][]model.Resource{
			"us": {
				{Name: "988 Suicide & Crisis Lifeline", Phone: "988", Locale: "us"},
				{Name: "Crisis Text Line", Phone: "Text HOME to 741741", Locale: "us"},
			},
			"gb": {
				{Name: "Samaritans", Phone: "116 123", Locale: "gb"},
			},
			"ca": {
				{Name: "Talk Suicide Canada", Phone: "1-833-456-4566", Locale: "ca"},
			},
			"au": {
				{Name: "Lifeline Australia", Phone: "13 11 14", Locale: "au"},
			},
		},
		fallback: []model.Resource{
			{Name: "Find a Helpline", URL: "https://findahelpline.com", Locale: "intl"},
		},
	}
}

// ResourcesFor returns the hotline list for a locale such as "en-US", "us",
// or "GB", falling back to the international directory.
func (d *ResourceDirectory) ResourcesFor(locale string) []model.Resource {
	region := strings.ToLower(locale)
	if idx := strings.LastIndexAny(region, "-_"); idx >= 0 {
		region = region[idx+1:]
	}
	if resources, ok := d.byRegion[region]; ok {
		return resources
	}
	return d.fallback
}
