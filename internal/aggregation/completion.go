// Package aggregation derives read-only views from the entity store: profile
// completion, dashboard summary counts, and job recommendation projection.
// Everything here is pure and re-derivable; nothing is a source of truth.
package aggregation

import (
	"math"

	"github.com/jonathan/applypilot/internal/types"
)

// requiredProfileFields is the number of fields counted toward completion:
// name, desired title, location, salary min, salary max, skills, and a
// current resume.
const requiredProfileFields = 7

// ProfileCompletion returns the percentage of required profile fields that
// are non-empty, rounded to the nearest whole number. A field counts purely
// by non-emptiness; semantic validation happened at write time.
func ProfileCompletion(profile *types.Profile, hasResume bool) int {
	filled := 0
	if profile != nil {
		if profile.FullName != "" {
			filled++
		}
		if profile.DesiredTitle != "" {
			filled++
		}
		if profile.Location != "" {
			filled++
		}
		if profile.SalaryMin > 0 {
			filled++
		}
		if profile.SalaryMax > 0 {
			filled++
		}
		if profile.Skills != "" {
			filled++
		}
	}
	if hasResume {
		filled++
	}
	return int(math.Round(float64(filled) / requiredProfileFields * 100))
}
