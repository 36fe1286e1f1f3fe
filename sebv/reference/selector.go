package reference

import (
	"strings"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

// Select returns the first candidate whose version equals version
// (case-insensitively) and whose platform equals platform.
func Select(version string, platform trees.Platform, candidates []*trees.Snapshot) (*trees.Snapshot, error) {
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if strings.EqualFold(candidate.Version, version) && candidate.Platform == platform {
			return candidate, nil
		}
	}
	return nil, &NoMatchError{Version: version, Platform: platform}
}
