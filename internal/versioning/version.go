package versioning

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// APIVersion is a semantic version of the HTTP API surface.
type APIVersion struct {
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	Prerelease string `json:"prerelease,omitempty"`
}

func (v APIVersion) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare orders versions per semver: numeric fields first, then
// prerelease, where a release sorts above any prerelease of the same
// number. Returns -1, 0 or 1.
func (v APIVersion) Compare(other APIVersion) int {
	pairs := [3][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	}
	for _, p := range pairs {
		switch {
		case p[0] < p[1]:
			return -1
		case p[0] > p[1]:
			return 1
		}
	}

	switch {
	case v.Prerelease == other.Prerelease:
		return 0
	case v.Prerelease == "":
		return 1
	case other.Prerelease == "":
		return -1
	case v.Prerelease < other.Prerelease:
		return -1
	default:
		return 1
	}
}

// IsCompatible reports whether this version can serve requests made
// against target: same major line, and at least as new.
func (v APIVersion) IsCompatible(target APIVersion) bool {
	return v.Major == target.Major && v.Compare(target) >= 0
}

// SupportsFeature reports whether a feature introduced in featureVersion
// is present in this version.
func (v APIVersion) SupportsFeature(featureVersion APIVersion) bool {
	return v.Compare(featureVersion) >= 0
}

var (
	V1_0_0 = APIVersion{Major: 1}
	V1_1_0 = APIVersion{Major: 1, Minor: 1}
	V1_2_0 = APIVersion{Major: 1, Minor: 2}
	V2_0_0 = APIVersion{Major: 2}
)

// CurrentVersion is the version this build serves.
var CurrentVersion = V1_2_0

// MinimumSupportedVersion is the oldest version still negotiable.
var MinimumSupportedVersion = V1_0_0

// ParseVersion parses "major.minor.patch" with an optional
// "-prerelease" suffix.
func ParseVersion(versionStr string) (APIVersion, error) {
	core, prerelease, _ := strings.Cut(versionStr, "-")

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return APIVersion{}, fmt.Errorf("invalid version format: %s", versionStr)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || (len(part) > 1 && part[0] == '0') {
			return APIVersion{}, fmt.Errorf("invalid version format: %s", versionStr)
		}
		nums[i] = n
	}

	if strings.Contains(versionStr, "-") && prerelease == "" {
		return APIVersion{}, fmt.Errorf("invalid version format: %s", versionStr)
	}

	return APIVersion{Major: nums[0], Minor: nums[1], Patch: nums[2], Prerelease: prerelease}, nil
}

// VersionInfo is the payload of the version endpoint.
type VersionInfo struct {
	API       APIVersion `json:"api_version"`
	Build     string     `json:"build_version"`
	Commit    string     `json:"git_commit,omitempty"`
	BuildTime time.Time  `json:"build_time"`
	GoVersion string     `json:"go_version"`
}

// DefaultVersionInfo reports the running build. Build and Commit are
// overwritten by the caller when ldflags carry real values.
func DefaultVersionInfo() VersionInfo {
	return VersionInfo{
		API:       CurrentVersion,
		Build:     CurrentVersion.String(),
		BuildTime: time.Now(),
		GoVersion: runtime.Version(),
	}
}

// FeatureVersion records the lifecycle of one API capability.
type FeatureVersion struct {
	Name         string     `json:"name"`
	IntroducedIn APIVersion `json:"introduced_in"`
	DeprecatedIn APIVersion `json:"deprecated_in,omitempty"`
	RemovedIn    APIVersion `json:"removed_in,omitempty"`
	ReplacedBy   string     `json:"replaced_by,omitempty"`
	Description  string     `json:"description"`
}

func (f FeatureVersion) removed(version APIVersion) bool {
	return f.RemovedIn.Major > 0 && version.Compare(f.RemovedIn) >= 0
}

// APIFeatures is the registry of capabilities by the version that
// introduced them.
var APIFeatures = []FeatureVersion{
	{
		Name:         "message_search",
		IntroducedIn: V1_0_0,
		Description:  "Full-text and filtered search over the message store",
	},
	{
		Name:         "message_context",
		IntroducedIn: V1_0_0,
		Description:  "Chronological context windows around a message",
	},
	{
		Name:         "media_download",
		IntroducedIn: V1_0_0,
		Description:  "On-demand media retrieval through the bridge",
	},
	{
		Name:         "chat_previews",
		IntroducedIn: V1_1_0,
		Description:  "Last-message previews on chat listings",
	},
	{
		Name:         "structured_errors",
		IntroducedIn: V1_1_0,
		Description:  "Structured error responses with error codes",
	},
	{
		Name:         "metrics_endpoint",
		IntroducedIn: V1_1_0,
		Description:  "Metrics and observability endpoint",
	},
	{
		Name:         "feature_flags",
		IntroducedIn: V1_2_0,
		Description:  "Feature flag management and runtime toggling",
	},
	{
		Name:         "api_versioning",
		IntroducedIn: V1_2_0,
		Description:  "API versioning and backwards compatibility",
	},
	{
		Name:         "store_stats",
		IntroducedIn: V1_2_0,
		Description:  "Row-count statistics for the message store",
	},
	{
		Name:         "plain_errors",
		IntroducedIn: V1_0_0,
		DeprecatedIn: V1_1_0,
		RemovedIn:    V2_0_0,
		ReplacedBy:   "structured_errors",
		Description:  "Unstructured plain-text error responses",
	},
}

// GetFeature looks a feature up by name.
func GetFeature(name string) (*FeatureVersion, bool) {
	for i := range APIFeatures {
		if APIFeatures[i].Name == name {
			return &APIFeatures[i], true
		}
	}
	return nil, false
}

// GetSupportedFeatures returns the features a given version carries:
// introduced at or before it and not yet removed from it.
func GetSupportedFeatures(version APIVersion) []FeatureVersion {
	var supported []FeatureVersion
	for _, feature := range APIFeatures {
		if version.SupportsFeature(feature.IntroducedIn) && !feature.removed(version) {
			supported = append(supported, feature)
		}
	}
	return supported
}

// GetDeprecatedFeatures returns features deprecated but still present in
// the given version.
func GetDeprecatedFeatures(version APIVersion) []FeatureVersion {
	var deprecated []FeatureVersion
	for _, feature := range APIFeatures {
		if feature.DeprecatedIn.Major > 0 &&
			version.SupportsFeature(feature.DeprecatedIn) &&
			!feature.removed(version) {
			deprecated = append(deprecated, feature)
		}
	}
	return deprecated
}

// VersionCompatibility is the negotiation result for one requested
// version.
type VersionCompatibility struct {
	Requested          APIVersion       `json:"requested_version"`
	Current            APIVersion       `json:"current_version"`
	MinimumSupported   APIVersion       `json:"minimum_supported"`
	Compatible         bool             `json:"compatible"`
	SupportedFeatures  []FeatureVersion `json:"supported_features"`
	DeprecatedFeatures []FeatureVersion `json:"deprecated_features,omitempty"`
	Warnings           []string         `json:"warnings,omitempty"`
	Errors             []string         `json:"errors,omitempty"`
}

// CheckCompatibility evaluates a requested version against the supported
// range and fills in feature and deprecation detail for compatible ones.
func CheckCompatibility(requestedVersion APIVersion) VersionCompatibility {
	compat := VersionCompatibility{
		Requested:        requestedVersion,
		Current:          CurrentVersion,
		MinimumSupported: MinimumSupportedVersion,
	}

	if requestedVersion.Compare(MinimumSupportedVersion) < 0 {
		compat.Errors = append(compat.Errors,
			fmt.Sprintf("Version %s is no longer supported. Minimum supported version is %s",
				requestedVersion, MinimumSupportedVersion))
		return compat
	}

	if requestedVersion.Major > CurrentVersion.Major {
		compat.Errors = append(compat.Errors,
			fmt.Sprintf("Version %s is not yet available. Current version is %s",
				requestedVersion, CurrentVersion))
		return compat
	}

	compat.Compatible = true
	compat.SupportedFeatures = GetSupportedFeatures(requestedVersion)
	compat.DeprecatedFeatures = GetDeprecatedFeatures(requestedVersion)

	for _, feature := range compat.DeprecatedFeatures {
		warning := fmt.Sprintf("Feature '%s' is deprecated", feature.Name)
		if feature.RemovedIn.Major > 0 {
			warning += fmt.Sprintf(" and will be removed in version %s", feature.RemovedIn)
		}
		if feature.ReplacedBy != "" {
			warning += fmt.Sprintf(". Use '%s' instead", feature.ReplacedBy)
		}
		compat.Warnings = append(compat.Warnings, warning)
	}

	if requestedVersion.Compare(CurrentVersion) < 0 {
		compat.Warnings = append(compat.Warnings,
			fmt.Sprintf("You are using version %s. Consider upgrading to %s for latest features",
				requestedVersion, CurrentVersion))
	}

	return compat
}

// IsVersionSupported reports whether a version falls inside the
// negotiable range.
func IsVersionSupported(version APIVersion) bool {
	return version.Compare(MinimumSupportedVersion) >= 0 &&
		version.Major <= CurrentVersion.Major
}

// GetVersionRange renders the negotiable range for response headers.
func GetVersionRange() string {
	return fmt.Sprintf("%s - %s", MinimumSupportedVersion, CurrentVersion)
}
