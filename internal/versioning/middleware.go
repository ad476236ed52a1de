package versioning

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	VersionContextKey contextKey = "api_version"
	InfoContextKey    contextKey = "version_info"
)

// Version negotiation headers. Clients may pin a version per request;
// responses always advertise what the server speaks.
const (
	AcceptVersionHeader = "Accept-Version"
	APIVersionHeader    = "X-API-Version"

	CurrentVersionHeader     = "X-Current-Version"
	SupportedVersionsHeader  = "X-Supported-Versions"
	DeprecationWarningHeader = "X-Deprecation-Warning"
)

// versionErrorBody matches the envelope the rest of the API emits.
type versionErrorBody struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error"`
	Detail  VersionCompatibility `json:"detail"`
}

// VersionMiddleware negotiates the API version for each request.
type VersionMiddleware struct {
	logger *logrus.Logger
}

// NewVersionMiddleware creates a new version middleware
func NewVersionMiddleware(logger *logrus.Logger) *VersionMiddleware {
	return &VersionMiddleware{logger: logger}
}

// VersionHandler resolves the requested version, rejects unsupported
// ones, and stores the negotiation result in the request context.
func (vm *VersionMiddleware) VersionHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested := vm.extractVersionFromRequest(r)
		compat := CheckCompatibility(requested)

		vm.setVersionHeaders(w, compat)

		if !compat.Compatible {
			vm.rejectVersion(w, r, compat)
			return
		}

		ctx := context.WithValue(r.Context(), VersionContextKey, requested)
		ctx = context.WithValue(ctx, InfoContextKey, compat)

		if len(compat.Warnings) > 0 {
			vm.logger.WithFields(logrus.Fields{
				"api_version": requested.String(),
				"path":        r.URL.Path,
				"warnings":    compat.Warnings,
			}).Debug("Version negotiated with warnings")
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractVersionFromRequest resolves the version a client asked for.
// Accept-Version wins over X-API-Version, which wins over the URL path.
// Requests that name no version get the current one.
func (vm *VersionMiddleware) extractVersionFromRequest(r *http.Request) APIVersion {
	for _, header := range []string{AcceptVersionHeader, APIVersionHeader} {
		versionStr := r.Header.Get(header)
		if versionStr == "" {
			continue
		}
		if version, err := ParseVersion(versionStr); err == nil {
			return version
		}
		vm.logger.WithFields(logrus.Fields{
			"header":         header,
			"version_string": versionStr,
		}).Warn("Ignoring unparseable version header")
	}

	if version := vm.extractVersionFromPath(r.URL.Path); version.Major > 0 {
		return version
	}

	return CurrentVersion
}

// extractVersionFromPath recognizes /v1/, /api/v1.2/ style segments.
// Short forms are padded: v1 means 1.0.0, v1.2 means 1.2.0.
func (vm *VersionMiddleware) extractVersionFromPath(path string) APIVersion {
	for _, part := range strings.Split(path, "/") {
		if !strings.HasPrefix(part, "v") || len(part) < 2 {
			continue
		}

		versionStr := strings.TrimPrefix(part, "v")
		switch strings.Count(versionStr, ".") {
		case 0:
			versionStr += ".0.0"
		case 1:
			versionStr += ".0"
		}

		if version, err := ParseVersion(versionStr); err == nil {
			return version
		}
	}

	return APIVersion{}
}

func (vm *VersionMiddleware) setVersionHeaders(w http.ResponseWriter, compat VersionCompatibility) {
	w.Header().Set(CurrentVersionHeader, CurrentVersion.String())
	w.Header().Set(SupportedVersionsHeader, GetVersionRange())

	if len(compat.DeprecatedFeatures) > 0 {
		names := make([]string, len(compat.DeprecatedFeatures))
		for i, feature := range compat.DeprecatedFeatures {
			names[i] = feature.Name
		}
		w.Header().Set(DeprecationWarningHeader, strings.Join(names, ", "))
	}
}

func (vm *VersionMiddleware) rejectVersion(w http.ResponseWriter, r *http.Request, compat VersionCompatibility) {
	// 426 for versions we dropped, 501 for versions we have not shipped.
	statusCode := http.StatusBadRequest
	for _, msg := range compat.Errors {
		if strings.Contains(msg, "no longer supported") {
			statusCode = http.StatusUpgradeRequired
			break
		}
		if strings.Contains(msg, "not yet available") {
			statusCode = http.StatusNotImplemented
			break
		}
	}

	message := "API version incompatible"
	if len(compat.Errors) > 0 {
		message = compat.Errors[0]
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(versionErrorBody{Error: message, Detail: compat}); err != nil {
		vm.logger.WithError(err).Error("Failed to encode version error response")
	}

	vm.logger.WithFields(logrus.Fields{
		"requested_version": compat.Requested.String(),
		"current_version":   compat.Current.String(),
		"path":              r.URL.Path,
		"user_agent":        r.UserAgent(),
	}).Warn("Rejected incompatible API version")
}

// GetVersionFromContext extracts the negotiated API version.
func GetVersionFromContext(ctx context.Context) (APIVersion, bool) {
	version, ok := ctx.Value(VersionContextKey).(APIVersion)
	return version, ok
}

// GetVersionInfoFromContext extracts the compatibility result.
func GetVersionInfoFromContext(ctx context.Context) (VersionCompatibility, bool) {
	info, ok := ctx.Value(InfoContextKey).(VersionCompatibility)
	return info, ok
}

// FeatureGate reports whether the negotiated version includes a feature.
// Requests without a negotiated version see no gated features.
func FeatureGate(ctx context.Context, featureName string) bool {
	version, ok := GetVersionFromContext(ctx)
	if !ok {
		return false
	}

	feature, exists := GetFeature(featureName)
	if !exists {
		return false
	}

	return version.SupportsFeature(feature.IntroducedIn) &&
		(feature.RemovedIn.Major == 0 || version.Compare(feature.RemovedIn) < 0)
}

// RequireFeature rejects requests whose negotiated version predates the
// named feature.
func RequireFeature(featureName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FeatureGate(r.Context(), featureName) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotImplemented)

				body := map[string]interface{}{
					"success": false,
					"error":   "Feature " + featureName + " is not available in the requested API version",
					"feature": featureName,
				}
				_ = json.NewEncoder(w).Encode(body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
