package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// CheckVersionCompatibility checks an engine version against the version a run
// configuration pins. Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - A required value with an operator (^, ~, >, <, =, x, comma) is a semver constraint
//   - Otherwise major and minor versions must match exactly and patch versions can differ
//
// Examples:
//   - Engine 1.2.0, Required 1.2.0 -> OK (exact match)
//   - Engine 1.2.1, Required 1.2.0 -> OK (patch differs)
//   - Engine 1.3.0, Required 1.2.0 -> ERROR (minor differs)
//   - Engine 1.3.0, Required ^1.2 -> OK (constraint)
//   - Engine main, Required 1.2.0 -> OK (dev build, skip check)
func CheckVersionCompatibility(engineVersion, requiredVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	requiredVersion = strings.TrimPrefix(strings.TrimSpace(requiredVersion), "v")

	if engineVersion == "main" || requiredVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version '%s'", engineVersion)
	}

	if isConstraint(requiredVersion) {
		constraint, err := semver.NewConstraint(requiredVersion)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid required version '%s'", requiredVersion)
		}

		if ok, reasons := constraint.Validate(engineSemver); !ok {
			return errors.Newf(errors.ErrCodeVersionMismatch, "engine %s does not satisfy %s: %v",
				engineSemver, requiredVersion, reasons)
		}

		return nil
	}

	requiredSemver, err := semver.NewVersion(requiredVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid required version '%s'", requiredVersion)
	}

	if engineSemver.Major() != requiredSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: engine is %d.x.x but config requires %d.x.x",
			engineSemver.Major(), requiredSemver.Major())
	}

	if engineSemver.Minor() != requiredSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "minor version mismatch: engine is %d.%d.x but config requires %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			requiredSemver.Major(), requiredSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}

func isConstraint(version string) bool {
	return strings.ContainsAny(version, "^~<>=,*| ") || strings.Contains(version, "x")
}
