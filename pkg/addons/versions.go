// Package addons sorts addon versions and builds version changes per
// environment.
package addons

import (
	"sort"

	"github.com/Masterminds/semver"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// Environments an addon version can be active in.
const (
	Production = "production"
	Staging    = "staging"
)

// CompareVersions orders two version strings. Valid semantic versions compare
// by precedence; anything unparsable sorts before them and lexically among
// itself.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c
		}
		return compareStrings(a, b)
	case errA != nil && errB != nil:
		return compareStrings(a, b)
	case errA != nil:
		return -1
	default:
		return 1
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortVersions returns the versions in ascending order.
func SortVersions(versions []string) []string {
	out := append([]string(nil), versions...)
	sort.SliceStable(out, func(i, j int) bool {
		return CompareVersions(out[i], out[j]) < 0
	})
	return out
}

// Latest returns the highest installed version of an addon, or "" when none
// is installed.
func Latest(addon models.Addon) string {
	versions := Versions(addon)
	if len(versions) == 0 {
		return ""
	}
	return versions[len(versions)-1]
}

// Versions returns the installed versions of an addon in ascending order.
func Versions(addon models.Addon) []string {
	names := make([]string, 0, len(addon.Versions))
	for v := range addon.Versions {
		names = append(names, v)
	}
	return SortVersions(names)
}

// ActiveVersion returns the version enabled in env, or "".
func ActiveVersion(addon models.Addon, env string) string {
	var v *string
	switch env {
	case Production:
		v = addon.ProductionVersion
	case Staging:
		v = addon.StagingVersion
	}
	if v == nil {
		return ""
	}
	return *v
}

// Row is an addon as listed for one environment.
type Row struct {
	Name          string
	Title         string
	Version       string
	LatestVersion string
}

// ForEnvironment lists the addons active in env. With showAll, inactive
// addons are listed too with an empty version.
func ForEnvironment(list []models.Addon, env string, showAll bool) []Row {
	var rows []Row
	for _, a := range list {
		active := ActiveVersion(a, env)
		if active == "" && !showAll {
			continue
		}
		rows = append(rows, Row{
			Name:          a.Name,
			Title:         a.Title,
			Version:       active,
			LatestVersion: Latest(a),
		})
	}
	return rows
}
