// Package version parses, normalizes and orders NuGet package versions.
//
// NuGet versions follow semantic versioning extended with an optional
// fourth numeric part (Major.Minor.Patch.Revision). Precedence compares
// the numeric parts first and release labels only when those are equal,
// so 1.0.0.5-beta sorts above 1.0.0.
package version

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/depscout/depscout/pkg/errors"
)

// Filter selects which versions participate in latest-version resolution.
type Filter int

const (
	// Stable considers release versions only.
	Stable Filter = iota

	// IncludingPrerelease considers release and prerelease versions.
	IncludingPrerelease
)

// String returns the filter name for logs and flags.
func (f Filter) String() string {
	switch f {
	case Stable:
		return "stable"
	case IncludingPrerelease:
		return "prerelease"
	default:
		return fmt.Sprintf("Filter(%d)", int(f))
	}
}

// Version is a parsed NuGet package version.
type Version struct {
	sv       *semver.Version
	revision uint64
}

// Parse parses a NuGet version string. Four-part versions have their
// revision split off before semver parsing; one- and two-part versions
// are zero-extended.
func Parse(s string) (*Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, errors.New(errors.ErrCodeInvalidVersion, "empty version")
	}

	core, rest := splitRelease(trimmed)
	var revision uint64
	if parts := strings.Split(core, "."); len(parts) == 4 {
		rev, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version %q", s)
		}
		revision = rev
		core = strings.Join(parts[:3], ".")
	}

	sv, err := semver.NewVersion(core + rest)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version %q", s)
	}
	return &Version{sv: sv, revision: revision}, nil
}

// MustParse parses a version string and panics on failure. For tests
// and compile-time constants only.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// splitRelease splits a version string at the start of its prerelease
// or build metadata suffix.
func splitRelease(s string) (core, rest string) {
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

// IsPrerelease reports whether the version carries a release label.
func (v *Version) IsPrerelease() bool {
	return v.sv.Prerelease() != ""
}

// Compare returns -1, 0 or 1 if v is less than, equal to or greater
// than o. Numeric parts take precedence over release labels.
func (v *Version) Compare(o *Version) int {
	if c := cmp.Compare(v.sv.Major(), o.sv.Major()); c != 0 {
		return c
	}
	if c := cmp.Compare(v.sv.Minor(), o.sv.Minor()); c != 0 {
		return c
	}
	if c := cmp.Compare(v.sv.Patch(), o.sv.Patch()); c != 0 {
		return c
	}
	if c := cmp.Compare(v.revision, o.revision); c != 0 {
		return c
	}
	return v.sv.Compare(o.sv)
}

// String returns the normalized version string: Major.Minor.Patch with
// the revision appended when non-zero and the release label preserved.
// Build metadata is dropped, matching registry normalization.
func (v *Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.sv.Major(), v.sv.Minor(), v.sv.Patch())
	if v.revision > 0 {
		fmt.Fprintf(&b, ".%d", v.revision)
	}
	if pre := v.sv.Prerelease(); pre != "" {
		b.WriteByte('-')
		b.WriteString(pre)
	}
	return b.String()
}

// Normalize parses and re-renders a version string in normalized form.
func Normalize(s string) (string, error) {
	v, err := Parse(s)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Latest returns the highest version admitted by the filter, in
// normalized form. Unparseable entries are skipped. The second return
// is false when no version qualifies.
func Latest(versions []string, filter Filter) (string, bool) {
	var best *Version
	for _, raw := range versions {
		v, err := Parse(raw)
		if err != nil {
			continue
		}
		if filter == Stable && v.IsPrerelease() {
			continue
		}
		if best == nil || v.Compare(best) > 0 {
			best = v
		}
	}
	if best == nil {
		return "", false
	}
	return best.String(), true
}

// SortDescending returns the input strings reordered by descending
// precedence. Unparseable entries sort last, ordered lexically. The
// input slice is not modified.
func SortDescending(versions []string) []string {
	type entry struct {
		raw string
		v   *Version
	}
	entries := make([]entry, len(versions))
	for i, raw := range versions {
		v, _ := Parse(raw)
		entries[i] = entry{raw: raw, v: v}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.v == nil && b.v == nil:
			return strings.Compare(a.raw, b.raw)
		case a.v == nil:
			return 1
		case b.v == nil:
			return -1
		}
		return b.v.Compare(a.v)
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.raw
	}
	return out
}
