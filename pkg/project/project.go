// Package project reads .NET project and solution files.
//
// ParseProject extracts PackageReference declarations from a
// csproj-style XML file; ParseSolution lists the member projects of a
// .sln file. Both are deliberately shallow: declared items only, no
// MSBuild property evaluation and no condition handling.
package project

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// Dependency is one PackageReference declared by a project file.
// RequestedVersion is the raw declared version and may be a range
// expression rather than a concrete version.
type Dependency struct {
	ID               string `json:"id"`
	RequestedVersion string `json:"requestedVersion"`
}

// IsProjectFile reports whether path has a recognized .NET project
// extension.
func IsProjectFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csproj", ".fsproj", ".vbproj":
		return true
	}
	return false
}

// IsSolutionFile reports whether path has a solution extension.
func IsSolutionFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".sln")
}

// ParseProject returns the package references declared in the project
// file at path, in declaration order. A well-formed project with no
// references yields an empty list. Missing files fail with
// FILE_NOT_FOUND, unreadable or malformed ones with INVALID_MANIFEST.
func ParseProject(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "project file %s not found", path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "cannot read project file %s", path)
	}

	var proj projectFile
	if err := xml.Unmarshal(data, &proj); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "cannot parse project file %s", path)
	}

	var deps []Dependency
	for _, group := range proj.ItemGroups {
		for _, ref := range group.PackageReferences {
			id := strings.TrimSpace(ref.Include)
			if id == "" {
				// Update is used by central package management to
				// override an Include from an imported file.
				id = strings.TrimSpace(ref.Update)
			}
			if id == "" {
				continue
			}
			version := strings.TrimSpace(ref.VersionAttr)
			if version == "" {
				version = strings.TrimSpace(ref.VersionElem)
			}
			deps = append(deps, Dependency{ID: id, RequestedVersion: version})
		}
	}
	return deps, nil
}

type projectFile struct {
	ItemGroups []itemGroup `xml:"ItemGroup"`
}

type itemGroup struct {
	PackageReferences []packageReference `xml:"PackageReference"`
}

// packageReference accepts the version both as an attribute and as a
// child element; both forms appear in the wild.
type packageReference struct {
	Include     string `xml:"Include,attr"`
	Update      string `xml:"Update,attr"`
	VersionAttr string `xml:"Version,attr"`
	VersionElem string `xml:"Version"`
}
