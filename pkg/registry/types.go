package registry

import "time"

// SearchResult is one package entry from the registry search service.
type SearchResult struct {
	ID             string   `json:"id"`
	Version        string   `json:"version"` // latest version known to the search index
	Description    string   `json:"description,omitempty"`
	Authors        []string `json:"authors,omitempty"`
	TotalDownloads int64    `json:"totalDownloads,omitempty"`
	ProjectURL     string   `json:"projectUrl,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Verified       bool     `json:"verified,omitempty"`
}

// PackageMetadata describes one published package version, taken from
// the registration catalog entry.
type PackageMetadata struct {
	ID           string    `json:"id"`
	Version      string    `json:"version"`
	Description  string    `json:"description,omitempty"`
	Authors      string    `json:"authors,omitempty"`
	ProjectURL   string    `json:"projectUrl,omitempty"`
	LicenseURL   string    `json:"licenseUrl,omitempty"`
	Published    time.Time `json:"published,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	IsPrerelease bool      `json:"isPrerelease,omitempty"`
}
