package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/version"
)

func serveIndex(w http.ResponseWriter, baseURL string) {
	json.NewEncoder(w).Encode(serviceIndex{
		Resources: []serviceResource{
			{ID: baseURL + "/query", Type: "SearchQueryService/3.5.0"},
			{ID: baseURL + "/flat/", Type: "PackageBaseAddress/3.0.0"},
			{ID: baseURL + "/reg/", Type: "RegistrationsBaseUrl/3.6.0"},
		},
	})
}

func TestClient_Search(t *testing.T) {
	var gotQuery map[string][]string

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.json":
			serveIndex(w, server.URL)
		case "/query":
			gotQuery = r.URL.Query()
			json.NewEncoder(w).Encode(searchResponse{
				TotalHits: 1,
				Data: []SearchResult{{
					ID:             "Serilog",
					Version:        "3.1.1",
					Description:    "Simple .NET logging",
					TotalDownloads: 500,
					Verified:       true,
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL+"/index.json", "", "")

	results, err := c.Search(context.Background(), "serilog", true, -5, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "Serilog" {
		t.Errorf("expected id Serilog, got %s", results[0].ID)
	}
	if !results[0].Verified {
		t.Error("expected verified result")
	}

	wantParams := map[string]string{
		"q":           "serilog",
		"skip":        "0",
		"take":        "20",
		"prerelease":  "true",
		"semVerLevel": "2.0.0",
	}
	for k, want := range wantParams {
		if got := gotQuery[k]; len(got) != 1 || got[0] != want {
			t.Errorf("query param %s = %v, want %s", k, got, want)
		}
	}
}

func TestClient_ListVersions(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.json":
			serveIndex(w, server.URL)
		case "/flat/newtonsoft.json/index.json":
			json.NewEncoder(w).Encode(flatContainerIndex{
				Versions: []string{"12.0.0.0", "13.0.1", "not-a-version"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL+"/index.json", "", "")

	// Mixed-case IDs must hit the lowercased path.
	versions, err := c.ListVersions(context.Background(), "Newtonsoft.Json")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}

	want := []string{"12.0.0", "13.0.1"}
	if len(versions) != len(want) {
		t.Fatalf("expected %d versions, got %d: %v", len(want), len(versions), versions)
	}
	for i, v := range want {
		if versions[i] != v {
			t.Errorf("versions[%d] = %s, want %s", i, versions[i], v)
		}
	}
}

func TestClient_ListVersions_NotFound(t *testing.T) {
	flatCalls := 0

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/index.json" {
			serveIndex(w, server.URL)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/flat/") {
			flatCalls++
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := New(server.URL+"/index.json", "", "")

	_, err := c.ListVersions(context.Background(), "ghost.package")
	if !apperrors.Is(err, apperrors.ErrCodePackageNotFound) {
		t.Fatalf("expected PACKAGE_NOT_FOUND, got %v", err)
	}
	if flatCalls != 1 {
		t.Errorf("expected 1 request without retries, got %d", flatCalls)
	}
}

func TestClient_ListVersions_EmptyID(t *testing.T) {
	c := New("http://127.0.0.1:0/index.json", "", "")

	_, err := c.ListVersions(context.Background(), "  ")
	if !apperrors.Is(err, apperrors.ErrCodeInvalidPackage) {
		t.Fatalf("expected INVALID_PACKAGE, got %v", err)
	}
}

func TestClient_GetMetadata(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.json":
			serveIndex(w, server.URL)
		case "/reg/newtonsoft.json/index.json":
			json.NewEncoder(w).Encode(registrationIndex{
				Items: []registrationPage{{
					Lower: "12.0.0",
					Upper: "13.0.1",
					Items: []registrationLeaf{
						{CatalogEntry: catalogEntry{ID: "Newtonsoft.Json", Version: "12.0.0"}},
						{CatalogEntry: catalogEntry{
							ID:          "Newtonsoft.Json",
							Version:     "13.0.1",
							Description: "Json.NET is a popular JSON framework",
							Authors:     "James Newton-King",
							Tags:        "json serializer",
						}},
					},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL+"/index.json", "", "")

	// The four-part form must resolve to the same version.
	meta, err := c.GetMetadata(context.Background(), "Newtonsoft.Json", "13.0.1.0")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}

	if meta.Version != "13.0.1" {
		t.Errorf("expected version 13.0.1, got %s", meta.Version)
	}
	if meta.Authors != "James Newton-King" {
		t.Errorf("unexpected authors: %s", meta.Authors)
	}
	if meta.IsPrerelease {
		t.Error("13.0.1 should not be prerelease")
	}
	if len(meta.Tags) != 2 || meta.Tags[0] != "json" || meta.Tags[1] != "serializer" {
		t.Errorf("unexpected tags: %v", meta.Tags)
	}
}

func TestClient_GetMetadata_PagedRegistration(t *testing.T) {
	pageFetched := false

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.json":
			serveIndex(w, server.URL)
		case "/reg/foo/index.json":
			json.NewEncoder(w).Encode(registrationIndex{
				Items: []registrationPage{
					{ID: server.URL + "/reg/foo/page0.json", Lower: "0.1.0", Upper: "0.9.0"},
					{ID: server.URL + "/reg/foo/page1.json", Lower: "1.0.0", Upper: "2.0.0"},
				},
			})
		case "/reg/foo/page0.json":
			t.Error("page outside the version bounds should not be fetched")
			http.NotFound(w, r)
		case "/reg/foo/page1.json":
			pageFetched = true
			json.NewEncoder(w).Encode(registrationPage{
				Lower: "1.0.0",
				Upper: "2.0.0",
				Items: []registrationLeaf{
					{CatalogEntry: catalogEntry{ID: "Foo", Version: "2.0.0"}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL+"/index.json", "", "")

	meta, err := c.GetMetadata(context.Background(), "Foo", "2.0.0")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if meta.Version != "2.0.0" {
		t.Errorf("expected version 2.0.0, got %s", meta.Version)
	}
	if !pageFetched {
		t.Error("expected the external page to be fetched")
	}
}

func TestClient_GetMetadata_VersionNotFound(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.json":
			serveIndex(w, server.URL)
		case "/reg/foo/index.json":
			json.NewEncoder(w).Encode(registrationIndex{
				Items: []registrationPage{{
					Lower: "1.0.0",
					Upper: "1.0.0",
					Items: []registrationLeaf{
						{CatalogEntry: catalogEntry{ID: "Foo", Version: "1.0.0"}},
					},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL+"/index.json", "", "")

	_, err := c.GetMetadata(context.Background(), "Foo", "9.9.9")
	if !apperrors.Is(err, apperrors.ErrCodePackageNotFound) {
		t.Fatalf("expected PACKAGE_NOT_FOUND, got %v", err)
	}
}

func TestClient_GetLatestMetadata(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.json":
			serveIndex(w, server.URL)
		case "/flat/foo/index.json":
			json.NewEncoder(w).Encode(flatContainerIndex{
				Versions: []string{"1.0.0", "1.2.0-beta"},
			})
		case "/reg/foo/index.json":
			json.NewEncoder(w).Encode(registrationIndex{
				Items: []registrationPage{{
					Lower: "1.0.0",
					Upper: "1.2.0-beta",
					Items: []registrationLeaf{
						{CatalogEntry: catalogEntry{ID: "Foo", Version: "1.0.0"}},
						{CatalogEntry: catalogEntry{ID: "Foo", Version: "1.2.0-beta"}},
					},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL+"/index.json", "", "")

	stable, err := c.GetLatestMetadata(context.Background(), "Foo", version.Stable)
	if err != nil {
		t.Fatalf("GetLatestMetadata(stable) failed: %v", err)
	}
	if stable.Version != "1.0.0" {
		t.Errorf("latest stable = %s, want 1.0.0", stable.Version)
	}

	latest, err := c.GetLatestMetadata(context.Background(), "Foo", version.IncludingPrerelease)
	if err != nil {
		t.Fatalf("GetLatestMetadata(prerelease) failed: %v", err)
	}
	if latest.Version != "1.2.0-beta" {
		t.Errorf("latest = %s, want 1.2.0-beta", latest.Version)
	}
	if !latest.IsPrerelease {
		t.Error("1.2.0-beta should be prerelease")
	}
}

func TestClient_ServiceIndexCached(t *testing.T) {
	indexCalls := 0

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.json":
			indexCalls++
			serveIndex(w, server.URL)
		case "/flat/foo/index.json":
			json.NewEncoder(w).Encode(flatContainerIndex{Versions: []string{"1.0.0"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL+"/index.json", "", "")

	for i := 0; i < 3; i++ {
		if _, err := c.ListVersions(context.Background(), "foo"); err != nil {
			t.Fatalf("ListVersions failed: %v", err)
		}
	}
	if indexCalls != 1 {
		t.Errorf("expected 1 service index fetch, got %d", indexCalls)
	}
}

func TestClient_ServiceIndexMissingResource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(serviceIndex{
			Resources: []serviceResource{
				{ID: "https://example.org/query", Type: "SearchQueryService"},
			},
		})
	}))
	defer server.Close()

	c := New(server.URL, "", "")

	_, err := c.Search(context.Background(), "anything", false, 0, 0)
	if err == nil {
		t.Fatal("expected error for incomplete service index")
	}
}

func TestRegistrationPage_MayContain(t *testing.T) {
	tests := []struct {
		name   string
		lower  string
		upper  string
		target string
		want   bool
	}{
		{"inside bounds", "1.0.0", "2.0.0", "1.5.0", true},
		{"below lower", "1.0.0", "2.0.0", "0.9.0", false},
		{"above upper", "1.0.0", "2.0.0", "2.1.0", false},
		{"at lower", "1.0.0", "2.0.0", "1.0.0", true},
		{"at upper", "1.0.0", "2.0.0", "2.0.0", true},
		{"no bounds", "", "", "1.0.0", true},
		{"unparseable bounds scan anyway", "garbage", "garbage", "1.0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := registrationPage{Lower: tt.lower, Upper: tt.upper}
			target := version.MustParse(tt.target)
			if got := page.mayContain(target); got != tt.want {
				t.Errorf("mayContain(%s) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		tags any
		want []string
	}{
		{"string", "json http client", []string{"json", "http", "client"}},
		{"empty string", "", nil},
		{"array", []any{"json", "http"}, []string{"json", "http"}},
		{"array with junk", []any{"json", 42, ""}, []string{"json"}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeTags(tt.tags)
			if len(got) != len(tt.want) {
				t.Fatalf("normalizeTags() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tag[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
