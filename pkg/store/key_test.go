package store

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		subject string
		params  []string
		want    string
	}{
		{
			name:    "versions without params",
			op:      OpVersions,
			subject: "Newtonsoft.Json",
			want:    "versions:newtonsoft.json",
		},
		{
			name:    "search with pagination",
			op:      OpSearch,
			subject: "json",
			params:  []string{"true", "0", "20"},
			want:    "search:json:true:0:20",
		},
		{
			name:    "metadata with version",
			op:      OpMetadata,
			subject: "Serilog",
			params:  []string{"3.1.1"},
			want:    "metadata:serilog:3.1.1",
		},
		{
			name:    "subject whitespace trimmed",
			op:      OpVersions,
			subject: "  Newtonsoft.Json ",
			want:    "versions:newtonsoft.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.op, tt.subject, tt.params...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyCaseInsensitiveSubject(t *testing.T) {
	a := Key(OpVersions, "Newtonsoft.Json")
	b := Key(OpVersions, "newtonsoft.json")
	c := Key(OpVersions, "NEWTONSOFT.JSON")

	if a != b || b != c {
		t.Errorf("keys differ by casing: %q, %q, %q", a, b, c)
	}
}

func TestKeyDistinctQueries(t *testing.T) {
	keys := []string{
		Key(OpSearch, "json", "true", "0", "20"),
		Key(OpSearch, "json", "false", "0", "20"),
		Key(OpSearch, "json", "true", "20", "20"),
		Key(OpVersions, "json"),
		Key(OpMetadata, "json", "1.0.0"),
		Key(OpLatestMetadata, "json", "true"),
	}

	seen := make(map[string]bool)
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate key for distinct query: %q", k)
		}
		seen[k] = true
	}
}
