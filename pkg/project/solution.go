package project

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// projectLinePattern matches solution entries like
//
//	Project("{FAE04EC0-...}") = "MyApp", "src\MyApp\MyApp.csproj", "{8E1A...}"
//
// capturing the project path. Quoted fields may contain commas.
var projectLinePattern = regexp.MustCompile(`^Project\("\{[^}]*\}"\)\s*=\s*"[^"]*"\s*,\s*"([^"]*)"`)

// ParseSolution returns the absolute paths of the member projects
// listed in the solution file at path, in declaration order. Solution
// folders and entries without a recognized project extension are
// skipped. A solution with no projects yields an empty list.
func ParseSolution(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "solution file %s not found", path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "cannot read solution file %s", path)
	}
	defer f.Close()

	baseDir := filepath.Dir(path)

	var projects []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		m := projectLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rel := fromWindowsPath(m[1])
		if !IsProjectFile(rel) {
			continue
		}
		projects = append(projects, filepath.Join(baseDir, rel))
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "cannot parse solution file %s", path)
	}
	return projects, nil
}

// fromWindowsPath converts the backslash separators solution files use
// to the host separator.
func fromWindowsPath(p string) string {
	return strings.ReplaceAll(p, `\`, string(filepath.Separator))
}
