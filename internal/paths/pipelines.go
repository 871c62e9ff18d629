// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
)

// ProjectDir is the per-project directory holding config and pipelines.
const ProjectDir = ".passflow"

// ResolvePipelinesDir resolves the pipelines directory from user input. It
// accepts either the pipelines directory itself or a project directory:
//
//   - "/path/to/pipelines" (containing *.yaml) -> "/path/to/pipelines"
//   - "/path/to/project" (containing .passflow/pipelines) -> "/path/to/project/.passflow/pipelines"
//   - "/path/to/project/.passflow" -> "/path/to/project/.passflow/pipelines"
//   - "" -> ""
//
// Anything else is returned cleaned and left for validation to reject.
func ResolvePipelinesDir(path string) string {
	if path == "" {
		return ""
	}
	path = filepath.Clean(path)

	if hasYAML(path) {
		return path
	}
	if filepath.Base(path) == ProjectDir {
		if nested := filepath.Join(path, "pipelines"); isDir(nested) {
			return nested
		}
		return path
	}
	if nested := filepath.Join(path, ProjectDir, "pipelines"); isDir(nested) {
		return nested
	}
	return path
}

func hasYAML(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	return err == nil && len(matches) > 0
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
