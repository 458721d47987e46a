package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vexrag/vexrag/errs"
)

// ValidatePath expands ~, resolves path to an absolute, symlink-resolved
// form, and checks it is a descendant of at least one entry in bases
// (each resolved the same way). It returns the resolved path or a
// PathTraversal error.
func ValidatePath(path string, bases []string) (string, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return "", errs.New(errs.PathTraversal, "index.ValidatePath", fmt.Errorf("resolving %q: %w", path, err))
	}

	for _, base := range bases {
		resolvedBase, err := resolvePath(base)
		if err != nil {
			continue
		}
		if isDescendant(resolved, resolvedBase) {
			return resolved, nil
		}
	}

	return "", errs.New(errs.PathTraversal, "index.ValidatePath",
		fmt.Errorf("%q is not a descendant of any allowed base path", path))
}

// resolvePath expands a leading ~, makes the path absolute, and resolves
// symlinks (including .. segments) via filepath.EvalSymlinks. It tolerates
// a path that does not yet exist on disk by resolving its existing parent
// and rejoining the missing tail.
func resolvePath(path string) (string, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	// Path (or a trailing segment) doesn't exist yet: resolve the nearest
	// existing ancestor and rejoin the remainder.
	dir, tail := filepath.Dir(abs), filepath.Base(abs)
	var missing []string
	for {
		if resolvedDir, err := filepath.EvalSymlinks(dir); err == nil {
			missing = append(missing, tail)
			for i, j := 0, len(missing)-1; i < j; i, j = i+1, j-1 {
				missing[i], missing[j] = missing[j], missing[i]
			}
			return filepath.Join(append([]string{resolvedDir}, missing...)...), nil
		}
		missing = append(missing, tail)
		if dir == filepath.Dir(dir) {
			return "", fmt.Errorf("no existing ancestor for %q", path)
		}
		dir, tail = filepath.Dir(dir), filepath.Base(dir)
	}
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// isDescendant reports whether child is base itself or nested under it.
func isDescendant(child, base string) bool {
	rel, err := filepath.Rel(base, child)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..")
}
