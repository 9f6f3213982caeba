package utils

import (
	"fmt"
	"path/filepath"
)

func inTrustedRoot(path string, trustedRoot string) error {
	for path != filepath.Dir(path) {
		path = filepath.Dir(path)
		if path == trustedRoot {
			return nil
		}
	}
	return fmt.Errorf("path is outside of trusted root")
}

// VerifyPath verifies that path is based in basePath.
func VerifyPath(path, basePath string) error {
	c := filepath.Clean(filepath.Join(basePath, path))
	return inTrustedRoot(c, filepath.Clean(basePath))
}

// JoinInRoot joins name to root and returns the result only when it points
// to an entry directly inside root.
func JoinInRoot(root, name string) (string, error) {
	if err := VerifyPath(name, root); err != nil {
		return "", err
	}
	p := filepath.Join(root, name)
	if filepath.Dir(p) != filepath.Clean(root) {
		return "", fmt.Errorf("%q is not a direct child of %q", name, root)
	}
	return p, nil
}
