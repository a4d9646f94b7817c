package script

import (
	"path/filepath"
	"strings"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/parameter"
)

// validateString enforces the boundary-crossing string length ceiling.
func validateString(s string) error {
	if len(s) > parameter.ScriptStringCeiling {
		return &core.CeilingExceededError{Kind: core.CeilingInputSize}
	}
	return nil
}

// resolvePath canonicalises a guest-supplied path against the sandbox
// root. Traversal components and absolute paths that escape the root
// are rejected before any filesystem access.
func resolvePath(root, p string) (string, error) {
	if err := validateString(p); err != nil {
		return "", err
	}
	if p == "" {
		return "", &core.InvalidInputError{Details: "empty path"}
	}
	if filepath.IsAbs(p) {
		return "", &core.InvalidInputError{Details: "absolute path not permitted: " + p}
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &core.InvalidInputError{Details: "path escapes sandbox root: " + p}
	}
	full := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &core.InvalidInputError{Details: "path escapes sandbox root: " + p}
	}
	return full, nil
}
