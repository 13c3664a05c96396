package node

import (
	"os"
	"path/filepath"
	"strings"
)

// expandHome resolves $VAR references and a leading "~" or "~/" in a
// configured path. "~user" forms are left untouched.
func expandHome(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
