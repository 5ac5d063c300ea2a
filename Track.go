package racegym

import (
	"fmt"
	"os"
	"path/filepath"
)

// TrackPath resolves a named track asset to tracks/<name>.json under
// the package root. The asset must exist on disk before the simulation
// is asked to load it; a missing asset is a fatal configuration error.
func TrackPath(name string) (string, error) {
	path := filepath.Join(packageRoot(), "tracks", name+".json")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("trackPath: track file not found: %v", path)
	}
	return path, nil
}
