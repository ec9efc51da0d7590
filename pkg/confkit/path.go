package confkit

import (
	"fmt"
	"os"
	"path/filepath"
)

const homeVar = "BTCMETRICS_HOME"

// ConfigDir returns $BTCMETRICS_HOME, or <user config dir>/btcmetrics.
func ConfigDir() (string, error) {
	if home := os.Getenv(homeVar); home != "" {
		return home, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "btcmetrics"), nil
}

// FindConfig returns the first existing candidate for name: the path itself when it
// exists, ./etc/<base>, then <config dir>/<base>. The original name is returned
// when nothing exists so callers can report it.
func FindConfig(name string) string {
	if fileExists(name) {
		return name
	}
	base := filepath.Base(name)
	candidates := []string{filepath.Join("etc", base)}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, base))
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return name
}
