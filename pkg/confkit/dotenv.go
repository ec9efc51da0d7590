package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

const (
	envFileVar     = "BTCMETRICS_ENV_FILE"
	noDotenvVar    = "BTCMETRICS_NO_DOTENV"
	dotenvOverload = "BTCMETRICS_DOTENV_OVERLOAD"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads provider credentials from .env files. Candidates are
// $BTCMETRICS_ENV_FILE, ./.env and <config dir>/.env; later files never
// override earlier ones. Existing environment variables win unless
// BTCMETRICS_DOTENV_OVERLOAD=1.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv(noDotenvVar) == "1" {
		return
	}
	overload := os.Getenv(dotenvOverload) == "1"
	for _, path := range dotenvCandidates() {
		if !fileExists(path) {
			continue
		}
		if overload {
			// only the highest-precedence file may overwrite the environment
			_ = godotenv.Overload(path)
			return
		}
		_ = godotenv.Load(path)
	}
}

func dotenvCandidates() []string {
	if envFile := os.Getenv(envFileVar); envFile != "" {
		return []string{envFile}
	}
	paths := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	return paths
}
