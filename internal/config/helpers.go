package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"btcmetrics/pkg/chain"
	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"
)

var (
	rootOnce sync.Once
	rootDir  string
)

// ProjectRoot is the nearest directory above this source file holding go.mod,
// or the working directory when the sources are not around (installed binary).
func ProjectRoot() string {
	rootOnce.Do(func() {
		if _, file, _, ok := runtime.Caller(0); ok {
			for dir := filepath.Dir(file); ; {
				if fileExists(filepath.Join(dir, "go.mod")) {
					rootDir = dir
					return
				}
				parent := filepath.Dir(dir)
				if parent == dir {
					break
				}
				dir = parent
			}
		}
		if wd, err := os.Getwd(); err == nil {
			rootDir = wd
		} else {
			rootDir = "."
		}
	})
	return rootDir
}

// ProjectPath joins rel onto ProjectRoot.
func ProjectPath(rel string) string {
	return filepath.Join(ProjectRoot(), rel)
}

// MustLoadMarket loads etc/market.yaml from the project root and panics on error.
// Adapter packages must already be linked in.
func MustLoadMarket() *provider.Config {
	cfg, err := market.LoadConfig(ProjectPath("etc/market.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// MustLoadChain loads etc/chain.yaml from the project root and panics on error.
func MustLoadChain() *provider.Config {
	cfg, err := chain.LoadConfig(ProjectPath("etc/chain.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}
