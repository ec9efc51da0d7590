package confkit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeromicro/go-zero/core/conf"
)

// ResolvePath expands environment variables and a leading "~/" in file, then
// resolves it against base unless it is already absolute.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if rest, ok := strings.CutPrefix(file, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// LoadFile loads a go-zero style configuration file (yaml, json or toml) into T.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var cfg T
	opts := []conf.Option{}
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadFileOr behaves like LoadFile but returns fallback() when path does not exist.
func LoadFileOr[T any](path string, useEnv bool, fallback func() *T) (*T, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fallback(), nil
	}
	return LoadFile[T](path, useEnv)
}

// Section is a configuration block that lives in a separate file.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File relative to base into Value. An empty File is a no-op;
// after loading, File holds the resolved path.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if strings.TrimSpace(s.File) == "" {
		return nil
	}
	path := ResolvePath(base, s.File)
	v, err := loader(path)
	if err != nil {
		return err
	}
	s.File = path
	s.Value = v
	return nil
}

// Or returns the hydrated value, or fallback() when the section was not configured.
func (s *Section[T]) Or(fallback func() *T) *T {
	if s.Value != nil {
		return s.Value
	}
	return fallback()
}
