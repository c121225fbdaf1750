package schema

import (
	"fmt"
	"sync/atomic"

	"github.com/marmos91/xdrproxy/internal/logger"
)

// Store holds the current Registry. Readers always see a complete registry;
// Reload swaps in a new one atomically and keeps the old one on failure.
type Store struct {
	current atomic.Pointer[Registry]
	paths   []string
	embed   []Source

	onReload func(reg *Registry, err error)
}

// NewStore creates a store serving reg. It cannot reload.
func NewStore(reg *Registry) *Store {
	s := &Store{}
	s.current.Store(reg)
	return s
}

// NewFileStore loads paths and returns a store that can reload them.
// extra sources (built-in programs) are compiled together with the files.
func NewFileStore(paths []string, extra ...Source) (*Store, error) {
	s := &Store{paths: paths, embed: extra}
	reg, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current.Store(reg)
	return s, nil
}

// Registry returns the current registry.
func (s *Store) Registry() *Registry {
	return s.current.Load()
}

// Swap replaces the current registry.
func (s *Store) Swap(reg *Registry) {
	s.current.Store(reg)
}

// Paths returns the files and directories the store loads from.
func (s *Store) Paths() []string {
	return s.paths
}

// Lookup resolves a program/procno pair against the current registry.
func (s *Store) Lookup(program string, procno uint32) (*Program, *Procedure, error) {
	return s.Registry().Lookup(program, procno)
}

// Procedures lists the procedures of the current registry.
func (s *Store) Procedures() []ProcedureInfo {
	return s.Registry().Procedures()
}

// OnReload registers fn to observe every reload attempt. reg is nil when
// err is set. It must be called before the store is shared.
func (s *Store) OnReload(fn func(reg *Registry, err error)) {
	s.onReload = fn
}

// Reload recompiles the configured paths. On error the previous registry
// stays in place.
func (s *Store) Reload() error {
	if len(s.paths) == 0 {
		return fmt.Errorf("store has no schema paths to reload")
	}
	reg, err := s.load()
	if s.onReload != nil {
		s.onReload(reg, err)
	}
	if err != nil {
		return err
	}
	s.current.Store(reg)
	logger.Info("Schema registry reloaded", logger.KeySchemaSrc, s.paths, "programs", reg.Len())
	return nil
}

func (s *Store) load() (*Registry, error) {
	var sources []Source
	if len(s.paths) > 0 {
		files, err := expandPaths(s.paths)
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			src, err := readSource(path)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
	}
	sources = append(sources, s.embed...)
	if len(sources) == 0 {
		return nil, fmt.Errorf("no schema files found")
	}
	return Compile(sources...)
}
