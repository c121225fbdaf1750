package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadFiles reads, parses and compiles the given paths. A directory
// contributes every *.yaml and *.yml file directly inside it.
func LoadFiles(paths ...string) (*Registry, error) {
	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no schema files found in %s", strings.Join(paths, ", "))
	}

	sources := make([]Source, 0, len(files))
	for _, path := range files {
		src, err := readSource(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return Compile(sources...)
}

func readSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read schema file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return Source{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return Source{Name: path, File: f}, nil
}

// LoadBytes parses and compiles a single in-memory document.
func LoadBytes(name string, data []byte) (*Registry, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return Compile(Source{Name: name, File: f})
}

func expandPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("schema path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read schema directory: %w", err)
		}
		var dirFiles []string
		for _, e := range entries {
			if !e.IsDir() && isSchemaFile(e.Name()) {
				dirFiles = append(dirFiles, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(dirFiles)
		files = append(files, dirFiles...)
	}
	return files, nil
}

func isSchemaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return (ext == ".yaml" || ext == ".yml") && !strings.HasPrefix(name, ".")
}
