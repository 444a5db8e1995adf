package ruleset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// LoaderConfig controls how rule-set files are collected from disk.
type LoaderConfig struct {
	// Extensions are the file extensions treated as rule sets.
	// Default: .yaml, .yml
	Extensions []string

	// MaxFileSize limits one rule-set file.
	// Default: 1MB
	MaxFileSize int64

	// SkipHidden skips dot files and dot directories.
	// Default: true
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		Extensions:  []string{".yaml", ".yml"},
		MaxFileSize: 1024 * 1024,
		SkipHidden:  true,
	}
}

// RuleSetName derives a rule-set name from a file path: the base name
// without its extension.
func RuleSetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile reads one rule-set file and returns its name and source.
func LoadFile(path string, config *LoaderConfig) (string, string, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", &LoadError{FilePath: path, Message: "file not found", Cause: err}
		}
		return "", "", &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return "", "", &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if config.MaxFileSize > 0 && info.Size() > config.MaxFileSize {
		return "", "", &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return "", "", &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	name := RuleSetName(path)
	if name == "" {
		return "", "", &LoadError{FilePath: path, Message: "cannot derive a rule set name"}
	}
	return name, string(data), nil
}

// LoadDirectory reads every rule-set file under dir, recursively, and
// returns the sources keyed by rule-set name. Two files that map to the
// same name are an error.
func LoadDirectory(dir string, config *LoaderConfig) (map[string]string, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}

	paths, err := ListFiles(dir, config)
	if err != nil {
		return nil, err
	}

	sources := make(map[string]string, len(paths))
	origin := make(map[string]string, len(paths))
	for _, path := range paths {
		name, source, err := LoadFile(path, config)
		if err != nil {
			return nil, err
		}
		if prev, ok := origin[name]; ok {
			return nil, &LoadError{
				FilePath: path,
				Message:  fmt.Sprintf("rule set %q is already defined by %s", name, prev),
			}
		}
		origin[name] = path
		sources[name] = source
	}

	return sources, nil
}

// ListFiles returns the rule-set files under dir in lexical order.
func ListFiles(dir string, config *LoaderConfig) ([]string, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: dir, Message: "directory not found", Cause: err}
		}
		return nil, &LoadError{FilePath: dir, Message: "failed to access directory", Cause: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{FilePath: dir, Message: "not a directory"}
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && hasExtension(path, config.Extensions) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}
	return paths, nil
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}
