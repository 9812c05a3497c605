package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	maxConfigSize = 10 << 20
	maxNesting    = 100
	maxEnvVarLen  = 10000
	maxPathLen    = 4096
)

// checkConfigPath accepts JSON and YAML file names. Relative paths must not
// climb out of the working directory.
func checkConfigPath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("empty config path")
	case len(path) > maxPathLen:
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	case !isYAML(path) && !strings.EqualFold(filepath.Ext(path), ".json"):
		return fmt.Errorf("config files must be JSON or YAML: %s", path)
	}
	if filepath.IsAbs(path) {
		return nil
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("config path %s resolves outside the working directory", path)
	}
	return nil
}

// readConfigFile reads a regular config file of bounded size and nesting.
func readConfigFile(path string) ([]byte, error) {
	if err := checkConfigPath(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxConfigSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := checkNesting(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

// checkNesting bounds how deeply objects and arrays nest.
func checkNesting(path string, data []byte) error {
	var (
		depth int
		err   error
	)
	if isYAML(path) {
		var root yaml.Node
		if err = yaml.Unmarshal(data, &root); err == nil {
			depth = yamlNesting(&root)
		}
	} else {
		depth, err = jsonNesting(data)
	}
	if err != nil {
		return fmt.Errorf("malformed config: %w", err)
	}
	if depth > maxNesting {
		return fmt.Errorf("config nests too deep: %d > %d", depth, maxNesting)
	}
	return nil
}

func jsonNesting(data []byte) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth, deepest := 0, 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return deepest, nil
		}
		if err != nil {
			return 0, err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			deepest = max(deepest, depth)
			if depth > maxNesting {
				return depth, nil
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}

func yamlNesting(n *yaml.Node) int {
	deepest := 0
	for _, child := range n.Content {
		deepest = max(deepest, yamlNesting(child))
	}
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		return deepest + 1
	}
	return deepest
}

// writeConfigFile writes data readable by the owner only.
func writeConfigFile(path string, data []byte) error {
	if err := checkConfigPath(path); err != nil {
		return err
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("config data too large: %d bytes > %d", len(data), maxConfigSize)
	}
	return os.WriteFile(path, data, 0o600)
}

// checkEnvValue rejects oversized values and values holding NUL bytes.
func checkEnvValue(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("null byte in environment variable %s", key)
	}
	return nil
}
