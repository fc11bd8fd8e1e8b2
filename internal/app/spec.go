package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadSpecFile reads a job spec from a JSON or YAML file. The format follows
// the extension; anything other than .json is parsed as YAML, which also
// accepts JSON documents.
func loadSpecFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	var spec map[string]any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &spec)
	} else {
		err = yaml.Unmarshal(data, &spec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse spec file %s: %w", path, err)
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("spec file %s is empty", path)
	}
	return spec, nil
}
