package catalog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a catalog from path. Files ending in .yaml or .yml are
// decoded as YAML; anything else as a JSON array of skills.
func LoadFile(path string) (*Catalog, error) {
	skills, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(skills), nil
}

// ReadFile decodes the raw skill list stored at path.
func ReadFile(path string) ([]Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog file %s", path)
	}

	var skills []Skill
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &skills); err != nil {
			return nil, errors.Wrapf(err, "failed to parse YAML catalog %s", path)
		}
	} else {
		if err := json.Unmarshal(data, &skills); err != nil {
			return nil, errors.Wrapf(err, "failed to parse JSON catalog %s", path)
		}
	}

	return skills, nil
}

// WriteFile stores skills at path in the format implied by its extension.
// The file is written to a temporary sibling and renamed into place.
func WriteFile(path string, skills []Skill) error {
	var data []byte
	if isYAML(path) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(skills); err != nil {
			return errors.Wrap(err, "failed to encode YAML catalog")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "failed to encode YAML catalog")
		}
		data = buf.Bytes()
	} else {
		encoded, err := json.MarshalIndent(skills, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode JSON catalog")
		}
		data = append(encoded, '\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create catalog directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary catalog file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write catalog")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write catalog")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to replace catalog file")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
