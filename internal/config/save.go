package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveDefaultBackend sets default_backend in the config file.
func SaveDefaultBackend(configPath, backend string) error {
	return SaveValue(configPath, "default_backend", backend)
}

// SavePipelinesDir sets pipelines_dir in the config file.
func SavePipelinesDir(configPath, dir string) error {
	return SaveValue(configPath, "pipelines_dir", dir)
}

// SaveValue sets a scalar key in the config file. Nested keys use dots
// ("history.keep"); missing sections are created. Comments and the formatting
// of other sections are preserved by editing the yaml.Node tree.
func SaveValue(configPath, key, value string) error {
	data, err := os.ReadFile(configPath) //nolint:gosec // G304: config path
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	valueNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode}
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 0 {
		doc.Content = []*yaml.Node{{Kind: yaml.MappingNode}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level is not a mapping")
	}
	if err := setKey(doc.Content[0], strings.Split(key, "."), valueNode); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

func setKey(mapping *yaml.Node, keys []string, value *yaml.Node) error {
	key := keys[0]
	if key == "" {
		return fmt.Errorf("empty key segment")
	}
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value != key {
			continue
		}
		existing := mapping.Content[i+1]
		if len(keys) == 1 {
			value.HeadComment = existing.HeadComment
			value.LineComment = existing.LineComment
			mapping.Content[i+1] = value
			return nil
		}
		if existing.Kind != yaml.MappingNode {
			return fmt.Errorf("%s is not a section", key)
		}
		return setKey(existing, keys[1:], value)
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	if len(keys) == 1 {
		mapping.Content = append(mapping.Content, keyNode, value)
		return nil
	}
	section := &yaml.Node{Kind: yaml.MappingNode}
	mapping.Content = append(mapping.Content, keyNode, section)
	return setKey(section, keys[1:], value)
}

// writeAtomic writes to a temp file in the same directory, then renames.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".passflow.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
