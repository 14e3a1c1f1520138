package breakfile

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const indent = "  "

// Encode renders doc as a complete document in the current schema, with
// collections, modules and breaks in a stable order.
func Encode(doc Document) ([]byte, error) {
	wire := struct {
		SchemaVersion    int               `yaml:"schemaVersion"`
		AcceptedBreaks   []wireCollection  `yaml:"acceptedBreaks"`
		VersionOverrides map[string]string `yaml:"versionOverrides,omitempty"`
	}{
		SchemaVersion:    CurrentSchema,
		AcceptedBreaks:   toWireCollections(doc.AcceptedBreaks),
		VersionOverrides: toWireOverrides(doc.VersionOverrides),
	}
	return encodeYAML(wire)
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(len(indent))
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding accepted breaks: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding accepted breaks: %w", err)
	}
	return buf.Bytes(), nil
}

// renderValue renders v as the text that follows "key:" in a block mapping.
// Block collections start on the next line, indented one level; empty
// collections and scalars stay on the key's line.
func renderValue(v any, block bool) (string, error) {
	out, err := encodeYAML(v)
	if err != nil {
		return "", err
	}
	text := strings.TrimRight(string(out), "\n")
	if !block {
		return " " + text, nil
	}
	lines := strings.Split(text, "\n")
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteByte('\n')
		if line != "" {
			sb.WriteString(indent)
			sb.WriteString(line)
		}
	}
	return sb.String(), nil
}
