// Package importer parses trail documents from JSON, YAML and Excel files.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/hikeplanner/internal/models"
)

// Extensions lists the file extensions the parser understands.
var Extensions = []string{".json", ".yaml", ".yml", ".xlsx"}

// Supported reports whether ext (with leading dot, any case) can be parsed.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Parser reads trails from import files.
type Parser struct{}

// NewParser returns a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the file at path and returns the trails it holds, in file order.
// Returns an error if the file cannot be read, its format is unsupported, or it is malformed.
func (p *Parser) Parse(path string) ([]*models.Trail, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.ParseBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ParseBytes parses content based on the given extension, which includes the leading dot.
func (p *Parser) ParseBytes(content []byte, ext string) ([]*models.Trail, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return parseJSON(content)
	case ".yaml", ".yml":
		return parseYAML(content)
	case ".xlsx":
		return parseExcel(content)
	default:
		return nil, fmt.Errorf("unsupported import format %q", ext)
	}
}

// newTrail returns the value each parsed document is decoded into. Documents that omit
// isActive import as active trails.
func newTrail() *models.Trail {
	return &models.Trail{IsActive: true}
}

// parseJSON accepts a single trail object or an array of trails.
func parseJSON(content []byte) ([]*models.Trail, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		t := newTrail()
		if err := json.Unmarshal(trimmed, t); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		return []*models.Trail{t}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	trails := make([]*models.Trail, 0, len(raw))
	for i, item := range raw {
		if string(item) == "null" {
			continue
		}
		t := newTrail()
		if err := json.Unmarshal(item, t); err != nil {
			return nil, fmt.Errorf("parse JSON trail %d: %w", i+1, err)
		}
		trails = append(trails, t)
	}
	return trails, nil
}

// parseYAML accepts a single trail mapping or a sequence of trails.
func parseYAML(content []byte) ([]*models.Trail, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	items := []*yaml.Node{doc}
	if doc.Kind == yaml.SequenceNode {
		items = doc.Content
	}
	trails := make([]*models.Trail, 0, len(items))
	for i, item := range items {
		if item.Tag == "!!null" {
			continue
		}
		t := newTrail()
		if err := item.Decode(t); err != nil {
			return nil, fmt.Errorf("parse YAML trail %d: %w", i+1, err)
		}
		trails = append(trails, t)
	}
	return trails, nil
}
