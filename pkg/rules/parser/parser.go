package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
)

// Parser parses rule-set sources into syntax trees.
type Parser struct {
	maxSourceBytes int64 // Maximum source size in bytes (default: 1MB)
	maxDepth       int   // Maximum condition nesting depth (default: 10)
}

// New creates a new parser with default limits.
func New() *Parser {
	return &Parser{
		maxSourceBytes: 1024 * 1024,
		maxDepth:       10,
	}
}

// WithMaxSourceBytes sets the maximum source size. Zero or less disables the check.
func (p *Parser) WithMaxSourceBytes(size int64) *Parser {
	p.maxSourceBytes = size
	return p
}

// WithMaxDepth sets the maximum condition nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// ParseBytes parses one source deployed under name.
// Errors are returned as *errors.Error or *errors.ErrorList.
func (p *Parser) ParseBytes(data []byte, name string) (*ast.RuleSet, error) {
	if p.maxSourceBytes > 0 && int64(len(data)) > p.maxSourceBytes {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeStructural,
			Message:  fmt.Sprintf("source size %d exceeds maximum %d bytes", len(data), p.maxSourceBytes),
			Location: ast.Location{File: name},
		}
	}

	root, err := decodeDocument(data, name)
	if err != nil {
		return nil, err
	}

	b := newBuilder(name, p.maxDepth)
	rs := b.buildRuleSet(root)
	if b.errs.HasErrors() {
		return nil, b.errs
	}
	rs.Name = name
	return rs, nil
}

// ParseString is ParseBytes for string sources.
func (p *Parser) ParseString(source, name string) (*ast.RuleSet, error) {
	return p.ParseBytes([]byte(source), name)
}

// ParseFile reads and parses the file at path. The rule-set name is the
// file name without its extension.
func (p *Parser) ParseFile(path string) (*ast.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %q: %w", path, err)
	}
	return p.ParseBytes(data, NameFromPath(path))
}

// NameFromPath derives a rule-set name from a file path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
