package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
)

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// decodeDocument decodes a single YAML document and returns its root node.
func decodeDocument(data []byte, name string) (*yaml.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeStructural,
			Message:  "source is empty",
			Location: ast.Location{File: name},
		}
	}

	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &rulesErrors.Error{
			Type:       rulesErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: name, Line: syntaxErrorLine(err), Column: 1},
			Suggestion: "check indentation, colons and quotes",
		}
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeStructural,
			Message:  "source must contain exactly one YAML document",
			Location: ast.Location{File: name, Line: extra.Line, Column: extra.Column},
		}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeStructural,
			Message:  "source has no content",
			Location: ast.Location{File: name},
		}
	}

	return doc.Content[0], nil
}

// syntaxErrorLine extracts the line number from a yaml.v3 error message.
func syntaxErrorLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if len(m) != 2 {
		return 1
	}
	line, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 1
	}
	return line
}

type keyValue struct {
	key   *yaml.Node
	value *yaml.Node
}

// mappingPairs returns the key/value pairs of a mapping node in order.
func mappingPairs(node *yaml.Node) []keyValue {
	pairs := make([]keyValue, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		pairs = append(pairs, keyValue{key: node.Content[i], value: node.Content[i+1]})
	}
	return pairs
}

// mappingValue returns the value for key in a mapping node, or nil.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for _, kv := range mappingPairs(node) {
		if kv.key.Value == key {
			return kv.value
		}
	}
	return nil
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
