package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses YAML text into a node tree. An empty document parses to
// an empty map. Key order is preserved.
func ParseYAML(text string) (Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, &DataError{Message: "failed to parse YAML document", Cause: err}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return &Map{}, nil
	}
	return fromYAML(root.Content[0], make(map[*yaml.Node]bool))
}

// fromYAML converts a decoded yaml.Node into the tagged-union tree.
// inProgress tracks alias targets currently being expanded: yaml.v3 only
// detects alias cycles when decoding into concrete values, so a
// self-referential anchor would otherwise recurse without bound.
func fromYAML(n *yaml.Node, inProgress map[*yaml.Node]bool) (Node, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := &Map{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, &DataError{Message: fmt.Sprintf("non-scalar map key at line %d", keyNode.Line)}
			}
			value, err := fromYAML(n.Content[i+1], inProgress)
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, value)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make(Sequence, 0, len(n.Content))
		for _, item := range n.Content {
			value, err := fromYAML(item, inProgress)
			if err != nil {
				return nil, err
			}
			seq = append(seq, value)
		}
		return seq, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, &DataError{Message: fmt.Sprintf("undecodable scalar at line %d", n.Line), Cause: err}
		}
		return Scalar{Value: v}, nil
	case yaml.AliasNode:
		if inProgress[n.Alias] {
			return nil, &DataError{Message: fmt.Sprintf("cyclic alias %q at line %d", n.Value, n.Line)}
		}
		inProgress[n.Alias] = true
		value, err := fromYAML(n.Alias, inProgress)
		delete(inProgress, n.Alias)
		return value, err
	default:
		return nil, &DataError{Message: fmt.Sprintf("unsupported YAML node kind %d at line %d", n.Kind, n.Line)}
	}
}

// ParseJSON parses JSON text into a node tree. The token decoder is used
// instead of json.Unmarshal so object key order survives.
func ParseJSON(text string) (Node, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	node, err := fromJSON(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, &DataError{Message: "trailing content after JSON document"}
	}
	return node, nil
}

func fromJSON(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, &DataError{Message: "failed to parse JSON document", Cause: err}
	}
	return fromJSONToken(dec, tok)
}

func fromJSONToken(dec *json.Decoder, tok json.Token) (Node, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := &Map{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, &DataError{Message: "failed to parse JSON object key", Cause: err}
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, &DataError{Message: fmt.Sprintf("unexpected JSON object key %v", keyTok)}
				}
				value, err := fromJSON(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, value)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, &DataError{Message: "unterminated JSON object", Cause: err}
			}
			return m, nil
		case '[':
			seq := Sequence{}
			for dec.More() {
				value, err := fromJSON(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, value)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, &DataError{Message: "unterminated JSON array", Cause: err}
			}
			return seq, nil
		}
		return nil, &DataError{Message: fmt.Sprintf("unexpected JSON delimiter %q", t)}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Scalar{Value: int(i)}, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, &DataError{Message: fmt.Sprintf("unrepresentable JSON number %q", t), Cause: err}
		}
		return Scalar{Value: f}, nil
	case string:
		return Scalar{Value: t}, nil
	case bool:
		return Scalar{Value: t}, nil
	case nil:
		return Scalar{Value: nil}, nil
	default:
		return nil, &DataError{Message: fmt.Sprintf("unexpected JSON token %v", tok)}
	}
}

// NormalizeJSON converts JSON text into its YAML text form, preserving key
// order and Unicode. The result feeds the same pipeline as native YAML
// input; this is a convenience conversion, not a semantic transform.
func NormalizeJSON(text string) (string, error) {
	node, err := ParseJSON(text)
	if err != nil {
		return "", err
	}
	out, err := yaml.Marshal(toYAML(node))
	if err != nil {
		return "", &DataError{Message: "failed to encode document as YAML", Cause: err}
	}
	return string(out), nil
}

func toYAML(n Node) *yaml.Node {
	switch v := n.(type) {
	case Scalar:
		yn := &yaml.Node{}
		if v.Value == nil {
			yn.Kind = yaml.ScalarNode
			yn.Tag = "!!null"
			yn.Value = "null"
			return yn
		}
		// Encode cannot fail for plain scalar values.
		_ = yn.Encode(v.Value)
		return yn
	case Sequence:
		yn := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			yn.Content = append(yn.Content, toYAML(item))
		}
		return yn
	case *Map:
		yn := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v.Entries() {
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}
			yn.Content = append(yn.Content, key, toYAML(e.Value))
		}
		return yn
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
