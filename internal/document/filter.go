package document

import "fmt"

// Target selects which output document a render produces. It drives both
// visibility filtering and template selection.
type Target string

const (
	TargetCV     Target = "cv"
	TargetResume Target = "resume"
)

// ParseTarget validates a document-type string.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetCV, TargetResume:
		return Target(s), nil
	default:
		return "", fmt.Errorf("unknown document type %q (expected cv or resume)", s)
	}
}

// ShowOnKey is the map field carrying a node's visibility annotation.
const ShowOnKey = "show_on"

// Filter recursively prunes subtrees not tagged for target. The second
// return value reports presence: false means the node (and its subtree)
// is removed, which callers must distinguish from an empty value. Maps
// tagged for other targets are removed; sequences are filtered per
// element and never removed themselves; scalars always pass. Applying
// Filter to its own output is a no-op.
func Filter(n Node, target Target) (Node, bool, error) {
	switch v := n.(type) {
	case Scalar:
		return v, true, nil
	case Sequence:
		out := make(Sequence, 0, len(v))
		for _, item := range v {
			filtered, present, err := Filter(item, target)
			if err != nil {
				return nil, false, err
			}
			if present {
				out = append(out, filtered)
			}
		}
		return out, true, nil
	case *Map:
		if tagNode, ok := v.Get(ShowOnKey); ok {
			tags, err := visibilityTags(tagNode)
			if err != nil {
				return nil, false, err
			}
			if !containsTarget(tags, target) {
				return nil, false, nil
			}
		}
		return filterMapEntries(v, target)
	default:
		return nil, false, &FilterError{Message: fmt.Sprintf("unsupported node type %T", n)}
	}
}

// Apply filters a whole document for target. The root is never dropped: a
// root map has its show_on key stripped without being honored, so a
// stray top-level tag cannot erase the entire document.
func Apply(doc Node, target Target) (Node, error) {
	root, ok := doc.(*Map)
	if !ok {
		filtered, _, err := Filter(doc, target)
		if err != nil {
			return nil, err
		}
		return filtered, nil
	}
	filtered, _, err := filterMapEntries(root, target)
	if err != nil {
		return nil, err
	}
	return filtered, nil
}

// filterMapEntries filters a map's children, dropping the show_on key and
// any child that resolves to absent. Presence is always true.
func filterMapEntries(m *Map, target Target) (Node, bool, error) {
	out := &Map{}
	for _, e := range m.Entries() {
		if e.Key == ShowOnKey {
			continue
		}
		filtered, present, err := Filter(e.Value, target)
		if err != nil {
			return nil, false, err
		}
		if present {
			out.Set(e.Key, filtered)
		}
	}
	return out, true, nil
}

// visibilityTags normalizes a show_on value to a list of tag strings.
// Accepted shapes: a string, a sequence of strings, or null (no targets).
func visibilityTags(n Node) ([]string, error) {
	switch v := n.(type) {
	case Scalar:
		if v.Value == nil {
			return nil, nil
		}
		if s, ok := v.Value.(string); ok {
			return []string{s}, nil
		}
		return nil, &FilterError{Message: fmt.Sprintf("show_on must be a string or list of strings, got %v", v.Value)}
	case Sequence:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			scalar, ok := item.(Scalar)
			if !ok {
				return nil, &FilterError{Message: "show_on list may contain only strings"}
			}
			s, ok := scalar.Value.(string)
			if !ok {
				return nil, &FilterError{Message: fmt.Sprintf("show_on list may contain only strings, got %v", scalar.Value)}
			}
			tags = append(tags, s)
		}
		return tags, nil
	default:
		return nil, &FilterError{Message: "show_on must be a string or list of strings"}
	}
}

func containsTarget(tags []string, target Target) bool {
	for _, tag := range tags {
		if Target(tag) == target {
			return true
		}
	}
	return false
}
