package core

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MergeRule replaces adjacent (Left, Right) with Merged. Rules are replayed in the order they were learned.
type MergeRule struct {
	Left   int
	Right  int
	Merged int
}

// MarshalJSON writes the rule as a plain [left, right, merged] triple.
func (m MergeRule) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{m.Left, m.Right, m.Merged})
}

// UnmarshalJSON reads a [left, right, merged] triple.
func (m *MergeRule) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("merge rule: %w", err)
	}
	return m.fromSlice(v)
}

// MarshalYAML writes the rule as a flow sequence, [left, right, merged].
func (m MergeRule) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range [3]int{m.Left, m.Right, m.Merged} {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: fmt.Sprint(v),
		})
	}
	return node, nil
}

// UnmarshalYAML reads a [left, right, merged] sequence.
func (m *MergeRule) UnmarshalYAML(value *yaml.Node) error {
	var v []int
	if err := value.Decode(&v); err != nil {
		return fmt.Errorf("merge rule: %w", err)
	}
	return m.fromSlice(v)
}

func (m *MergeRule) fromSlice(v []int) error {
	if len(v) != 3 {
		return fmt.Errorf("merge rule: expected 3 ids, got %d", len(v))
	}
	m.Left, m.Right, m.Merged = v[0], v[1], v[2]
	return nil
}
