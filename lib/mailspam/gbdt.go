package mailspam

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// gbdt is a gradient-boosted trees binary estimator, evaluated from a json model dump
// with "tree_info" list where each tree is a nested structure of split and leaf nodes.
type gbdt struct {
	Objective string     `json:"objective"`
	Trees     []treeInfo `json:"tree_info"`
	sigmoid   float64
}

type treeInfo struct {
	Index     int       `json:"tree_index"`
	Structure *treeNode `json:"tree_structure"`
}

type treeNode struct {
	SplitFeature *int      `json:"split_feature"`
	Threshold    float64   `json:"threshold"`
	DecisionType string    `json:"decision_type"`
	DefaultLeft  bool      `json:"default_left"`
	MissingType  string    `json:"missing_type"`
	Left         *treeNode `json:"left_child"`
	Right        *treeNode `json:"right_child"`
	LeafValue    float64   `json:"leaf_value"`
}

// loadGBDT reads model dump from json and validates all trees
func loadGBDT(r io.Reader) (*gbdt, error) {
	m := gbdt{}
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("can't decode gbdt model, %w", err)
	}
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("gbdt model has no trees")
	}

	sigmoid, err := parseSigmoid(m.Objective)
	if err != nil {
		return nil, err
	}
	m.sigmoid = sigmoid

	for _, t := range m.Trees {
		if t.Structure == nil {
			return nil, fmt.Errorf("tree %d has no structure", t.Index)
		}
		if err := t.Structure.validate(); err != nil {
			return nil, fmt.Errorf("tree %d: %w", t.Index, err)
		}
	}
	return &m, nil
}

// parseSigmoid extracts sigmoid coefficient from objective, i.e. "binary sigmoid:1"
func parseSigmoid(objective string) (float64, error) {
	fields := strings.Fields(objective)
	if len(fields) == 0 {
		return 1, nil // objective not exported, assume plain binary
	}
	if fields[0] != "binary" {
		return 0, fmt.Errorf("unsupported objective %q, only binary is supported", objective)
	}
	for _, f := range fields[1:] {
		if v, ok := strings.CutPrefix(f, "sigmoid:"); ok {
			sigmoid, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0, fmt.Errorf("can't parse sigmoid in %q, %w", objective, err)
			}
			return sigmoid, nil
		}
	}
	return 1, nil
}

func (n *treeNode) validate() error {
	if n.isLeaf() {
		return nil
	}
	if n.DecisionType != "" && n.DecisionType != "<=" {
		return fmt.Errorf("unsupported decision type %q", n.DecisionType)
	}
	if n.Left == nil || n.Right == nil {
		return fmt.Errorf("split on feature %d has missing child", *n.SplitFeature)
	}
	if err := n.Left.validate(); err != nil {
		return err
	}
	return n.Right.validate()
}

func (n *treeNode) isLeaf() bool { return n.SplitFeature == nil }

// goLeft decides direction for a feature value; absent features come as 0
func (n *treeNode) goLeft(val float64) bool {
	switch n.MissingType {
	case "Zero":
		if math.Abs(val) <= 1e-35 {
			return n.DefaultLeft
		}
	case "NaN":
		if math.IsNaN(val) {
			return n.DefaultLeft
		}
	default:
		if math.IsNaN(val) {
			val = 0
		}
	}
	return val <= n.Threshold
}

// raw returns sum of leaf values over all trees
func (m *gbdt) raw(x Features) float64 {
	var sum float64
	for _, t := range m.Trees {
		node := t.Structure
		for !node.isLeaf() {
			if node.goLeft(x[*node.SplitFeature]) {
				node = node.Left
				continue
			}
			node = node.Right
		}
		sum += node.LeafValue
	}
	return sum
}

// Predict returns true if probability of spam is above 0.5
func (m *gbdt) Predict(x Features) (spam bool, prob float64) {
	prob = 1 / (1 + math.Exp(-m.sigmoid*m.raw(x)))
	return prob > 0.5, prob
}
