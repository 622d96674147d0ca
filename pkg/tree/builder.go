package tree

import (
	"sort"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// TreeNode is one visited entity of the built forest.
type TreeNode struct {
	Key      string          `json:"key"`
	Name     string          `json:"name"`
	Data     models.NodeData `json:"data"`
	Leaf     bool            `json:"leaf"`
	Children []*TreeNode     `json:"children"` // Non-nil for non-leaf nodes, filled only when expanded
}

// Build produces the forest below root. Collapsed non-leaf nodes are present
// with an empty child list even when their children are loaded. Only the
// top-level list is sorted by name; deeper levels keep parent index order.
func Build(root string, parents ParentIndex, nodes NodeReader, expanded map[string]bool) []*TreeNode {
	if len(parents) == 0 {
		return []*TreeNode{}
	}
	result := buildLevel(root, parents, nodes, expanded, map[string]bool{root: true})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

func buildLevel(parentID string, parents ParentIndex, nodes NodeReader, expanded, visiting map[string]bool) []*TreeNode {
	level := []*TreeNode{}
	for _, childID := range parents[parentID] {
		n, ok := nodes.Get(childID)
		if !ok {
			continue
		}
		tn := &TreeNode{
			Key:  childID,
			Name: n.Data.Name,
			Data: n.Data,
			Leaf: n.Leaf,
		}
		if !n.Leaf {
			tn.Children = []*TreeNode{}
			// visiting guards against parent cycles in inconsistent server data
			if expanded[childID] && !visiting[childID] {
				visiting[childID] = true
				tn.Children = buildLevel(childID, parents, nodes, expanded, visiting)
				delete(visiting, childID)
			}
		}
		level = append(level, tn)
	}
	return level
}

// Row is a tree node flattened for line-based rendering.
type Row struct {
	Node     *TreeNode
	Depth    int
	Expanded bool
}

// Flatten walks the forest depth first.
func Flatten(forest []*TreeNode, expanded map[string]bool) []Row {
	var rows []Row
	var walk func([]*TreeNode, int)
	walk = func(level []*TreeNode, depth int) {
		for _, n := range level {
			rows = append(rows, Row{Node: n, Depth: depth, Expanded: !n.Leaf && expanded[n.Key]})
			walk(n.Children, depth+1)
		}
	}
	walk(forest, 0)
	return rows
}
