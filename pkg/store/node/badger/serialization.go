package badger

import (
	"encoding/json"
	"fmt"

	"github.com/radium-data/radium/pkg/store/node"
)

// Serialization Strategy
// ======================
//
// Node rows are stored as JSON. Rows are small (metadata maps and an ACL
// map), so the readability and schema flexibility of JSON outweigh the size
// of a binary encoding.

func encodeNode(n *node.TreeNode) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node %s: %w", n.Path(), err)
	}
	return data, nil
}

func decodeNode(data []byte) (*node.TreeNode, error) {
	var n node.TreeNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to decode node: %w", err)
	}
	return &n, nil
}
