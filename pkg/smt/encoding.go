package smt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// rlpNode is the compact wire form of a Node. A and B hold Left/Right for
// middle nodes and Key/Value for leaves.
type rlpNode struct {
	Type uint8
	A    common.Hash
	B    common.Hash
}

// MarshalNode encodes a node with RLP.
func MarshalNode(n *Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("cannot marshal nil Node")
	}

	var wire rlpNode
	switch n.Type {
	case NodeMiddle:
		wire = rlpNode{Type: uint8(NodeMiddle), A: n.Left, B: n.Right}
	case NodeLeaf:
		wire = rlpNode{Type: uint8(NodeLeaf), A: n.Key, B: n.Value}
	default:
		return nil, fmt.Errorf("cannot marshal %s node", n.Type)
	}

	return rlp.EncodeToBytes(&wire)
}

// UnmarshalNode decodes a node produced by MarshalNode.
func UnmarshalNode(data []byte) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var wire rlpNode
	if err := rlp.DecodeBytes(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode node: %w", err)
	}

	switch NodeType(wire.Type) {
	case NodeMiddle:
		return &Node{Type: NodeMiddle, Left: wire.A, Right: wire.B}, nil
	case NodeLeaf:
		return &Node{Type: NodeLeaf, Key: wire.A, Value: wire.B}, nil
	default:
		return nil, fmt.Errorf("unknown node type %d", wire.Type)
	}
}
