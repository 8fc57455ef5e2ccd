package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// Generator produces identifiers for ledger entries: UUIDs for row ids and
// snowflake numbers for the globally unique, sortable transaction numbers
// used in idempotency and audit lookups.
type Generator struct {
	node *snowflake.Node
}

// New creates a Generator. nodeID must be unique per running instance
// (0-1023) so concurrently generated transaction numbers never collide.
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// CreditID returns a new ledger row identifier.
func (g *Generator) CreditID() string {
	return uuid.NewString()
}

// TransactionNo returns a new globally unique transaction number.
func (g *Generator) TransactionNo() string {
	return g.node.Generate().String()
}
