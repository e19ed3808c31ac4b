package models

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	idNodeMu sync.Mutex
	idNode   *snowflake.Node
)

// SetIDNode configures the snowflake node used for comment ids. It must be
// called before the first comment is created if more than one process
// writes to the same database.
func SetIDNode(n int64) error {
	node, err := snowflake.NewNode(n)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", n, err)
	}
	idNodeMu.Lock()
	idNode = node
	idNodeMu.Unlock()
	return nil
}

// NewCommentID returns a fresh, time-ordered comment id.
func NewCommentID() string {
	idNodeMu.Lock()
	if idNode == nil {
		// Node 0 is always in range.
		idNode, _ = snowflake.NewNode(0)
	}
	node := idNode
	idNodeMu.Unlock()
	return node.Generate().String()
}
