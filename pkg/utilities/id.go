package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
// Used for opaque one-shot tokens such as email verification links.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewContactID returns a random UUID v4 string, the surrogate key of a contact.
func NewContactID() string {
	return uuid.NewString()
}

// IsContactID reports whether s parses as a UUID.
func IsContactID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NewSnowflakeID generates a snowflake ID string using a node ID from
// the environment variable SNOWFLAKE_NODE. The node is created once per
// process so IDs stay monotonic. If node setup fails it falls back to a KSUID.
func NewSnowflakeID() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = n
			}
		}
		node, _ = snowflake.NewNode(nodeID)
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
