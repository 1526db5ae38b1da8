package expr

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// Key returns a stable content hash of the tree, suitable for addressing
// cached evaluation results. Structurally identical trees hash identically;
// the hash covers node tags, literal values and child order.
func Key(e Expr) string {
	h := fnv.New64a()
	writeKey(h, e)
	return fmt.Sprintf("%016x", h.Sum64())
}

func writeKey(h interface{ Write([]byte) (int, error) }, e Expr) {
	head := e.head()
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(head)))
	h.Write(n[:])
	h.Write([]byte(head))
	for _, c := range e.children() {
		writeKey(h, c)
	}
	h.Write([]byte{0})
}
