package history

import (
	"hash/fnv"
	"sync"
)

// DefaultLockShards is the shard count drivers use for their lock tables.
const DefaultLockShards = 64

// LockTable serializes operations per user while letting different users
// proceed concurrently. Locks are sharded by fnv-1a of the user id, so
// the table stays fixed-size no matter how many users appear.
type LockTable struct {
	shards []sync.Mutex
}

// NewLockTable builds a table with the given shard count; non-positive
// counts fall back to DefaultLockShards.
func NewLockTable(shards int) *LockTable {
	if shards <= 0 {
		shards = DefaultLockShards
	}
	return &LockTable{shards: make([]sync.Mutex, shards)}
}

// Lock acquires the user's shard and returns the unlock function:
//
//	defer t.Lock(user)()
func (t *LockTable) Lock(user string) func() {
	m := &t.shards[t.shard(user)]
	m.Lock()
	return m.Unlock
}

func (t *LockTable) shard(user string) int {
	h := fnv.New32a()
	h.Write([]byte(user))
	return int(h.Sum32() % uint32(len(t.shards)))
}
