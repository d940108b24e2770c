package uow

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

const lockShards = 64

// keyedLocks serializes in-process work on a set of entity IDs. Shard
// indices are sorted and deduplicated before locking so two callers
// holding overlapping key sets can never deadlock each other, and a
// caller whose keys collide on one shard never locks it twice.
type keyedLocks struct {
	shards [lockShards]sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{}
}

func (kl *keyedLocks) lock(keys []uuid.UUID) (unlock func()) {
	indices := make([]int, 0, len(keys))
	for _, key := range keys {
		indices = append(indices, shardIndex(key))
	}
	sort.Ints(indices)

	locked := indices[:0]
	prev := -1
	for _, idx := range indices {
		if idx == prev {
			continue
		}
		kl.shards[idx].Lock()
		locked = append(locked, idx)
		prev = idx
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			kl.shards[locked[i]].Unlock()
		}
	}
}

func shardIndex(key uuid.UUID) int {
	// FNV-1a over the raw 16 bytes.
	var hash uint32 = 2166136261
	for _, b := range key {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return int(hash % lockShards)
}
