// Package cache provides a set-associative, write-back last-level cache that
// filters the accesses of a trace before they reach the memory system.
package cache

import (
	"fmt"
	"log"
	"math/bits"
)

// A Block is the information that is associated with a cache line.
type Block struct {
	Tag     uint64
	Address uint64
	SetID   int
	WayID   int
	IsValid bool
	IsDirty bool
}

// A Set is a list of blocks where a certain piece of memory can be stored.
// LRUQueue holds way IDs, least recently used first.
type Set struct {
	Blocks   []Block
	LRUQueue []int
}

// Stats are the access counters of a cache. Accesses at or before the
// warm-up cycle are not counted.
type Stats struct {
	Accesses   uint64
	Hits       uint64
	WriteBacks uint64
}

// Misses returns the number of counted accesses that missed.
func (s Stats) Misses() uint64 {
	return s.Accesses - s.Hits
}

// HitRate returns the fraction of counted accesses that hit.
func (s Stats) HitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Accesses)
}

func (s Stats) String() string {
	return fmt.Sprintf("total: %d\twrite back: %d\thit: %d\thit rate: %g",
		s.Accesses, s.WriteBacks, s.Hits, s.HitRate())
}

// Cache is an LRU write-back cache. It only tracks tags; it holds no data.
type Cache struct {
	numSets   int
	numWays   int
	blockSize int

	blockBits uint
	setBits   uint

	warmup uint64
	sets   []Set
	stats  Stats
}

func newCache(byteSize uint64, numWays, blockSize int, warmup uint64) *Cache {
	if blockSize <= 0 || blockSize&(blockSize-1) != 0 {
		log.Panicf("cache block size %d is not a power of two", blockSize)
	}

	numSets := int(byteSize / uint64(blockSize*numWays))
	if numSets <= 0 || numSets&(numSets-1) != 0 {
		log.Panicf("cache of %d bytes with %d ways has %d sets, "+
			"which is not a power of two", byteSize, numWays, numSets)
	}

	c := &Cache{
		numSets:   numSets,
		numWays:   numWays,
		blockSize: blockSize,
		blockBits: uint(bits.TrailingZeros(uint(blockSize))),
		setBits:   uint(bits.TrailingZeros(uint(numSets))),
		warmup:    warmup,
	}

	c.Reset()

	return c
}

// NumSets returns the number of sets.
func (c *Cache) NumSets() int {
	return c.numSets
}

// NumWays returns the associativity.
func (c *Cache) NumWays() int {
	return c.numWays
}

// BlockSize returns the size of a line in bytes.
func (c *Cache) BlockSize() int {
	return c.blockSize
}

// TotalSize returns the number of bytes the cache can hold.
func (c *Cache) TotalSize() uint64 {
	return uint64(c.numSets) * uint64(c.numWays) * uint64(c.blockSize)
}

// Stats returns the counters collected so far.
func (c *Cache) Stats() Stats {
	return c.stats
}

// Reset invalidates every block and clears the counters.
func (c *Cache) Reset() {
	c.stats = Stats{}
	c.sets = make([]Set, c.numSets)

	for i := range c.sets {
		set := &c.sets[i]
		set.Blocks = make([]Block, c.numWays)
		set.LRUQueue = make([]int, c.numWays)

		for j := 0; j < c.numWays; j++ {
			set.Blocks[j] = Block{SetID: i, WayID: j}
			set.LRUQueue[j] = j
		}
	}
}

func (c *Cache) locate(addr uint64) (setID int, tag uint64) {
	line := addr >> c.blockBits
	setID = int(line & uint64(c.numSets-1))
	tag = line >> c.setBits

	return setID, tag
}

// Lookup returns the block that holds addr, if any. It does not change the
// LRU order.
func (c *Cache) Lookup(addr uint64) (Block, bool) {
	setID, tag := c.locate(addr)

	for _, b := range c.sets[setID].Blocks {
		if b.IsValid && b.Tag == tag {
			return b, true
		}
	}

	return Block{}, false
}

// Access looks up addr and makes its line the most recently used one. On a
// miss the line is loaded in place of the least recently used line of the
// set. If that line was dirty, its address is returned as evicted and must
// be written back. A write marks the line dirty.
func (c *Cache) Access(addr uint64, isWrite bool, cycle uint64) (
	hit bool,
	evicted *uint64,
) {
	counted := cycle > c.warmup
	if counted {
		c.stats.Accesses++
	}

	setID, tag := c.locate(addr)
	set := &c.sets[setID]

	way := -1
	for i, b := range set.Blocks {
		if b.IsValid && b.Tag == tag {
			way = i
			break
		}
	}

	if way >= 0 {
		hit = true

		if counted {
			c.stats.Hits++
		}
	} else {
		way = c.findVictim(set)
		victim := set.Blocks[way]

		if victim.IsValid && victim.IsDirty {
			wb := victim.Address
			evicted = &wb

			if counted {
				c.stats.WriteBacks++
			}
		}

		set.Blocks[way] = Block{
			Tag:     tag,
			Address: addr &^ uint64(c.blockSize-1),
			SetID:   setID,
			WayID:   way,
			IsValid: true,
		}
	}

	if isWrite {
		set.Blocks[way].IsDirty = true
	}

	visit(set, way)

	return hit, evicted
}

// findVictim prefers an invalid block and falls back to the least recently
// used one.
func (c *Cache) findVictim(set *Set) int {
	for _, way := range set.LRUQueue {
		if !set.Blocks[way].IsValid {
			return way
		}
	}

	return set.LRUQueue[0]
}

func visit(set *Set, way int) {
	q := set.LRUQueue[:0]

	for _, w := range set.LRUQueue {
		if w != way {
			q = append(q, w)
		}
	}

	set.LRUQueue = append(q, way)
}
