package cache

// A Builder can build caches.
type Builder struct {
	byteSize  uint64
	numWays   int
	blockSize int
	warmup    uint64
}

// MakeBuilder creates a builder with the default parameters: a 32 MiB, 8-way
// cache with 64-byte lines.
func MakeBuilder() Builder {
	return Builder{
		byteSize:  32 << 20,
		numWays:   8,
		blockSize: 64,
	}
}

// WithByteSize sets the capacity of the cache.
func (b Builder) WithByteSize(byteSize uint64) Builder {
	b.byteSize = byteSize
	return b
}

// WithNumCores sizes the cache at 32 MiB per core.
func (b Builder) WithNumCores(n int) Builder {
	b.byteSize = uint64(n) * (32 << 20)
	return b
}

// WithNumWays sets the associativity.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// WithBlockSize sets the line size in bytes.
func (b Builder) WithBlockSize(n int) Builder {
	b.blockSize = n
	return b
}

// WithWarmupCycles sets the cycle up to which accesses are not counted.
func (b Builder) WithWarmupCycles(cycle uint64) Builder {
	b.warmup = cycle
	return b
}

// Build creates the cache.
func (b Builder) Build() *Cache {
	return newCache(b.byteSize, b.numWays, b.blockSize, b.warmup)
}
