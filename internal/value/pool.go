package value

import (
	"sync"
	"sync/atomic"
)

// Object pooling for the most frequently allocated value variants, directly
// adapted from the teacher's internal/interp/runtime/pool.go: Integer and
// Number are pooled via sync.Pool, Boolean uses singleton true/false
// instances, and String is deliberately left unpooled since it is
// variable-size.
//
// Pooling here hands out *Integer/*Number pointers rather than the
// Integer/Number values themselves, because Integer and Number are
// non-pointer Kind-only types (see value.go) and Go values of that shape are
// already stack-allocated in the common case; the pool serves call sites
// that need a stable pointer without re-deriving one from scratch.

var (
	integerPool = sync.Pool{New: func() any {
		poolStats.integerAllocs.Add(1)
		return new(Integer)
	}}
	numberPool = sync.Pool{New: func() any {
		poolStats.numberAllocs.Add(1)
		return new(Number)
	}}

	poolStats = struct {
		integerAllocs atomic.Uint64
		integerGets   atomic.Uint64
		integerPuts   atomic.Uint64
		numberAllocs  atomic.Uint64
		numberGets    atomic.Uint64
		numberPuts    atomic.Uint64
	}{}

	trueValue  = Boolean(true)
	falseValue = Boolean(false)
)

// BorrowInteger returns a pooled *Integer set to v.
func BorrowInteger(v int64) *Integer {
	poolStats.integerGets.Add(1)
	p := integerPool.Get().(*Integer)
	*p = Integer(v)
	return p
}

// ReleaseInteger returns p to the pool. Optional; ordinary garbage
// collection reclaims unreleased values.
func ReleaseInteger(p *Integer) {
	if p == nil {
		return
	}
	*p = 0
	poolStats.integerPuts.Add(1)
	integerPool.Put(p)
}

// BorrowNumber returns a pooled *Number set to v.
func BorrowNumber(v float64) *Number {
	poolStats.numberGets.Add(1)
	p := numberPool.Get().(*Number)
	*p = Number(v)
	return p
}

// ReleaseNumber returns p to the pool.
func ReleaseNumber(p *Number) {
	if p == nil {
		return
	}
	*p = 0
	poolStats.numberPuts.Add(1)
	numberPool.Put(p)
}

// BorrowBoolean returns one of two singleton instances; there is nothing to
// release.
func BorrowBoolean(v bool) *Boolean {
	if v {
		return &trueValue
	}
	return &falseValue
}

// PoolStats mirrors the teacher's exported pool statistics shape.
type PoolStats struct {
	IntegerAllocs, IntegerGets, IntegerPuts uint64
	NumberAllocs, NumberGets, NumberPuts    uint64
}

// GetPoolStats returns current pool statistics, useful for monitoring pool
// effectiveness under sustained script execution.
func GetPoolStats() PoolStats {
	return PoolStats{
		IntegerAllocs: poolStats.integerAllocs.Load(),
		IntegerGets:   poolStats.integerGets.Load(),
		IntegerPuts:   poolStats.integerPuts.Load(),
		NumberAllocs:  poolStats.numberAllocs.Load(),
		NumberGets:    poolStats.numberGets.Load(),
		NumberPuts:    poolStats.numberPuts.Load(),
	}
}

// ResetPoolStats zeroes the counters; used by benchmarks and tests.
func ResetPoolStats() {
	poolStats.integerAllocs.Store(0)
	poolStats.integerGets.Store(0)
	poolStats.integerPuts.Store(0)
	poolStats.numberAllocs.Store(0)
	poolStats.numberGets.Store(0)
	poolStats.numberPuts.Store(0)
}
