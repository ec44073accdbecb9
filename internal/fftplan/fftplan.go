package fftplan

import (
	"fmt"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of distinct transform sizes kept by Shared.
const DefaultSize = 8

type entry struct {
	mu   sync.Mutex
	plan *algofft.Plan[complex128]
}

// Cache keeps recently used FFT plans keyed by transform size. A plan is
// used by one caller at a time.
type Cache struct {
	mu    sync.Mutex
	plans *lru.Cache[int, *entry]
}

// New returns a cache holding at most size plans.
func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("fftplan: cache size must be > 0: %d", size)
	}
	plans, err := lru.New[int, *entry](size)
	if err != nil {
		return nil, fmt.Errorf("fftplan: %w", err)
	}
	return &Cache{plans: plans}, nil
}

var (
	sharedOnce sync.Once
	shared     *Cache
)

// Shared returns the process cache used by the dsp packages.
func Shared() *Cache {
	sharedOnce.Do(func() {
		c, err := New(DefaultSize)
		if err != nil {
			panic(err)
		}
		shared = c
	})
	return shared
}

// Do runs fn with the plan for size n, creating it on first use.
// Concurrent callers asking for the same size are serialized.
func (c *Cache) Do(n int, fn func(*algofft.Plan[complex128]) error) error {
	e, err := c.get(n)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.plan)
}

// Len returns the number of cached plans.
func (c *Cache) Len() int {
	return c.plans.Len()
}

func (c *Cache) get(n int) (*entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.plans.Get(n); ok {
		return e, nil
	}
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("fftplan: create plan of size %d: %w", n, err)
	}
	e := &entry{plan: plan}
	c.plans.Add(n, e)
	return e, nil
}
