package pool_test

import (
	"testing"

	"github.com/flowbyte/stream/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	resets int
	id     int
}

func TestRecyclingGetAllocatesWhenEmpty(t *testing.T) {
	var nextID int
	p := pool.New(2, func() (*widget, error) {
		nextID++
		return &widget{id: nextID}, nil
	}, func(w *widget) { w.resets++ })

	h, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, h.Value.id)
	assert.Equal(t, 1, p.InUse())
	assert.Equal(t, 1, p.Alloced())
	assert.Equal(t, 0, p.InPool())
}

func TestRecyclingReleaseReturnsToFreeList(t *testing.T) {
	var nextID int
	p := pool.New(2, func() (*widget, error) {
		nextID++
		return &widget{id: nextID}, nil
	}, func(w *widget) { w.resets++ })

	h, err := p.Get()
	require.NoError(t, err)
	h.Release()

	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, 1, p.InPool())
	assert.Equal(t, 1, h.Value.resets)
}

func TestRecyclingGetReusesReleasedObjectBeforeAllocating(t *testing.T) {
	var allocs int
	p := pool.New(1, func() (*widget, error) {
		allocs++
		return &widget{id: allocs}, nil
	}, func(w *widget) {})

	h1, err := p.Get()
	require.NoError(t, err)
	h1.Release()

	h2, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, allocs)
	assert.Same(t, h1.Value, h2.Value)
}

func TestRecyclingOverCapacityReleaseDiscards(t *testing.T) {
	var allocs int
	p := pool.New(1, func() (*widget, error) {
		allocs++
		return &widget{id: allocs}, nil
	}, func(w *widget) {})

	h1, _ := p.Get()
	h2, _ := p.Get()
	h1.Release()
	h2.Release()

	assert.Equal(t, 1, p.InPool())
	assert.Equal(t, 1, p.Alloced())
}

func TestRecyclingZeroHandleReleaseIsNoOp(t *testing.T) {
	var h pool.Handle[widget]
	assert.NotPanics(t, func() { h.Release() })
}
