package param_id

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyToIDIsIdempotent(t *testing.T) {
	a := PropertyToID("_TestIdempotent")
	b := PropertyToID("_TestIdempotent")
	assert.Equal(t, a, b)
	assert.NotEqual(t, Invalid, a)

	name, ok := Name(a)
	require.True(t, ok)
	assert.Equal(t, "_TestIdempotent", name)
}

func TestDistinctNamesGetDistinctIDs(t *testing.T) {
	assert.NotEqual(t, PropertyToID("_TestDistinctA"), PropertyToID("_TestDistinctB"))
}

func TestNameOfUnknownID(t *testing.T) {
	_, ok := Name(Invalid)
	assert.False(t, ok)
	_, ok = Name(ParamID(1 << 30))
	assert.False(t, ok)
}

func TestTextureArrayParamIDsSlots(t *testing.T) {
	ids := NewTextureArrayParamIDs(TextureArrayName("TestSlots"))

	assert.Equal(t, "_LD_TexArray_TestSlots", ids.Name(false))
	assert.Equal(t, "_LD_TexArray_TestSlots_Source", ids.Name(true))
	assert.Equal(t, PropertyToID("_LD_TexArray_TestSlots"), ids.ID(false))
	assert.Equal(t, PropertyToID("_LD_TexArray_TestSlots_Source"), ids.ID(true))
	assert.NotEqual(t, ids.ID(false), ids.ID(true))
}

func TestHandlesSurviveReinit(t *testing.T) {
	Init()
	ids := NewTextureArrayParamIDs(TextureArrayName("TestReinit"))
	plain := PropertyToID("_TestReinitPlain")
	current, source := ids.ID(false), ids.ID(true)
	gen := Generation()

	Reinit()

	assert.Equal(t, gen+1, Generation())
	assert.Equal(t, plain, PropertyToID("_TestReinitPlain"))
	assert.Equal(t, current, ids.ID(false))
	assert.Equal(t, source, ids.ID(true))
	// the slot-qualified container and the plain registry agree after reinit
	assert.Equal(t, PropertyToID(ids.Name(false)), ids.ID(false))
	assert.Equal(t, PropertyToID(ids.Name(true)), ids.ID(true))
}

func TestPropertyToIDConcurrent(t *testing.T) {
	const workers = 16
	results := make([]ParamID, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 50 {
				PropertyToID(fmt.Sprintf("_TestConcurrent%d", j))
			}
			results[i] = PropertyToID("_TestConcurrentShared")
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, results[0], id)
	}
}

func TestTextureArrayParamIDsAreSharedByName(t *testing.T) {
	name := TextureArrayName("TestShared")
	first := NewTextureArrayParamIDs(name)

	global.mu.RLock()
	count := len(global.containers)
	global.mu.RUnlock()

	for range 10 {
		assert.Same(t, first, NewTextureArrayParamIDs(name))
	}

	global.mu.RLock()
	defer global.mu.RUnlock()
	assert.Len(t, global.containers, count, "repeated lookups register nothing new")
}
