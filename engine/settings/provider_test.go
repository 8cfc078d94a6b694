package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_OwnedFallback(t *testing.T) {
	calls := 0
	p := NewProvider("Test Auto-generated Settings", func() testSettings {
		calls++
		return testSettings{Rate: 0.8}
	}, nil)
	assert.Zero(t, calls, "the fallback is created lazily")

	src := p.Source()
	assert.Equal(t, "Test Auto-generated Settings", src.Name())
	assert.Equal(t, float32(0.8), p.Get().Rate)
	assert.Same(t, src, p.Source())
	assert.Equal(t, 1, calls)
	assert.False(t, p.Borrowed())
}

func TestProvider_BorrowedTakesPrecedence(t *testing.T) {
	p := NewProvider("Test Auto-generated Settings", func() testSettings { return testSettings{Rate: 0.8} }, nil)
	_ = p.Source()

	external := NewSource("external", testSettings{Rate: 2})
	p.Borrow(external)
	assert.True(t, p.Borrowed())
	assert.Same(t, external, p.Source())
	assert.Equal(t, float32(2), p.Get().Rate)

	require.NoError(t, external.Set(testSettings{Rate: 3}))
	assert.Equal(t, float32(3), p.Get().Rate, "changes to a borrowed source are seen immediately")

	p.Borrow(nil)
	assert.Equal(t, float32(0.8), p.Get().Rate)
}
