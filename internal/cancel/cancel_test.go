package cancel

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_CancelIsTerminal(t *testing.T) {
	tok := NewToken()
	assert.False(t, tok.Cancelled())
	require.NoError(t, tok.Err())

	tok.Cancel()
	assert.True(t, tok.Cancelled())
	assert.ErrorIs(t, tok.Err(), ErrCancelled)

	// Cancelling again changes nothing.
	tok.Cancel()
	assert.True(t, tok.Cancelled())
}

func TestToken_NilIsNeverCancelled(t *testing.T) {
	var tok *Token
	assert.False(t, tok.Cancelled())
	assert.NoError(t, tok.Err())
}

func TestRegistry_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	tok := reg.Register("run-1")

	got, ok := reg.Lookup("run-1")
	require.True(t, ok)
	assert.Same(t, tok, got)

	assert.True(t, reg.Cancel("run-1"))
	assert.True(t, tok.Cancelled())

	reg.Remove("run-1")
	_, ok = reg.Lookup("run-1")
	assert.False(t, ok)
	assert.False(t, reg.Cancel("run-1"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("run-%d", i)
			tok := reg.Register(id)
			reg.Cancel(id)
			assert.True(t, tok.Cancelled())
			reg.Remove(id)
		}()
	}
	wg.Wait()
}

func TestErrCancelled_DistinctVariant(t *testing.T) {
	err := fmt.Errorf("stage aborted: %w", ErrCancelled)
	assert.True(t, errors.Is(err, ErrCancelled))
}
