package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("claim-1")
			counter++
			km.Unlock("claim-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, km.Len(), "released keys should be evicted")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("claim-1")

	done := make(chan struct{})
	go func() {
		km.Lock("claim-2")
		km.Unlock("claim-2")
		close(done)
	}()

	// claim-2 must not block behind claim-1.
	<-done

	km.Unlock("claim-1")
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutexUnlockUnheldPanics(t *testing.T) {
	km := NewKeyedMutex()
	assert.Panics(t, func() {
		km.Unlock("never-locked")
	})
}
