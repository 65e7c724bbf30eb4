package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"umbra/internal/domain"
)

func TestKeyedMutex_SerializesSameAddress(t *testing.T) {
	k := newKeyedMutex()
	addr := domain.Address{UUID: uuid.New(), DeviceID: 1}

	unlock := k.lock(addr)
	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		k.lock(addr)()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
	require.Zero(t, k.size())
}

func TestKeyedMutex_IndependentAddresses(t *testing.T) {
	k := newKeyedMutex()
	a := domain.Address{UUID: uuid.New(), DeviceID: 1}
	b := domain.Address{UUID: a.UUID, DeviceID: 2}

	unlockA := k.lock(a)
	unlockB := k.lock(b)
	require.Equal(t, 2, k.size())
	unlockB()
	unlockA()
	require.Zero(t, k.size())
}

func TestKeyedMutex_ManyWaiters(t *testing.T) {
	k := newKeyedMutex()
	addr := domain.Address{UUID: uuid.New(), DeviceID: 1}

	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer k.lock(addr)()
			counter++
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
	require.Zero(t, k.size())
}
