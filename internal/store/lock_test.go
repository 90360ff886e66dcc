package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

func TestDomainLocker_SerializesSameDomain(t *testing.T) {
	// Given: a locker with file locks
	l := NewDomainLocker(t.TempDir())
	ctx := context.Background()

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "example.com")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			active++
			maxActive = max(maxActive, active)
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	// Then: never more than one holder at a time
	assert.Equal(t, 1, maxActive)
}

func TestDomainLocker_DifferentDomainsDoNotBlock(t *testing.T) {
	l := NewDomainLocker("")
	ctx := context.Background()

	releaseA, err := l.Lock(ctx, "a.com")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := l.Lock(ctx, "b.com")
	require.NoError(t, err)
	releaseB()
}

func TestDomainLocker_FileLockHonoursContext(t *testing.T) {
	// Given: the file lock held by another locker (another process)
	dir := t.TempDir()
	holder := NewDomainLocker(dir)
	release, err := holder.Lock(context.Background(), "x/y")
	require.NoError(t, err)
	defer release()

	// When: a second locker waits with a short deadline
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = NewDomainLocker(dir).Lock(ctx, "x/y")

	// Then
	require.Error(t, err)
	assert.Equal(t, lmerrors.ErrCodeLockFailed, lmerrors.GetCode(err))
}
