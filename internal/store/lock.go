package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

// DomainLocker serializes writes to a domain's cluster ids. Within a
// process it uses a mutex per domain; with a lock directory it also takes
// a file lock so that separate processes sharing a database do not commit
// the same domain at once.
type DomainLocker struct {
	dir   string
	retry time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDomainLocker creates a locker. An empty dir disables file locks.
func NewDomainLocker(dir string) *DomainLocker {
	return &DomainLocker{dir: dir, retry: 50 * time.Millisecond, locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the domain is held or ctx is done, and returns the
// release function.
func (l *DomainLocker) Lock(ctx context.Context, domain string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[domain]
	if !ok {
		m = &sync.Mutex{}
		l.locks[domain] = m
	}
	l.mu.Unlock()

	m.Lock()
	if l.dir == "" {
		return m.Unlock, nil
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		m.Unlock()
		return nil, lmerrors.New(lmerrors.ErrCodeLockFailed, "failed to create lock directory", err)
	}
	fl := flock.New(l.lockPath(domain))
	locked, err := fl.TryLockContext(ctx, l.retry)
	if err != nil || !locked {
		m.Unlock()
		if err == nil {
			err = ctx.Err()
		}
		return nil, lmerrors.New(lmerrors.ErrCodeLockFailed, fmt.Sprintf("failed to lock domain %s", domain), err).
			WithDetail("domain", domain)
	}

	return func() {
		_ = fl.Unlock()
		m.Unlock()
	}, nil
}

func (l *DomainLocker) lockPath(domain string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, domain)
	return filepath.Join(l.dir, safe+".lock")
}
