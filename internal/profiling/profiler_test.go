package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func busyWork() int {
	sum := 0
	for i := 0; i < 2_000_000; i++ {
		sum += i % 7
	}
	return sum
}

func nonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), path)
}

func TestOptions_Enabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.True(t, Options{Heap: "heap.prof"}.Enabled())
}

func TestSession_WritesAllProfiles(t *testing.T) {
	// Given: all three profiles requested
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}

	// When: running some work inside a session
	s, err := Start(opts)
	require.NoError(t, err)
	_ = busyWork()
	require.NoError(t, s.Stop())

	// Then: every file has content
	nonEmpty(t, opts.CPU)
	nonEmpty(t, opts.Heap)
	nonEmpty(t, opts.Trace)

	// And: a second stop is harmless
	assert.NoError(t, s.Stop())
}

func TestStart_BadTracePathStopsCPUProfile(t *testing.T) {
	// Given: a valid CPU path and a trace path in a missing directory
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Trace: filepath.Join(dir, "missing", "trace.out"),
	}

	// When: starting
	_, err := Start(opts)
	require.Error(t, err)

	// Then: CPU profiling was stopped, so a new session can start it again
	s, err := Start(Options{CPU: filepath.Join(dir, "cpu2.prof")})
	require.NoError(t, err)
	require.NoError(t, s.Stop())
}

func TestStop_NilSession(t *testing.T) {
	var s *Session
	assert.NoError(t, s.Stop())
}
