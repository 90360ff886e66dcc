package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// MinDiskSpaceBytes is the minimum required free disk space (100MB).
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace checks that the filesystem holding the store database has
// room for it to grow. A missing store directory is measured at its nearest
// existing parent. The free space required is at least MinDiskSpaceBytes and
// never less than the current size of the store.
func (c *Checker) CheckDiskSpace() CheckResult {
	dbPath := c.cfg.Store.DBPath
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
		Details:  dbPath,
	}

	dir := existingAncestor(filepath.Dir(dbPath))
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space of %s: %v", dir, err)
		return result
	}

	used := storeSize(dbPath)
	need := requiredFree(used)
	free := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free, store uses %s (minimum: %s)",
		formatBytes(free), formatBytes(used), formatBytes(need))
	if free < need {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

// requiredFree is the free space needed for a store of the given size.
func requiredFree(storeBytes uint64) uint64 {
	if storeBytes > MinDiskSpaceBytes {
		return storeBytes
	}
	return MinDiskSpaceBytes
}

// storeSize sums the database file and its WAL and shared-memory files.
// Missing files count as zero.
func storeSize(dbPath string) uint64 {
	var total uint64
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			total += uint64(info.Size())
		}
	}
	return total
}

func existingAncestor(dir string) string {
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
