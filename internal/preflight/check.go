package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/linkmap/internal/config"
	"github.com/Aman-CERP/linkmap/internal/embed"
	"github.com/Aman-CERP/linkmap/internal/store"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status as its name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker runs the checks against one configuration.
type Checker struct {
	cfg          *config.Config
	embedTimeout time.Duration
	newEmbedder  func(embed.Config) (embed.Embedder, error)
}

// Option configures a Checker.
type Option func(*Checker)

// WithEmbedTimeout bounds the embedder check. The default is 10 seconds.
func WithEmbedTimeout(d time.Duration) Option {
	return func(c *Checker) { c.embedTimeout = d }
}

// WithEmbedderFactory replaces embed.NewFromConfig.
func WithEmbedderFactory(f func(embed.Config) (embed.Embedder, error)) Option {
	return func(c *Checker) { c.newEmbedder = f }
}

// New creates a Checker for cfg.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{
		cfg:          cfg,
		embedTimeout: 10 * time.Second,
		newEmbedder:  embed.NewFromConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check in order.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	storeDir := c.storeDir()
	return []CheckResult{
		c.CheckDiskSpace(),
		c.CheckWritePermissions(storeDir),
		c.CheckStore(),
		c.CheckLockDir(),
		c.CheckEmbedder(ctx),
	}
}

// HasCriticalFailures returns true if any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "ready", "ready_with_warnings" or "failed".
func SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// storeDir is the directory the store lives in, created if missing so the
// disk and permission checks have something to inspect.
func (c *Checker) storeDir() string {
	dir := filepath.Dir(c.cfg.Store.DBPath)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// CheckWritePermissions checks that a file can be created in dir.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{Name: "write_permissions", Required: true, Details: dir}

	f, err := os.CreateTemp(dir, ".linkmap-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckStore opens the store, which creates or verifies its schema.
func (c *Checker) CheckStore() CheckResult {
	result := CheckResult{Name: "store", Required: true, Details: c.cfg.Store.DBPath}

	st, err := store.Open(c.cfg.Store.DBPath)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	domains, err := st.Domains(context.Background())
	_ = st.Close()
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d domain(s) stored", len(domains))
	return result
}

// CheckLockDir checks that lock files can be created. An empty lock
// directory disables cross-process locking, which is only a warning.
func (c *Checker) CheckLockDir() CheckResult {
	result := CheckResult{Name: "lock_dir", Required: true, Details: c.cfg.Store.LockDir}

	dir := c.cfg.Store.LockDir
	if dir == "" {
		result.Status = StatusWarn
		result.Message = "not set: commits are serialized within one process only"
		return result
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create: %v", err)
		return result
	}
	perm := c.CheckWritePermissions(dir)
	result.Status = perm.Status
	result.Message = perm.Message
	return result
}

// CheckEmbedder embeds a sample text with the configured provider. It is not
// required: pages may carry their own embeddings.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedder", Required: false}

	embedCfg, err := c.cfg.EmbedConfig()
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	result.Details = embedCfg.Provider
	embedder, err := c.newEmbedder(embedCfg)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	defer func() { _ = embedder.Close() }()

	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()
	start := time.Now()
	vec, err := embedder.Embed(ctx, "linkmap preflight check")
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable: %v", embedder.ModelName(), err)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s, %d dimensions, %s", embedder.ModelName(), len(vec),
		time.Since(start).Round(time.Millisecond))
	return result
}
