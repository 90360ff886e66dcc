package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestObserve_CountsByStatus(t *testing.T) {
	// Given: a fresh collector
	c := NewCollector("")

	// When: recording one success and two failures
	c.Observe("preview_clusters", time.Now(), nil)
	c.Observe("preview_clusters", time.Now(), errors.New("boom"))
	c.Observe("preview_clusters", time.Now(), errors.New("boom"))

	// Then: each status has its own series and durations are observed
	body := scrape(t, c)
	assert.Contains(t, body, `linkmap_operations_total{operation="preview_clusters",status="ok"} 1`)
	assert.Contains(t, body, `linkmap_operations_total{operation="preview_clusters",status="error"} 2`)
	assert.Contains(t, body, `linkmap_operation_duration_seconds_count{operation="preview_clusters"} 3`)
}

func TestAddItems_IgnoresNonPositive(t *testing.T) {
	c := NewCollector("")

	c.AddItems("suggest_links", 5)
	c.AddItems("suggest_links", 0)
	c.AddItems("suggest_links", -3)

	assert.Contains(t, scrape(t, c), `linkmap_items_processed_total{operation="suggest_links"} 5`)
}

func TestConvergenceFailure_Counts(t *testing.T) {
	c := NewCollector("")

	c.ConvergenceFailure("build_graph")

	assert.Contains(t, scrape(t, c), `linkmap_convergence_failures_total{operation="build_graph"} 1`)
}

func TestNewCollector_CustomNamespace(t *testing.T) {
	c := NewCollector("seo")

	c.Observe("status", time.Now(), nil)

	assert.Contains(t, scrape(t, c), `seo_operations_total{operation="status",status="ok"} 1`)
}

func TestCollectors_DoNotShareRegistries(t *testing.T) {
	// Given: two collectors
	a := NewCollector("")
	b := NewCollector("")

	// When: only one records
	a.Observe("status", time.Now(), nil)

	// Then: the other is untouched
	assert.Contains(t, scrape(t, a), "linkmap_operations_total")
	assert.NotContains(t, scrape(t, b), "linkmap_operations_total")
}

func TestRegisterCacheStats_ReadsAtScrapeTime(t *testing.T) {
	// Given: cache stats that change after registration
	c := NewCollector("")
	hits, misses := int64(0), int64(0)
	require.NoError(t, c.RegisterCacheStats(func() (int64, int64) { return hits, misses }))
	hits, misses = 7, 2

	// When: scraping
	body := scrape(t, c)

	// Then: current values are reported
	assert.Contains(t, body, "linkmap_embedding_cache_hits_total 7")
	assert.Contains(t, body, "linkmap_embedding_cache_misses_total 2")
}

func TestRegisterCacheStats_Twice_ReturnsError(t *testing.T) {
	c := NewCollector("")
	stats := func() (int64, int64) { return 0, 0 }

	require.NoError(t, c.RegisterCacheStats(stats))
	assert.Error(t, c.RegisterCacheStats(stats))
}

func TestNilCollector_IsSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.Observe("x", time.Now(), nil)
		c.AddItems("x", 1)
		c.ConvergenceFailure("x")
		_ = c.RegisterCacheStats(func() (int64, int64) { return 0, 0 })
	})
	assert.Nil(t, c.Registry())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
