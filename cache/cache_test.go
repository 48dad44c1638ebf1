package cache

import (
	"testing"
	"time"

	"github.com/nipunrajk/accessiblity-sub002/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New(10, time.Minute)

	resp := &models.ScanResponse{Success: true, FinalURL: "https://example.com/"}
	c.Set("k", resp)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", got.FinalURL)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k", &models.ScanResponse{Success: true})

	first, ok := c.Get("k")
	require.True(t, ok)
	first.CacheStatus = "hit"

	second, ok := c.Get("k")
	require.True(t, ok)
	assert.Empty(t, second.CacheStatus, "tagging one reader's copy must not leak to others")
}

func TestCache_Expiry(t *testing.T) {
	c := New(10, 20*time.Millisecond)
	c.Set("k", &models.ScanResponse{Success: true})

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entries past the TTL must read as misses")
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("a", &models.ScanResponse{})
	c.Set("b", &models.ScanResponse{})
	c.Set("c", &models.ScanResponse{})

	assert.Equal(t, 2, c.Len(), "capacity is enforced by evicting one entry")
	_, ok := c.Get("c")
	assert.True(t, ok, "the newest entry survives the eviction")
}

func TestCache_Disabled(t *testing.T) {
	c := New(0, time.Minute)
	c.Set("k", &models.ScanResponse{})

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestKey_SensitiveToRequestShape(t *testing.T) {
	base := func() *models.ScanRequest {
		return &models.ScanRequest{URL: "https://example.com/", Severity: "minor"}
	}

	k1 := Key(base())

	same := base()
	assert.Equal(t, k1, Key(same), "identical requests share a key")

	otherURL := base()
	otherURL.URL = "https://example.com/other"
	assert.NotEqual(t, k1, Key(otherURL))

	otherRules := base()
	otherRules.Rules = []string{"img-alt"}
	assert.NotEqual(t, k1, Key(otherRules))

	otherScope := base()
	otherScope.Scope = "main"
	assert.NotEqual(t, k1, Key(otherScope))

	otherTimeout := base()
	otherTimeout.Timeout = 99
	assert.Equal(t, k1, Key(otherTimeout), "timeout does not affect the response body")
}

func TestKey_HeaderOrderIndependent(t *testing.T) {
	a := &models.ScanRequest{
		URL:     "https://example.com/",
		Headers: map[string]string{"X-One": "1", "X-Two": "2"},
	}
	b := &models.ScanRequest{
		URL:     "https://example.com/",
		Headers: map[string]string{"X-Two": "2", "X-One": "1"},
	}
	assert.Equal(t, Key(a), Key(b))
}
