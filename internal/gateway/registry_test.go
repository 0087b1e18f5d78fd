package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/shared"
)

func newTestRegistry(t *testing.T, idle time.Duration) *Registry {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRegistry(RegistryConfig{
		KV:         gueststore.NewRedisKV(client, time.Hour),
		API:        &stubAPI{probeErr: shared.ErrNoSession},
		Reconciler: &stubReconciler{},
		IdleTTL:    idle,
	})
}

func TestResolveReturnsSameCoreForSameCookie(t *testing.T) {
	reg := newTestRegistry(t, time.Hour)

	rec := httptest.NewRecorder()
	first := reg.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, first)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	second := reg.Resolve(httptest.NewRecorder(), req)
	assert.Same(t, first, second)
	assert.Equal(t, 1, reg.Len())
}

func TestSweepDropsIdleCores(t *testing.T) {
	reg := newTestRegistry(t, time.Hour)

	base := time.Now()
	reg.now = func() time.Time { return base }
	reg.Resolve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	reg.Resolve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, 2, reg.Len())

	reg.now = func() time.Time { return base.Add(30 * time.Minute) }
	assert.Zero(t, reg.Sweep(), "cores inside the TTL survive")

	reg.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Equal(t, 2, reg.Sweep())
	assert.Zero(t, reg.Len())
}
