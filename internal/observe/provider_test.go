package observe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestProviderServesCounters(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{ServiceName: "pitchtrace-test", Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	counter, err := p.MeterProvider().Meter("test").Int64Counter("voice.test")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	body := scrape(t, p.Handler())
	assert.Contains(t, body, "voice_test_total")
	assert.Contains(t, body, `service_name="pitchtrace-test"`)
}

func TestProviderDefaultRegistry(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{})
	require.NoError(t, err)

	body := scrape(t, p.Handler())
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, `service_name="pitchtrace"`)

	require.NoError(t, p.Shutdown(ctx))
	require.NoError(t, p.Shutdown(ctx))
}
