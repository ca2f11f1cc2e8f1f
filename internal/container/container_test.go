package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/internal/config"
)

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestOpenStoreWiresRepositories(t *testing.T) {
	cfg := config.Default()
	cfg.Store.DSN = filepath.Join(t.TempDir(), "ecostim.sqlite")

	c, err := New(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.OpenStore(ctx))
	db := c.DB
	require.NoError(t, c.OpenStore(ctx))
	assert.Same(t, db, c.DB, "second open reuses the connection")

	assert.NotNil(t, c.Runs)
	assert.NotNil(t, c.Stimuli)
	assert.NotNil(t, c.Sessions)
	assert.NotNil(t, c.Responses)

	rec := httptest.NewRecorder()
	c.APIServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	runner := c.TerminalRunner(strings.NewReader(""), &strings.Builder{}, t.TempDir())
	assert.NotNil(t, runner)

	require.NoError(t, c.Shutdown(ctx))
}
