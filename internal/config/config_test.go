package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, int64(637), cfg.Design.Seed)
	assert.Equal(t, 240, cfg.Design.TargetTotal)
	assert.Equal(t, 60, cfg.Design.PerCellTarget())
	assert.Equal(t, 5, cfg.Design.MaxRepeats)
	assert.Equal(t, 4, cfg.Design.Blocks)
	assert.Equal(t, filepath.Join("data", "ecostim.sqlite"), cfg.Store.DSN)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ECOSTIM_SEED", "42")
	t.Setenv("ECOSTIM_PER_CELL", "40")
	t.Setenv("ECOSTIM_BLOCKS", "not-a-number")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Design.Seed)
	assert.Equal(t, 40, cfg.Design.PerCellTarget())
	assert.Equal(t, 4, cfg.Design.Blocks, "unparsable values fall back to defaults")
}

func TestLoadEnvFileAndParams(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ECOSTIM_N_TRIALS=96\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ECOSTIM_N_TRIALS") })

	params := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(params, []byte("design:\n  max_repeats: 3\n  blocks: 2\n"), 0o644))

	cfg, err := Load(envFile, params)
	require.NoError(t, err)
	assert.Equal(t, 96, cfg.Design.NTrials)
	assert.Equal(t, 3, cfg.Design.MaxRepeats)
	assert.Equal(t, 2, cfg.Design.Blocks)
	assert.Equal(t, 240, cfg.Design.TargetTotal, "fields absent from the file keep their value")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Design.MaxRepeats = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	cfg = Default()
	cfg.Store.Driver = "postgres"
	assert.Error(t, cfg.Validate())
	cfg.Store.DSN = "postgres://localhost/ecostim?sslmode=disable"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestLoadNameOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.yaml")
	require.NoError(t, os.WriteFile(path, []byte("12: \"Økologisk skyr\"\n40: Rugbrød\n"), 0o644))

	got, err := LoadNameOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{12: "Økologisk skyr", 40: "Rugbrød"}, got)

	none, err := LoadNameOverrides("")
	require.NoError(t, err)
	assert.Nil(t, none)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("0: x\n"), 0o644))
	_, err = LoadNameOverrides(bad)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
