package locator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}

func TestDiscoverMissingDirectory(t *testing.T) {
	_, err := Discover(testCtx(t), "/does/not/exist")
	require.Error(t, err)

	var discErr *DiscoveryError
	require.ErrorAs(t, err, &discErr)
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	disc, err := Discover(testCtx(t), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, disc.Assets)
}

func TestDiscoverGroupsTexturesByConvention(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "chair_base.usd")
	touch(t, dir, "chair_base_texture_diff.png")
	touch(t, dir, "chair_base_texture_MR.png")
	touch(t, dir, "chair_base_texture_normal.png")

	disc, err := Discover(testCtx(t), dir)
	require.NoError(t, err)
	require.Len(t, disc.Assets, 1)

	asset := disc.Assets[0]
	assert.Equal(t, "chair_base", asset.ID)
	assert.Equal(t, filepath.Join(dir, "chair_base.usd"), asset.GeometryPath)
	assert.Equal(t, map[Channel]string{
		ChannelDiffuse:           filepath.Join(dir, "chair_base_texture_diff.png"),
		ChannelMetallicRoughness: filepath.Join(dir, "chair_base_texture_MR.png"),
		ChannelNormal:            filepath.Join(dir, "chair_base_texture_normal.png"),
	}, asset.Textures)
}

func TestDiscoverPartialMaterialIsLegal(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "desk.usd")
	touch(t, dir, "desk_texture_diff.png")

	disc, err := Discover(testCtx(t), dir)
	require.NoError(t, err)
	require.Len(t, disc.Assets, 1)
	assert.Equal(t, map[Channel]string{
		ChannelDiffuse: filepath.Join(dir, "desk_texture_diff.png"),
	}, disc.Assets[0].Textures)
}

func TestDiscoverOrderIsStable(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "lamp_B000BRBYJ8.usd")
	touch(t, dir, "chair_base.usd")
	touch(t, dir, "desk_A3DCZYC5E6B3MT80.usd")

	first, err := Discover(testCtx(t), dir)
	require.NoError(t, err)

	ids := func(d *Discovery) []string {
		out := make([]string, len(d.Assets))
		for i, a := range d.Assets {
			out[i] = a.ID
		}
		return out
	}
	assert.Equal(t, []string{"chair_base", "desk_A3DCZYC5E6B3MT80", "lamp_B000BRBYJ8"}, ids(first))

	for i := 0; i < 5; i++ {
		again, err := Discover(testCtx(t), dir)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("discovery not stable across calls (-first +again):\n%s", diff)
		}
	}
}

func TestDiscoverIgnoresSubdirectoriesAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "main.usd")
	touch(t, dir, "notes.txt")
	sub := filepath.Join(dir, "subdir")
	require.NoError(t, os.Mkdir(sub, 0o755))
	touch(t, sub, "nested.usd")

	disc, err := Discover(testCtx(t), dir)
	require.NoError(t, err)
	require.Len(t, disc.Assets, 1)
	assert.Equal(t, "main", disc.Assets[0].ID)
}

func TestDiscoverCaseInsensitiveGeometryExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.usd")
	touch(t, dir, "b.USD")
	touch(t, dir, "c.Usd")

	disc, err := Discover(testCtx(t), dir)
	require.NoError(t, err)
	assert.Len(t, disc.Assets, 3)
}

func TestDiscoverSeparatesDerivedFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "crate.usd")
	touch(t, dir, "modified_crate.usd")

	disc, err := Discover(testCtx(t), dir)
	require.NoError(t, err)
	require.Len(t, disc.Assets, 1)
	assert.Equal(t, "crate", disc.Assets[0].ID)
	assert.Equal(t, []string{filepath.Join(dir, "modified_crate.usd")}, disc.Derived)
}
