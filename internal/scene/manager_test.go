package scene

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func TestOpenOrCreateNewDocument(t *testing.T) {
	mgr := NewManager(PromptFail)
	doc, err := mgr.OpenOrCreate(testCtx(t), filepath.Join(t.TempDir(), "missing.hip"))
	require.NoError(t, err)

	_, ok := doc.Node("/obj")
	assert.True(t, ok)
	_, ok = doc.Node("/stage")
	assert.True(t, ok)
}

func TestOpenOrCreateMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.hip")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	mgr := NewManager(PromptFail)
	_, err := mgr.OpenOrCreate(testCtx(t), path)

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, "load", docErr.Op)
}

func TestEnsureNodeIsIdempotent(t *testing.T) {
	mgr := NewManager(PromptFail)
	doc := NewDocument()

	first, err := mgr.EnsureNode(doc, "/obj", "geo", "assets", map[string]any{"scale": 1.0})
	require.NoError(t, err)

	second, err := mgr.EnsureNode(doc, "/obj", "geo", "assets", map[string]any{"scale": 2.0})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2.0, second.Parms["scale"])

	obj, _ := doc.Node("/obj")
	count := 0
	for _, c := range obj.Children {
		if c.Name == "assets" {
			count++
		}
	}
	assert.Equal(t, 1, count, "upsert must not duplicate the node")
}

func TestEnsureNodeKindMismatch(t *testing.T) {
	mgr := NewManager(PromptFail)
	doc := NewDocument()

	_, err := mgr.EnsureNode(doc, "/obj", "geo", "assets", nil)
	require.NoError(t, err)

	_, err = mgr.EnsureNode(doc, "/obj", "null", "assets", nil)
	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
}

func TestConnectIsIdempotent(t *testing.T) {
	mgr := NewManager(PromptFail)
	doc := NewDocument()
	_, err := mgr.EnsureNode(doc, "/obj", "null", "a", nil)
	require.NoError(t, err)
	_, err = mgr.EnsureNode(doc, "/obj", "null", "b", nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Connect(doc, "/obj/b", 0, "/obj/a", 0))
	require.NoError(t, mgr.Connect(doc, "/obj/b", 0, "/obj/a", 0))

	b, _ := doc.Node("/obj/b")
	require.Len(t, b.Inputs, 1)
	assert.Equal(t, Connection{Src: "/obj/a"}, b.Inputs[0])
}

func TestSaveRoundTripsDocument(t *testing.T) {
	ctx := testCtx(t)
	mgr := NewManager(PromptFail)
	doc := NewDocument()
	_, err := mgr.EnsureNode(doc, "/obj", "geo", "assets", map[string]any{"label": "x"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "scene.hip")
	saved, err := mgr.Save(ctx, doc, path, true)
	require.NoError(t, err)
	assert.Equal(t, path, saved)

	loaded, err := mgr.OpenOrCreate(ctx, saved)
	require.NoError(t, err)
	node, ok := loaded.Node("/obj/assets")
	require.True(t, ok)
	assert.Equal(t, "geo", node.Kind)
	assert.Equal(t, "x", node.Parms["label"])
}

func TestSaveAppendsUniqueSuffixInsteadOfOverwriting(t *testing.T) {
	ctx := testCtx(t)
	mgr := NewManager(PromptFail)
	doc := NewDocument()
	path := filepath.Join(t.TempDir(), "scene.hip")

	first, err := mgr.Save(ctx, doc, path, true)
	require.NoError(t, err)
	assert.Equal(t, path, first)

	second, err := mgr.Save(ctx, doc, path, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "scene_001.hip"), second)

	third, err := mgr.Save(ctx, doc, path, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "scene_002.hip"), third)
}

func TestPromptPolicyFailClosed(t *testing.T) {
	ctx := testCtx(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.hip")

	doc := NewDocument()
	doc.NeedsDependencyResolution = true
	_, err := NewManager(PromptFail).Save(ctx, doc, path, false)
	require.NoError(t, err)

	_, err = NewManager(PromptFail).OpenOrCreate(ctx, path)
	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)

	loaded, err := NewManager(PromptAccept).OpenOrCreate(ctx, path)
	require.NoError(t, err)
	assert.False(t, loaded.NeedsDependencyResolution)
}

func TestCleanModifiedRemovesOnlyDerivedFiles(t *testing.T) {
	ctx := testCtx(t)
	dir := t.TempDir()
	keep := filepath.Join(dir, "crate.usd")
	derived := filepath.Join(dir, "modified_crate.usd")
	require.NoError(t, os.WriteFile(keep, nil, 0o644))
	require.NoError(t, os.WriteFile(derived, nil, 0o644))

	removed := NewManager(PromptFail).CleanModified(ctx, dir, false)
	assert.Equal(t, []string{derived}, removed)

	_, err := os.Stat(keep)
	assert.NoError(t, err)
	_, err = os.Stat(derived)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanModifiedDryRunKeepsFiles(t *testing.T) {
	ctx := testCtx(t)
	dir := t.TempDir()
	derived := filepath.Join(dir, "modified_crate.usd")
	require.NoError(t, os.WriteFile(derived, nil, 0o644))

	removed := NewManager(PromptFail).CleanModified(ctx, dir, true)
	assert.Equal(t, []string{derived}, removed)

	_, err := os.Stat(derived)
	assert.NoError(t, err, "dry-run must not delete anything")
}
