package locator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
)

// GeometryExt is the extension identifying geometry files, matched
// case-insensitively.
const GeometryExt = ".usd"

// derivedPrefix marks geometry files written by a previous pipeline run. They
// are reported but never become assets.
const derivedPrefix = "modified_"

// Asset is one discovered geometry file together with its texture companions.
// Records are immutable after discovery and live only for the run.
type Asset struct {
	// ID is the geometry filename stem and is unique within a discovery pass.
	ID string
	// GeometryPath is the absolute path to the geometry file.
	GeometryPath string
	// Textures maps a channel to its texture path. Missing channels are
	// simply absent; a partial material is legal.
	Textures map[Channel]string
}

// Discovery is the result of scanning an asset directory.
type Discovery struct {
	// Assets in lexicographic order of their geometry filename. The position
	// in this slice is the source of work item ordinals, so the order must be
	// stable across repeated calls with unchanged directory contents.
	Assets []Asset
	// Derived lists geometry files produced by earlier runs (modified_*).
	Derived []string
}

// DiscoveryError reports a bad or missing input directory.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("asset discovery in %q: %v", e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Discover scans dir non-recursively and groups files into asset records. An
// empty directory yields an empty (non-nil) Discovery, not an error; the
// caller decides whether that is fatal.
func Discover(ctx context.Context, dir string) (*Discovery, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Err: err}
	}

	var geometry []string
	textures := map[string]map[Channel]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.EqualFold(filepath.Ext(name), GeometryExt) {
			geometry = append(geometry, name)
			continue
		}
		if ref, ok := ParseTextureName(name); ok {
			if textures[ref.BaseID] == nil {
				textures[ref.BaseID] = map[Channel]string{}
			}
			textures[ref.BaseID][ref.Channel] = filepath.Join(dir, name)
		}
	}
	sort.Strings(geometry)

	disc := &Discovery{}
	for _, name := range geometry {
		if strings.HasPrefix(name, derivedPrefix) {
			disc.Derived = append(disc.Derived, filepath.Join(dir, name))
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		asset := Asset{
			ID:           id,
			GeometryPath: filepath.Join(dir, name),
			Textures:     map[Channel]string{},
		}
		for channel, path := range textures[id] {
			asset.Textures[channel] = path
		}
		disc.Assets = append(disc.Assets, asset)
	}

	logger.Debug("Asset discovery complete.",
		"dir", dir,
		"assets", len(disc.Assets),
		"derived", len(disc.Derived),
	)
	return disc, nil
}
