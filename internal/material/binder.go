package material

import (
	"context"
	"fmt"

	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
	"github.com/j3borquez/StyrofoamWrap/internal/locator"
	"github.com/j3borquez/StyrofoamWrap/internal/scene"
)

// LibraryPath is the material library node all generated shaders live under.
const LibraryPath = "/stage/materials"

// DomeLightPath is the stage dome light providing environment lighting for
// the wrapped assets.
const DomeLightPath = "/stage/dome_light"

// defaultHDRI is the studio environment map used when no hdri_path is
// configured.
const defaultHDRI = "$HIP/hdri/studio_small_09_2k.exr"

// Standard-surface input indices of the wrap host's MaterialX nodes. The
// packed MR map splits G into roughness and B into metallic.
const (
	surfInputBaseColor = 1
	surfInputMetallic  = 3
	surfInputRoughness = 6
	surfInputNormal    = 40
)

// Separate3 output channels.
const (
	sepOutputG = 1
	sepOutputB = 2
)

// Binding records the shader network derived for one asset.
type Binding struct {
	AssetID string
	// ShaderPath is the canonical path of the asset's surface shader.
	ShaderPath string
	// Channels maps each bound channel to its texture path. Unmatched
	// channels are absent, never an error.
	Channels map[locator.Channel]string
	// AssignPath is the material assignment node, empty when no primitive
	// matched the asset identifier and assignment was skipped.
	AssignPath string
}

// Warning is a non-fatal binding issue: the run continues without the
// affected material or assignment.
type Warning struct {
	AssetID string
	Reason  string
}

func (w Warning) String() string {
	return fmt.Sprintf("asset %q: %s", w.AssetID, w.Reason)
}

// Binder derives shader bindings from texture naming conventions and attaches
// them to geometry inside the document.
type Binder struct {
	mgr *scene.Manager

	// HDRIPath overrides the environment texture of the dome light. Empty
	// selects defaultHDRI.
	HDRIPath string
}

// NewBinder returns a Binder operating through the given document manager.
func NewBinder(mgr *scene.Manager) *Binder {
	return &Binder{mgr: mgr}
}

// Bind constructs one shader network per asset with at least one texture and
// assigns it to the asset's primitives. Assets without textures or without a
// matching primitive degrade to warnings. All node creation is an idempotent
// upsert keyed by the asset identifier, so re-binding updates in place.
func (b *Binder) Bind(ctx context.Context, doc *scene.Document, assets []locator.Asset) (map[string]Binding, []Warning, error) {
	logger := ctxlog.FromContext(ctx)

	bindings := make(map[string]Binding, len(assets))
	var warnings []Warning

	if len(assets) > 0 {
		if _, err := b.mgr.EnsureNode(doc, "/stage", "materiallibrary", "materials", map[string]any{
			"matpathprefix": "/materials/",
		}); err != nil {
			return nil, nil, err
		}
		if err := b.ensurePlastic(doc); err != nil {
			return nil, nil, err
		}
		if err := b.ensureDomeLight(doc); err != nil {
			return nil, nil, err
		}
	}

	for _, asset := range assets {
		if len(asset.Textures) == 0 {
			warnings = append(warnings, Warning{AssetID: asset.ID, Reason: "no matching textures, skipping material"})
			logger.Warn("No textures for asset, skipping material.", "asset", asset.ID)
			continue
		}

		binding, err := b.ensureShader(doc, asset)
		if err != nil {
			return nil, nil, err
		}

		// Assignment is additive: only assets whose geometry actually made it
		// into the import chain get one.
		if _, ok := doc.Node(scene.AssetsPath + "/import_" + asset.ID); !ok {
			warnings = append(warnings, Warning{AssetID: asset.ID, Reason: "no matching primitive, skipping assignment"})
			logger.Warn("No matching primitive for asset, skipping assignment.", "asset", asset.ID)
		} else {
			assign, err := b.mgr.EnsureNode(doc, "/stage", "assignmaterial", "assign_"+asset.ID, map[string]any{
				"materialpath": binding.ShaderPath,
				"primpattern":  "/root/world/assets/" + asset.ID + "*",
			})
			if err != nil {
				return nil, nil, err
			}
			binding.AssignPath = assign.Path()
		}

		bindings[asset.ID] = binding
		logger.Debug("Material bound.", "asset", asset.ID, "channels", len(binding.Channels))
	}

	return bindings, warnings, nil
}

// ensureShader upserts the per-asset shader subnet and wires the channel
// images that are present.
func (b *Binder) ensureShader(doc *scene.Document, asset locator.Asset) (Binding, error) {
	subnet, err := b.mgr.EnsureNode(doc, LibraryPath, "subnet", asset.ID+"_material", nil)
	if err != nil {
		return Binding{}, err
	}
	sub := subnet.Path()

	surf, err := b.mgr.EnsureNode(doc, sub, "mtlxstandard_surface", asset.ID, nil)
	if err != nil {
		return Binding{}, err
	}

	binding := Binding{
		AssetID:    asset.ID,
		ShaderPath: surf.Path(),
		Channels:   map[locator.Channel]string{},
	}

	if path, ok := asset.Textures[locator.ChannelDiffuse]; ok {
		img, err := b.mgr.EnsureNode(doc, sub, "mtlximage", "diff_"+asset.ID, map[string]any{
			"signature": "color3",
			"file":      path,
		})
		if err != nil {
			return Binding{}, err
		}
		if err := b.mgr.Connect(doc, surf.Path(), surfInputBaseColor, img.Path(), 0); err != nil {
			return Binding{}, err
		}
		binding.Channels[locator.ChannelDiffuse] = path
	}

	if path, ok := asset.Textures[locator.ChannelMetallicRoughness]; ok {
		img, err := b.mgr.EnsureNode(doc, sub, "mtlximage", "mr_"+asset.ID, map[string]any{
			"signature": "color3",
			"file":      path,
		})
		if err != nil {
			return Binding{}, err
		}
		sep, err := b.mgr.EnsureNode(doc, sub, "mtlxseparate3c", "sep_mr_"+asset.ID, nil)
		if err != nil {
			return Binding{}, err
		}
		if err := b.mgr.Connect(doc, sep.Path(), 0, img.Path(), 0); err != nil {
			return Binding{}, err
		}
		if err := b.mgr.Connect(doc, surf.Path(), surfInputRoughness, sep.Path(), sepOutputG); err != nil {
			return Binding{}, err
		}
		if err := b.mgr.Connect(doc, surf.Path(), surfInputMetallic, sep.Path(), sepOutputB); err != nil {
			return Binding{}, err
		}
		binding.Channels[locator.ChannelMetallicRoughness] = path
	}

	if path, ok := asset.Textures[locator.ChannelNormal]; ok {
		img, err := b.mgr.EnsureNode(doc, sub, "mtlximage", "nrm_"+asset.ID, map[string]any{
			"signature": "vector3",
			"file":      path,
		})
		if err != nil {
			return Binding{}, err
		}
		nmap, err := b.mgr.EnsureNode(doc, sub, "mtlxnormalmap", "nmap_"+asset.ID, nil)
		if err != nil {
			return Binding{}, err
		}
		if err := b.mgr.Connect(doc, nmap.Path(), 0, img.Path(), 0); err != nil {
			return Binding{}, err
		}
		if err := b.mgr.Connect(doc, surf.Path(), surfInputNormal, nmap.Path(), 0); err != nil {
			return Binding{}, err
		}
		binding.Channels[locator.ChannelNormal] = path
	}

	return binding, nil
}

// ensurePlastic upserts the shared wrap-material override: a glossy,
// fully transmissive surface used for the styrofoam shell itself.
func (b *Binder) ensurePlastic(doc *scene.Document) error {
	subnet, err := b.mgr.EnsureNode(doc, LibraryPath, "subnet", "plastic", nil)
	if err != nil {
		return err
	}
	_, err = b.mgr.EnsureNode(doc, subnet.Path(), "mtlxstandard_surface", "plastic_surface", map[string]any{
		"specular_roughness": 0.05,
		"transmission":       1.0,
	})
	return err
}

// ensureDomeLight upserts the stage environment light and its top-of-chain
// merge so wrapped assets render against a lit backdrop.
func (b *Binder) ensureDomeLight(doc *scene.Document) error {
	hdri := b.HDRIPath
	if hdri == "" {
		hdri = defaultHDRI
	}
	light, err := b.mgr.EnsureNode(doc, "/stage", "domelight", "dome_light", map[string]any{
		"primpath":       "/World/Lights/DomeLight",
		"texture_file":   hdri,
		"intensity":      1.0,
		"renderlightgeo": true,
	})
	if err != nil {
		return err
	}
	merge, err := b.mgr.EnsureNode(doc, "/stage", "merge", "dome_merge", nil)
	if err != nil {
		return err
	}
	return b.mgr.Connect(doc, merge.Path(), 0, light.Path(), 0)
}
