package locator

import "strings"

// Channel identifies a texture channel of an asset's material.
type Channel string

const (
	// ChannelDiffuse is the base color map.
	ChannelDiffuse Channel = "diff"
	// ChannelMetallicRoughness is the packed metallic/roughness map
	// (G carries roughness, B carries metallic).
	ChannelMetallicRoughness Channel = "MR"
	// ChannelNormal is the tangent-space normal map.
	ChannelNormal Channel = "normal"
)

// Channels lists all texture channels in a fixed, deterministic order.
var Channels = []Channel{ChannelDiffuse, ChannelMetallicRoughness, ChannelNormal}

// TextureRef is the parsed form of a texture filename following the
// {base_id}_texture_{channel}.{ext} convention.
type TextureRef struct {
	BaseID  string
	Channel Channel
}

// ParseTextureName matches filename against the texture naming convention and
// returns the tagged result, or ok=false when the name does not follow it.
// Matching keys on the three fixed suffixes so identifiers may themselves
// contain underscores: everything before the suffix is the identifier.
func ParseTextureName(filename string) (TextureRef, bool) {
	stem := filename
	if idx := strings.LastIndexByte(stem, '.'); idx >= 0 {
		stem = stem[:idx]
	}
	for _, channel := range Channels {
		suffix := "_texture_" + string(channel)
		if base, ok := strings.CutSuffix(stem, suffix); ok && base != "" {
			return TextureRef{BaseID: base, Channel: channel}, true
		}
	}
	return TextureRef{}, false
}
