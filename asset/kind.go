// Package asset tracks per-file resource metadata: stable identity,
// content hash, kind classification by extension, declared
// dependencies, loading hints, and per-platform variants. Metadata is
// persisted as YAML sidecar records; unknown fields in newer records
// are ignored on read.
package asset

import (
	"path/filepath"
	"strings"
)

// Kind classifies an asset by its role in the pipeline.
type Kind string

const (
	KindTexture   Kind = "texture"
	KindAudio     Kind = "audio"
	KindModel     Kind = "model"
	KindScript    Kind = "script"
	KindShader    Kind = "shader"
	KindFont      Kind = "font"
	KindVideo     Kind = "video"
	KindAnimation Kind = "animation"
	KindScene     Kind = "scene"
	KindMaterial  Kind = "material"
	KindCustom    Kind = "custom"
)

var kindByExtension = map[string]Kind{}

func init() {
	table := map[Kind][]string{
		KindTexture:   {"png", "jpg", "jpeg", "bmp", "tga", "dds", "ktx", "astc"},
		KindAudio:     {"wav", "mp3", "ogg", "flac", "aac", "m4a"},
		KindModel:     {"obj", "fbx", "dae", "gltf", "glb", "blend", "3ds", "ply"},
		KindScript:    {"lua", "js", "ts", "py", "cs", "cpp", "c", "h"},
		KindShader:    {"glsl", "hlsl", "wgsl", "vert", "frag", "geom", "comp", "tesc", "tese"},
		KindFont:      {"ttf", "otf", "woff", "woff2", "eot"},
		KindVideo:     {"mp4", "avi", "mov", "wmv", "flv", "webm", "mkv"},
		KindAnimation: {"anim", "bvh", "x3d"},
		KindScene:     {"scene", "level", "map", "world"},
		KindMaterial:  {"mat", "material", "mtl"},
	}
	for kind, exts := range table {
		for _, ext := range exts {
			kindByExtension[ext] = kind
		}
	}
}

// KindFromPath classifies by lower-cased extension. Unrecognised
// extensions yield KindCustom with the extension as tag.
func KindFromPath(path string) (Kind, string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if kind, ok := kindByExtension[ext]; ok {
		return kind, ""
	}
	return KindCustom, ext
}
