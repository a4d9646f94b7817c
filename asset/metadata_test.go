package asset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeContent(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestKindFromPath(t *testing.T) {
	cases := []struct {
		path string
		kind Kind
		tag  string
	}{
		{"textures/hero.png", KindTexture, ""},
		{"sfx/jump.WAV", KindAudio, ""},
		{"models/ship.gltf", KindModel, ""},
		{"scripts/orbit.lua", KindScript, ""},
		{"shaders/lit.frag", KindShader, ""},
		{"ui/main.ttf", KindFont, ""},
		{"cine/intro.webm", KindVideo, ""},
		{"anim/walk.bvh", KindAnimation, ""},
		{"levels/hub.scene", KindScene, ""},
		{"materials/steel.mat", KindMaterial, ""},
		{"data/tuning.xyz", KindCustom, "xyz"},
		{"README", KindCustom, ""},
	}
	for _, c := range cases {
		kind, tag := KindFromPath(c.path)
		if kind != c.kind {
			t.Errorf("%s: expected kind %s, got %s", c.path, c.kind, kind)
		}
		if tag != c.tag {
			t.Errorf("%s: expected tag %q, got %q", c.path, c.tag, tag)
		}
	}
}

func TestTrackDerivesRecord(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "scripts/move.lua", "function update() end")

	c := NewCatalog(root)
	m, err := c.Track("scripts/move.lua")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if m.Kind != KindScript {
		t.Errorf("Expected kind script, got %s", m.Kind)
	}
	if m.ContentHash == "" {
		t.Error("Expected a content hash")
	}
	if m.FileSize != int64(len("function update() end")) {
		t.Errorf("Expected file size recorded, got %d", m.FileSize)
	}
	if m.MemoryWeight != m.FileSize {
		t.Errorf("Expected memory weight to default to file size, got %d", m.MemoryWeight)
	}
}

func TestRetrackKeepsIdentity(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "a.lua", "x = 1")

	c := NewCatalog(root)
	first, err := c.Track("a.lua")
	if err != nil {
		t.Fatal(err)
	}
	id := first.ID
	hash := first.ContentHash

	writeContent(t, root, "a.lua", "x = 2")
	second, err := c.Track("a.lua")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != id {
		t.Errorf("Expected stable identity across retrack, got %s", second.ID)
	}
	if second.ContentHash == hash {
		t.Error("Expected hash to change with content")
	}
}

func TestChanged(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "a.lua", "x = 1")

	c := NewCatalog(root)
	if !c.Changed("a.lua") {
		t.Error("Expected untracked path to report changed")
	}
	if _, err := c.Track("a.lua"); err != nil {
		t.Fatal(err)
	}
	if c.Changed("a.lua") {
		t.Error("Expected tracked unmodified path to report unchanged")
	}
	writeContent(t, root, "a.lua", "x = 2")
	if !c.Changed("a.lua") {
		t.Error("Expected modified path to report changed")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "scripts/a.lua", "x = 1")
	writeContent(t, root, "hero.png", "pixels")

	c := NewCatalog(root)
	for _, rel := range []string{"scripts/a.lua", "hero.png"} {
		if _, err := c.Track(rel); err != nil {
			t.Fatal(err)
		}
	}
	m, _ := c.Lookup("scripts/a.lua")
	m.Dependencies = []string{"hero.png"}
	m.Hints = Hints{Priority: 3, Preload: true}
	m.Variants = []Variant{{Platform: "mobile", Path: "hero_small.png"}}

	catalogPath := filepath.Join(root, "catalog.yaml")
	if err := c.Save(catalogPath); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewCatalog(root)
	if err := restored.Load(catalogPath); err != nil {
		t.Fatalf("load: %v", err)
	}
	paths := restored.Paths()
	if len(paths) != 2 || paths[0] != "hero.png" || paths[1] != "scripts/a.lua" {
		t.Fatalf("Expected sorted tracked paths, got %v", paths)
	}
	got, ok := restored.Lookup("scripts/a.lua")
	if !ok {
		t.Fatal("Expected record after load")
	}
	if got.ContentHash != m.ContentHash {
		t.Errorf("Expected hash %s, got %s", m.ContentHash, got.ContentHash)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != "hero.png" {
		t.Errorf("Expected dependencies preserved, got %v", got.Dependencies)
	}
	if got.Hints.Priority != 3 || !got.Hints.Preload {
		t.Errorf("Expected hints preserved, got %+v", got.Hints)
	}
	if len(got.Variants) != 1 || got.Variants[0].Platform != "mobile" {
		t.Errorf("Expected variants preserved, got %v", got.Variants)
	}

	// Loaded records stay comparable against the filesystem
	if restored.Changed("scripts/a.lua") {
		t.Error("Expected loaded record to match unchanged file")
	}
}
