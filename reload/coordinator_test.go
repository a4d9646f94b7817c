package reload

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lixenwraith/ember/asset"
	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/script"
	"github.com/lixenwraith/ember/status"
)

func TestModuleName(t *testing.T) {
	cases := []struct {
		rel  string
		want string
	}{
		{"orbit.lua", "orbit"},
		{"scripts/orbit.lua", "scripts.orbit"},
		{"scripts/ai/patrol.lua", "scripts.ai.patrol"},
		{"noext", "noext"},
	}
	for _, c := range cases {
		if got := ModuleName(c.rel); got != c.want {
			t.Errorf("%s: expected %s, got %s", c.rel, c.want, got)
		}
	}
}

func TestTriggerReloadRoutesByKind(t *testing.T) {
	root := t.TempDir()
	c, err := NewCoordinator(root, nil)
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	defer c.Close()

	var scriptEvents, textureEvents []Event
	c.RegisterHandler(asset.KindScript, func(ev Event) error {
		scriptEvents = append(scriptEvents, ev)
		return nil
	})
	c.RegisterHandler(asset.KindTexture, func(ev Event) error {
		textureEvents = append(textureEvents, ev)
		return nil
	})

	if err := c.TriggerReload("a.lua", asset.KindScript); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := c.TriggerReload("hero.png", asset.KindTexture); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	// No handler for audio; silently ignored
	if err := c.TriggerReload("jump.wav", asset.KindAudio); err != nil {
		t.Fatalf("trigger unhandled kind: %v", err)
	}

	if len(scriptEvents) != 1 || scriptEvents[0].Path != "a.lua" {
		t.Errorf("Expected one script event for a.lua, got %v", scriptEvents)
	}
	if len(textureEvents) != 1 || textureEvents[0].Path != "hero.png" {
		t.Errorf("Expected one texture event for hero.png, got %v", textureEvents)
	}
}

func TestWatcherObservesCreation(t *testing.T) {
	root := t.TempDir()
	c, err := NewCoordinator(root, nil)
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	defer c.Close()

	if err := os.WriteFile(filepath.Join(root, "spark.lua"), []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var seen []Event
	for time.Now().Before(deadline) {
		seen = append(seen, c.PollEvents()...)
		if len(seen) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(seen) == 0 {
		t.Fatal("Expected a filesystem event for the new file")
	}
	found := false
	for _, ev := range seen {
		if ev.Path == "spark.lua" && ev.Kind == asset.KindScript {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected spark.lua classified as script, got %v", seen)
	}
}

func TestWatcherClassifiesDirectoryDeletion(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "scripts")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := NewCoordinator(root, nil)
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	defer c.Close()

	if err := os.RemoveAll(sub); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var got *Event
	for time.Now().Before(deadline) && got == nil {
		for _, ev := range c.PollEvents() {
			if ev.Path == "scripts" {
				e := ev
				got = &e
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got == nil {
		t.Fatal("Expected an event for the removed directory")
	}
	if got.Op != OpDirectoryDeleted {
		t.Errorf("Expected directory-deleted, got %s", got.Op)
	}
}

func TestPollEventsDrains(t *testing.T) {
	root := t.TempDir()
	c, err := NewCoordinator(root, nil)
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	defer c.Close()

	c.mu.Lock()
	c.queue = append(c.queue, Event{Op: OpModified, Path: "a.lua", Kind: asset.KindScript})
	c.mu.Unlock()

	first := c.PollEvents()
	if len(first) != 1 {
		t.Fatalf("Expected 1 buffered event, got %d", len(first))
	}
	if second := c.PollEvents(); len(second) != 0 {
		t.Errorf("Expected drained queue, got %d events", len(second))
	}
}

func TestScriptHandlerReloadProtocol(t *testing.T) {
	registry.Reset()
	component.RegisterAll()

	root := t.TempDir()
	rel := filepath.Join("scripts", "tick.lua")
	writeScript := func(body string) {
		t.Helper()
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeScript(`
count = count or 0
function bump()
    count = count + 1
end
`)

	host := script.NewHost(engine.NewWorld(), event.NewBus(), status.NewRegistry(), script.WithRoot(root))
	defer host.Close()
	if err := host.LoadFile("scripts.tick", rel); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := host.Call("scripts.tick", "bump"); err != nil {
		t.Fatalf("bump: %v", err)
	}

	catalog := asset.NewCatalog(root)
	if _, err := catalog.Track(rel); err != nil {
		t.Fatalf("track: %v", err)
	}
	ctx := engine.NewContext()
	handler := ScriptHandler(host, catalog, ctx, root)

	// Unchanged content: a no-op, no reload event
	if err := handler(Event{Op: OpModified, Path: rel, Kind: asset.KindScript}); err != nil {
		t.Fatalf("handler unchanged: %v", err)
	}
	if evs := ctx.Events.Consume(); len(evs) != 0 {
		t.Errorf("Expected no events for unchanged content, got %d", len(evs))
	}

	writeScript(`
count = count or 0
function bump()
    count = count + 10
end
`)
	if err := handler(Event{Op: OpModified, Path: rel, Kind: asset.KindScript}); err != nil {
		t.Fatalf("handler changed: %v", err)
	}
	if _, err := host.Call("scripts.tick", "bump"); err != nil {
		t.Fatalf("bump after reload: %v", err)
	}

	var sawReload, sawAsset bool
	for _, ev := range ctx.Events.Consume() {
		switch ev.Type {
		case event.TypeScriptReloaded:
			sawReload = true
		case event.TypeAssetChanged:
			sawAsset = true
		}
	}
	if !sawReload || !sawAsset {
		t.Errorf("Expected reload and asset-changed events, reload=%v asset=%v", sawReload, sawAsset)
	}

	// Broken replacement keeps the prior artifact live
	writeScript(`function bump( nope`)
	err := handler(Event{Op: OpModified, Path: rel, Kind: asset.KindScript})
	var ce *core.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected compile diagnostic, got %v", err)
	}
	if _, err := host.Call("scripts.tick", "bump"); err != nil {
		t.Errorf("Expected prior function still callable, got %v", err)
	}
}
