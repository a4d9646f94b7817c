package reload

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lixenwraith/ember/asset"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/script"
)

// ModuleName derives the script module identifier from its content-
// relative path: separators become dots, the extension is dropped.
func ModuleName(rel string) string {
	trimmed := strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(filepath.ToSlash(trimmed), "/", ".")
}

// ScriptHandler builds the per-kind handler driving the incremental
// script reload protocol: re-hash the file, reload the module when the
// content actually changed, mark transitive dependents dirty and
// reload them in dependency order. A failed reload leaves the prior
// artifact live and surfaces the compile diagnostic.
func ScriptHandler(host *script.Host, catalog *asset.Catalog, ctx *engine.Context, root string) Handler {
	loader := func(name string) (string, error) {
		m, ok := host.Module(name)
		if !ok || m.Path == "" {
			return "", &core.InvalidInputError{Details: "no source path recorded for module " + name}
		}
		data, err := os.ReadFile(filepath.Join(root, m.Path))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	return func(ev Event) error {
		if ev.Op == OpDeleted || ev.Op == OpDirectoryCreated || ev.Op == OpDirectoryDeleted {
			return nil
		}
		if !catalog.Changed(ev.Path) {
			return nil
		}
		if _, err := catalog.Track(ev.Path); err != nil {
			return err
		}

		name := ModuleName(ev.Path)
		if _, loaded := host.Module(name); !loaded {
			return nil
		}

		src, err := loader(name)
		if err != nil {
			return &core.FileSystemError{Path: ev.Path, Err: err}
		}
		if err := host.HotReload(name, src); err != nil {
			return err
		}
		host.MarkDependentsDirty(name)
		if err := host.ReloadDirty(loader); err != nil {
			return err
		}

		ctx.PushEvent(event.TypeScriptReloaded, &event.ScriptReloadedPayload{Script: name})
		ctx.PushEvent(event.TypeAssetChanged, &event.AssetChangedPayload{Path: ev.Path, Kind: string(ev.Kind)})
		return nil
	}
}
