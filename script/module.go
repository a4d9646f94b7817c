package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/lixenwraith/ember/core"
)

// Module is one loaded guest source unit. Env is the persistent
// environment table carrying module-level bindings across reloads;
// proto/hash always describe the source currently live, and the prev
// pair is the rollback target for a failed reload.
type Module struct {
	Name         string
	Path         string
	Source       string
	Hash         string
	Proto        *lua.FunctionProto
	Env          *lua.LTable
	Dependencies []string

	prevSource string
	prevHash   string
	prevProto  *lua.FunctionProto

	Grants map[core.Permission]bool
	dirty  bool
}

// Granted reports whether the module holds the permission.
func (m *Module) Granted(p core.Permission) bool {
	return m.Grants[p]
}

// Grant adds a permission to the module's capability set.
func (m *Module) Grant(perms ...core.Permission) {
	for _, p := range perms {
		m.Grants[p] = true
	}
}

// Revoke removes a permission from the module's capability set.
func (m *Module) Revoke(p core.Permission) {
	delete(m.Grants, p)
}

// commit records the current artifact as the rollback target before a
// reload attempt replaces it.
func (m *Module) commit(source, hash string, proto *lua.FunctionProto) {
	m.prevSource = m.Source
	m.prevHash = m.Hash
	m.prevProto = m.Proto
	m.Source = source
	m.Hash = hash
	m.Proto = proto
}

// rollback restores the last successful artifact and hash.
func (m *Module) rollback() {
	if m.prevProto == nil {
		return
	}
	m.Source = m.prevSource
	m.Hash = m.prevHash
	m.Proto = m.prevProto
}
