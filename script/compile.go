package script

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/lixenwraith/ember/core"
)

// compile parses and compiles source into a function prototype.
// Parse diagnostics carry the script name, line, and column.
func compile(name, source string, sizeCeiling int) (*lua.FunctionProto, error) {
	if len(source) > sizeCeiling {
		return nil, &core.CeilingExceededError{Kind: core.CeilingInputSize}
	}

	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, compileError(name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, compileError(name, err)
	}
	return proto, nil
}

func compileError(name string, err error) error {
	ce := &core.CompileError{Script: name, Details: err.Error()}
	if pe, ok := err.(*parse.Error); ok {
		ce.Line = pe.Pos.Line
		ce.Column = pe.Pos.Column
		ce.Details = pe.Error()
	}
	return ce
}

// sourceHash identifies script content for dependency dirty-marking.
func sourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
