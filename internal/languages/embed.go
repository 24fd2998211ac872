// Package languages embeds the built-in rule-set definitions.
package languages

import (
	"embed"
	"io/fs"
)

//go:embed *.yaml
var builtin embed.FS

// FS returns the built-in rule-set files, one <name>.yaml per language at
// the root.
func FS() fs.FS {
	return builtin
}
