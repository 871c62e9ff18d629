// Package pipelines embeds the default pipeline files: the global convert
// and optimize flows plus the vivado, vitis and vitisaccelerator backends.
package pipelines

import (
	"embed"
	"io/fs"
)

//go:embed *.yaml
var files embed.FS

// FS returns the embedded pipeline files.
func FS() fs.FS {
	return files
}
