package backend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

const vitisFile = `
backend: Vitis
parent: Vivado
default_flow: ip
passes:
  - {name: "vitis:check", kind: require_attr, with: {key: strategy, scope: node}}
flows:
  - name: validation
    passes: ["vitis:check"]
    requires: ["vivado:init_layers"]
  - name: ip
    derive_from: "vivado:ip"
    insert:
      - {before: "vivado:init_layers", flow: "vitis:validation"}
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(vitisFile), "vitis.yaml")
	require.NoError(t, err)

	require.Equal(t, "vitis.yaml", f.Source)
	require.Equal(t, "Vitis", f.Backend)
	require.Equal(t, "Vivado", f.Parent)
	require.False(t, f.IsGlobal())
	require.Len(t, f.Passes, 1)
	require.Equal(t, "strategy", f.Passes[0].With["key"])
	require.Len(t, f.Flows, 2)
	require.Equal(t, "vivado:ip", f.Flows[1].DeriveFrom)
	require.Equal(t, InsertSpec{Before: "vivado:init_layers", Flow: "vitis:validation"}, f.Flows[1].Insert[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", "", "empty pipeline file"},
		{"unknown key", "backend: x\nstages: []\n", "stages"},
		{"colon in backend", "backend: a:b\n", "invalid backend"},
		{"global with parent", "parent: vivado\n", "need a backend"},
		{"pass without name", "backend: x\npasses: [{kind: noop}]\n", "passes[0]: name is required"},
		{"pass without kind", "backend: x\npasses: [{name: p}]\n", "kind is required"},
		{"duplicate pass", "backend: x\npasses: [{name: p, kind: noop}, {name: p, kind: noop}]\n", "declared twice"},
		{"flow without name", "backend: x\nflows: [{passes: [p]}]\n", "flows[0]: name is required"},
		{"duplicate flow", "backend: x\nflows: [{name: f, passes: [p]}, {name: f, passes: [p]}]\n", "declared twice"},
		{"passes and passes_from", "backend: x\nflows: [{name: f, passes: [p], passes_from: 'x:'}]\n", "exclusive"},
		{"insert without derive", "backend: x\nflows: [{name: f, insert: [{before: a, flow: b}]}]\n", "insert needs derive_from"},
		{"derive with requires", "backend: x\nflows: [{name: f, derive_from: 'y:f', requires: [a]}]\n", "exclusive"},
		{"insert both anchors", "backend: x\nflows: [{name: f, derive_from: 'y:f', insert: [{before: a, after: b, flow: c}]}]\n", "exactly one"},
		{"insert no anchor", "backend: x\nflows: [{name: f, derive_from: 'y:f', insert: [{flow: c}]}]\n", "exactly one"},
		{"insert no flow", "backend: x\nflows: [{name: f, derive_from: 'y:f', insert: [{before: a}]}]\n", "flow is required"},
		{"aggregate with passes", "backend: x\nflows: [{name: f, derive_from: 'y:f', aggregate: true, passes: [p]}]\n", "take no passes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc), "test.yaml")
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
			require.Contains(t, err.Error(), "test.yaml")
		})
	}
}

func TestLoadFS_SortedYAMLOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"b.yaml":       {Data: []byte("backend: b\n")},
		"a.yml":        {Data: []byte("backend: a\n")},
		"notes.txt":    {Data: []byte("ignored")},
		".hidden.yaml": {Data: []byte("not: valid: yaml")},
		"sub/c.yaml":   {Data: []byte("backend: c\n")},
	}

	files, err := LoadFS(fsys)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "a.yml", files[0].Source)
	require.Equal(t, "b.yaml", files[1].Source)
}

func TestLoadFS_PropagatesParseError(t *testing.T) {
	fsys := fstest.MapFS{"bad.yaml": {Data: []byte("backend: x\nbogus: 1\n")}}

	_, err := LoadFS(fsys)
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "bad.yaml", fe.Source)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vitis.yaml"), []byte(vitisFile), 0o600))

	files, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, filepath.Join(dir, "vitis.yaml"), files[0].Source)

	single, err := LoadFile(filepath.Join(dir, "vitis.yaml"))
	require.NoError(t, err)
	require.Equal(t, files[0].Flows, single.Flows)
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
