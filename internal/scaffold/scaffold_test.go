package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProject(t *testing.T) {
	tests := []struct {
		name       string
		plugin     string
		module     string
		wantModule string
		wantErr    bool
	}{
		{name: "plain name", plugin: "renice", wantModule: "renice"},
		{name: "explicit module", plugin: "renice", module: "example.com/slurm/renice", wantModule: "example.com/slurm/renice"},
		{name: "underscores allowed", plugin: "job_tag", wantModule: "job_tag"},
		{name: "uppercase rejected", plugin: "Renice", wantErr: true},
		{name: "hyphen rejected", plugin: "job-tag", wantErr: true},
		{name: "empty rejected", plugin: "", wantErr: true},
		{name: "leading digit rejected", plugin: "9lives", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProject(tt.plugin, tt.module, "")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModule, p.Module)
			assert.Equal(t, "latest", p.SDKVersion)
		})
	}
}

func TestProjectFiles(t *testing.T) {
	p, err := NewProject("job_tag", "example.com/slurm/jobtag", "v1.2.0")
	require.NoError(t, err)

	files, err := p.Files()
	require.NoError(t, err)
	require.Contains(t, files, "main.go")
	require.Contains(t, files, "go.mod")
	require.Contains(t, files, "Makefile")

	main := files["main.go"]
	assert.Contains(t, main, `const char plugin_name[] = "job_tag";`)
	assert.Contains(t, main, `const char plugin_type[] = "spank";`)
	assert.Contains(t, main, "const int plugin_version = SLURM_VERSION_NUMBER;")
	assert.Contains(t, main, "type jobtagPlugin struct")
	assert.Contains(t, main, `_ "github.com/felixgeelhaar/gospank/pkg/spank/abi"`)

	assert.Contains(t, files["go.mod"], "module example.com/slurm/jobtag")
	assert.Contains(t, files["go.mod"], "github.com/felixgeelhaar/gospank v1.2.0")
	assert.Contains(t, files["Makefile"], "go build -buildmode=c-shared")
}

func TestProjectWrite(t *testing.T) {
	dir := t.TempDir()
	p, err := NewProject("hello", "", "")
	require.NoError(t, err)

	require.NoError(t, p.Write(dir))
	for _, name := range []string{"main.go", "go.mod", "Makefile"} {
		_, err := os.Stat(filepath.Join(dir, "hello", name))
		assert.NoError(t, err, name)
	}

	t.Run("refuses to overwrite", func(t *testing.T) {
		err := p.Write(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})
}
