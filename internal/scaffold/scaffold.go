// Package scaffold generates ready-to-build SPANK plugin projects: a main
// package carrying the static descriptors Slurm reads at load time, a
// go.mod, and a Makefile with the c-shared build invocation.
package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
)

// GoVersion is the Go version written into generated go.mod files.
const GoVersion = "1.25"

// namePattern limits plugin names to what works both as a C identifier
// prefix and as the thing users see in srun --help.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Project describes one plugin project to generate.
type Project struct {
	// Name is the plugin name, e.g. "renice". It becomes the plugin_name
	// descriptor and the built object's file name.
	Name string

	// Module is the Go module path for the generated project.
	Module string

	// SDKVersion is the SDK version written into go.mod.
	SDKVersion string
}

// NewProject builds a project description, deriving a module path when none
// is given.
func NewProject(name, module, sdkVersion string) (*Project, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid plugin name %q: must match %s", name, namePattern)
	}
	if module == "" {
		module = name
	}
	if sdkVersion == "" {
		sdkVersion = "latest"
	}
	return &Project{Name: name, Module: module, SDKVersion: sdkVersion}, nil
}

// TypeName returns the Go type name used for the plugin struct.
func (p *Project) TypeName() string {
	return strings.ReplaceAll(p.Name, "_", "") + "Plugin"
}

// Files renders every generated file, keyed by relative path.
func (p *Project) Files() (map[string]string, error) {
	templates := map[string]string{
		"main.go":  mainGoTemplate,
		"go.mod":   goModTemplate,
		"Makefile": makefileTemplate,
	}

	files := make(map[string]string, len(templates))
	for path, text := range templates {
		tmpl, err := template.New(path).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", path, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, p.data()); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", path, err)
		}
		files[path] = buf.String()
	}
	return files, nil
}

// Write renders the project into dir, which must not already contain it.
func (p *Project) Write(dir string) error {
	files, err := p.Files()
	if err != nil {
		return err
	}

	target := filepath.Join(dir, p.Name)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%s already exists", target)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	for path, content := range files {
		if err := os.WriteFile(filepath.Join(target, path), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

type templateData struct {
	Name       string
	TypeName   string
	Module     string
	SDKVersion string
	GoVersion  string
}

func (p *Project) data() templateData {
	return templateData{
		Name:       p.Name,
		TypeName:   p.TypeName(),
		Module:     p.Module,
		SDKVersion: p.SDKVersion,
		GoVersion:  GoVersion,
	}
}
