package scaffold

const mainGoTemplate = `// The {{.Name}} SPANK plugin.
//
// Build with:
//
//	go build -buildmode=c-shared -o {{.Name}}.so .
package main

/*
#include <slurm/slurm_version.h>

const char plugin_name[] = "{{.Name}}";
const char plugin_type[] = "spank";
const int plugin_version = SLURM_VERSION_NUMBER;
*/
import "C"

import (
	"github.com/felixgeelhaar/gospank/pkg/spank"
	_ "github.com/felixgeelhaar/gospank/pkg/spank/abi"
)

type {{.TypeName}} struct {
	spank.BasePlugin
}

func (p *{{.TypeName}}) Init(h *spank.Handle) error {
	// Register options here; Init is the only callback where the host
	// accepts registrations.
	return nil
}

func (p *{{.TypeName}}) TaskInit(h *spank.Handle) error {
	h.Logger().Info("{{.Name}} loaded")
	return nil
}

func init() {
	spank.Serve(func() spank.Plugin { return &{{.TypeName}}{} })
}

func main() {}
`

const goModTemplate = `module {{.Module}}

go {{.GoVersion}}

require github.com/felixgeelhaar/gospank {{.SDKVersion}}
`

const makefileTemplate = `PLUGIN := {{.Name}}.so

.PHONY: all test clean

all: $(PLUGIN)

$(PLUGIN): $(wildcard *.go) go.mod
	go build -buildmode=c-shared -o $@ .

test:
	go test ./...

clean:
	rm -f $(PLUGIN)
`
