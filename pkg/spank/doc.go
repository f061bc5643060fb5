// Package spank is the author-facing SDK for writing Slurm SPANK plugins
// in Go.
//
// A SPANK plugin is a shared object the Slurm daemons and clients load at
// well-known lifecycle points. This package hides the native ABI behind a
// typed Handle, reconciles the host's two incompatible option-value
// mechanisms behind one accessor, and guarantees that neither a panic nor
// an unexpected error can unwind into the host process.
//
// A minimal plugin looks like this:
//
//	package main
//
//	/*
//	#include <slurm/slurm_version.h>
//	const char plugin_name[] = "hello";
//	const char plugin_type[] = "spank";
//	const int plugin_version = SLURM_VERSION_NUMBER;
//	*/
//	import "C"
//
//	import (
//		"github.com/felixgeelhaar/gospank/pkg/spank"
//		_ "github.com/felixgeelhaar/gospank/pkg/spank/abi"
//	)
//
//	type hello struct {
//		spank.BasePlugin
//	}
//
//	func (p *hello) TaskInit(h *spank.Handle) error {
//		id, err := h.TaskGlobalID()
//		if err != nil {
//			return err
//		}
//		spank.LogUser("hello from task %d", id)
//		return nil
//	}
//
//	func init() {
//		spank.Serve(func() spank.Plugin { return &hello{} })
//	}
//
//	func main() {} // never called; the host dlopens the shared object
//
// Build it with:
//
//	go build -buildmode=c-shared -o hello.so .
//
// and list the resulting object in plugstack.conf. The three C constants
// are the static descriptors Slurm reads at load time; the blank import of
// pkg/spank/abi links in the native entry points.
package spank
