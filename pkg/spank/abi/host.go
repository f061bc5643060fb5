// Package abi binds the SDK to the native SPANK ABI. It implements the
// host API with cgo and exports the slurm_spank_* entry points Slurm
// resolves with dlsym; plugins link it in with a blank import.
//
// The spank_* symbols themselves stay undefined at build time and are
// resolved by the loading process, so this package only builds with
// -buildmode=c-shared (or inside a test binary that never calls the host).
package abi

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>
#include <slurm/spank.h>

#include "callback.h"

// spank_get_item and the slurm log functions are variadic, which cgo
// cannot call; these shims pin down each call shape.

static spank_err_t gospank_item_u16(spank_t sp, int item, uint16_t *out) {
	return spank_get_item(sp, (spank_item_t) item, out);
}

static spank_err_t gospank_item_u32(spank_t sp, int item, uint32_t *out) {
	return spank_get_item(sp, (spank_item_t) item, out);
}

static spank_err_t gospank_item_u64(spank_t sp, int item, uint64_t *out) {
	return spank_get_item(sp, (spank_item_t) item, out);
}

static spank_err_t gospank_item_int(spank_t sp, int item, int *out) {
	return spank_get_item(sp, (spank_item_t) item, out);
}

static spank_err_t gospank_item_pid(spank_t sp, int item, pid_t *out) {
	return spank_get_item(sp, (spank_item_t) item, out);
}

static spank_err_t gospank_item_pid_arg(spank_t sp, int item, pid_t pid, uint32_t *out) {
	return spank_get_item(sp, (spank_item_t) item, pid, out);
}

static spank_err_t gospank_item_id_arg(spank_t sp, int item, uint32_t id, uint32_t *out) {
	return spank_get_item(sp, (spank_item_t) item, id, out);
}

static spank_err_t gospank_item_str(spank_t sp, int item, const char **out) {
	return spank_get_item(sp, (spank_item_t) item, out);
}

static spank_err_t gospank_item_argv(spank_t sp, int *argcp, char ***argvp) {
	return spank_get_item(sp, S_JOB_ARGV, argcp, argvp);
}

static spank_err_t gospank_item_env(spank_t sp, char ***envp) {
	return spank_get_item(sp, S_JOB_ENV, envp);
}

static spank_err_t gospank_item_gids(spank_t sp, gid_t **gidsp, int *countp) {
	return spank_get_item(sp, S_JOB_SUPPLEMENTARY_GIDS, gidsp, countp);
}

static spank_err_t gospank_register(spank_t sp, const char *name,
		const char *arginfo, const char *usage, int has_arg, int val) {
	struct spank_option opt;
	memset(&opt, 0, sizeof(opt));
	opt.name = (char *) name;
	opt.arginfo = (char *) arginfo;
	opt.usage = (char *) usage;
	opt.has_arg = has_arg;
	opt.val = val;
	opt.cb = (spank_opt_cb_f) gospank_opt_cb;
	return spank_option_register(sp, &opt);
}

static spank_err_t gospank_getopt(spank_t sp, const char *name, char **optargp) {
	struct spank_option opt;
	memset(&opt, 0, sizeof(opt));
	opt.name = (char *) name;
	opt.has_arg = 1;
	return spank_option_getopt(sp, &opt, optargp);
}

static spank_err_t gospank_prepend_argv(spank_t sp, int argc, char **argv) {
	return spank_prepend_task_argv(sp, argc, argv);
}

static void gospank_log(int sev, const char *msg) {
	switch (sev) {
	case 0: slurm_error("%s", msg); break;
	case 1: slurm_info("%s", msg); break;
	case 2: slurm_verbose("%s", msg); break;
	case 3: slurm_debug("%s", msg); break;
	case 4: slurm_debug2("%s", msg); break;
	case 5: slurm_debug3("%s", msg); break;
	default: slurm_spank_log("%s", msg); break;
	}
}
*/
import "C"

import (
	"unsafe"

	"github.com/felixgeelhaar/gospank/internal/spankapi"
)

// host is the cgo-backed implementation of the native API handed to the
// dispatch layer by every entry point.
var host spankapi.API = hostAPI{}

type hostAPI struct{}

func tok(sp spankapi.Token) C.spank_t {
	return C.spank_t(unsafe.Pointer(sp))
}

func (hostAPI) Context() spankapi.CtxKind {
	return spankapi.CtxKind(C.spank_context())
}

func (hostAPI) Strerror(code spankapi.Errno) string {
	return C.GoString(C.spank_strerror(C.spank_err_t(code)))
}

func (hostAPI) Log(sev spankapi.Severity, msg string) {
	cmsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cmsg))
	C.gospank_log(C.int(sev), cmsg)
}

func (hostAPI) NumericItem(sp spankapi.Token, item spankapi.Item) (int64, spankapi.Errno) {
	switch item {
	case spankapi.ItemJobNCPUs:
		var out C.uint16_t
		code := C.gospank_item_u16(tok(sp), C.int(item), &out)
		return int64(out), spankapi.Errno(code)
	case spankapi.ItemTaskID, spankapi.ItemTaskExitStatus:
		var out C.int
		code := C.gospank_item_int(tok(sp), C.int(item), &out)
		return int64(out), spankapi.Errno(code)
	case spankapi.ItemTaskPID:
		var out C.pid_t
		code := C.gospank_item_pid(tok(sp), C.int(item), &out)
		return int64(out), spankapi.Errno(code)
	case spankapi.ItemStepCPUsPerTask, spankapi.ItemJobAllocMem, spankapi.ItemStepAllocMem:
		var out C.uint64_t
		code := C.gospank_item_u64(tok(sp), C.int(item), &out)
		return int64(out), spankapi.Errno(code)
	default:
		var out C.uint32_t
		code := C.gospank_item_u32(tok(sp), C.int(item), &out)
		return int64(out), spankapi.Errno(code)
	}
}

func (hostAPI) NumericItemArg(sp spankapi.Token, item spankapi.Item, arg int64) (int64, spankapi.Errno) {
	var out C.uint32_t
	var code C.spank_err_t
	switch item {
	case spankapi.ItemJobPidToGlobalID, spankapi.ItemJobPidToLocalID:
		code = C.gospank_item_pid_arg(tok(sp), C.int(item), C.pid_t(arg), &out)
	default:
		code = C.gospank_item_id_arg(tok(sp), C.int(item), C.uint32_t(arg), &out)
	}
	return int64(out), spankapi.Errno(code)
}

func (hostAPI) StringItem(sp spankapi.Token, item spankapi.Item) ([]byte, spankapi.Errno) {
	var out *C.char
	code := C.gospank_item_str(tok(sp), C.int(item), &out)
	if spankapi.Errno(code) != spankapi.Success {
		return nil, spankapi.Errno(code)
	}
	// The native contract guarantees a non-null pointer on success.
	if out == nil {
		panic("received unexpected null pointer from spank_get_item")
	}
	return []byte(C.GoString(out)), spankapi.Success
}

func (hostAPI) StringListItem(sp spankapi.Token, item spankapi.Item) ([][]byte, spankapi.Errno) {
	switch item {
	case spankapi.ItemJobArgv:
		var argc C.int
		var argv **C.char
		code := C.gospank_item_argv(tok(sp), &argc, &argv)
		if spankapi.Errno(code) != spankapi.Success {
			return nil, spankapi.Errno(code)
		}
		if argv == nil {
			panic("received unexpected null pointer from spank_get_item")
		}
		return copyArgv(argv, int(argc)), spankapi.Success
	case spankapi.ItemJobEnv:
		var envv **C.char
		code := C.gospank_item_env(tok(sp), &envv)
		if spankapi.Errno(code) != spankapi.Success {
			return nil, spankapi.Errno(code)
		}
		if envv == nil {
			panic("received unexpected null pointer from spank_get_item")
		}
		// The env array carries no length; it ends at a NULL sentinel.
		count := 0
		for ; *elemAt(envv, count) != nil; count++ {
		}
		return copyArgv(envv, count), spankapi.Success
	default:
		return nil, spankapi.ErrBadArg
	}
}

func elemAt(argv **C.char, i int) **C.char {
	return (**C.char)(unsafe.Add(unsafe.Pointer(argv), uintptr(i)*unsafe.Sizeof(argv)))
}

func copyArgv(argv **C.char, count int) [][]byte {
	out := make([][]byte, 0, count)
	for _, p := range unsafe.Slice(argv, count) {
		out = append(out, []byte(C.GoString(p)))
	}
	return out
}

func (hostAPI) GidsItem(sp spankapi.Token) ([]uint32, spankapi.Errno) {
	var gids *C.gid_t
	var count C.int
	code := C.gospank_item_gids(tok(sp), &gids, &count)
	if spankapi.Errno(code) != spankapi.Success {
		return nil, spankapi.Errno(code)
	}
	out := make([]uint32, 0, int(count))
	for _, gid := range unsafe.Slice(gids, int(count)) {
		out = append(out, uint32(gid))
	}
	return out, spankapi.Success
}

func (hostAPI) Getenv(sp spankapi.Token, kind spankapi.EnvKind, name string, buf []byte) spankapi.Errno {
	if len(buf) == 0 {
		return spankapi.ErrNoSpace
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	bufp := (*C.char)(unsafe.Pointer(&buf[0]))

	if kind == spankapi.EnvJobControl {
		return spankapi.Errno(C.spank_job_control_getenv(tok(sp), cname, bufp, C.int(len(buf))))
	}
	return spankapi.Errno(C.spank_getenv(tok(sp), cname, bufp, C.int(len(buf))))
}

func (hostAPI) Setenv(sp spankapi.Token, kind spankapi.EnvKind, name, value string, overwrite bool) spankapi.Errno {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	cvalue := C.CString(value)
	defer C.free(unsafe.Pointer(cvalue))

	var cover C.int
	if overwrite {
		cover = 1
	}
	if kind == spankapi.EnvJobControl {
		return spankapi.Errno(C.spank_job_control_setenv(tok(sp), cname, cvalue, cover))
	}
	return spankapi.Errno(C.spank_setenv(tok(sp), cname, cvalue, cover))
}

func (hostAPI) Unsetenv(sp spankapi.Token, kind spankapi.EnvKind, name string) spankapi.Errno {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	if kind == spankapi.EnvJobControl {
		return spankapi.Errno(C.spank_job_control_unsetenv(tok(sp), cname))
	}
	return spankapi.Errno(C.spank_unsetenv(tok(sp), cname))
}

func (hostAPI) RegisterOption(sp spankapi.Token, name, arginfo, usage string, hasArg bool, val int) spankapi.Errno {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	carginfo := optionalCString(arginfo)
	defer freeOptional(carginfo)
	cusage := optionalCString(usage)
	defer freeOptional(cusage)

	var chasArg C.int
	if hasArg {
		chasArg = 1
	}
	return spankapi.Errno(C.gospank_register(tok(sp), cname, carginfo, cusage, chasArg, C.int(val)))
}

func optionalCString(s string) *C.char {
	if s == "" {
		return nil
	}
	return C.CString(s)
}

func freeOptional(p *C.char) {
	if p != nil {
		C.free(unsafe.Pointer(p))
	}
}

func (hostAPI) Getopt(sp spankapi.Token, name string) ([]byte, bool, spankapi.Errno) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var optarg *C.char
	code := C.gospank_getopt(tok(sp), cname, &optarg)
	if spankapi.Errno(code) != spankapi.Success {
		return nil, false, spankapi.Errno(code)
	}
	if optarg == nil {
		return nil, true, spankapi.Success
	}
	return []byte(C.GoString(optarg)), true, spankapi.Success
}

func (hostAPI) PrependTaskArgv(sp spankapi.Token, argv []string) spankapi.Errno {
	cargs := make([]*C.char, 0, len(argv))
	for _, a := range argv {
		cargs = append(cargs, C.CString(a))
	}
	defer func() {
		for _, p := range cargs {
			C.free(unsafe.Pointer(p))
		}
	}()
	if len(cargs) == 0 {
		return spankapi.Success
	}
	return spankapi.Errno(C.gospank_prepend_argv(tok(sp), C.int(len(cargs)), &cargs[0]))
}
