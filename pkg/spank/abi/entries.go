package abi

/*
#include <slurm/spank.h>
*/
import "C"

import (
	"unsafe"

	"github.com/felixgeelhaar/gospank/internal/lifecycle"
	"github.com/felixgeelhaar/gospank/internal/spankapi"
	"github.com/felixgeelhaar/gospank/pkg/spank"
)

// enter funnels every native callback into the dispatch layer with the
// plugin arguments copied out of C memory.
func enter(point lifecycle.Point, sp C.spank_t, ac C.int, argv **C.char) C.int {
	args := make([][]byte, 0, int(ac))
	for _, p := range unsafe.Slice(argv, int(ac)) {
		args = append(args, []byte(C.GoString(p)))
	}
	return C.int(spank.Entry(host, point, spankapi.Token(unsafe.Pointer(sp)), args))
}

//export slurm_spank_init
func slurm_spank_init(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.Init, sp, ac, argv)
}

//export slurm_spank_job_prolog
func slurm_spank_job_prolog(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.JobProlog, sp, ac, argv)
}

//export slurm_spank_init_post_opt
func slurm_spank_init_post_opt(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.InitPostOpt, sp, ac, argv)
}

//export slurm_spank_local_user_init
func slurm_spank_local_user_init(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.LocalUserInit, sp, ac, argv)
}

//export slurm_spank_user_init
func slurm_spank_user_init(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.UserInit, sp, ac, argv)
}

//export slurm_spank_task_init_privileged
func slurm_spank_task_init_privileged(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.TaskInitPrivileged, sp, ac, argv)
}

//export slurm_spank_task_init
func slurm_spank_task_init(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.TaskInit, sp, ac, argv)
}

//export slurm_spank_task_post_fork
func slurm_spank_task_post_fork(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.TaskPostFork, sp, ac, argv)
}

//export slurm_spank_task_exit
func slurm_spank_task_exit(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.TaskExit, sp, ac, argv)
}

//export slurm_spank_job_epilog
func slurm_spank_job_epilog(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.JobEpilog, sp, ac, argv)
}

//export slurm_spank_slurmd_exit
func slurm_spank_slurmd_exit(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.SlurmdExit, sp, ac, argv)
}

//export slurm_spank_exit
func slurm_spank_exit(sp C.spank_t, ac C.int, argv **C.char) C.int {
	return enter(lifecycle.Exit, sp, ac, argv)
}

//export gospank_opt_cb
func gospank_opt_cb(val C.int, optarg *C.char, remote C.int) C.int {
	var value []byte
	if optarg != nil {
		value = []byte(C.GoString(optarg))
	}
	return C.int(spank.CaptureEntry(host, int(val), value))
}
