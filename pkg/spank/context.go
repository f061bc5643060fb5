package spank

import "github.com/felixgeelhaar/gospank/internal/spankapi"

// Context identifies the privileged execution environment a callback runs
// under. It is queried fresh from the host on every use because the same
// plugin code is loaded into srun, slurmstepd, sbatch/salloc, and slurmd
// alike, and only the host knows which one is calling.
type Context int

const (
	// ContextLocal is the srun client, before remote execution starts.
	ContextLocal Context = iota + 1
	// ContextRemote is the per-node step daemon (slurmstepd).
	ContextRemote
	// ContextAllocator is an allocation-only client (sbatch or salloc).
	ContextAllocator
	// ContextSlurmd is the node daemon during its startup and shutdown.
	ContextSlurmd
	// ContextJobScript is a job's prolog or epilog script run.
	ContextJobScript
)

// String returns the conventional name of the context.
func (c Context) String() string {
	switch c {
	case ContextLocal:
		return "local"
	case ContextRemote:
		return "remote"
	case ContextAllocator:
		return "allocator"
	case ContextSlurmd:
		return "slurmd"
	case ContextJobScript:
		return "job_script"
	default:
		return "unknown"
	}
}

// contextFromKind maps a native context value into the closed Context set.
func contextFromKind(k spankapi.CtxKind) (Context, bool) {
	switch k {
	case spankapi.CtxLocal:
		return ContextLocal, true
	case spankapi.CtxRemote:
		return ContextRemote, true
	case spankapi.CtxAllocator:
		return ContextAllocator, true
	case spankapi.CtxSlurmd:
		return ContextSlurmd, true
	case spankapi.CtxJobScript:
		return ContextJobScript, true
	default:
		return 0, false
	}
}
