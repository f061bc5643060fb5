// Package spankapi describes the native SPANK ABI exposed by Slurm to its
// plugins. It defines the status codes, item tags, and context kinds from
// <slurm/spank.h> and an API interface abstracting the native calls, so
// that everything above the cgo layer can run against a fake host.
package spankapi

// Errno mirrors the native spank_err_t status enumeration.
type Errno int32

const (
	Success        Errno = 0
	ErrGeneric     Errno = 1
	ErrBadArg      Errno = 2
	ErrNotTask     Errno = 3
	ErrEnvExists   Errno = 4
	ErrEnvNotExist Errno = 5
	ErrNoSpace     Errno = 6
	ErrNotRemote   Errno = 7
	ErrNoExist     Errno = 8
	ErrNotExecd    Errno = 9
	ErrNotAvail    Errno = 10
	ErrNotLocal    Errno = 11
)

// strerrorTable mirrors the strings produced by the native spank_strerror.
// The fake host and offline error rendering use it; the cgo host delegates
// to the native function instead.
var strerrorTable = map[Errno]string{
	Success:        "Success",
	ErrGeneric:     "Generic error",
	ErrBadArg:      "Bad argument",
	ErrNotTask:     "Not in task context",
	ErrEnvExists:   "Environment variable exists",
	ErrEnvNotExist: "No such environment variable",
	ErrNoSpace:     "Buffer too small",
	ErrNotRemote:   "Valid only in remote context",
	ErrNoExist:     "Id/PID does not exist on this node",
	ErrNotExecd:    "Lookup by PID requested, but no tasks running",
	ErrNotAvail:    "Item not available from this callback",
	ErrNotLocal:    "Valid only in local or allocator context",
}

// Describe returns the canonical message for a status code without
// consulting the host.
func (e Errno) Describe() string {
	if msg, ok := strerrorTable[e]; ok {
		return msg
	}
	return "Unknown error"
}

// Item mirrors the native spank_item_t enumeration used with
// spank_get_item.
type Item int32

const (
	ItemJobUID Item = iota
	ItemJobGID
	ItemJobID
	ItemJobStepID
	ItemJobNNodes
	ItemJobNodeID
	ItemJobLocalTaskCount
	ItemJobTotalTaskCount
	ItemJobNCPUs
	ItemJobArgv
	ItemJobEnv
	ItemTaskID
	ItemTaskGlobalID
	ItemTaskExitStatus
	ItemTaskPID
	ItemJobPidToGlobalID
	ItemJobPidToLocalID
	ItemJobLocalToGlobalID
	ItemJobGlobalToLocalID
	ItemJobSupplementaryGids
	ItemSlurmVersion
	ItemSlurmVersionMajor
	ItemSlurmVersionMinor
	ItemSlurmVersionMicro
	ItemStepCPUsPerTask
	ItemJobAllocCores
	ItemJobAllocMem
	ItemStepAllocCores
	ItemStepAllocMem
	ItemSlurmRestartCount
	ItemJobArrayID
	ItemJobArrayTaskID
)

// CtxKind mirrors the native spank_context_t enumeration. CtxError is the
// native "could not determine context" value, not a real context.
type CtxKind int32

const (
	CtxError CtxKind = iota
	CtxLocal
	CtxRemote
	CtxAllocator
	CtxSlurmd
	CtxJobScript
)

// Severity selects a native logging channel.
type Severity int32

const (
	SevError Severity = iota
	SevInfo
	SevVerbose
	SevDebug
	SevDebug2
	SevDebug3
	// SevUser routes to slurm_spank_log, which relays the message to the
	// user's terminal (srun) instead of the daemon logs.
	SevUser
)
