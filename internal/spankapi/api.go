package spankapi

// Token is the opaque per-callback handle the host passes to every plugin
// entry point (spank_t). It is only ever handed back to the host and must
// not be dereferenced or retained past the callback that supplied it.
type Token uintptr

// EnvKind selects between the two environment tables the host exposes.
type EnvKind int

const (
	// EnvJob is the job environment, valid in remote and slurmd contexts
	// (spank_getenv and friends).
	EnvJob EnvKind = iota
	// EnvJobControl is the job control environment, valid in local and
	// allocator contexts (spank_job_control_getenv and friends).
	EnvJobControl
)

// API is the set of native calls the wrapper performs against the host.
// The cgo-backed implementation lives in pkg/spank/abi; tests use the
// in-memory fake from spankapitest.
//
// String-carrying results are raw byte sequences as read from the host, with
// no encoding guarantees. Validation happens above this interface.
type API interface {
	// Context reports which execution context the current callback runs
	// under (spank_context). Queried fresh on every use, never cached.
	Context() CtxKind

	// Strerror renders a status code through the host (spank_strerror).
	Strerror(code Errno) string

	// Log emits a message on one of the host's logging channels. The
	// message must not contain NUL bytes.
	Log(sev Severity, msg string)

	// NumericItem queries a fixed-size numeric item (spank_get_item).
	NumericItem(sp Token, item Item) (int64, Errno)

	// NumericItemArg queries a numeric item parameterized by an id or pid,
	// such as the pid-to-task-id translations.
	NumericItemArg(sp Token, item Item, arg int64) (int64, Errno)

	// StringItem queries a string-valued item. A successful native call
	// returning a NULL pointer violates the host contract and panics.
	StringItem(sp Token, item Item) ([]byte, Errno)

	// StringListItem queries a string-vector item (job argv, job env). For
	// the job env the native length is found by scanning for the NULL
	// sentinel. A NULL vector on success panics, as for StringItem.
	StringListItem(sp Token, item Item) ([][]byte, Errno)

	// GidsItem queries the supplementary group id vector.
	GidsItem(sp Token) ([]uint32, Errno)

	// Getenv copies the named variable from the selected environment table
	// into buf (spank_getenv / spank_job_control_getenv). It reports
	// ErrNoSpace when buf is too small, leaving the retry policy to the
	// caller.
	Getenv(sp Token, kind EnvKind, name string, buf []byte) Errno

	// Setenv sets the named variable in the selected environment table.
	Setenv(sp Token, kind EnvKind, name, value string, overwrite bool) Errno

	// Unsetenv removes the named variable from the selected environment
	// table. Unsetting an absent variable succeeds.
	Unsetenv(sp Token, kind EnvKind, name string) Errno

	// RegisterOption registers a plugin option with the host
	// (spank_option_register), wiring the shared capture callback with val
	// as its correlation token.
	RegisterOption(sp Token, name, arginfo, usage string, hasArg bool, val int) Errno

	// Getopt performs a synchronous option-table lookup by name
	// (spank_option_getopt). A present option without a value yields
	// (nil, true, Success).
	Getopt(sp Token, name string) (value []byte, set bool, code Errno)

	// PrependTaskArgv inserts arguments in front of the task's argv
	// (spank_prepend_task_argv). Valid only in task-creation callbacks,
	// which the host enforces.
	PrependTaskArgv(sp Token, argv []string) Errno
}
