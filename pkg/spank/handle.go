package spank

import (
	"bytes"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/felixgeelhaar/gospank/internal/options"
	"github.com/felixgeelhaar/gospank/internal/spankapi"
	"github.com/hashicorp/go-hclog"
)

// initialEnvBufSize is the starting size of the getenv copy buffer. It is
// grown geometrically when the host reports the buffer is too small.
const initialEnvBufSize = 4096

// Handle is the per-callback bridge to the host. One is constructed fresh
// for every callback invocation and handed to the plugin method; it borrows
// process-wide state and must not be retained once the callback returns.
type Handle struct {
	api   spankapi.API
	token spankapi.Token
	argv  [][]byte
	cache *options.Cache
}

// newHandle builds the bridge for one callback invocation.
func newHandle(api spankapi.API, token spankapi.Token, argv [][]byte, cache *options.Cache) *Handle {
	return &Handle{api: api, token: token, argv: argv, cache: cache}
}

// Context reports which execution context the current callback runs under.
// It fails only if the host reports a value outside the known set.
func (h *Handle) Context() (Context, error) {
	ctx, ok := contextFromKind(h.api.Context())
	if !ok {
		return 0, newAPIError(h.api, "spank_context", spankapi.ErrGeneric)
	}
	return ctx, nil
}

// Logger returns a structured logger routed to the host's logging channels.
func (h *Handle) Logger() hclog.Logger {
	return hostLogger()
}

// PluginArgv returns the arguments configured for this plugin in
// plugstack.conf.
func (h *Handle) PluginArgv() ([]string, error) {
	return decodeStringList(h.argv)
}

func decodeStringList(raw [][]byte) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		if !utf8.Valid(b) {
			return nil, &UTF8Error{Value: string(bytes.ToValidUTF8(b, []byte("�")))}
		}
		out = append(out, string(b))
	}
	return out, nil
}

// checkNul rejects strings that cannot become C strings.
func checkNul(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return &NulByteError{Value: s}
	}
	return nil
}

// Getenv retrieves a variable from the job's environment. The second result
// is false when the variable is not set. Valid in remote context; to read
// the job control environment from local or allocator context use
// JobControlGetenv instead.
func (h *Handle) Getenv(name string) (string, bool, error) {
	return h.getenv(spankapi.EnvJob, "spank_getenv", name)
}

// JobControlGetenv retrieves a variable from the job's control environment.
// Valid in local and allocator contexts.
func (h *Handle) JobControlGetenv(name string) (string, bool, error) {
	return h.getenv(spankapi.EnvJobControl, "spank_job_control_getenv", name)
}

func (h *Handle) getenv(kind spankapi.EnvKind, fn, name string) (string, bool, error) {
	if err := checkNul(name); err != nil {
		return "", false, err
	}

	buf := make([]byte, initialEnvBufSize)
	for {
		switch code := h.api.Getenv(h.token, kind, name, buf); code {
		case spankapi.ErrNoSpace:
			buf = make([]byte, len(buf)*2)
		case spankapi.Success:
			value := buf
			if i := bytes.IndexByte(buf, 0); i >= 0 {
				value = buf[:i]
			}
			if !utf8.Valid(value) {
				return "", false, &UTF8Error{Value: string(bytes.ToValidUTF8(value, []byte("�")))}
			}
			return string(value), true, nil
		case spankapi.ErrEnvNotExist:
			return "", false, nil
		default:
			return "", false, newAPIError(h.api, fn, code)
		}
	}
}

// Setenv sets a variable in the job's environment. When overwrite is false
// and the variable already exists, an EnvExistsError is returned and the
// existing value is left alone. Valid in remote context.
func (h *Handle) Setenv(name, value string, overwrite bool) error {
	return h.setenv(spankapi.EnvJob, "spank_setenv", name, value, overwrite)
}

// JobControlSetenv sets a variable in the job's control environment. Valid
// in local and allocator contexts.
func (h *Handle) JobControlSetenv(name, value string, overwrite bool) error {
	return h.setenv(spankapi.EnvJobControl, "spank_job_control_setenv", name, value, overwrite)
}

func (h *Handle) setenv(kind spankapi.EnvKind, fn, name, value string, overwrite bool) error {
	if err := checkNul(name); err != nil {
		return err
	}
	if err := checkNul(value); err != nil {
		return err
	}

	switch code := h.api.Setenv(h.token, kind, name, value, overwrite); code {
	case spankapi.Success:
		return nil
	case spankapi.ErrEnvExists:
		return &EnvExistsError{Name: name}
	default:
		return newAPIError(h.api, fn, code)
	}
}

// Unsetenv removes a variable from the job's environment. Unsetting an
// absent variable succeeds. Valid in remote context.
func (h *Handle) Unsetenv(name string) error {
	return h.unsetenv(spankapi.EnvJob, "spank_unsetenv", name)
}

// JobControlUnsetenv removes a variable from the job's control environment.
// Valid in local and allocator contexts.
func (h *Handle) JobControlUnsetenv(name string) error {
	return h.unsetenv(spankapi.EnvJobControl, "spank_job_control_unsetenv", name)
}

func (h *Handle) unsetenv(kind spankapi.EnvKind, fn, name string) error {
	if err := checkNul(name); err != nil {
		return err
	}
	if code := h.api.Unsetenv(h.token, kind, name); code != spankapi.Success {
		return newAPIError(h.api, fn, code)
	}
	return nil
}

// RegisterOption registers a plugin-provided option with the host. Only
// valid during the Init callback, and it must be called identically in
// every context the plugin is loaded in: each context keeps its own option
// table, and divergent registration makes option resolution silently fail
// in some of them.
func (h *Handle) RegisterOption(opt *Option) error {
	for _, s := range []string{opt.name, opt.arginfo, opt.usage} {
		if err := checkNul(s); err != nil {
			return err
		}
	}

	// The slot is the cache index the capture callback uses to find its
	// way back to the option name.
	slot := h.cache.NextSlot()
	code := h.api.RegisterOption(h.token, opt.name, opt.arginfo, opt.usage, opt.hasArg, slot)
	if code != spankapi.Success {
		return newAPIError(h.api, "spank_option_register", code)
	}
	h.cache.Add(opt.name)
	return nil
}

// OptionValue returns the value most recently supplied for a registered
// option; the second result is false when no value is available.
//
// Outside job-script context the value comes from the capture callback the
// host fires while parsing the command line. Before option processing has
// completed (during Init, and always in slurmd context) this correctly
// reports absent even if the user supplied the option. In job-script
// context the capture callback never fires and the host is queried
// directly, with the result cached for the rest of the invocation.
//
// Flag options declared without TakesValue never yield a value; use
// IsOptionSet for those.
func (h *Handle) OptionValue(name string) (string, bool, error) {
	ctx, err := h.Context()
	if err == nil && ctx == ContextJobScript {
		value, ok := h.jobScriptLookup(name)
		return deref(value, ok)
	}
	value, ok := h.cache.Lookup(name)
	return deref(value, ok)
}

// deref unwraps a cached capture, distinguishing flags (present, no value)
// from valued captures, and validating the bytes captured from the host.
func deref(value *string, ok bool) (string, bool, error) {
	if !ok || value == nil {
		return "", false, nil
	}
	if !utf8.ValidString(*value) {
		return "", false, &UTF8Error{Value: strings.ToValidUTF8(*value, "�")}
	}
	return *value, true, nil
}

// jobScriptLookup resolves an option through the synchronous getopt call,
// writing the result into the cache so repeated queries within the same
// invocation stay consistent without another native round trip.
func (h *Handle) jobScriptLookup(name string) (*string, bool) {
	if value, ok := h.cache.Lookup(name); ok {
		return value, true
	}
	if err := checkNul(name); err != nil {
		return nil, false
	}

	raw, set, code := h.api.Getopt(h.token, name)
	if code != spankapi.Success || !set {
		return nil, false
	}
	var value *string
	if raw != nil {
		s := string(raw)
		value = &s
	}
	h.cache.Store(name, value)
	return value, true
}

// IsOptionSet reports whether a registered option was supplied at all,
// which is the only observable fact about flag options.
func (h *Handle) IsOptionSet(name string) bool {
	ctx, err := h.Context()
	if err == nil && ctx == ContextJobScript {
		_, ok := h.jobScriptLookup(name)
		return ok
	}
	_, ok := h.cache.Lookup(name)
	return ok
}

// PrependTaskArgv inserts arguments in front of the task's command line.
// Only valid inside the task-creation callbacks, which the host enforces.
func (h *Handle) PrependTaskArgv(args []string) error {
	if len(args) > math.MaxInt32 {
		return &OverflowError{Count: len(args)}
	}
	for _, a := range args {
		if err := checkNul(a); err != nil {
			return err
		}
	}
	if code := h.api.PrependTaskArgv(h.token, args); code != spankapi.Success {
		return newAPIError(h.api, "spank_prepend_task_argv", code)
	}
	return nil
}

// numericItem queries a fixed-size numeric item.
func (h *Handle) numericItem(item spankapi.Item) (int64, error) {
	v, code := h.api.NumericItem(h.token, item)
	if code != spankapi.Success {
		return 0, newAPIError(h.api, "spank_get_item", code)
	}
	return v, nil
}

// idItem queries a numeric item parameterized by a task or job id, mapping
// "no such item" onto the id-specific not-found error.
func (h *Handle) idItem(item spankapi.Item, id uint32) (int64, error) {
	v, code := h.api.NumericItemArg(h.token, item, int64(id))
	switch code {
	case spankapi.Success:
		return v, nil
	case spankapi.ErrNoExist:
		return 0, &IDNotFoundError{ID: id}
	default:
		return 0, newAPIError(h.api, "spank_get_item", code)
	}
}

// pidItem queries a numeric item parameterized by a process id.
func (h *Handle) pidItem(item spankapi.Item, pid int32) (int64, error) {
	v, code := h.api.NumericItemArg(h.token, item, int64(pid))
	switch code {
	case spankapi.Success:
		return v, nil
	case spankapi.ErrNoExist:
		return 0, &PIDNotFoundError{PID: pid}
	default:
		return 0, newAPIError(h.api, "spank_get_item", code)
	}
}

// stringItem queries a string-valued item and validates its encoding.
func (h *Handle) stringItem(item spankapi.Item) (string, error) {
	raw, code := h.api.StringItem(h.token, item)
	if code != spankapi.Success {
		return "", newAPIError(h.api, "spank_get_item", code)
	}
	if !utf8.Valid(raw) {
		return "", &UTF8Error{Value: string(bytes.ToValidUTF8(raw, []byte("�")))}
	}
	return string(raw), nil
}

// JobUID returns the user id the job runs as.
func (h *Handle) JobUID() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobUID)
	return uint32(v), err
}

// JobGID returns the job's primary group id.
func (h *Handle) JobGID() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobGID)
	return uint32(v), err
}

// JobID returns the Slurm job id.
func (h *Handle) JobID() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobID)
	return uint32(v), err
}

// JobStepID returns the Slurm job step id.
func (h *Handle) JobStepID() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobStepID)
	return uint32(v), err
}

// JobNNodes returns the total number of nodes in the job.
func (h *Handle) JobNNodes() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobNNodes)
	return uint32(v), err
}

// JobNodeID returns this node's relative id within the job.
func (h *Handle) JobNodeID() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobNodeID)
	return uint32(v), err
}

// JobLocalTaskCount returns the number of tasks on this node.
func (h *Handle) JobLocalTaskCount() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobLocalTaskCount)
	return uint32(v), err
}

// JobTotalTaskCount returns the total number of tasks in the job.
func (h *Handle) JobTotalTaskCount() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobTotalTaskCount)
	return uint32(v), err
}

// JobNCPUs returns the number of CPUs used by the job.
func (h *Handle) JobNCPUs() (uint16, error) {
	v, err := h.numericItem(spankapi.ItemJobNCPUs)
	return uint16(v), err
}

// TaskID returns the local task id.
func (h *Handle) TaskID() (int, error) {
	v, err := h.numericItem(spankapi.ItemTaskID)
	return int(v), err
}

// TaskGlobalID returns the global task id.
func (h *Handle) TaskGlobalID() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemTaskGlobalID)
	return uint32(v), err
}

// TaskExitStatus returns the exit status of an exited task.
func (h *Handle) TaskExitStatus() (int, error) {
	v, err := h.numericItem(spankapi.ItemTaskExitStatus)
	return int(v), err
}

// TaskPID returns the task's process id.
func (h *Handle) TaskPID() (int32, error) {
	v, err := h.numericItem(spankapi.ItemTaskPID)
	return int32(v), err
}

// PIDToGlobalID translates a process id into a global task id.
func (h *Handle) PIDToGlobalID(pid int32) (uint32, error) {
	v, err := h.pidItem(spankapi.ItemJobPidToGlobalID, pid)
	return uint32(v), err
}

// PIDToLocalID translates a process id into a local task id.
func (h *Handle) PIDToLocalID(pid int32) (uint32, error) {
	v, err := h.pidItem(spankapi.ItemJobPidToLocalID, pid)
	return uint32(v), err
}

// LocalToGlobalID translates a local task id into a global task id.
func (h *Handle) LocalToGlobalID(localID uint32) (uint32, error) {
	v, err := h.idItem(spankapi.ItemJobLocalToGlobalID, localID)
	return uint32(v), err
}

// GlobalToLocalID translates a global task id into a local task id.
func (h *Handle) GlobalToLocalID(globalID uint32) (uint32, error) {
	v, err := h.idItem(spankapi.ItemJobGlobalToLocalID, globalID)
	return uint32(v), err
}

// JobSupplementaryGIDs returns the job's supplementary group ids.
func (h *Handle) JobSupplementaryGIDs() ([]uint32, error) {
	gids, code := h.api.GidsItem(h.token)
	if code != spankapi.Success {
		return nil, newAPIError(h.api, "spank_get_item", code)
	}
	return gids, nil
}

// JobArgv returns the job's command line.
func (h *Handle) JobArgv() ([]string, error) {
	raw, code := h.api.StringListItem(h.token, spankapi.ItemJobArgv)
	if code != spankapi.Success {
		return nil, newAPIError(h.api, "spank_get_item", code)
	}
	return decodeStringList(raw)
}

// JobEnv returns the job's environment array as NAME=value strings.
func (h *Handle) JobEnv() ([]string, error) {
	raw, code := h.api.StringListItem(h.token, spankapi.ItemJobEnv)
	if code != spankapi.Success {
		return nil, newAPIError(h.api, "spank_get_item", code)
	}
	return decodeStringList(raw)
}

// SlurmVersion returns the host's version string.
func (h *Handle) SlurmVersion() (string, error) {
	return h.stringItem(spankapi.ItemSlurmVersion)
}

// SlurmVersionMajor returns the host's major release component.
func (h *Handle) SlurmVersionMajor() (string, error) {
	return h.stringItem(spankapi.ItemSlurmVersionMajor)
}

// SlurmVersionMinor returns the host's minor release component.
func (h *Handle) SlurmVersionMinor() (string, error) {
	return h.stringItem(spankapi.ItemSlurmVersionMinor)
}

// SlurmVersionMicro returns the host's micro release component.
func (h *Handle) SlurmVersionMicro() (string, error) {
	return h.stringItem(spankapi.ItemSlurmVersionMicro)
}

// StepCPUsPerTask returns the CPUs allocated per task. The host reports 1
// when the job was submitted with --overcommit.
func (h *Handle) StepCPUsPerTask() (uint64, error) {
	v, err := h.numericItem(spankapi.ItemStepCPUsPerTask)
	return uint64(v), err
}

// JobAllocCores returns the job's allocated cores in list format.
func (h *Handle) JobAllocCores() (string, error) {
	return h.stringItem(spankapi.ItemJobAllocCores)
}

// JobAllocMem returns the job's allocated memory in MB.
func (h *Handle) JobAllocMem() (uint64, error) {
	v, err := h.numericItem(spankapi.ItemJobAllocMem)
	return uint64(v), err
}

// StepAllocCores returns the step's allocated cores in list format.
func (h *Handle) StepAllocCores() (string, error) {
	return h.stringItem(spankapi.ItemStepAllocCores)
}

// StepAllocMem returns the step's allocated memory in MB.
func (h *Handle) StepAllocMem() (uint64, error) {
	v, err := h.numericItem(spankapi.ItemStepAllocMem)
	return uint64(v), err
}

// RestartCount returns the job's restart count.
func (h *Handle) RestartCount() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemSlurmRestartCount)
	return uint32(v), err
}

// JobArrayID returns the job array id.
func (h *Handle) JobArrayID() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobArrayID)
	return uint32(v), err
}

// JobArrayTaskID returns the job array task id.
func (h *Handle) JobArrayTaskID() (uint32, error) {
	v, err := h.numericItem(spankapi.ItemJobArrayTaskID)
	return uint32(v), err
}
