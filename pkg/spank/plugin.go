package spank

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Plugin is the set of lifecycle callbacks a SPANK plugin can implement.
// The host decides which callbacks fire in which process; every method must
// tolerate being the only one called.
//
// Embed BasePlugin to get a no-op default for everything and override only
// the lifecycle points the plugin cares about.
type Plugin interface {
	// Setup runs once per process, before the first callback of any kind
	// reaches the plugin. The default establishes structured logging
	// through the host.
	Setup(h *Handle) error

	// Init fires when the plugin is loaded, in every context. Options must
	// be registered here and nowhere else.
	Init(h *Handle) error

	// JobProlog fires in job-script context before the job starts. A
	// returned error drains the node, so it must not be used lightly.
	JobProlog(h *Handle) error

	// InitPostOpt fires after option processing has completed.
	InitPostOpt(h *Handle) error

	// LocalUserInit fires in local context after options are processed,
	// as the invoking user.
	LocalUserInit(h *Handle) error

	// UserInit fires in remote context after the job's user is set up.
	UserInit(h *Handle) error

	// TaskInitPrivileged fires for each task, before privileges drop.
	TaskInitPrivileged(h *Handle) error

	// TaskInit fires for each task as the job's user, before exec.
	TaskInit(h *Handle) error

	// TaskPostFork fires in the parent after each task is forked.
	TaskPostFork(h *Handle) error

	// TaskExit fires for each task after it exits.
	TaskExit(h *Handle) error

	// JobEpilog fires in job-script context after the job ends. Errors
	// drain the node, as for JobProlog.
	JobEpilog(h *Handle) error

	// SlurmdExit fires when the node daemon shuts down.
	SlurmdExit(h *Handle) error

	// Exit fires when the plugin is unloaded, in every context. No further
	// callback follows it.
	Exit(h *Handle) error

	// ReportError is invoked with any error returned from a lifecycle
	// method before the failure status is handed to the host. The default
	// logs the full cause chain through the host.
	ReportError(err error)
}

// BasePlugin is an embeddable no-op implementation of Plugin. The zero
// value is ready to use.
type BasePlugin struct{}

var _ Plugin = (*BasePlugin)(nil)

// Setup installs the host-routed logger as the hclog default so that
// hclog.Default() and plain hclog helpers end up in the Slurm logs.
func (BasePlugin) Setup(h *Handle) error {
	hclog.SetDefault(hostLogger())
	return nil
}

// Init is a no-op by default.
func (BasePlugin) Init(h *Handle) error { return nil }

// JobProlog is a no-op by default.
func (BasePlugin) JobProlog(h *Handle) error { return nil }

// InitPostOpt is a no-op by default.
func (BasePlugin) InitPostOpt(h *Handle) error { return nil }

// LocalUserInit is a no-op by default.
func (BasePlugin) LocalUserInit(h *Handle) error { return nil }

// UserInit is a no-op by default.
func (BasePlugin) UserInit(h *Handle) error { return nil }

// TaskInitPrivileged is a no-op by default.
func (BasePlugin) TaskInitPrivileged(h *Handle) error { return nil }

// TaskInit is a no-op by default.
func (BasePlugin) TaskInit(h *Handle) error { return nil }

// TaskPostFork is a no-op by default.
func (BasePlugin) TaskPostFork(h *Handle) error { return nil }

// TaskExit is a no-op by default.
func (BasePlugin) TaskExit(h *Handle) error { return nil }

// JobEpilog is a no-op by default.
func (BasePlugin) JobEpilog(h *Handle) error { return nil }

// SlurmdExit is a no-op by default.
func (BasePlugin) SlurmdExit(h *Handle) error { return nil }

// Exit is a no-op by default.
func (BasePlugin) Exit(h *Handle) error { return nil }

// ReportError logs err at error severity. Messages built with %w wrapping
// already carry their cause chain; a cause that renders separately from the
// message is appended explicitly.
func (BasePlugin) ReportError(err error) {
	msg := err.Error()
	if cause := errors.Unwrap(err); cause != nil && !strings.Contains(msg, cause.Error()) {
		msg += ": " + cause.Error()
	}
	Log(LogLevelError, msg)
}
