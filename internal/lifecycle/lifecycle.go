// Package lifecycle models the fixed set of SPANK callback points and the
// states a loaded plugin moves through. The tracker is advisory: the host
// alone decides which callbacks fire and in what order, so an unexpected
// event never blocks a callback, it just leaves the phase where it was.
package lifecycle

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Point identifies one of the twelve callback entry points.
type Point int

const (
	Init Point = iota
	JobProlog
	InitPostOpt
	LocalUserInit
	UserInit
	TaskInitPrivileged
	TaskInit
	TaskPostFork
	TaskExit
	JobEpilog
	SlurmdExit
	Exit
)

var pointNames = map[Point]string{
	Init:               "init",
	JobProlog:          "job_prolog",
	InitPostOpt:        "init_post_opt",
	LocalUserInit:      "local_user_init",
	UserInit:           "user_init",
	TaskInitPrivileged: "task_init_privileged",
	TaskInit:           "task_init",
	TaskPostFork:       "task_post_fork",
	TaskExit:           "task_exit",
	JobEpilog:          "job_epilog",
	SlurmdExit:         "slurmd_exit",
	Exit:               "exit",
}

// String returns the short callback name, e.g. "task_init".
func (p Point) String() string {
	if name, ok := pointNames[p]; ok {
		return name
	}
	return fmt.Sprintf("point(%d)", int(p))
}

// Symbol returns the exported native entry point name for this callback.
func (p Point) Symbol() string {
	return "slurm_spank_" + p.String()
}

// event maps a callback point onto a state machine event type.
func (p Point) event() statekit.EventType {
	return statekit.EventType(p.String())
}

// Phase is a coarse summary of how far the plugin has progressed. It is
// the state id type of the lifecycle machine, so phases are usable directly
// as machine states.
type Phase = statekit.StateID

const (
	PhaseUnloaded         Phase = "unloaded"
	PhaseInitialized      Phase = "initialized"
	PhaseOptionsProcessed Phase = "options_processed"
	PhaseTaskRunning      Phase = "task_running"
	PhaseTaskDone         Phase = "task_done"
	PhaseExited           Phase = "exited"
)

// Tracker follows callback points through the plugin lifecycle state
// machine. It is driven from under the dispatch lock and is not safe for
// concurrent use.
type Tracker struct {
	interp *statekit.Interpreter[struct{}]
}

// NewTracker builds the lifecycle state machine, starting in the unloaded
// phase.
func NewTracker() (*Tracker, error) {
	machine, err := statekit.NewMachine[struct{}]("spank-plugin").
		WithInitial(PhaseUnloaded).
		WithContext(struct{}{}).
		State(PhaseUnloaded).
		On(Init.event()).Target(PhaseInitialized).
		On(Exit.event()).Target(PhaseExited).Done().
		State(PhaseInitialized).
		On(InitPostOpt.event()).Target(PhaseOptionsProcessed).
		// Prolog and epilog are out-of-band: a process may exist solely to
		// run them and never sees a task.
		On(JobProlog.event()).Target(PhaseInitialized).
		On(JobEpilog.event()).Target(PhaseInitialized).
		On(SlurmdExit.event()).Target(PhaseInitialized).
		On(Exit.event()).Target(PhaseExited).Done().
		State(PhaseOptionsProcessed).
		On(LocalUserInit.event()).Target(PhaseOptionsProcessed).
		On(UserInit.event()).Target(PhaseOptionsProcessed).
		On(TaskInitPrivileged.event()).Target(PhaseTaskRunning).
		On(TaskInit.event()).Target(PhaseTaskRunning).
		On(TaskPostFork.event()).Target(PhaseTaskRunning).
		On(Exit.event()).Target(PhaseExited).Done().
		State(PhaseTaskRunning).
		On(TaskInit.event()).Target(PhaseTaskRunning).
		On(TaskPostFork.event()).Target(PhaseTaskRunning).
		On(TaskExit.event()).Target(PhaseTaskDone).
		On(Exit.event()).Target(PhaseExited).Done().
		State(PhaseTaskDone).
		On(JobEpilog.event()).Target(PhaseTaskDone).
		On(Exit.event()).Target(PhaseExited).Done().
		State(PhaseExited).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("building lifecycle machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &Tracker{interp: interp}, nil
}

// Observe advances the machine for a callback point. Events with no
// transition from the current phase are ignored.
func (t *Tracker) Observe(p Point) {
	t.interp.Send(statekit.Event{Type: p.event()})
}

// Phase reports the current lifecycle phase.
func (t *Tracker) Phase() Phase {
	return t.interp.State().Value
}
