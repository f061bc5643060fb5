package spank

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/gospank/internal/lifecycle"
	"github.com/felixgeelhaar/gospank/internal/spankapi"
	"github.com/felixgeelhaar/gospank/internal/spankapi/spankapitest"
)

// resetGlobal clears the process-wide state between tests. The entry points
// are designed around exactly one plugin per process, so tests have to wind
// the singleton back themselves.
func resetGlobal(t *testing.T) {
	t.Helper()
	global = globalState{}
	activeAPI = nil
	t.Cleanup(func() {
		global = globalState{}
		activeAPI = nil
	})
}

// recordingPlugin captures which lifecycle methods ran and lets tests
// script failures and panics per callback point.
type recordingPlugin struct {
	BasePlugin
	calls    []string
	setupErr error
	initFn   func(h *Handle) error
	taskFn   func(h *Handle) error
	reported []error
}

func (p *recordingPlugin) Setup(h *Handle) error {
	p.calls = append(p.calls, "setup")
	return p.setupErr
}

func (p *recordingPlugin) Init(h *Handle) error {
	p.calls = append(p.calls, "init")
	if p.initFn != nil {
		return p.initFn(h)
	}
	return nil
}

func (p *recordingPlugin) TaskInit(h *Handle) error {
	p.calls = append(p.calls, "task_init")
	if p.taskFn != nil {
		return p.taskFn(h)
	}
	return nil
}

func (p *recordingPlugin) ReportError(err error) {
	p.reported = append(p.reported, err)
}

func TestDispatchConstructsPluginLazily(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxRemote)

	built := 0
	var plugin *recordingPlugin
	Serve(func() Plugin {
		built++
		plugin = &recordingPlugin{}
		return plugin
	})
	assert.Equal(t, 0, built)

	rc := Entry(host, lifecycle.Init, 0, nil)
	assert.Equal(t, int32(spankapi.Success), rc)
	assert.Equal(t, 1, built)

	rc = Entry(host, lifecycle.TaskInit, 0, nil)
	assert.Equal(t, int32(spankapi.Success), rc)
	assert.Equal(t, 1, built)
	assert.Equal(t, []string{"setup", "init", "task_init"}, plugin.calls)
}

func TestDispatchWithoutServeFails(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxRemote)

	rc := Entry(host, lifecycle.Init, 0, nil)
	assert.Equal(t, int32(spankapi.ErrGeneric), rc)
	require.NotEmpty(t, host.Logs)
	assert.Contains(t, host.Logs[0].Msg, "no plugin registered")
}

func TestDispatchSetupRunsOnce(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxRemote)

	plugin := &recordingPlugin{}
	Serve(func() Plugin { return plugin })

	Entry(host, lifecycle.Init, 0, nil)
	Entry(host, lifecycle.TaskInit, 0, nil)
	Entry(host, lifecycle.Exit, 0, nil)

	setups := 0
	for _, c := range plugin.calls {
		if c == "setup" {
			setups++
		}
	}
	assert.Equal(t, 1, setups)
}

func TestDispatchSetupFailureDoesNotAbortCallback(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxRemote)

	plugin := &recordingPlugin{setupErr: errors.New("config unreadable")}
	Serve(func() Plugin { return plugin })

	rc := Entry(host, lifecycle.Init, 0, nil)
	assert.Equal(t, int32(spankapi.Success), rc)
	assert.Equal(t, []string{"setup", "init"}, plugin.calls)
	require.Len(t, plugin.reported, 1)
	assert.Contains(t, plugin.reported[0].Error(), "config unreadable")

	// The failed setup is not retried on the next callback.
	Entry(host, lifecycle.TaskInit, 0, nil)
	assert.Equal(t, []string{"setup", "init", "task_init"}, plugin.calls)
}

func TestDispatchCallbackError(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxRemote)

	boom := errors.New("no such account")
	plugin := &recordingPlugin{initFn: func(h *Handle) error { return boom }}
	Serve(func() Plugin { return plugin })

	rc := Entry(host, lifecycle.Init, 0, nil)
	assert.Equal(t, int32(spankapi.ErrGeneric), rc)
	require.Len(t, plugin.reported, 1)
	assert.ErrorIs(t, plugin.reported[0], boom)
}

func TestDispatchContainsPanics(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxRemote)

	plugin := &recordingPlugin{taskFn: func(h *Handle) error { panic("boom") }}
	Serve(func() Plugin { return plugin })

	rc := Entry(host, lifecycle.Init, 0, nil)
	require.Equal(t, int32(spankapi.Success), rc)

	rc = Entry(host, lifecycle.TaskInit, 0, nil)
	assert.Equal(t, int32(spankapi.ErrGeneric), rc)
	assert.Contains(t, host.LogMessages(), "spank: panic in slurm_spank_task_init: boom")

	// The singleton stays usable after the unwind.
	plugin.taskFn = nil
	rc = Entry(host, lifecycle.TaskInit, 0, nil)
	assert.Equal(t, int32(spankapi.Success), rc)
}

func TestDispatchFailsClosedWhenStateHeld(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxRemote)
	Serve(func() Plugin { return &recordingPlugin{} })

	global.mu.Lock()
	defer global.mu.Unlock()

	rc := Entry(host, lifecycle.Init, 0, nil)
	assert.Equal(t, int32(spankapi.ErrGeneric), rc)
	require.NotEmpty(t, host.Logs)
	assert.Contains(t, host.Logs[0].Msg, "plugin state unavailable")
}

func TestOptionCaptureRoundTrip(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxLocal)

	var observed []string
	plugin := &recordingPlugin{}
	plugin.initFn = func(h *Handle) error {
		return h.RegisterOption(NewOption("level").TakesValue("n"))
	}
	plugin.taskFn = func(h *Handle) error {
		if v, ok, err := h.OptionValue("level"); err == nil && ok {
			observed = append(observed, v)
		}
		return nil
	}
	Serve(func() Plugin { return plugin })

	require.Equal(t, int32(spankapi.Success), Entry(host, lifecycle.Init, 0, nil))
	require.Len(t, host.Registrations, 1)
	slot := host.Registrations[0].Val

	// The host fires the capture once per occurrence; the last one wins.
	require.Equal(t, int32(spankapi.Success), CaptureEntry(host, slot, []byte("3")))
	require.Equal(t, int32(spankapi.Success), CaptureEntry(host, slot, []byte("9")))

	require.Equal(t, int32(spankapi.Success), Entry(host, lifecycle.TaskInit, 0, nil))
	assert.Equal(t, []string{"9"}, observed)
}

func TestOptionCaptureUnknownSlot(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxLocal)

	rc := CaptureEntry(host, 42, []byte("x"))
	assert.Equal(t, int32(spankapi.ErrGeneric), rc)
	require.NotEmpty(t, host.Logs)
	assert.Contains(t, host.Logs[0].Msg, "unexpected option callback 42")
}

func TestOptionCaptureFailsClosedWhenStateHeld(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxLocal)

	global.mu.Lock()
	defer global.mu.Unlock()

	rc := CaptureEntry(host, 0, nil)
	assert.Equal(t, int32(spankapi.ErrGeneric), rc)
	assert.Contains(t, host.Logs[0].Msg, "dropping option capture")
}

func TestBasePluginCoversEveryCallback(t *testing.T) {
	resetGlobal(t)
	host := spankapitest.NewHost(spankapi.CtxRemote)

	type minimal struct{ BasePlugin }
	Serve(func() Plugin { return &minimal{} })

	points := []lifecycle.Point{
		lifecycle.Init, lifecycle.JobProlog, lifecycle.InitPostOpt,
		lifecycle.LocalUserInit, lifecycle.UserInit,
		lifecycle.TaskInitPrivileged, lifecycle.TaskInit,
		lifecycle.TaskPostFork, lifecycle.TaskExit, lifecycle.JobEpilog,
		lifecycle.SlurmdExit, lifecycle.Exit,
	}
	for _, p := range points {
		assert.Equal(t, int32(spankapi.Success), Entry(host, p, 0, nil), p.String())
	}
}
