// Package spankapitest provides an in-memory fake of the native SPANK host
// for tests. It reproduces the observable behavior of the native calls
// (status codes, buffer-too-small reporting, env table semantics) without
// requiring a running Slurm.
package spankapitest

import (
	"fmt"

	"github.com/felixgeelhaar/gospank/internal/spankapi"
)

// LogEntry records one message emitted through the fake host's logger.
type LogEntry struct {
	Sev spankapi.Severity
	Msg string
}

// Registration records one option registered with the fake host.
type Registration struct {
	Name    string
	ArgInfo string
	Usage   string
	HasArg  bool
	Val     int
}

// GetoptResult configures the outcome of a Getopt call for one option name.
type GetoptResult struct {
	Value []byte
	Set   bool
}

// Host is a fake spankapi.API. The zero value is usable; fields may be
// populated directly by tests. Host is not safe for concurrent use, which
// matches the host's sequential callback guarantee.
type Host struct {
	Ctx spankapi.CtxKind

	JobEnv     map[string]string
	ControlEnv map[string]string

	Numeric    map[spankapi.Item]int64
	NumericArg map[spankapi.Item]map[int64]int64
	Strings    map[spankapi.Item][]byte
	Argv       [][]byte
	Env        [][]byte
	Gids       []uint32

	GetoptResults map[string]GetoptResult
	GetoptCalls   int

	Registrations []Registration
	RegisterErr   spankapi.Errno

	Prepended []string

	Logs []LogEntry
}

// NewHost returns a fake host reporting the given context.
func NewHost(ctx spankapi.CtxKind) *Host {
	return &Host{
		Ctx:           ctx,
		JobEnv:        make(map[string]string),
		ControlEnv:    make(map[string]string),
		Numeric:       make(map[spankapi.Item]int64),
		NumericArg:    make(map[spankapi.Item]map[int64]int64),
		Strings:       make(map[spankapi.Item][]byte),
		GetoptResults: make(map[string]GetoptResult),
	}
}

var _ spankapi.API = (*Host)(nil)

func (h *Host) Context() spankapi.CtxKind { return h.Ctx }

func (h *Host) Strerror(code spankapi.Errno) string { return code.Describe() }

func (h *Host) Log(sev spankapi.Severity, msg string) {
	h.Logs = append(h.Logs, LogEntry{Sev: sev, Msg: msg})
}

// LogMessages returns every logged message, for assertion convenience.
func (h *Host) LogMessages() []string {
	msgs := make([]string, 0, len(h.Logs))
	for _, e := range h.Logs {
		msgs = append(msgs, e.Msg)
	}
	return msgs
}

func (h *Host) NumericItem(_ spankapi.Token, item spankapi.Item) (int64, spankapi.Errno) {
	v, ok := h.Numeric[item]
	if !ok {
		return 0, spankapi.ErrNoExist
	}
	return v, spankapi.Success
}

func (h *Host) NumericItemArg(_ spankapi.Token, item spankapi.Item, arg int64) (int64, spankapi.Errno) {
	byArg, ok := h.NumericArg[item]
	if !ok {
		return 0, spankapi.ErrNoExist
	}
	v, ok := byArg[arg]
	if !ok {
		return 0, spankapi.ErrNoExist
	}
	return v, spankapi.Success
}

func (h *Host) StringItem(_ spankapi.Token, item spankapi.Item) ([]byte, spankapi.Errno) {
	v, ok := h.Strings[item]
	if !ok {
		return nil, spankapi.ErrNoExist
	}
	return v, spankapi.Success
}

func (h *Host) StringListItem(_ spankapi.Token, item spankapi.Item) ([][]byte, spankapi.Errno) {
	switch item {
	case spankapi.ItemJobArgv:
		return h.Argv, spankapi.Success
	case spankapi.ItemJobEnv:
		return h.Env, spankapi.Success
	default:
		return nil, spankapi.ErrBadArg
	}
}

func (h *Host) GidsItem(_ spankapi.Token) ([]uint32, spankapi.Errno) {
	return h.Gids, spankapi.Success
}

func (h *Host) envTable(kind spankapi.EnvKind) map[string]string {
	if kind == spankapi.EnvJobControl {
		return h.ControlEnv
	}
	return h.JobEnv
}

func (h *Host) Getenv(_ spankapi.Token, kind spankapi.EnvKind, name string, buf []byte) spankapi.Errno {
	v, ok := h.envTable(kind)[name]
	if !ok {
		return spankapi.ErrEnvNotExist
	}
	// The native call needs room for the terminating NUL.
	if len(buf) < len(v)+1 {
		return spankapi.ErrNoSpace
	}
	copy(buf, v)
	buf[len(v)] = 0
	return spankapi.Success
}

func (h *Host) Setenv(_ spankapi.Token, kind spankapi.EnvKind, name, value string, overwrite bool) spankapi.Errno {
	table := h.envTable(kind)
	if _, exists := table[name]; exists && !overwrite {
		return spankapi.ErrEnvExists
	}
	table[name] = value
	return spankapi.Success
}

func (h *Host) Unsetenv(_ spankapi.Token, kind spankapi.EnvKind, name string) spankapi.Errno {
	delete(h.envTable(kind), name)
	return spankapi.Success
}

func (h *Host) RegisterOption(_ spankapi.Token, name, arginfo, usage string, hasArg bool, val int) spankapi.Errno {
	if h.RegisterErr != spankapi.Success {
		return h.RegisterErr
	}
	h.Registrations = append(h.Registrations, Registration{
		Name:    name,
		ArgInfo: arginfo,
		Usage:   usage,
		HasArg:  hasArg,
		Val:     val,
	})
	return spankapi.Success
}

func (h *Host) Getopt(_ spankapi.Token, name string) ([]byte, bool, spankapi.Errno) {
	h.GetoptCalls++
	res, ok := h.GetoptResults[name]
	if !ok {
		return nil, false, spankapi.ErrNoExist
	}
	return res.Value, res.Set, spankapi.Success
}

func (h *Host) PrependTaskArgv(_ spankapi.Token, argv []string) spankapi.Errno {
	if h.Ctx != spankapi.CtxRemote {
		return spankapi.ErrNotTask
	}
	h.Prepended = append(h.Prepended, argv...)
	return spankapi.Success
}

// SetJobValue seeds a numeric item, panicking on unknown items to catch
// typos in tests early.
func (h *Host) SetJobValue(item spankapi.Item, v int64) {
	if item > spankapi.ItemJobArrayTaskID {
		panic(fmt.Sprintf("spankapitest: unknown item %d", item))
	}
	h.Numeric[item] = v
}
