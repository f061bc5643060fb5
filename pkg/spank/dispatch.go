package spank

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/gospank/internal/lifecycle"
	"github.com/felixgeelhaar/gospank/internal/options"
	"github.com/felixgeelhaar/gospank/internal/spankapi"
)

// globalState is the process-wide singleton behind the native entry points.
// The host owns those entry points and offers no way to thread a context
// pointer through them, so the plugin instance and option cache have to
// live here. The host guarantees strictly sequential callbacks within a
// process; the mutex only turns a violated guarantee (or a prior crash)
// into a clean failure instead of corruption.
type globalState struct {
	mu        sync.Mutex
	factory   func() Plugin
	plugin    Plugin
	setupDone bool
	cache     *options.Cache
	tracker   *lifecycle.Tracker
}

var global globalState

// activeAPI is the host interface of the most recent callback, written
// only from under the global lock. Unlike the Handle it is retained after
// the callback returns: it carries no per-callback state (the token never
// crosses it), and package-level logging must keep reaching the host
// between callbacks once Setup has routed the hclog default through the
// host sink.
var activeAPI spankapi.API

func currentAPI() spankapi.API {
	return activeAPI
}

// Serve registers the constructor for the plugin instance. Call it from an
// init function of the plugin's main package:
//
//	func init() {
//		spank.Serve(func() spank.Plugin { return &myPlugin{} })
//	}
//
// The instance itself is constructed lazily on the first callback, so plugin
// state can depend on information that does not exist at load time.
func Serve(factory func() Plugin) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.factory = factory
}

// dispatch runs one lifecycle callback: it acquires the process state,
// builds a fresh Handle, invokes the author's method, and converts the
// outcome into the native status the host expects. Panics from author code
// or from this machinery are caught here; an unwind must never reach the
// host's native stack.
func dispatch(api spankapi.API, point lifecycle.Point, token spankapi.Token, argv [][]byte) (rc int32) {
	defer func() {
		if r := recover(); r != nil {
			api.Log(spankapi.SevError, fmt.Sprintf("spank: panic in %s: %v", point.Symbol(), r))
			rc = int32(spankapi.ErrGeneric)
		}
	}()

	// A blocked lock means a previous callback never finished. Fail the
	// callback rather than deadlock inside the host.
	if !global.mu.TryLock() {
		api.Log(spankapi.SevError, fmt.Sprintf("spank: plugin state unavailable, failing %s", point.Symbol()))
		return int32(spankapi.ErrGeneric)
	}

	activeAPI = api
	if global.cache == nil {
		global.cache = options.New()
	}
	if global.tracker == nil {
		tracker, err := lifecycle.NewTracker()
		if err != nil {
			api.Log(spankapi.SevError, fmt.Sprintf("spank: lifecycle tracking disabled: %v", err))
		} else {
			global.tracker = tracker
		}
	}
	if global.plugin == nil {
		if global.factory == nil {
			global.mu.Unlock()
			api.Log(spankapi.SevError, "spank: no plugin registered, was spank.Serve called from init?")
			return int32(spankapi.ErrGeneric)
		}
		global.plugin = global.factory()
	}

	plugin := global.plugin
	cache := global.cache
	tracker := global.tracker
	firstCallback := !global.setupDone
	global.setupDone = true

	// Take the instance out of its slot so the lock is not held across
	// author code, and guarantee it is put back on every exit path.
	global.plugin = nil
	global.mu.Unlock()
	defer func() {
		global.mu.Lock()
		global.plugin = plugin
		global.mu.Unlock()
	}()

	handle := newHandle(api, token, argv, cache)

	if firstCallback {
		// A failed setup is reported but does not abort the triggering
		// callback; the callback may well be the plugin's only chance to
		// run in this process.
		if err := plugin.Setup(handle); err != nil {
			plugin.ReportError(fmt.Errorf("plugin setup failed: %w", err))
		}
	}

	if tracker != nil {
		tracker.Observe(point)
	}

	if err := invoke(plugin, point, handle); err != nil {
		plugin.ReportError(err)
		return int32(spankapi.ErrGeneric)
	}
	return int32(spankapi.Success)
}

// invoke routes a callback point to the author's method.
func invoke(plugin Plugin, point lifecycle.Point, h *Handle) error {
	switch point {
	case lifecycle.Init:
		return plugin.Init(h)
	case lifecycle.JobProlog:
		return plugin.JobProlog(h)
	case lifecycle.InitPostOpt:
		return plugin.InitPostOpt(h)
	case lifecycle.LocalUserInit:
		return plugin.LocalUserInit(h)
	case lifecycle.UserInit:
		return plugin.UserInit(h)
	case lifecycle.TaskInitPrivileged:
		return plugin.TaskInitPrivileged(h)
	case lifecycle.TaskInit:
		return plugin.TaskInit(h)
	case lifecycle.TaskPostFork:
		return plugin.TaskPostFork(h)
	case lifecycle.TaskExit:
		return plugin.TaskExit(h)
	case lifecycle.JobEpilog:
		return plugin.JobEpilog(h)
	case lifecycle.SlurmdExit:
		return plugin.SlurmdExit(h)
	case lifecycle.Exit:
		return plugin.Exit(h)
	default:
		return fmt.Errorf("unknown callback point %d", int(point))
	}
}

// captureOption is the landing point for the host's option capture
// callback. It fires asynchronously relative to the plugin's own callbacks,
// whenever the user supplies a registered option; slot is the correlation
// token assigned at registration and optarg is nil for flag occurrences.
func captureOption(api spankapi.API, slot int, optarg []byte) (rc int32) {
	defer func() {
		if r := recover(); r != nil {
			api.Log(spankapi.SevError, fmt.Sprintf("spank: panic in option capture: %v", r))
			rc = int32(spankapi.ErrGeneric)
		}
	}()

	if !global.mu.TryLock() {
		api.Log(spankapi.SevError, "spank: plugin state unavailable, dropping option capture")
		return int32(spankapi.ErrGeneric)
	}
	defer global.mu.Unlock()

	if global.cache == nil {
		global.cache = options.New()
	}
	name, ok := global.cache.NameAt(slot)
	if !ok {
		// Fail closed: a slot we never assigned means the option tables
		// diverged somewhere, which must not take the host down.
		api.Log(spankapi.SevError, fmt.Sprintf("spank: received unexpected option callback %d", slot))
		return int32(spankapi.ErrGeneric)
	}

	var value *string
	if optarg != nil {
		s := string(optarg)
		value = &s
	}
	global.cache.Store(name, value)
	return int32(spankapi.Success)
}

// Entry is the bridge the cgo layer calls for each native lifecycle entry
// point. It is exported for use by pkg/spank/abi and is not part of the
// author-facing API; the lifecycle.Point parameter keeps it unusable from
// outside this module.
func Entry(api spankapi.API, point lifecycle.Point, token spankapi.Token, argv [][]byte) int32 {
	return dispatch(api, point, token, argv)
}

// CaptureEntry is the bridge the cgo layer calls from the native option
// capture callback. Exported for pkg/spank/abi only.
func CaptureEntry(api spankapi.API, slot int, optarg []byte) int32 {
	return captureOption(api, slot, optarg)
}
