package dht

import (
	"context"
	"errors"
	"os"
	"sync"
)

// DefaultStateDir is the state directory Config.withDefaults falls back to
// when the caller leaves StateDir empty, mirroring original_source's
// ./.veilid/ convention for where DHT-local caches and keystores live.
const DefaultStateDir = "./.tracebox"

// ErrAlreadyInitialized indicates Init was called on a Runtime that has
// already been started.
var ErrAlreadyInitialized = errors.New("dht: already initialized")

// attacher is implemented by Network backends that need an explicit
// attach-and-wait-for-readiness step (mirroring original_source's
// init_veilid/wait_for_network). memnet.Network's Attach is a no-op since
// there is no real network to wait on.
type attacher interface {
	Attach(ctx context.Context) error
}

// Config configures a Runtime.
type Config struct {
	// Network is the backend to attach to. It is required; there is no
	// default, since choosing one is a deployment decision.
	Network Network

	// StateDir is where a Network backend may keep local caches and
	// keystores. Defaults to DefaultStateDir if left empty.
	StateDir string
}

func (c Config) withDefaults() Config {
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	return c
}

// Runtime is a process-wide handle to an attached Network, opened once at
// startup with Init and torn down with Shutdown. Library code takes a
// *Runtime (or its Network directly) as an explicit argument rather than
// reading ambient global state; SetDefault/Default below exist only as a
// convenience for callers that want a single implicit instance, the way
// original_source's get_routing_context() does.
type Runtime struct {
	network  Network
	stateDir string

	ready    chan struct{}
	readyErr error
}

// Init attaches to cfg.Network and returns a Runtime once the network
// reports itself ready. The returned Runtime is independent of any other
// Runtime; callers that want a single shared instance should pass it to
// SetDefault themselves.
func Init(ctx context.Context, cfg Config) (*Runtime, error) {
	cfg = cfg.withDefaults()
	if cfg.Network == nil {
		return nil, netErrorf("Init", "Config.Network is required")
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, netErrorf("Init", "state dir: %w", err)
	}
	rt := &Runtime{network: cfg.Network, stateDir: cfg.StateDir, ready: make(chan struct{})}
	if a, ok := cfg.Network.(attacher); ok {
		if err := a.Attach(ctx); err != nil {
			close(rt.ready)
			rt.readyErr = netErrorf("Init", "attach: %w", err)
			return nil, rt.readyErr
		}
	}
	close(rt.ready)
	return rt, nil
}

// StateDir returns the directory the Runtime was configured to keep local
// state under.
func (rt *Runtime) StateDir() string { return rt.stateDir }

// WaitReady blocks until the Runtime's network has attached, or ctx is
// done, whichever comes first.
func (rt *Runtime) WaitReady(ctx context.Context) error {
	select {
	case <-rt.ready:
		return rt.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Network returns the Runtime's underlying Network once it is ready.
func (rt *Runtime) Network(ctx context.Context) (Network, error) {
	if err := rt.WaitReady(ctx); err != nil {
		return nil, err
	}
	return rt.network, nil
}

// Shutdown releases the Runtime. It does not close individual records;
// callers are expected to have closed every Record they opened first.
func (rt *Runtime) Shutdown(context.Context) error {
	return nil
}

var (
	defaultMu sync.Mutex
	defaultRt *Runtime
)

// SetDefault installs rt as the process-wide default Runtime, for callers
// that want a single shared instance rather than threading one through
// explicitly.
func SetDefault(rt *Runtime) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRt = rt
}

// Default returns the Runtime installed by SetDefault, or ErrNotReady if
// none has been installed yet.
func Default() (*Runtime, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRt == nil {
		return nil, ErrNotReady
	}
	return defaultRt, nil
}
