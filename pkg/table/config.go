// Package table is the public surface of hashcons: a lock-free,
// fixed-capacity, unique-insert hash table. config.go holds an unexported
// config struct, functional Options, a defaultConfig constructor, and an
// applyOptions pass that validates and derives tunables.
//
// © 2025 hashcons authors. MIT License.
package table

import (
	"errors"
	"math/bits"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/hashcons/internal/unsafehelpers"
)

// MinTableSize is the floor §3 imposes: "minimum table_size is 512."
const MinTableSize = 512

// config bundles every knob that influences table behaviour. All fields are
// immutable once the Table is constructed.
type config struct {
	initialSize uint64
	maxSize     uint64
	maskMode    bool
	workerCount int

	threshold int // probe budget; 0 means "derive from table_size"

	logger    *zap.Logger
	registry  *prometheus.Registry
	namespace string

	hashCb  HashFunc
	equalCb EqualFunc
	deadCb  DeadFunc
}

// Option configures a Table at construction time.
type Option func(*config)

func defaultConfig(initialSize, maxSize uint64) *config {
	return &config{
		initialSize: initialSize,
		maxSize:     maxSize,
		maskMode:    true,
		workerCount: runtime.GOMAXPROCS(0),
		logger:      zap.NewNop(),
	}
}

// WithMaskMode toggles whether the starting probe index is computed with a
// bitmask (table_size must be a power of two) or a modulo, per §3/§4.1.
// Defaults to true.
func WithMaskMode(enabled bool) Option {
	return func(c *config) { c.maskMode = enabled }
}

// WithWorkerCount overrides the number of logical workers the table's
// allocator and parallel sweeps use. Defaults to runtime.GOMAXPROCS(0).
func WithWorkerCount(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithThreshold overrides the probe budget (number of cache-line restarts
// before a lookup reports exhaustion). Defaults to roughly 2*log2(table_size)
// per §9's design notes.
func WithThreshold(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.threshold = n
		}
	}
}

// WithLogger plugs an external zap.Logger. The table never logs on the hot
// path; only slow events (Clear, Rehash, SetSize, probe exhaustion, remap
// fallback) are emitted.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (the default).
func WithMetrics(reg *prometheus.Registry, namespace string) Option {
	return func(c *config) {
		c.registry = reg
		c.namespace = namespace
	}
}

// WithCustom pre-registers the custom hash/equality callbacks used by
// LookupCustom and by Rehash when re-publishing custom-tagged slots.
// Equivalent to calling Table.SetCustom after construction.
func WithCustom(hash HashFunc, equal EqualFunc) Option {
	return func(c *config) {
		c.hashCb = hash
		c.equalCb = equal
	}
}

// WithOnDead pre-registers the dead-notify callback used by NotifyAll.
// Equivalent to calling Table.SetOnDead after construction.
func WithOnDead(cb DeadFunc) Option {
	return func(c *config) { c.deadCb = cb }
}

var (
	errInvalidMaxSize     = errors.New("hashcons: max_size must be > 0")
	errInvalidInitialSize = errors.New("hashcons: initial_size must be >= 512 and <= max_size")
	errNotPowerOfTwo      = errors.New("hashcons: initial_size and max_size must be powers of two in mask mode")
)

func applyOptions(cfg *config, opts []Option) error {
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.maxSize == 0 {
		return errInvalidMaxSize
	}
	if cfg.initialSize < MinTableSize || cfg.initialSize > cfg.maxSize {
		return errInvalidInitialSize
	}
	if cfg.maskMode {
		if !unsafehelpers.IsPowerOfTwo(uintptr(cfg.initialSize)) || !unsafehelpers.IsPowerOfTwo(uintptr(cfg.maxSize)) {
			return errNotPowerOfTwo
		}
	}
	if cfg.threshold == 0 {
		cfg.threshold = defaultThreshold(cfg.initialSize)
	}
	return nil
}

// defaultThreshold derives the probe budget as roughly 2*log2(table_size),
// per §9's design notes: "default to roughly 2·log2(table_size)."
func defaultThreshold(tableSize uint64) int {
	if tableSize < 2 {
		return 2
	}
	log2 := bits.Len64(tableSize - 1)
	t := 2 * log2
	if t < 2 {
		t = 2
	}
	return t
}
