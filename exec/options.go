package exec

import (
	"fmt"
	"time"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/cellexec/code"
	"github.com/jonwraymond/cellexec/namespace"
)

// Default configuration values.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxCodeBytes  = 1 << 20
	DefaultToolNamespace = "kernel"
)

// Options configures an Exec instance.
type Options struct {
	// Store holds exit namespaces between cells.
	// Default: namespace.NewInMemoryStore()
	Store namespace.Store

	// Engine evaluates cell bodies.
	// Default: a StarlarkEngine using DefaultTimeout.
	Engine code.Engine

	// Logger receives the per-cell trail: scope prepared, evaluation
	// summary and scope persisted.
	// Optional.
	Logger code.Logger

	// Index and Docs hold the kernel tool catalogue. When nil, an in-memory
	// BM25 index and a docs store over it are created.
	Index index.Index
	Docs  tooldoc.Store

	// ToolNamespace is the namespace of the kernel tools (run_cell, reset,
	// cells). Default: "kernel"
	ToolNamespace string

	// DefaultTimeout bounds each evaluation when the default engine is used.
	// Default: 30s
	DefaultTimeout time.Duration

	// MaxCodeBytes rejects larger cell bodies as invalid requests.
	// Default: 1 MiB
	MaxCodeBytes int

	// Registerer receives the execution metrics. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer

	// DisableCapture routes cell output through in-memory buffers instead
	// of redirecting the process-wide standard streams.
	DisableCapture bool

	// DiscardOutputOnFault empties Response.Output when the cell fails.
	// By default the output printed before the fault is kept.
	DiscardOutputOnFault bool
}

// validate checks that set fields hold usable values.
func (o *Options) validate() error {
	if o.DefaultTimeout < 0 {
		return fmt.Errorf("%w: negative DefaultTimeout", ErrInvalidOptions)
	}
	if o.MaxCodeBytes < 0 {
		return fmt.Errorf("%w: negative MaxCodeBytes", ErrInvalidOptions)
	}
	return nil
}

// applyDefaults sets default values for unset optional fields.
func (o *Options) applyDefaults() error {
	if o.Store == nil {
		o.Store = namespace.NewInMemoryStore()
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
	if o.DefaultTimeout == 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	if o.MaxCodeBytes == 0 {
		o.MaxCodeBytes = DefaultMaxCodeBytes
	}
	if o.ToolNamespace == "" {
		o.ToolNamespace = DefaultToolNamespace
	}
	if o.Index == nil {
		o.Index = index.NewInMemoryIndex(index.IndexOptions{
			Searcher: search.NewBM25Searcher(search.BM25Config{}),
		})
	}
	if o.Docs == nil {
		o.Docs = tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: o.Index})
	}
	if o.Engine == nil {
		eng, err := code.NewStarlarkEngine(code.Config{
			DefaultTimeout: o.DefaultTimeout,
			Logger:         o.Logger,
		})
		if err != nil {
			return err
		}
		o.Engine = eng
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Logf(string, ...any) {}
