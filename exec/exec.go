package exec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/tooldoc"

	"github.com/jonwraymond/cellexec/backend/local"
	"github.com/jonwraymond/cellexec/capture"
	"github.com/jonwraymond/cellexec/code"
	"github.com/jonwraymond/cellexec/namespace"
)

// Exec is the cell execution engine.
// It resolves a cell's lineage, evaluates it with captured streams, stores
// its exit namespace and projects the requested outputs.
//
// At most one cell executes at a time per Exec. Callers waiting for the
// critical section give up when their context ends.
type Exec struct {
	store    namespace.Store
	resolver *namespace.Resolver
	engine   code.Engine
	index    index.Index
	docs     tooldoc.Store
	tools    *local.Backend
	logger   code.Logger
	metrics  *metrics
	opts     Options
	sem      chan struct{}
}

// New creates a new Exec instance with the given options.
func New(opts Options) (*Exec, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}

	m, err := newMetrics(opts.Registerer, opts.Store)
	if err != nil {
		return nil, err
	}

	e := &Exec{
		store:    opts.Store,
		resolver: namespace.NewResolver(opts.Store),
		engine:   opts.Engine,
		index:    opts.Index,
		docs:     opts.Docs,
		tools:    local.New(opts.ToolNamespace),
		logger:   opts.Logger,
		metrics:  m,
		opts:     opts,
		sem:      make(chan struct{}, 1),
	}
	if err := e.registerTools(); err != nil {
		return nil, err
	}
	return e, nil
}

// RunCell executes one cell.
//
// Every fault (invalid request, unknown predecessor, evaluation error,
// unbound output) is reported in Response.Error and also returned as the
// error, so library callers can match it with errors.Is. A failed cell
// leaves the store exactly as it was, even when it is a root cell, and
// returns an empty CapturedOut.
func (e *Exec) RunCell(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := e.runCell(ctx, req)
	elapsed := time.Since(start)

	resp.DurationMs = elapsed.Milliseconds()
	if err != nil {
		resp.Error = err.Error()
		resp.CapturedOut = map[string]any{}
		resp.Added, resp.Changed = nil, nil
		if e.opts.DiscardOutputOnFault {
			resp.Output = ""
		}
		e.logger.Logf("cell %s: failed after %v: %v", req.CellID, elapsed, err)
	}
	if resp.CapturedOut == nil {
		resp.CapturedOut = map[string]any{}
	}
	e.metrics.observe(err, elapsed)
	return resp, err
}

func (e *Exec) runCell(ctx context.Context, req Request) (Response, error) {
	if err := e.validate(req); err != nil {
		return Response{}, err
	}
	injected, err := code.ToNamespace(req.CapturedIn)
	if err != nil {
		return Response{}, fmt.Errorf("%w: capturedIn: %w", ErrInvalidRequest, err)
	}

	if err := e.acquire(ctx); err != nil {
		return Response{}, err
	}
	defer e.release()

	lineage, err := e.resolver.Resolve(req.PredecessorIDs)
	if err != nil {
		return Response{}, err
	}
	entry := namespace.Merge(lineage.Entry, injected)
	e.logger.Logf("cell %s: input scope prepared (%d bindings, %d injected)",
		req.CellID, len(entry), len(injected))

	streams, err := e.openStreams()
	if err != nil {
		return Response{}, err
	}
	res, evalErr := e.evaluate(ctx, req, entry, streams)
	out, closeErr := streams.Close()

	resp := Response{Output: out.Stdout, Stderr: out.Stderr}
	e.logger.Logf("cell %s: evaluated in %dms (output %d bytes, stderr %d bytes)",
		req.CellID, res.DurationMs, len(out.Stdout), len(out.Stderr))
	if evalErr != nil {
		return resp, evalErr
	}
	if closeErr != nil {
		return resp, closeErr
	}

	projected, err := Project(res.Namespace, req.CapturedOut)
	if err != nil {
		return resp, err
	}

	// A root cell resets the store only now that it has succeeded.
	e.resolver.Commit(req.CellID, lineage, res.Namespace)
	e.logger.Logf("cell %s: output scope persisted (%d bindings)", req.CellID, len(res.Namespace))

	resp.CapturedOut = projected
	resp.Added = res.Added
	resp.Changed = res.Changed
	return resp, nil
}

// evaluate runs the engine, turning a panic into an evaluation fault so
// the streams are still restored by the caller.
func (e *Exec) evaluate(ctx context.Context, req Request, entry namespace.Namespace, streams capture.Capturer) (res code.EvalResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = code.EvalResult{}
			err = &code.CodeError{Message: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return e.engine.Evaluate(ctx, code.EvalParams{
		CellID:    req.CellID,
		Code:      req.Code,
		Namespace: entry,
		Stdout:    streams.Stdout(),
		Stderr:    streams.Stderr(),
	})
}

func (e *Exec) openStreams() (capture.Capturer, error) {
	if e.opts.DisableCapture {
		return capture.NewBuffer(), nil
	}
	s, err := capture.Start()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Exec) validate(req Request) error {
	if strings.TrimSpace(req.CellID) == "" {
		return fmt.Errorf("%w: cellId is required", ErrInvalidRequest)
	}
	if len(req.Code) > e.opts.MaxCodeBytes {
		return fmt.Errorf("%w: code is %d bytes, limit is %d",
			ErrInvalidRequest, len(req.Code), e.opts.MaxCodeBytes)
	}
	return nil
}

func (e *Exec) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (e *Exec) release() { <-e.sem }

// Reset discards every stored namespace.
func (e *Exec) Reset(ctx context.Context) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()
	e.store.Clear()
	e.logger.Logf("store reset")
	return nil
}

// Cells returns the IDs of the stored namespaces, sorted.
func (e *Exec) Cells() []string {
	return e.store.IDs()
}

// Store returns the underlying namespace store.
func (e *Exec) Store() namespace.Store {
	return e.store
}

// Engine returns the evaluator.
func (e *Exec) Engine() code.Engine {
	return e.engine
}
