package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// escalationGrace is how long a graceful termination signal is given to
// work before the subprocess is killed outright. Fixed rather than
// configurable; escalation only needs to be deterministic and bounded.
const escalationGrace = 5 * time.Second

// maxLineBytes bounds one stream-json output line. Longer lines are
// skipped, not treated as stream failure.
const maxLineBytes = 1024 * 1024

// streamBuffer is the chunk channel capacity for streaming invocations.
const streamBuffer = 64

// Observer receives backend lifecycle measurements: subprocess
// starts and exits, terminal states, and stream line classifications.
// *metrics.Collector satisfies it; a nil observer disables recording.
type Observer interface {
	BackendStarted()
	BackendFinished()
	RecordBackendInvocation(state string, exitCode int, duration time.Duration)
	RecordStreamEvent(kind string)
}

type noopObserver struct{}

func (noopObserver) BackendStarted() {}
func (noopObserver) BackendFinished() {}
func (noopObserver) RecordBackendInvocation(string, int, time.Duration) {}
func (noopObserver) RecordStreamEvent(string) {}

// observer resolves the configured observer, substituting a no-op so
// call sites never need a nil check.
func observer(opts Options) Observer {
	if opts.Metrics != nil {
		return opts.Metrics
	}
	return noopObserver{}
}

// Options configures a Runner.
type Options struct {
	// Path is the backend executable path.
	Path string

	// DefaultModel is used when the request does not name a model.
	DefaultModel string

	// DefaultMaxTokens is used when the request does not bound output.
	// Zero means no bound is sent.
	DefaultMaxTokens int

	// DefaultTemperature is used when the request does not set one.
	// Nil means no temperature is sent.
	DefaultTemperature *float64

	// Timeout is the wall-clock execution timeout per invocation.
	Timeout time.Duration

	// Logger receives structured lifecycle events. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Metrics receives subprocess lifecycle measurements. Nil disables
	// recording.
	Metrics Observer
}

// Runner executes the backend CLI as one subprocess per invocation.
// There is no pooling or reuse; invocations are fully independent and
// the only shared state between them is the Runner's configuration.
type Runner struct {
	mu     sync.RWMutex
	opts   Options
	logger *slog.Logger
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		opts:   opts,
		logger: logger.With("component", "backend.runner"),
	}
}

// options snapshots the current configuration. Each invocation works
// from the snapshot taken when it started, so a concurrent Reconfigure
// never changes an in-flight invocation.
func (r *Runner) options() Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.opts
}

// Reconfigure replaces the Runner's options. Only subsequent
// invocations see the new values; the logger set at construction is
// kept.
func (r *Runner) Reconfigure(opts Options) {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()
	r.logger.Info("backend runner reconfigured",
		"path", opts.Path,
		"default_model", opts.DefaultModel,
		"timeout", opts.Timeout,
	)
}

// Ready reports whether the backend executable is resolvable.
func (r *Runner) Ready() error {
	opts := r.options()
	if _, err := exec.LookPath(opts.Path); err != nil {
		return &UnavailableError{Path: opts.Path, Cause: err}
	}
	return nil
}

// invocation owns the subprocess for one execution. Its termination
// state is set exactly once; every signal path checks the state first so
// a timeout cannot race a just-completed normal exit.
type invocation struct {
	handle Handle
	cmd    *exec.Cmd
	state  atomic.Int32

	mu        sync.Mutex
	termTimer *time.Timer
	killTimer *time.Timer
	released  bool
}

func newInvocation(cmd *exec.Cmd) *invocation {
	return &invocation{
		handle: Handle{ID: uuid.NewString(), StartedAt: time.Now()},
		cmd:    cmd,
	}
}

// State returns the invocation's current termination state.
func (inv *invocation) State() State {
	return State(inv.state.Load())
}

// transition moves the invocation out of StateRunning exactly once.
// Returns false if a terminal state was already set.
func (inv *invocation) transition(to State) bool {
	return inv.state.CompareAndSwap(int32(StateRunning), int32(to))
}

// signal delivers sig to the subprocess's process group, so children
// spawned by the backend are terminated with it. Signaling an
// already-reaped process fails; that failure is deliberately ignored so
// late timers are safe no-ops.
func (inv *invocation) signal(sig syscall.Signal) {
	if p := inv.cmd.Process; p != nil {
		_ = syscall.Kill(-p.Pid, sig)
	}
}

// terminate converges both cancellation triggers (timeout expiry and
// client disconnect) onto one path: mark the state, send SIGTERM, and
// arm the forced-kill escalation timer.
func (inv *invocation) terminate(to State) {
	if !inv.transition(to) {
		return
	}
	inv.signal(syscall.SIGTERM)

	// A cancellation can race the subprocess being reaped. Once release
	// has run there is nothing left to escalate against, so the kill
	// timer must not be armed after it.
	inv.mu.Lock()
	if !inv.released {
		inv.killTimer = time.AfterFunc(escalationGrace, func() {
			inv.signal(syscall.SIGKILL)
		})
	}
	inv.mu.Unlock()
}

// armTimeout starts the wall-clock timer for the invocation.
func (inv *invocation) armTimeout(d time.Duration) {
	inv.mu.Lock()
	inv.termTimer = time.AfterFunc(d, func() {
		inv.terminate(StateTimedOut)
	})
	inv.mu.Unlock()
}

// release cancels any armed timers. Called exactly once, after the
// subprocess has been reaped.
func (inv *invocation) release() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.released = true
	if inv.termTimer != nil {
		inv.termTimer.Stop()
		inv.termTimer = nil
	}
	if inv.killTimer != nil {
		inv.killTimer.Stop()
		inv.killTimer = nil
	}
}

// resolve applies runner defaults to a request's model and settings.
func resolve(opts Options, req *CompletionRequest) (model string, maxTokens int, temperature *float64) {
	model = req.Model
	if model == "" {
		model = opts.DefaultModel
	}
	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = opts.DefaultMaxTokens
	}
	temperature = req.Temperature
	if temperature == nil {
		temperature = opts.DefaultTemperature
	}
	return model, maxTokens, temperature
}

// Execute runs one buffered invocation: spawn, feed stdin, wait for
// exit, parse the terminal JSON object.
func (r *Runner) Execute(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	opts := r.options()
	model, maxTokens, temperature := resolve(opts, req)

	input, err := BuildInput(req, req.InputFormat)
	if err != nil {
		return nil, err
	}
	argv := BuildArgs(model, maxTokens, temperature, req.InputFormat, OutputFormatJSON)

	stdout, _, inv, err := r.run(ctx, opts, argv, input)
	if err != nil {
		return nil, err
	}

	resp, err := ParseResult(stdout, model, inv.handle.ID, inv.handle.StartedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "backend output parse failed",
			"request_id", inv.handle.ID,
			"stdout_bytes", len(stdout),
			"error", err,
		)
		return nil, err
	}
	return resp, nil
}

// run spawns the backend and buffers its output to completion. The
// three standard streams are serviced concurrently so a stalled reader
// can never block the stdin writer or vice versa.
func (r *Runner) run(ctx context.Context, opts Options, argv []string, input string) (stdout, stderr []byte, inv *invocation, err error) {
	cmd := exec.Command(opts.Path, argv...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, &UnavailableError{Path: opts.Path, Cause: err}
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, &UnavailableError{Path: opts.Path, Cause: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, &UnavailableError{Path: opts.Path, Cause: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, &UnavailableError{Path: opts.Path, Cause: err}
	}

	inv = newInvocation(cmd)
	inv.armTimeout(opts.Timeout)
	observer(opts).BackendStarted()

	r.logger.InfoContext(ctx, "backend spawned",
		"request_id", inv.handle.ID,
		"pid", cmd.Process.Pid,
		"argv_len", len(argv),
		"stdin_bytes", len(input),
	)

	// Stdin writer.
	var inputErr error
	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		defer stdinPipe.Close()
		if _, werr := io.WriteString(stdinPipe, input); werr != nil {
			inputErr = werr
		}
	}()

	// Stdout and stderr collectors.
	var outBuf, errBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = io.Copy(&outBuf, stdoutPipe) }()
	go func() { defer wg.Done(); _, _ = io.Copy(&errBuf, stderrPipe) }()

	// Client-disconnect watcher.
	reaped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			inv.terminate(StateKilled)
		case <-reaped:
		}
	}()

	<-stdinDone
	wg.Wait()
	waitErr := cmd.Wait()
	close(reaped)
	inv.release()

	return r.classify(ctx, opts, inv, outBuf.Bytes(), errBuf.Bytes(), inputErr, waitErr, ctx.Err())
}

// classify resolves the invocation's outcome from its final state,
// collected buffers, and wait error. Every failure is classified and
// returned once; nothing is retried.
func (r *Runner) classify(ctx context.Context, opts Options, inv *invocation, stdout, stderr []byte, inputErr, waitErr, ctxErr error) ([]byte, []byte, *invocation, error) {
	elapsed := time.Since(inv.handle.StartedAt)

	exitCode := 0
	if waitErr != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	// The invocation's state is final by the time any branch returns.
	defer func() {
		obs := observer(opts)
		obs.BackendFinished()
		obs.RecordBackendInvocation(inv.State().String(), exitCode, elapsed)
	}()

	switch inv.State() {
	case StateTimedOut:
		r.logger.WarnContext(ctx, "backend timed out",
			"request_id", inv.handle.ID,
			"timeout", opts.Timeout,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return nil, nil, inv, &TimeoutError{Timeout: opts.Timeout}
	case StateKilled:
		r.logger.WarnContext(ctx, "backend canceled by client",
			"request_id", inv.handle.ID,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		if ctxErr != nil {
			return nil, nil, inv, ctxErr
		}
		return nil, nil, inv, context.Canceled
	}

	if inputErr != nil {
		inv.transition(StateFailed)
		r.logger.ErrorContext(ctx, "backend stdin write failed",
			"request_id", inv.handle.ID,
			"error", inputErr,
		)
		return nil, nil, inv, &InputWriteError{Cause: inputErr}
	}

	if waitErr != nil {
		inv.transition(StateFailed)
		diag := string(bytes.TrimSpace(stderr))
		if diag == "" {
			diag = string(bytes.TrimSpace(stdout))
		}
		r.logger.ErrorContext(ctx, "backend exited with error",
			"request_id", inv.handle.ID,
			"exit_code", exitCode,
			"stderr_bytes", len(stderr),
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return nil, nil, inv, &ExecutionError{ExitCode: exitCode, Stderr: diag}
	}

	inv.transition(StateCompleted)
	r.logger.InfoContext(ctx, "backend completed",
		"request_id", inv.handle.ID,
		"stdout_bytes", len(stdout),
		"stderr_bytes", len(stderr),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return stdout, stderr, inv, nil
}

// ExecuteStream runs one streaming invocation. Spawn-phase failures are
// returned synchronously so the caller can still produce a proper HTTP
// error; once the channel is handed out, all subsequent failures travel
// through it as the final error chunk before close.
//
// If ctx is canceled while the subprocess is still running (client
// disconnect), the subprocess receives a graceful termination signal
// immediately, escalating to a forced kill after the grace period.
func (r *Runner) ExecuteStream(ctx context.Context, req *CompletionRequest) (<-chan *StreamChunk, error) {
	opts := r.options()
	model, maxTokens, temperature := resolve(opts, req)

	input, err := BuildInput(req, req.InputFormat)
	if err != nil {
		return nil, err
	}
	argv := BuildArgs(model, maxTokens, temperature, req.InputFormat, OutputFormatStreamJSON)

	cmd := exec.Command(opts.Path, argv...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, &UnavailableError{Path: opts.Path, Cause: err}
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &UnavailableError{Path: opts.Path, Cause: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &UnavailableError{Path: opts.Path, Cause: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &UnavailableError{Path: opts.Path, Cause: err}
	}

	inv := newInvocation(cmd)
	inv.armTimeout(opts.Timeout)
	observer(opts).BackendStarted()

	r.logger.InfoContext(ctx, "backend spawned",
		"request_id", inv.handle.ID,
		"pid", cmd.Process.Pid,
		"mode", "stream",
		"stdin_bytes", len(input),
	)

	chunks := make(chan *StreamChunk, streamBuffer)
	go r.bridge(ctx, opts, inv, model, input, stdinPipe, stdoutPipe, stderrPipe, chunks)

	return chunks, nil
}

// bridge consumes the live subprocess streams and re-emits assistant
// events as StreamChunks. It owns the teardown of the invocation: the
// chunk channel is closed exactly once, after the subprocess has been
// reaped and the final error chunk (if any) has been delivered.
func (r *Runner) bridge(ctx context.Context, opts Options, inv *invocation, model, input string, stdin io.WriteCloser, stdoutPipe, stderrPipe io.Reader, chunks chan<- *StreamChunk) {
	defer close(chunks)

	// Stdin writer.
	var inputErr error
	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		defer stdin.Close()
		if _, werr := io.WriteString(stdin, input); werr != nil {
			inputErr = werr
		}
	}()

	// Stderr collector.
	var errBuf bytes.Buffer
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		_, _ = io.Copy(&errBuf, stderrPipe)
	}()

	// Client-disconnect watcher.
	reaped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			inv.terminate(StateKilled)
		case <-reaped:
		}
	}()

	// Line-oriented stdout consumer. Partial trailing lines are buffered
	// until completed by the next read; a line is only ever parsed
	// whole. Oversized and malformed lines are skipped, never allowed to
	// end the stream.
	obs := observer(opts)
	reader := bufio.NewReaderSize(stdoutPipe, 64*1024)
	for {
		line, tooLong, readErr := readLine(reader)
		switch {
		case tooLong:
			r.logger.WarnContext(ctx, "skipping oversized backend line",
				"request_id", inv.handle.ID,
				"limit_bytes", maxLineBytes,
			)
			obs.RecordStreamEvent("oversized")
		case len(bytes.TrimSpace(line)) > 0:
			ev := ParseEvent(line)
			switch ev.Kind {
			case EventAssistant:
				obs.RecordStreamEvent("assistant")
				chunk := &StreamChunk{
					ID:         inv.handle.ID,
					Model:      model,
					Delta:      ev.Content,
					StopReason: ev.StopReason,
					Created:    inv.handle.StartedAt.Unix(),
				}
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					inv.terminate(StateKilled)
				}
			case EventSystem:
				obs.RecordStreamEvent("system")
				r.logger.DebugContext(ctx, "backend control event",
					"request_id", inv.handle.ID,
					"subtype", ev.Subtype,
				)
			case EventUnrecognized:
				obs.RecordStreamEvent("malformed")
				r.logger.WarnContext(ctx, "skipping malformed backend line",
					"request_id", inv.handle.ID,
					"line_bytes", len(ev.Raw),
				)
			}
		}
		if readErr != nil {
			break
		}
	}

	<-stdinDone
	<-stderrDone
	waitErr := inv.cmd.Wait()
	close(reaped)
	inv.release()

	_, _, _, err := r.classify(ctx, opts, inv, nil, errBuf.Bytes(), inputErr, waitErr, ctx.Err())
	if err == nil {
		return
	}
	// Client disconnects have no consumer left to inform.
	if inv.State() == StateKilled {
		return
	}

	chunk := &StreamChunk{
		ID:      inv.handle.ID,
		Model:   model,
		Error:   err,
		Created: inv.handle.StartedAt.Unix(),
	}
	select {
	case chunks <- chunk:
	case <-ctx.Done():
	}
}

// readLine returns the next newline-delimited line from r, without the
// delimiter. A line exceeding maxLineBytes is consumed through its
// newline and reported as too long instead of returned, so a single
// runaway line cannot stall the subprocess or drop the lines after it.
// A non-nil err means the stream is done; the returned line (a final
// unterminated one) is still valid.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		frag, ferr := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, frag...)
			if len(line) > maxLineBytes {
				tooLong = true
				line = nil
			}
		}
		if ferr == bufio.ErrBufferFull {
			continue
		}
		if tooLong {
			return nil, true, ferr
		}
		return bytes.TrimSuffix(line, []byte{'\n'}), false, ferr
	}
}
