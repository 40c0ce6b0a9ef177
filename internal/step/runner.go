package step

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/placeholder"
	"github.com/kilnhq/kiln/internal/sched"
	"github.com/kilnhq/kiln/internal/stream"
)

// Environment variable pointing the child at its context block.
const contextEnvVar = "KILN_CONTEXT"

// Executes one step.
//
// Run never returns a Go error: every outcome, including the runner's own
// failures, is encoded in the [ExecutionResult]. The engine translates
// results into the error taxonomy afterwards.
type Runner interface {
	Run(ctx context.Context, s *Step, sink stream.Sink, reg *paths.Registry) ExecutionResult
}

// Runs steps as real local subprocesses.
type ExecRunner struct {
	Loop    *sched.Loop
	BaseEnv []string // Parent environment; nil uses the process environment.
}

// Renders placeholders, spawns the child, streams its output, enforces
// the deadline, and resolves output placeholders.
func (r *ExecRunner) Run(ctx context.Context, s *Step, sink stream.Sink, reg *paths.Registry) ExecutionResult {
	scope := sched.ScopeOf(ctx)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	argv, err := renderCmd(s, reg)
	if err != nil {
		cleanupPlaceholders(s, false)
		return ResultException("render: %v", err)
	}

	cwd := s.Cwd
	if cwd == "" {
		cwd = scope.Cwd
	}

	if err := sink.Emit(openedEvent(s, argv, cwd, scope)); err != nil {
		cleanupPlaceholders(s, false)
		return ResultException("emit step_opened: %v", err)
	}

	env := effectiveEnv(baseEnv(r.BaseEnv), s, scope)
	if ctxPath, err := writeContextBlock(reg, s.Name, ctx, scope.Grace); err == nil && ctxPath != "" {
		env = append(env, contextEnvVar+"="+ctxPath)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = cwd
	cmd.Env = env
	cmd.Cancel = func() error { return gracefulStop(cmd) }
	cmd.WaitDelay = scope.Grace
	if cmd.WaitDelay == 0 {
		// A zero WaitDelay would disable the kill escalation entirely.
		cmd.WaitDelay = time.Millisecond
	}

	if s.Stdin != nil {
		path, err := s.Stdin.Path()
		if err != nil {
			cleanupPlaceholders(s, false)
			return ResultException("stdin: %v", err)
		}
		f, err := reg.Fs().Open(path)
		if err != nil {
			cleanupPlaceholders(s, false)
			return ResultException("stdin: %v", err)
		}
		defer f.Close()
		cmd.Stdin = f
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cleanupPlaceholders(s, false)
		return ResultException("stdout pipe: %v", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cleanupPlaceholders(s, false)
		return ResultException("stderr pipe: %v", err)
	}

	if err := cmd.Start(); err != nil {
		cleanupPlaceholders(s, false)
		return ResultException("start %q: %v", argv[0], err)
	}

	// Pump both streams until the pipes close. The pumps keep draining
	// through the grace period of a timed-out child, so output produced
	// while it shuts down is preserved.
	var pumps errgroup.Group
	pumps.Go(func() error { return pumpLines(stdout, "stdout", s.Name, sink, writerFor(s.Stdout)) })
	pumps.Go(func() error { return pumpLines(stderr, "stderr", s.Name, sink, writerFor(s.Stderr)) })

	var pumpErr, waitErr error
	r.Loop.Block(ctx, func() {
		pumpErr = pumps.Wait()
		waitErr = cmd.Wait()
	})

	res := classifyWait(ctx, cmd, waitErr)
	if pumpErr != nil && res.Retcode != nil {
		// Scanner and sink failures lose output; a clean exit code would
		// mask them.
		res = ResultException("stream pump: %v", pumpErr)
	}

	resolveOutputs(s)
	cleanupPlaceholders(s, res.Retcode != nil && s.RetcodeOK(*res.Retcode))
	return res
}

// Builds the execution result from the wait outcome and context state.
func classifyWait(ctx context.Context, cmd *exec.Cmd, waitErr error) ExecutionResult {
	if ctx.Err() != nil {
		res := ExecutionResult{}
		if sched.IsTimeout(ctx) {
			res.WasTimeout = true
		} else {
			res.WasCancelled = true
		}
		return res
	}

	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return ResultException("wait: %v", waitErr)
		}
	}

	code := cmd.ProcessState.ExitCode()
	if code < 0 {
		return ResultException("process terminated by signal")
	}
	return ResultRetcode(code)
}

// Renders every placeholder in the command vector into concrete args.
func renderCmd(s *Step, reg *paths.Registry) ([]string, error) {
	argv := make([]string, 0, len(s.Cmd))
	for _, arg := range s.Cmd {
		switch a := arg.(type) {
		case string:
			argv = append(argv, a)
		case placeholder.Placeholder:
			rendered, err := a.Render(reg, s.Name)
			if err != nil {
				return nil, err
			}
			argv = append(argv, rendered...)
		default:
			return nil, fmt.Errorf("%w: %T", ErrBadArg, arg)
		}
	}
	// Stream captures and stdin render too (no args), so their backing
	// is in place before the child starts.
	if s.Stdin != nil {
		if _, err := s.Stdin.Render(reg, s.Name); err != nil {
			return nil, err
		}
	}
	if s.Stdout != nil {
		if _, err := s.Stdout.Render(reg, s.Name); err != nil {
			return nil, err
		}
	}
	if s.Stderr != nil {
		if _, err := s.Stderr.Render(reg, s.Name); err != nil {
			return nil, err
		}
	}
	return argv, nil
}

// Resolves every output placeholder once; parse failures stay recorded on
// the placeholder for the engine to surface.
func resolveOutputs(s *Step) {
	for _, out := range s.Outputs() {
		out.Resolve()
	}
}

// Releases placeholder temp resources.
func cleanupPlaceholders(s *Step, success bool) {
	for _, ph := range s.Placeholders() {
		ph.Cleanup(success)
	}
}

// Reads one stream line by line, emitting each line to the sink and
// teeing raw data into an attached capture writer.
func pumpLines(r io.Reader, logName, stepName string, sink stream.Sink, capture io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if capture != nil {
			io.WriteString(capture, line+"\n")
		}
		if err := sink.Emit(stream.Event{
			Kind: stream.KindStepLogLine,
			Step: stepName,
			Log:  logName,
			Line: line,
		}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func writerFor(out *placeholder.Output) io.Writer {
	if out == nil {
		return nil
	}
	return out.Writer()
}

// Returns the parent environment for child processes.
func baseEnv(base []string) []string {
	if base != nil {
		return base
	}
	return os.Environ()
}

// Computes the child's environment.
//
// Additions are applied to the parent environment first, then PATH-like
// prefixes and suffixes with the OS list separator, then the scope's
// module-level overrides.
func effectiveEnv(base []string, s *Step, scope sched.Scope) []string {
	merged := make(map[string]string, len(base))
	var order []string
	set := func(k, v string) {
		if _, ok := merged[k]; !ok {
			order = append(order, k)
		}
		merged[k] = v
	}

	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			set(k, v)
		}
	}
	for k, v := range s.EnvAdditions {
		set(k, v)
	}

	sep := string(os.PathListSeparator)
	for k, prefixes := range s.EnvPrefixes {
		parts := append([]string{}, prefixes...)
		if existing, ok := merged[k]; ok && existing != "" {
			parts = append(parts, existing)
		}
		set(k, strings.Join(parts, sep))
	}
	for k, suffixes := range s.EnvSuffixes {
		parts := []string{}
		if existing, ok := merged[k]; ok && existing != "" {
			parts = append(parts, existing)
		}
		parts = append(parts, suffixes...)
		set(k, strings.Join(parts, sep))
	}

	for k, v := range scope.Env {
		set(k, v)
	}
	for k, prefixes := range scope.EnvPrefixes {
		parts := append([]string{}, prefixes...)
		if existing, ok := merged[k]; ok && existing != "" {
			parts = append(parts, existing)
		}
		set(k, strings.Join(parts, sep))
	}
	for k, suffixes := range scope.EnvSuffixes {
		parts := []string{}
		if existing, ok := merged[k]; ok && existing != "" {
			parts = append(parts, existing)
		}
		parts = append(parts, suffixes...)
		set(k, strings.Join(parts, sep))
	}

	env := make([]string, 0, len(order))
	for _, k := range order {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// Builds the step_opened event.
//
// The env payload carries only the step's delta over the parent
// environment (additions, rendered prefixes/suffixes, scope overrides),
// which keeps the event deterministic across hosts.
func openedEvent(s *Step, argv []string, cwd string, scope sched.Scope) stream.Event {
	delta := make(map[string]string)
	for k, v := range s.EnvAdditions {
		delta[k] = v
	}
	sep := string(os.PathListSeparator)
	for k, prefixes := range s.EnvPrefixes {
		delta[k] = strings.Join(prefixes, sep) + sep + "${" + k + "}"
	}
	for k, suffixes := range s.EnvSuffixes {
		delta[k] = "${" + k + "}" + sep + strings.Join(suffixes, sep)
	}
	for k, v := range scope.Env {
		delta[k] = v
	}
	if len(delta) == 0 {
		delta = nil
	}

	return stream.Event{
		Kind: stream.KindStepOpened,
		Step: s.Name,
		Cmd:  argv,
		Cwd:  cwd,
		Env:  delta,
	}
}

// Writes the child's context block: the active soft deadline and grace
// period, as a JSON file whose path travels in KILN_CONTEXT.
func writeContextBlock(reg *paths.Registry, stepName string, ctx context.Context, grace time.Duration) (string, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return "", nil
	}

	block := map[string]any{
		"soft_deadline": float64(deadline.UnixNano()) / float64(time.Second),
		"grace_period":  grace.Seconds(),
	}
	data, err := json.Marshal(block)
	if err != nil {
		return "", err
	}

	path, err := reg.MksTemp(paths.RootTmp, stepName+"_context")
	if err != nil {
		return "", err
	}
	if err := reg.WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}
