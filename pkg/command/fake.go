package command

import (
	"context"
	"io"
	"strings"
	"sync"
)

// HandlerFunc produces the scripted outcome for one matched command
type HandlerFunc func(cmd *Command) (*Result, error)

// FakeRunner is a scriptable Runner for tests. Handlers are matched against
// the rendered command line by longest prefix; unmatched commands succeed
// with empty output so tests only script what they care about.
type FakeRunner struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []*Command
}

// NewFakeRunner creates a FakeRunner with no scripted handlers
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle scripts the outcome for command lines starting with prefix
func (f *FakeRunner) Handle(prefix string, fn HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[prefix] = fn
}

// HandleResult scripts a fixed result for command lines starting with prefix
func (f *FakeRunner) HandleResult(prefix string, result *Result) {
	f.Handle(prefix, func(*Command) (*Result, error) {
		return result, nil
	})
}

// Run records the call and returns the scripted outcome
func (f *FakeRunner) Run(_ context.Context, cmd *Command) (*Result, error) {
	return f.dispatch(cmd, nil)
}

// Stream records the call, writes the scripted stdout to w, and returns
// the scripted outcome
func (f *FakeRunner) Stream(_ context.Context, cmd *Command, w io.Writer) (*Result, error) {
	return f.dispatch(cmd, w)
}

func (f *FakeRunner) dispatch(cmd *Command, stream io.Writer) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	line := cmd.String()

	var fn HandlerFunc
	longest := -1
	for prefix, h := range f.handlers {
		if strings.HasPrefix(line, prefix) && len(prefix) > longest {
			longest = len(prefix)
			fn = h
		}
	}
	f.mu.Unlock()

	if fn == nil {
		fn = func(*Command) (*Result, error) {
			return &Result{ExitCode: 0}, nil
		}
	}

	result, err := fn(cmd)
	if result != nil && stream != nil && result.Stdout != "" {
		if _, werr := io.WriteString(stream, result.Stdout); werr != nil {
			return result, werr
		}
	}
	return result, err
}

// Calls returns every command dispatched so far
func (f *FakeRunner) Calls() []*Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallLines returns the rendered command line of every call, in order
func (f *FakeRunner) CallLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		lines = append(lines, c.String())
	}
	return lines
}

// CallsMatching returns the rendered lines of calls starting with prefix
func (f *FakeRunner) CallsMatching(prefix string) []string {
	var out []string
	for _, line := range f.CallLines() {
		if strings.HasPrefix(line, prefix) {
			out = append(out, line)
		}
	}
	return out
}

// Reset clears recorded calls, keeping handlers
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
