package runner

import (
	"context"
	"fmt"
)

// Call records one invocation observed by a FakeRunner.
type Call struct {
	Name  string
	Args  []string
	Stdin string
}

// FakeRunner is a scriptable CommandRunner for tests. Each program name is
// dispatched to a handler; every invocation is recorded in order.
type FakeRunner struct {
	// Handlers maps a program name to the function that fakes it.
	Handlers map[string]func(args []string, stdin string) (string, error)

	// Calls is the ordered record of invocations.
	Calls []Call
}

var _ CommandRunner = (*FakeRunner)(nil)

// NewFake creates a FakeRunner with no handlers installed.
func NewFake() *FakeRunner {
	return &FakeRunner{Handlers: map[string]func(args []string, stdin string) (string, error){}}
}

// Handle installs the handler for a program name.
func (f *FakeRunner) Handle(name string, fn func(args []string, stdin string) (string, error)) {
	f.Handlers[name] = fn
}

// Run records the call and dispatches to the handler for name.
func (f *FakeRunner) Run(_ context.Context, name string, args []string, stdin string) (string, error) {
	f.Calls = append(f.Calls, Call{Name: name, Args: append([]string(nil), args...), Stdin: stdin})
	fn, ok := f.Handlers[name]
	if !ok {
		return "", fmt.Errorf("no handler for command %q", name)
	}
	return fn(args, stdin)
}

// CallsTo returns the recorded calls for a program name.
func (f *FakeRunner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
