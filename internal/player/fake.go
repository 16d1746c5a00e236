package player

import "sync"

// FakeController records playback commands for test assertions. Safe for
// concurrent use because the dispatcher calls it from its worker goroutine.
type FakeController struct {
	mu sync.Mutex

	// calls records each command in order. SetVolume is recorded as
	// "set_volume".
	calls []string

	// volumes records the arguments of SetVolume calls in order.
	volumes []int

	// errs maps a command name to the error its next calls return.
	errs map[string]error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeController creates a FakeController.
func NewFakeController() *FakeController {
	return &FakeController{errs: make(map[string]error)}
}

// SetErr makes the named command fail with err until cleared with nil.
func (f *FakeController) SetErr(command string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, command)
		return
	}
	f.errs[command] = err
}

// Calls returns a snapshot of the recorded command names.
func (f *FakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Volumes returns a snapshot of the recorded SetVolume arguments.
func (f *FakeController) Volumes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.volumes))
	copy(out, f.volumes)
	return out
}

// Reset clears recorded calls and scripted errors.
func (f *FakeController) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.volumes = nil
	f.errs = make(map[string]error)
	f.Closed = false
}

func (f *FakeController) record(command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[command]; err != nil {
		return err
	}
	f.calls = append(f.calls, command)
	return nil
}

// PlayPause records a play_pause call.
func (f *FakeController) PlayPause() error { return f.record("play_pause") }

// Next records a next call.
func (f *FakeController) Next() error { return f.record("next") }

// Previous records a previous call.
func (f *FakeController) Previous() error { return f.record("previous") }

// Stop records a stop call.
func (f *FakeController) Stop() error { return f.record("stop") }

// SetVolume records a set_volume call and its argument.
func (f *FakeController) SetVolume(percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["set_volume"]; err != nil {
		return err
	}
	f.calls = append(f.calls, "set_volume")
	f.volumes = append(f.volumes, percent)
	return nil
}

// Close marks the controller as closed.
func (f *FakeController) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
