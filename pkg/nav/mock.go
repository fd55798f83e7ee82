package nav

import (
	"sync"
	"time"

	"github.com/brean/robot-api/pkg/pose"
)

// MockActionClient implements ActionClient for testing.
// All methods can be customized via function fields.
type MockActionClient struct {
	// ConnectFunc is called when Connect is invoked. If nil, reports true.
	ConnectFunc func(name string) bool

	// SendAndWaitFunc is called when SendGoalAndWait is invoked.
	// If nil, returns a succeeded result.
	SendAndWaitFunc func(goal *Goal, timeout time.Duration) *Result

	// SendAsyncFunc is called when SendGoalAsync is invoked. If nil, the
	// callback fires with a succeeded result from a separate goroutine,
	// matching the real action server's threading.
	SendAsyncFunc func(goal *Goal, done DoneFunc)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Goal   *Goal
	Time   time.Time
}

// NewMockActionClient creates a mock that connects and succeeds by default.
func NewMockActionClient() *MockActionClient {
	return &MockActionClient{}
}

// Connect calls ConnectFunc and records the call.
func (m *MockActionClient) Connect(name string) bool {
	m.recordCall("Connect", nil)
	if m.ConnectFunc != nil {
		return m.ConnectFunc(name)
	}
	return true
}

// SendGoalAndWait calls SendAndWaitFunc and records the call.
func (m *MockActionClient) SendGoalAndWait(goal *Goal, timeout time.Duration) *Result {
	m.recordCall("SendGoalAndWait", goal)
	if m.SendAndWaitFunc != nil {
		return m.SendAndWaitFunc(goal, timeout)
	}
	return &Result{Status: StatusSucceeded}
}

// SendGoalAsync calls SendAsyncFunc and records the call.
func (m *MockActionClient) SendGoalAsync(goal *Goal, done DoneFunc) {
	m.recordCall("SendGoalAsync", goal)
	if m.SendAsyncFunc != nil {
		m.SendAsyncFunc(goal, done)
		return
	}
	go done(StatusSucceeded, &Result{Status: StatusSucceeded})
}

func (m *MockActionClient) recordCall(method string, goal *Goal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Goal: goal, Time: time.Now()})
}

// Calls returns a copy of all recorded calls.
func (m *MockActionClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// SendCount returns how many goals were dispatched, sync or async.
func (m *MockActionClient) SendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == "SendGoalAndWait" || c.Method == "SendGoalAsync" {
			n++
		}
	}
	return n
}

// Ensure MockActionClient implements ActionClient
var _ ActionClient = (*MockActionClient)(nil)

// MockTransformSource implements TransformSource for testing.
type MockTransformSource struct {
	// LookupFunc is called when LookupTransform is invoked. If nil, the
	// identity pose is returned.
	LookupFunc func(referenceFrame, robotFrame string, at time.Time) (pose.Pose, error)

	mu      sync.Mutex
	lookups int
}

// LookupTransform calls LookupFunc and counts the attempt.
func (m *MockTransformSource) LookupTransform(referenceFrame, robotFrame string, at time.Time) (pose.Pose, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	if m.LookupFunc != nil {
		return m.LookupFunc(referenceFrame, robotFrame, at)
	}
	return pose.Identity(), nil
}

// Lookups returns the number of lookup attempts.
func (m *MockTransformSource) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

// Ensure MockTransformSource implements TransformSource
var _ TransformSource = (*MockTransformSource)(nil)
