package nav

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brean/robot-api/internal/httpc"
	"github.com/brean/robot-api/internal/log"
	"github.com/brean/robot-api/pkg/pose"
)

// defaultPollInterval is how often HTTPBridge polls a dispatched goal.
const defaultPollInterval = 200 * time.Millisecond

// HTTPBridge implements ActionClient and TransformSource against a REST
// navigation bridge. Goals are created with POST /goal and polled on
// GET /goal/{id} until terminal; transforms come from GET /transform.
type HTTPBridge struct {
	BaseURL string

	// PollInterval is the pause between goal status polls.
	PollInterval time.Duration

	client *http.Client
}

// NewHTTPBridge creates a client for the bridge at baseURL
// (e.g. "http://localhost:8080").
func NewHTTPBridge(baseURL string) *HTTPBridge {
	return &HTTPBridge{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		PollInterval: defaultPollInterval,
		client:       httpc.NewClient(10 * time.Second),
	}
}

// httpGoal is the wire form of a dispatched goal.
type httpGoal struct {
	ID         string    `json:"id"`
	TargetPose pose.Pose `json:"target_pose"`
	FrameID    string    `json:"frame_id"`
	TimeoutS   float64   `json:"timeout_s,omitempty"`
}

// httpGoalState is the wire form of a goal status poll.
type httpGoalState struct {
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
}

// Connect checks the bridge is reachable.
func (h *HTTPBridge) Connect(name string) bool {
	resp, err := h.client.Get(h.BaseURL + "/status")
	if err != nil {
		log.Error("navigation bridge unreachable", "url", h.BaseURL, "action", name, "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Error("navigation bridge unhealthy", "url", h.BaseURL, "code", resp.StatusCode)
		return false
	}
	return true
}

// postGoal creates the goal on the bridge.
func (h *HTTPBridge) postGoal(goal *Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	body, err := json.Marshal(httpGoal{
		ID:         goal.ID,
		TargetPose: goal.TargetPose,
		FrameID:    goal.FrameID,
		TimeoutS:   goal.Timeout.Seconds(),
	})
	if err != nil {
		return fmt.Errorf("marshal goal: %w", err)
	}
	resp, err := h.client.Post(h.BaseURL+"/goal", "application/json", strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("post goal: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("post goal: bridge returned %d", resp.StatusCode)
	}
	return nil
}

// pollGoal fetches the goal state once.
func (h *HTTPBridge) pollGoal(id string) (*httpGoalState, error) {
	resp, err := h.client.Get(h.BaseURL + "/goal/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("poll goal: bridge returned %d", resp.StatusCode)
	}
	var state httpGoalState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("poll goal: %w", err)
	}
	return &state, nil
}

// waitForResult polls until the goal reaches a terminal state or the deadline
// passes.
func (h *HTTPBridge) waitForResult(id string, timeout time.Duration) *Result {
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			return &Result{Status: StatusTimedOut, Text: fmt.Sprintf("no result within %s", timeout)}
		}
		time.Sleep(h.PollInterval)

		state, err := h.pollGoal(id)
		if err != nil {
			log.Warn("goal status poll failed", "id", id, "error", err)
			continue
		}
		switch state.Status {
		case "succeeded":
			return &Result{Status: StatusSucceeded, Text: state.Text}
		case "aborted":
			return &Result{Status: StatusAborted, Text: state.Text}
		case "preempted":
			return &Result{Status: StatusPreempted, Text: state.Text}
		}
	}
}

// SendGoalAndWait dispatches goal and blocks for its terminal result.
func (h *HTTPBridge) SendGoalAndWait(goal *Goal, timeout time.Duration) *Result {
	if err := h.postGoal(goal); err != nil {
		log.Error("failed to send navigation goal", "id", goal.ID, "error", err)
		return &Result{Status: StatusAborted, Text: err.Error()}
	}
	return h.waitForResult(goal.ID, timeout)
}

// SendGoalAsync dispatches goal and fires done exactly once from a polling
// goroutine. The wait is bounded by the goal's own timeout, falling back to
// DefaultMoveTimeout.
func (h *HTTPBridge) SendGoalAsync(goal *Goal, done DoneFunc) {
	if err := h.postGoal(goal); err != nil {
		log.Error("failed to send navigation goal", "id", goal.ID, "error", err)
		go done(StatusAborted, &Result{Status: StatusAborted, Text: err.Error()})
		return
	}
	timeout := goal.Timeout
	if timeout <= 0 {
		timeout = DefaultMoveTimeout
	}
	go func() {
		res := h.waitForResult(goal.ID, timeout)
		done(res.Status, res)
	}()
}

// LookupTransform resolves the robot pose from the bridge. A 404 is treated
// as a transient lookup failure, a 410 as an extrapolation failure, matching
// the transform tree's transient error split.
func (h *HTTPBridge) LookupTransform(referenceFrame, robotFrame string, at time.Time) (pose.Pose, error) {
	q := url.Values{}
	q.Set("reference_frame", referenceFrame)
	q.Set("robot_frame", robotFrame)
	if !at.IsZero() {
		q.Set("stamp", fmt.Sprintf("%d", at.UnixNano()))
	}
	resp, err := h.client.Get(h.BaseURL + "/transform?" + q.Encode())
	if err != nil {
		return pose.Pose{}, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return pose.Pose{}, fmt.Errorf("%w: frames %s -> %s", ErrLookup, referenceFrame, robotFrame)
	case http.StatusGone:
		io.Copy(io.Discard, resp.Body)
		return pose.Pose{}, fmt.Errorf("%w: frames %s -> %s", ErrExtrapolation, referenceFrame, robotFrame)
	default:
		io.Copy(io.Discard, resp.Body)
		return pose.Pose{}, fmt.Errorf("transform: bridge returned %d", resp.StatusCode)
	}

	var p pose.Pose
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return pose.Pose{}, fmt.Errorf("%w: bad transform payload: %v", ErrLookup, err)
	}
	return p, nil
}

// Ensure HTTPBridge implements both collaborator contracts
var (
	_ ActionClient    = (*HTTPBridge)(nil)
	_ TransformSource = (*HTTPBridge)(nil)
)
