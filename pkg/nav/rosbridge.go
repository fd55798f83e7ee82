package nav

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/brean/robot-api/internal/log"
	"github.com/brean/robot-api/pkg/pose"
)

// Rosbridge protocol constants.
const (
	moveBaseActionType = "move_base_msgs/MoveBaseAction"
	lookupService      = "/robot_api/lookup_transform"

	// Actionlib terminal status codes as delivered in action_result.
	statusCodePreempted = 2
	statusCodeSucceeded = 3
	statusCodeAborted   = 4
)

const (
	defaultDialTimeout    = 5 * time.Second
	defaultServiceTimeout = 5 * time.Second
)

// Rosbridge talks the rosbridge v2 JSON protocol over a websocket and
// implements both ActionClient and TransformSource. A single reader
// goroutine demultiplexes replies to pending requests by op id.
type Rosbridge struct {
	URL string

	// ServiceTimeout bounds a single service call round trip.
	ServiceTimeout time.Duration

	mu   sync.Mutex // guards conn
	conn *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *bridgeMessage
}

// bridgeMessage is the subset of rosbridge fields this client reads.
type bridgeMessage struct {
	Op     string          `json:"op"`
	ID     string          `json:"id,omitempty"`
	Result *bool           `json:"result,omitempty"`
	Status int             `json:"status,omitempty"`
	Values json.RawMessage `json:"values,omitempty"`
}

// goalArgs is the payload of a send_action_goal op.
type goalArgs struct {
	TargetPose pose.Pose `json:"target_pose"`
	FrameID    string    `json:"frame_id"`
}

// NewRosbridge creates a client for the rosbridge server at url
// (e.g. "ws://localhost:9090"). No connection is made until Connect.
func NewRosbridge(url string) *Rosbridge {
	return &Rosbridge{
		URL:            url,
		ServiceTimeout: defaultServiceTimeout,
		pending:        make(map[string]chan *bridgeMessage),
	}
}

// Connect dials the rosbridge server. The action server name is part of the
// facade contract but needs no per-action handshake here; rosbridge routes by
// topic. Reports false when the server cannot be reached.
func (r *Rosbridge) Connect(name string) bool {
	if err := r.ensureConnected(); err != nil {
		log.Error("rosbridge connection failed", "url", r.URL, "action", name, "error", err)
		return false
	}
	return true
}

func (r *Rosbridge) ensureConnected() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: defaultDialTimeout}
	conn, _, err := dialer.Dial(r.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.URL, err)
	}
	r.conn = conn
	go r.readLoop(conn)
	return nil
}

// Close shuts the websocket down and fails all pending requests.
func (r *Rosbridge) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// readLoop routes incoming messages to the request that owns their id.
func (r *Rosbridge) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.dropConn(conn)
			return
		}
		var msg bridgeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("rosbridge sent unparseable message", "error", err)
			continue
		}
		if msg.ID == "" {
			continue
		}
		r.pendingMu.Lock()
		ch, ok := r.pending[msg.ID]
		if ok {
			delete(r.pending, msg.ID)
		}
		r.pendingMu.Unlock()
		if ok {
			ch <- &msg
		}
	}
}

// dropConn clears the connection and unblocks every waiter.
func (r *Rosbridge) dropConn(conn *websocket.Conn) {
	conn.Close()
	r.mu.Lock()
	if r.conn == conn {
		r.conn = nil
	}
	r.mu.Unlock()

	r.pendingMu.Lock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
	r.pendingMu.Unlock()
}

// send registers a reply channel for id and writes the op frame.
func (r *Rosbridge) send(id string, frame any) (chan *bridgeMessage, error) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	ch := make(chan *bridgeMessage, 1)
	r.pendingMu.Lock()
	r.pending[id] = ch
	r.pendingMu.Unlock()

	r.writeMu.Lock()
	err := conn.WriteJSON(frame)
	r.writeMu.Unlock()
	if err != nil {
		r.pendingMu.Lock()
		delete(r.pending, id)
		r.pendingMu.Unlock()
		return nil, fmt.Errorf("rosbridge write: %w", err)
	}
	return ch, nil
}

func (r *Rosbridge) forget(id string) {
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
}

// sendGoal dispatches goal and returns the channel its action_result will
// arrive on.
func (r *Rosbridge) sendGoal(goal *Goal) (chan *bridgeMessage, error) {
	if err := r.ensureConnected(); err != nil {
		return nil, err
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	frame := map[string]any{
		"op":          "send_action_goal",
		"id":          goal.ID,
		"action":      "/" + MoveBaseAction,
		"action_type": moveBaseActionType,
		"args":        goalArgs{TargetPose: goal.TargetPose, FrameID: goal.FrameID},
	}
	return r.send(goal.ID, frame)
}

// cancelGoal best-effort cancels a goal whose result we stopped waiting for.
func (r *Rosbridge) cancelGoal(id string) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return
	}
	r.writeMu.Lock()
	conn.WriteJSON(map[string]any{"op": "cancel_action_goal", "id": id, "action": "/" + MoveBaseAction})
	r.writeMu.Unlock()
}

// SendGoalAndWait dispatches goal and blocks for its terminal result.
func (r *Rosbridge) SendGoalAndWait(goal *Goal, timeout time.Duration) *Result {
	ch, err := r.sendGoal(goal)
	if err != nil {
		log.Error("failed to send navigation goal", "id", goal.ID, "error", err)
		return &Result{Status: StatusAborted, Text: err.Error()}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg, ok := <-ch:
		if !ok {
			return &Result{Status: StatusAborted, Text: "connection closed"}
		}
		return resultFromMessage(msg)
	case <-timer.C:
		r.forget(goal.ID)
		r.cancelGoal(goal.ID)
		return &Result{Status: StatusTimedOut, Text: fmt.Sprintf("no result within %s", timeout)}
	}
}

// SendGoalAsync dispatches goal and fires done exactly once from this
// client's goroutine. The wait is bounded by the goal's own timeout, falling
// back to DefaultMoveTimeout, so the callback fires even when the server
// never delivers a result.
func (r *Rosbridge) SendGoalAsync(goal *Goal, done DoneFunc) {
	ch, err := r.sendGoal(goal)
	if err != nil {
		log.Error("failed to send navigation goal", "id", goal.ID, "error", err)
		go done(StatusAborted, &Result{Status: StatusAborted, Text: err.Error()})
		return
	}
	timeout := goal.Timeout
	if timeout <= 0 {
		timeout = DefaultMoveTimeout
	}
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case msg, ok := <-ch:
			if !ok {
				res := &Result{Status: StatusAborted, Text: "connection closed"}
				done(res.Status, res)
				return
			}
			res := resultFromMessage(msg)
			done(res.Status, res)
		case <-timer.C:
			r.forget(goal.ID)
			r.cancelGoal(goal.ID)
			done(StatusTimedOut, &Result{Status: StatusTimedOut, Text: fmt.Sprintf("no result within %s", timeout)})
		}
	}()
}

func resultFromMessage(msg *bridgeMessage) *Result {
	res := &Result{}
	switch msg.Status {
	case statusCodeSucceeded:
		res.Status = StatusSucceeded
	case statusCodePreempted:
		res.Status = StatusPreempted
	default:
		res.Status = StatusAborted
	}
	if len(msg.Values) > 0 {
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(msg.Values, &payload); err == nil {
			res.Text = payload.Text
		}
	}
	return res
}

// LookupTransform resolves the robot pose through a rosbridge service call.
func (r *Rosbridge) LookupTransform(referenceFrame, robotFrame string, at time.Time) (pose.Pose, error) {
	if err := r.ensureConnected(); err != nil {
		return pose.Pose{}, fmt.Errorf("%w: %v", ErrLookup, err)
	}

	id := uuid.NewString()
	args := map[string]any{
		"reference_frame": referenceFrame,
		"robot_frame":     robotFrame,
	}
	if !at.IsZero() {
		args["stamp"] = at.UnixNano()
	}
	frame := map[string]any{
		"op":      "call_service",
		"id":      id,
		"service": lookupService,
		"args":    args,
	}
	ch, err := r.send(id, frame)
	if err != nil {
		return pose.Pose{}, fmt.Errorf("%w: %v", ErrLookup, err)
	}

	timer := time.NewTimer(r.ServiceTimeout)
	defer timer.Stop()
	select {
	case msg, ok := <-ch:
		if !ok {
			return pose.Pose{}, fmt.Errorf("%w: connection closed", ErrLookup)
		}
		return transformFromMessage(msg)
	case <-timer.C:
		r.forget(id)
		return pose.Pose{}, fmt.Errorf("%w: service call timed out", ErrLookup)
	}
}

func transformFromMessage(msg *bridgeMessage) (pose.Pose, error) {
	if msg.Result != nil && !*msg.Result {
		text := string(msg.Values)
		if strings.Contains(strings.ToLower(text), "extrapolat") {
			return pose.Pose{}, fmt.Errorf("%w: %s", ErrExtrapolation, text)
		}
		return pose.Pose{}, fmt.Errorf("%w: %s", ErrLookup, text)
	}
	var p pose.Pose
	if err := json.Unmarshal(msg.Values, &p); err != nil {
		return pose.Pose{}, fmt.Errorf("%w: bad transform payload: %v", ErrLookup, err)
	}
	return p, nil
}

// Ensure Rosbridge implements both collaborator contracts
var (
	_ ActionClient    = (*Rosbridge)(nil)
	_ TransformSource = (*Rosbridge)(nil)
)
