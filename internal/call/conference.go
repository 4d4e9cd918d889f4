package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/looplab/fsm"
)

// ConferenceState is the lifecycle state of a conference grouping.
type ConferenceState string

const (
	ConferenceIdle     ConferenceState = "idle"
	ConferenceCreating ConferenceState = "creating"
	ConferenceActive   ConferenceState = "active"
	ConferenceHolding  ConferenceState = "holding"
	ConferenceLeaving  ConferenceState = "leaving"
)

// Conference size bounds. A grouping below MinSubCalls collapses back
// to idle; combine attempts at MaxSubCalls are refused.
const (
	MinSubCalls = 2
	MaxSubCalls = 15
)

// Conference tracks one multi-party grouping per transport family: the
// main call, the member sub-call ids, and a state machine driving
// idle/creating/active/holding/leaving transitions.
type Conference struct {
	mu         sync.Mutex
	logger     *slog.Logger
	callType   CallType
	mainCallID int32
	subCallIDs map[int32]struct{}
	machine    *fsm.FSM
}

// NewConference creates an empty conference for one transport family.
func NewConference(callType CallType, logger *slog.Logger) *Conference {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conference{
		logger:     logger.With("subsystem", "conference", "call_type", callType.String()),
		callType:   callType,
		subCallIDs: make(map[int32]struct{}),
		machine: fsm.NewFSM(
			string(ConferenceIdle),
			fsm.Events{
				{Name: "create", Src: []string{string(ConferenceIdle)}, Dst: string(ConferenceCreating)},
				{Name: "activate", Src: []string{string(ConferenceCreating), string(ConferenceHolding), string(ConferenceLeaving), string(ConferenceActive)}, Dst: string(ConferenceActive)},
				{Name: "hold", Src: []string{string(ConferenceActive)}, Dst: string(ConferenceHolding)},
				{Name: "leave", Src: []string{string(ConferenceActive), string(ConferenceHolding)}, Dst: string(ConferenceLeaving)},
				{Name: "reset", Src: []string{string(ConferenceIdle), string(ConferenceCreating), string(ConferenceActive), string(ConferenceHolding), string(ConferenceLeaving)}, Dst: string(ConferenceIdle)},
			},
			fsm.Callbacks{},
		),
	}
}

func (c *Conference) fire(event string) {
	err := c.machine.Event(context.Background(), event)
	if err != nil && !errors.As(err, new(fsm.NoTransitionError)) {
		c.logger.Warn("conference transition refused", "event", event, "state", c.machine.Current(), "error", err)
	}
}

// CallType returns the transport family this grouping serves.
func (c *Conference) CallType() CallType { return c.callType }

// State returns the current conference lifecycle state.
func (c *Conference) State() ConferenceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConferenceState(c.machine.Current())
}

// MainCallID returns the id of the hosting call, or zero when idle.
func (c *Conference) MainCallID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mainCallID
}

// SubCallIDs returns the member ids in ascending order, without the
// main call.
func (c *Conference) SubCallIDs() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int32, 0, len(c.subCallIDs))
	for id := range c.subCallIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Size returns the number of sub-calls currently grouped.
func (c *Conference) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subCallIDs)
}

// HasMember reports whether id is a member sub-call.
func (c *Conference) HasMember(id int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subCallIDs[id]
	return ok
}

// SetMainCall nominates the hosting call. A second nomination must name
// the same call while the grouping exists.
func (c *Conference) SetMainCall(callID int32) error {
	if callID <= 0 {
		return ErrCallIDInvalid
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subCallIDs) >= MaxSubCalls {
		return ErrConferenceCallExceedLimit
	}
	if c.mainCallID == 0 {
		c.mainCallID = callID
		c.fire("create")
		return nil
	}
	if c.mainCallID != callID {
		c.logger.Warn("conference already has a main call", "main_call_id", c.mainCallID, "call_id", callID)
		return ErrCallIDInvalid
	}
	return nil
}

// AddSubCall adds a member. Adding the main call is a no-op; adding an
// existing member fails.
func (c *Conference) AddSubCall(callID int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subCallIDs) >= MaxSubCalls {
		return ErrConferenceCallExceedLimit
	}
	if callID == c.mainCallID {
		return nil
	}
	if _, ok := c.subCallIDs[callID]; ok {
		return fmt.Errorf("%w: call %d already a member", ErrIllegalCallOperation, callID)
	}
	c.subCallIDs[callID] = struct{}{}
	c.fire("activate")
	return nil
}

// CanCombine reports whether another combine attempt may proceed.
func (c *Conference) CanCombine() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subCallIDs) >= MaxSubCalls {
		c.logger.Warn("conference full", "size", len(c.subCallIDs))
		return ErrConferenceCallExceedLimit
	}
	return nil
}

// CanSeparate reports whether there is a grouping to separate from.
func (c *Conference) CanSeparate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subCallIDs) == 0 {
		return ErrConferenceNotExists
	}
	return nil
}

// JoinToConference admits a call into a grouping that is being built or
// already running; joining an idle conference is illegal.
func (c *Conference) JoinToConference(callID int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ConferenceState(c.machine.Current()) {
	case ConferenceCreating, ConferenceActive, ConferenceLeaving:
	default:
		return ErrIllegalCallOperation
	}
	if len(c.subCallIDs) >= MaxSubCalls {
		return ErrConferenceCallExceedLimit
	}
	if callID != c.mainCallID {
		c.subCallIDs[callID] = struct{}{}
	}
	c.fire("activate")
	return nil
}

// LeaveFromConference removes a member; the id must be a current member
// or the main call. An emptied conference collapses to idle.
func (c *Conference) LeaveFromConference(callID int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subCallIDs[callID]; ok {
		delete(c.subCallIDs, callID)
	} else if callID == c.mainCallID && c.mainCallID != 0 {
		c.mainCallID = 0
	} else {
		return ErrCallIDInvalid
	}
	if len(c.subCallIDs) == 0 {
		c.mainCallID = 0
		c.fire("reset")
	}
	return nil
}

// Separate removes a member and collapses the grouping once it falls
// below the minimum size.
func (c *Conference) Separate(callID int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subCallIDs, callID)
	if len(c.subCallIDs) < MinSubCalls {
		c.mainCallID = 0
		c.subCallIDs = make(map[int32]struct{})
		c.fire("reset")
	}
	return nil
}

// Hold and Resume move a running conference between active and holding.
func (c *Conference) Hold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fire("hold")
}

func (c *Conference) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fire("activate")
}

// Leave marks the grouping as being torn down.
func (c *Conference) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fire("leave")
}
