package call

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// callStartID is the first call id handed out after process start.
const callStartID int32 = 1

// Registry is the authoritative store of live call objects, keyed by
// call id. Ids are handed out monotonically and never reused, so a
// stale id can never resolve to a different call.
type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	calls     map[int32]Call
	nextID    int32
	dialAdded chan struct{}
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger.With("subsystem", "registry"),
		calls:     make(map[int32]Call),
		nextID:    callStartID,
		dialAdded: make(chan struct{}),
	}
}

// NextCallID reserves a fresh process-unique call id.
func (r *Registry) NextCallID() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// AddOneCall stores a call. A second call with the same id is refused.
func (r *Registry) AddOneCall(c Call) error {
	if c == nil {
		return ErrLocalPointerNull
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.CallID()
	if _, ok := r.calls[id]; ok {
		return ErrCallAlreadyExists
	}
	r.calls[id] = c
	r.logger.Info("call added", "call_id", id, "call_type", c.CallType().String(), "number", c.Number())
	if c.Direction() == DirectionOut {
		close(r.dialAdded)
		r.dialAdded = make(chan struct{})
	}
	return nil
}

// DeleteOneCall drops a call from the registry. The call object becomes
// unreachable for every collaborator holding only its id.
func (r *Registry) DeleteOneCall(callID int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[callID]; !ok {
		return ErrCallNotFound
	}
	delete(r.calls, callID)
	r.logger.Info("call removed", "call_id", callID)
	return nil
}

// GetOneCallByID resolves a call id, or nil when the id is not live.
func (r *Registry) GetOneCallByID(callID int32) Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls[callID]
}

// GetCallByNumber returns the first live call with the given number.
func (r *Registry) GetCallByNumber(number string) Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.sortedLocked() {
		if c.Number() == number {
			return c
		}
	}
	return nil
}

// GetCallByIndexAndSlot resolves a call by its network reference.
func (r *Registry) GetCallByIndexAndSlot(index, slotID int32) Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.sortedLocked() {
		if c.Index() == index && c.SlotID() == slotID {
			return c
		}
	}
	return nil
}

// GetCallByState returns the first call in the given transport state.
func (r *Registry) GetCallByState(state TelCallState) Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.sortedLocked() {
		if c.State() == state {
			return c
		}
	}
	return nil
}

// GetCallByRunningState returns the first call in the given running
// state.
func (r *Registry) GetCallByRunningState(state CallRunningState) Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.sortedLocked() {
		if c.RunningState() == state {
			return c
		}
	}
	return nil
}

// GetCallsBySlot returns the live calls on one SIM slot.
func (r *Registry) GetCallsBySlot(slotID int32) []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Call
	for _, c := range r.sortedLocked() {
		if c.SlotID() == slotID {
			out = append(out, c)
		}
	}
	return out
}

// CarrierCalls returns the live CS, IMS and satellite calls.
func (r *Registry) CarrierCalls() []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Call
	for _, c := range r.sortedLocked() {
		switch c.CallType() {
		case TypeCS, TypeIMS, TypeSatellite:
			out = append(out, c)
		}
	}
	return out
}

// List returns all live calls ordered by call id.
func (r *Registry) List() []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

func (r *Registry) sortedLocked() []Call {
	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CallID() < out[j].CallID() })
	return out
}

// CallCount returns the number of live calls.
func (r *Registry) CallCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calls)
}

// GetActiveCallCount counts calls still occupying a transport slot; it
// feeds the metrics collector.
func (r *Registry) GetActiveCallCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.calls {
		if c.IsAlive() {
			n++
		}
	}
	return n
}

// CountByState groups the live calls by transport state; it feeds the
// metrics collector.
func (r *Registry) CountByState() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, c := range r.calls {
		out[c.State().String()]++
	}
	return out
}

// HasRingingCall reports whether any call is incoming or waiting.
func (r *Registry) HasRingingCall() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.calls {
		switch c.State() {
		case StateIncoming, StateWaiting:
			return true
		}
	}
	return false
}

// HasActiveCall reports whether any call is in the active state.
func (r *Registry) HasActiveCall() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.calls {
		if c.State() == StateActive {
			return true
		}
	}
	return false
}

// HasHoldingCall reports whether any call is held.
func (r *Registry) HasHoldingCall() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.calls {
		if c.State() == StateHolding {
			return true
		}
	}
	return false
}

// HasDialingCall reports whether an outgoing call is being set up.
func (r *Registry) HasDialingCall() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.calls {
		switch c.State() {
		case StateDialing, StateAlerting:
			return true
		}
	}
	return false
}

// ForegroundCall returns the call a user-facing surface should show:
// ringing first, then active, then a call being set up.
func (r *Registry) ForegroundCall() Call {
	for _, state := range []TelCallState{StateIncoming, StateWaiting, StateActive, StateDialing, StateAlerting, StateHolding} {
		if c := r.GetCallByState(state); c != nil {
			return c
		}
	}
	return nil
}

// AttributeInfoList snapshots every live call for the API layer.
func (r *Registry) AttributeInfoList() []CallAttributeInfo {
	calls := r.List()
	out := make([]CallAttributeInfo, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.AttributeInfo())
	}
	return out
}

// WaitForOutgoingCall blocks until an outgoing call is added or the
// timeout passes. The dial process uses it to decide between applying a
// driver failure event to the new call or dropping the event.
func (r *Registry) WaitForOutgoingCall(timeout time.Duration) bool {
	r.mu.RLock()
	for _, c := range r.calls {
		if c.Direction() == DirectionOut && c.IsAlive() {
			r.mu.RUnlock()
			return true
		}
	}
	ch := r.dialAdded
	r.mu.RUnlock()
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
