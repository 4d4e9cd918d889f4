package call

import "errors"

// Errors surfaced by call-control operations. Operations never mutate
// state when they return one of these.
var (
	// ErrIllegalCallOperation means the requested transition is invalid
	// for the current call or conference state.
	ErrIllegalCallOperation = errors.New("illegal call operation for current state")

	// Video negotiation errors. All are non-retryable and leave the
	// negotiation status and active video state unchanged.
	ErrVideoIllegalScenario  = errors.New("video mode change not reachable from current state")
	ErrVideoInProgress       = errors.New("video mode update already in progress")
	ErrVideoNotSupported     = errors.New("call does not support video")
	ErrVideoIllegalMediaType = errors.New("unknown call media type")

	// ErrCallState means the call is not in a state that permits the
	// operation (for example a media mode change on a non-active call).
	ErrCallState = errors.New("call state does not permit operation")

	// ErrNotNewState is returned when a state report re-applies the
	// state the call is already in.
	ErrNotNewState = errors.New("call already in requested state")

	ErrCallAlreadyExists = errors.New("call id already present in registry")
	ErrCallIDInvalid     = errors.New("invalid call id")
	ErrCallNotFound      = errors.New("no call with given id")

	ErrConferenceCallExceedLimit = errors.New("conference sub-call limit exceeded")
	ErrConferenceNotExists       = errors.New("no call currently in conference")
	ErrConferenceSeparateFailed  = errors.New("conference separate failed")

	// ErrLocalPointerNull reports a missing collaborator or video state
	// object, typically a race with call teardown.
	ErrLocalPointerNull = errors.New("required collaborator is absent")

	// ErrWorkerStopped is returned for requests posted to, or still
	// queued on, a request worker that has shut down.
	ErrWorkerStopped = errors.New("request worker stopped")

	ErrDialFailed   = errors.New("dial request failed")
	ErrAnswerFailed = errors.New("answer request failed")
	ErrRejectFailed = errors.New("reject request failed")
	ErrHangUpFailed = errors.New("hangup request failed")
	ErrHoldFailed   = errors.New("hold request failed")
	ErrUnHoldFailed = errors.New("unhold request failed")
	ErrSwapFailed   = errors.New("switch request failed")
)
