package call

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConferenceLifecycle(t *testing.T) {
	conf := NewConference(TypeCS, testLogger())
	assert.Equal(t, ConferenceIdle, conf.State())

	// Nominating the main call starts the grouping.
	require.NoError(t, conf.SetMainCall(1))
	assert.Equal(t, ConferenceCreating, conf.State())
	assert.Equal(t, int32(1), conf.MainCallID())

	// First member activates it.
	require.NoError(t, conf.AddSubCall(2))
	assert.Equal(t, ConferenceActive, conf.State())
	assert.Equal(t, []int32{2}, conf.SubCallIDs())

	// Hold and resume.
	conf.Hold()
	assert.Equal(t, ConferenceHolding, conf.State())
	conf.Resume()
	assert.Equal(t, ConferenceActive, conf.State())
}

func TestConferenceMainCallRules(t *testing.T) {
	conf := NewConference(TypeCS, testLogger())

	assert.ErrorIs(t, conf.SetMainCall(0), ErrCallIDInvalid)
	assert.ErrorIs(t, conf.SetMainCall(-4), ErrCallIDInvalid)

	require.NoError(t, conf.SetMainCall(5))
	// Re-nominating the same call is fine, a different call is not.
	require.NoError(t, conf.SetMainCall(5))
	assert.ErrorIs(t, conf.SetMainCall(6), ErrCallIDInvalid)
}

func TestConferenceSizeBound(t *testing.T) {
	conf := NewConference(TypeIMS, testLogger())
	require.NoError(t, conf.SetMainCall(1))
	for i := int32(2); i < 2+MaxSubCalls; i++ {
		require.NoError(t, conf.JoinToConference(i))
	}
	require.Equal(t, MaxSubCalls, conf.Size())

	// Full: both the join and any further combine are refused.
	assert.ErrorIs(t, conf.JoinToConference(100), ErrConferenceCallExceedLimit)
	assert.ErrorIs(t, conf.CanCombine(), ErrConferenceCallExceedLimit)
	assert.ErrorIs(t, conf.AddSubCall(101), ErrConferenceCallExceedLimit)

	// Removing a member restores combine capacity.
	require.NoError(t, conf.LeaveFromConference(2))
	assert.NoError(t, conf.CanCombine())
}

func TestConferenceJoinRequiresGrouping(t *testing.T) {
	conf := NewConference(TypeIMS, testLogger())
	// No grouping yet: join is an illegal operation.
	assert.ErrorIs(t, conf.JoinToConference(3), ErrIllegalCallOperation)
}

func TestConferenceLeaveRequiresMembership(t *testing.T) {
	conf := NewConference(TypeIMS, testLogger())
	require.NoError(t, conf.SetMainCall(1))
	require.NoError(t, conf.AddSubCall(2))
	require.NoError(t, conf.AddSubCall(3))

	assert.ErrorIs(t, conf.LeaveFromConference(42), ErrCallIDInvalid)

	require.NoError(t, conf.LeaveFromConference(2))
	require.NoError(t, conf.LeaveFromConference(3))
	// Emptied: collapses back to idle and forgets the main call.
	assert.Equal(t, ConferenceIdle, conf.State())
	assert.Equal(t, int32(0), conf.MainCallID())
}

func TestConferenceSeparateBelowMinimumResets(t *testing.T) {
	conf := NewConference(TypeCS, testLogger())
	require.NoError(t, conf.SetMainCall(1))
	require.NoError(t, conf.AddSubCall(2))
	require.NoError(t, conf.AddSubCall(3))
	require.Equal(t, ConferenceActive, conf.State())

	require.NoError(t, conf.Separate(3))
	// One member left, below the minimum of two: grouping dissolves.
	assert.Equal(t, ConferenceIdle, conf.State())
	assert.Equal(t, 0, conf.Size())
	assert.Equal(t, int32(0), conf.MainCallID())
}

func TestConferenceCanSeparate(t *testing.T) {
	conf := NewConference(TypeCS, testLogger())
	assert.ErrorIs(t, conf.CanSeparate(), ErrConferenceNotExists)
	require.NoError(t, conf.SetMainCall(1))
	require.NoError(t, conf.AddSubCall(2))
	assert.NoError(t, conf.CanSeparate())
}

func TestConferenceDuplicateSubCall(t *testing.T) {
	conf := NewConference(TypeCS, testLogger())
	require.NoError(t, conf.SetMainCall(1))
	require.NoError(t, conf.AddSubCall(2))
	assert.ErrorIs(t, conf.AddSubCall(2), ErrIllegalCallOperation)
	// The main call is silently skipped.
	assert.NoError(t, conf.AddSubCall(1))
	assert.Equal(t, 1, conf.Size())
}
