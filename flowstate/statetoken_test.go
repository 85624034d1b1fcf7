package flowstate_test

import (
	"strings"
	"testing"
	"time"

	"github.com/imetrics/go-connect-server/flowstate"
	"github.com/stretchr/testify/require"
)

const (
	testSecret    = "test-state-secret"
	testContextID = "ctx-1"
)

func testPending() *flowstate.PendingGrant {
	return &flowstate.PendingGrant{
		ExpectedUserID:    "u1",
		ExpectedUserEmail: "alice@co.com",
		FlowMarker:        true,
		CreatedAt:         time.Now(),
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec, err := flowstate.NewCodec(testSecret, 15*time.Minute)
	require.NoError(t, err)

	state, err := codec.Sign(testContextID, testPending())
	require.NoError(t, err)
	require.NotEmpty(t, state)

	claims, err := codec.Verify(state)
	require.NoError(t, err)
	require.Equal(t, testContextID, claims.ContextID)
	require.Equal(t, "u1", claims.ExpectedUserID)
	require.Equal(t, "alice@co.com", claims.ExpectedUserEmail)
}

func TestCodecRejectsTamperedToken(t *testing.T) {
	codec, err := flowstate.NewCodec(testSecret, 15*time.Minute)
	require.NoError(t, err)

	state, err := codec.Sign(testContextID, testPending())
	require.NoError(t, err)

	parts := strings.Split(state, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = codec.Verify(tampered)
	require.Error(t, err)
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	codec, err := flowstate.NewCodec(testSecret, 15*time.Minute)
	require.NoError(t, err)
	other, err := flowstate.NewCodec("a-different-secret", 15*time.Minute)
	require.NoError(t, err)

	state, err := codec.Sign(testContextID, testPending())
	require.NoError(t, err)

	_, err = other.Verify(state)
	require.Error(t, err)
}

func TestCodecRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Now()
	now := issuedAt

	codec, err := flowstate.NewCodec(testSecret, 10*time.Minute,
		flowstate.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)

	state, err := codec.Sign(testContextID, testPending())
	require.NoError(t, err)

	// Still valid just before expiry
	now = issuedAt.Add(9 * time.Minute)
	_, err = codec.Verify(state)
	require.NoError(t, err)

	// Rejected after the TTL has passed
	now = issuedAt.Add(11 * time.Minute)
	_, err = codec.Verify(state)
	require.Error(t, err)
}

func TestCodecRequiresSecret(t *testing.T) {
	_, err := flowstate.NewCodec("", 15*time.Minute)
	require.Error(t, err)
}

func TestInMemoryRepoSingleSlot(t *testing.T) {
	repo := flowstate.NewInMemoryRepo()

	require.NoError(t, repo.Upsert(testContextID, testPending()))

	// A second initiation overwrites the slot
	require.NoError(t, repo.Upsert(testContextID, &flowstate.PendingGrant{
		ExpectedUserID:    "u2",
		ExpectedUserEmail: "bob@co.com",
		FlowMarker:        true,
	}))

	pending, err := repo.Get(testContextID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	require.Equal(t, "u2", pending.ExpectedUserID)

	require.NoError(t, repo.Delete(testContextID))
	pending, err = repo.Get(testContextID)
	require.NoError(t, err)
	require.Nil(t, pending)

	// Deleting an empty slot is not an error
	require.NoError(t, repo.Delete(testContextID))
}
