package authstub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dungeoncrawler/internal/authstub"
)

func TestMintThenVerify_RoundTripsUserID(t *testing.T) {
	iss := authstub.NewIssuer([]byte("test-signing-key"), time.Hour)

	token, sess, err := iss.Mint("user-123", 1_000)
	require.NoError(t, err)
	require.Equal(t, "user-123", sess.UserID)
	require.Equal(t, int64(1_000)+time.Hour.Milliseconds(), sess.ExpiresAt)

	userID, err := iss.Verify(token, 1_000)
	require.NoError(t, err)
	require.Equal(t, "user-123", userID)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	iss := authstub.NewIssuer([]byte("test-signing-key"), time.Minute)
	token, _, err := iss.Mint("user-123", 0)
	require.NoError(t, err)

	_, err = iss.Verify(token, time.Hour.Milliseconds())
	require.Error(t, err)
}

func TestVerify_RejectsTokenFromDifferentKey(t *testing.T) {
	issA := authstub.NewIssuer([]byte("key-a"), time.Hour)
	issB := authstub.NewIssuer([]byte("key-b"), time.Hour)

	token, _, err := issA.Mint("user-123", 0)
	require.NoError(t, err)

	_, err = issB.Verify(token, 0)
	require.Error(t, err)
}

func TestNewWorldIDAndNewCharacterID_AreDistinctNonEmpty(t *testing.T) {
	w1 := authstub.NewWorldID()
	w2 := authstub.NewWorldID()
	c1 := authstub.NewCharacterID()

	require.NotEmpty(t, w1)
	require.NotEmpty(t, c1)
	require.NotEqual(t, w1, w2)
}
