package firebase

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevTokensRoundTrip(t *testing.T) {
	tokens := NewDevTokens("secret", time.Hour)

	token, err := tokens.GenerateToken("user-1", "Mochi", "")
	require.NoError(t, err)

	uid, err := tokens.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestDevTokensRejectsForeignSecretAndExpiry(t *testing.T) {
	issuer := NewDevTokens("other", time.Hour)
	token, err := issuer.GenerateToken("user-1", "", "")
	require.NoError(t, err)

	_, err = NewDevTokens("secret", time.Hour).VerifyToken(context.Background(), token)
	assert.Error(t, err)

	expired := NewDevTokens("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err = expired.GenerateToken("user-1", "", "")
	require.NoError(t, err)

	_, err = NewDevTokens("secret", time.Hour).VerifyToken(context.Background(), token)
	assert.Error(t, err)
}

func TestDevTokensRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewDevTokens("secret", time.Hour).VerifyToken(context.Background(), token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresUID(t *testing.T) {
	_, err := NewDevTokens("secret", 0).GenerateToken("", "", "")
	assert.Error(t, err)
}
