package token

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	tok, err := GenerateJWT("alice", string(RoleUser), "member_service")
	require.NoError(t, err)

	claims, err := ParseJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.MemberID)
	assert.Equal(t, string(RoleUser), claims.Role)
	assert.Equal(t, "member_service", claims.Issuer)
}

func TestParseJWT_Rejects(t *testing.T) {
	_, err := ParseJWT("garbage")
	assert.Error(t, err)

	// no member id
	tok, err := GenerateJWT("", string(RoleUser), "x")
	require.NoError(t, err)
	_, err = ParseJWT(tok)
	assert.Error(t, err)

	// other secret
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{MemberID: "mallory"}).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = ParseJWT(forged)
	assert.Error(t, err)
}

func TestSetSecret(t *testing.T) {
	orig := secret()
	t.Cleanup(func() { SetSecret(string(orig)) })

	tok, err := GenerateJWT("alice", "", "")
	require.NoError(t, err)

	SetSecret("")
	_, err = ParseJWT(tok)
	assert.NoError(t, err, "empty secret keeps the current one")

	SetSecret("rotated")
	_, err = ParseJWT(tok)
	assert.Error(t, err)
}
