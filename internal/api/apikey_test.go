package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWorkspaceAPIKey(t *testing.T) {
	plaintext, hash, err := GenerateWorkspaceAPIKey("a1b2c3d4-workspace")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plaintext, "sg_a1b2c3_"), "key should carry the workspace prefix: %s", plaintext)
	assert.NotEqual(t, plaintext, hash)
	assert.True(t, strings.HasPrefix(hash, "$2"), "hash should be bcrypt")

	assert.True(t, VerifyAPIKey(plaintext, hash))
	assert.False(t, VerifyAPIKey(plaintext+"x", hash))
	assert.False(t, VerifyAPIKey("", hash))
}

func TestGenerateWorkspaceAPIKeyShortID(t *testing.T) {
	plaintext, hash, err := GenerateWorkspaceAPIKey("ws1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plaintext, "sg_ws1_"))
	assert.True(t, VerifyAPIKey(plaintext, hash))
}

func TestGenerateWorkspaceAPIKeyUnique(t *testing.T) {
	a, _, err := GenerateWorkspaceAPIKey("ws")
	require.NoError(t, err)
	b, _, err := GenerateWorkspaceAPIKey("ws")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
