package command_test

import (
	"testing"

	"placedir/internal/domain"
	"placedir/internal/services/command"

	"github.com/stretchr/testify/require"
)

func TestDecodeNonceRejectsMalformedToken(t *testing.T) {
	_, err := command.DecodeNonce("no-colon-here")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = command.DecodeNonce(":nonce")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = command.DecodeNonce("email@example.com:")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDecodeNonceParsesEmailAndNonce(t *testing.T) {
	nonce, err := command.DecodeNonce("user@example.com:abc123")
	require.NoError(t, err)
	require.Equal(t, "user@example.com", nonce.Email)
	require.Equal(t, "abc123", nonce.Nonce)
}
