package pagination_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/pixamint/credit_ledger_app/internal/utils/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)
	creditID := "3f2c8a1e-0b2d-4a6f-9c3e-5d7b8f1a2c4d"

	token := pagination.EncodeCursor(createdAt, creditID)
	require.NotEmpty(t, token)

	gotTime, gotID, err := pagination.DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, gotTime.Equal(createdAt))
	assert.Equal(t, creditID, gotID)
}

func TestDecodeCursor_InvalidBase64(t *testing.T) {
	_, _, err := pagination.DecodeCursor("not-valid-base64!!!")
	assert.Error(t, err)
}

func TestDecodeCursor_MissingSeparator(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("2025-06-01T12:30:45Z"))
	_, _, err := pagination.DecodeCursor(token)
	assert.Error(t, err)
}

func TestDecodeCursor_BadTimestamp(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("yesterday|some-id"))
	_, _, err := pagination.DecodeCursor(token)
	assert.Error(t, err)
}
