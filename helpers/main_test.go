package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveAccents(t *testing.T) {
	require.Equal(t, "Nguyen Thi Hong", RemoveAccents("Nguyễn Thị Hồng"))
	require.Equal(t, "plain", RemoveAccents("plain"))
	require.Equal(t, "", RemoveAccents(""))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "150,000", FormatAmount(150000))
	require.Equal(t, "0", FormatAmount(0))
	require.Equal(t, "1,250,500", FormatAmount(1250500))
}

func TestHashAndAuthenticatePassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	require.True(t, AuthenticateHashedPassword(hash, "s3cret"))
	require.False(t, AuthenticateHashedPassword(hash, "wrong"))
}

func TestContains(t *testing.T) {
	require.True(t, Contains([]int{1, 2, 4}, 2))
	require.False(t, Contains([]int{1, 2, 4}, 3))
	require.False(t, Contains(nil, 1))
}
