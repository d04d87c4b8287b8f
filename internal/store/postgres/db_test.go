package postgres

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSQLStateErr struct{ state string }

func (e fakeSQLStateErr) Error() string    { return "sql error: " + e.state }
func (e fakeSQLStateErr) SQLState() string { return e.state }

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(fakeSQLStateErr{state: "23505"}))
	require.False(t, isUniqueViolation(fakeSQLStateErr{state: "23503"}))
	require.False(t, isUniqueViolation(errors.New("generic error")))
	require.False(t, isUniqueViolation(nil))
}

func TestNullableString(t *testing.T) {
	v := nullableString("hello")
	require.True(t, v.Valid)
	require.Equal(t, "hello", v.String)

	empty := nullableString("")
	require.False(t, empty.Valid)
}
