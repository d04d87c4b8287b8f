// Package mpointers holds small helpers for taking the address of a
// literal, useful for building structs with optional (*T) fields
// inline without a throwaway local variable.
package mpointers

import "time"

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Time returns a pointer to t.
func Time(t time.Time) *time.Time {
	return &t
}

// Int64 returns a pointer to n.
func Int64(n int64) *int64 {
	return &n
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}
