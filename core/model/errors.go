package model

import "errors"

// ErrInvalidInput marks structurally invalid requests: missing or malformed
// locations, non-positive durations, empty date ranges. These are rejected
// before any computation; everything else degrades instead of failing.
var ErrInvalidInput = errors.New("invalid input")
