package gamelist

import "codeberg.org/mutker/framectl/internal/errors"

const (
	ErrReadFailed   = errors.ErrorCode("gamelist_read_failed")
	ErrDecodeFailed = errors.ErrorCode("gamelist_decode_failed")
	ErrInvalidEntry = errors.ErrorCode("gamelist_invalid_entry")
	ErrWatchFailed  = errors.ErrorCode("gamelist_watch_failed")
)
