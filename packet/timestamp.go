// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package packet

import (
	"strconv"
	"time"
)

// Timestamp is the number of microseconds since the Unix epoch. Relays and
// clients compare packets for the same key by timestamp, newest wins.
type Timestamp uint64

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp { return TimestampFromTime(time.Now()) }

// TimestampFromTime converts t, truncating to microsecond precision. Times
// before the epoch clamp to zero.
func TimestampFromTime(t time.Time) Timestamp {
	us := t.UnixMicro()
	if us < 0 {
		return 0
	}
	return Timestamp(us)
}

// Time converts the timestamp back to a UTC time.Time.
func (t Timestamp) Time() time.Time { return time.UnixMicro(int64(t)).UTC() }

func (t Timestamp) String() string { return strconv.FormatUint(uint64(t), 10) }
