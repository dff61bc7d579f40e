// Package snowflake provides a Mastodon compatible Snowflake ID generator.
package snowflake

import (
	"math/rand"
	"strconv"
	"time"
)

// ID is a 64 bit, time ordered, identifier.
// The top 48 bits hold milliseconds since the Unix epoch, the bottom 16 bits are random.
type ID uint64

// Now returns a new ID for the current time.
func Now() ID {
	return TimeToID(time.Now())
}

// TimeToID converts a time.Time to a Snowflake ID.
func TimeToID(ts time.Time) ID {
	// 48 bits for time in milliseconds.
	// 16 bits for random.
	return ID(uint64(ts.UnixNano()/int64(time.Millisecond))<<16 | uint64(rand.Intn(1<<16)))
}

// ToTime returns the time encoded in the ID, truncated to the millisecond.
func (id ID) ToTime() time.Time {
	return time.Unix(0, int64(id>>16)*int64(time.Millisecond)).UTC()
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Parse parses the decimal form of an ID.
func Parse(s string) (ID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	return ID(id), err
}
