package midi

import "fmt"

// PPQN is the number of ticks per quarter note of every Clock value.
const PPQN = 96

// Clock is a point in time, or a duration, in ticks at PPQN resolution.
type Clock int64

// Convert converts a tick count at fromPPQN resolution to a Clock, rounding to
// the nearest tick.
func Convert(ticks int64, fromPPQN int) Clock {
	if fromPPQN <= 0 || fromPPQN == PPQN {
		return Clock(ticks)
	}
	return Clock(roundDiv(ticks*PPQN, int64(fromPPQN)))
}

// ToPPQN converts the Clock to a tick count at toPPQN resolution.
func (c Clock) ToPPQN(toPPQN int) int64 {
	if toPPQN <= 0 || toPPQN == PPQN {
		return int64(c)
	}
	return roundDiv(int64(c)*int64(toPPQN), PPQN)
}

// Beat returns the number of whole quarter notes.
func (c Clock) Beat() int64 {
	return int64(c) / PPQN
}

// Pulse returns the ticks past the last whole quarter note.
func (c Clock) Pulse() int64 {
	return int64(c) % PPQN
}

func (c Clock) String() string {
	if c < 0 {
		return fmt.Sprintf("-%v", -c)
	}
	return fmt.Sprintf("%d.%02d", c.Beat(), c.Pulse())
}

// Max returns the later of two Clocks.
func Max(a, b Clock) Clock {
	if a > b {
		return a
	}
	return b
}

// Min returns the earlier of two Clocks.
func Min(a, b Clock) Clock {
	if a < b {
		return a
	}
	return b
}

func roundDiv(num, denom int64) int64 {
	if num < 0 {
		return -((-num + denom/2) / denom)
	}
	return (num + denom/2) / denom
}
