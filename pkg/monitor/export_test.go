package monitor

import "time"

func NewWithClock(now func() time.Time) *Monitor {
	return newWithClock(now)
}
