package host

import "time"

// SlotClock derives a monotonically increasing slot number from wall-clock
// time, standing in for a host chain's slot counter (spec glossary "Host
// clock"). One slot per slotDuration since the clock's epoch.
type SlotClock struct {
	epoch        time.Time
	slotDuration time.Duration
}

// NewSlotClock returns a SlotClock ticking one slot per slotDuration,
// starting now.
func NewSlotClock(slotDuration time.Duration) *SlotClock {
	return &SlotClock{epoch: time.Now(), slotDuration: slotDuration}
}

// Now returns the current slot number.
func (c *SlotClock) Now() uint64 {
	return uint64(time.Since(c.epoch) / c.slotDuration)
}
