package ledger

import (
	"sync"
	"time"
)

var (
	locOnce sync.Once
	loc     *time.Location
)

// Location returns the contest-site timezone. Quota days and ledger
// timestamps are all interpreted in this zone, not UTC.
func Location() *time.Location {
	locOnce.Do(func() {
		var err error
		loc, err = time.LoadLocation("Europe/Warsaw")
		if err != nil {
			loc = time.Local
		}
	})
	return loc
}

// NowLocal returns the current time in the contest-site timezone.
func NowLocal() time.Time {
	return time.Now().In(Location())
}
