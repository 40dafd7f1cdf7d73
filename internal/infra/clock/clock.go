// Package clock provides the local-calendar date source for the ledger.
//
// Streak and monthly-reset rules operate on the user's local calendar, not
// UTC: a user acting at 11:59pm and 12:01am has acted on consecutive days.
// The Local clock renders dates in a configured IANA timezone.
package clock

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // timezone database for minimal containers

	"github.com/aura-network/aura/internal/domain"
)

// Local renders dates in a fixed timezone.
type Local struct {
	loc *time.Location
	now func() time.Time // injectable for testing
}

// New returns a clock for the named IANA timezone. An empty name or "Local"
// uses the device timezone.
func New(tz string) (*Local, error) {
	loc := time.Local
	if tz != "" && tz != "Local" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = l
	}
	return &Local{loc: loc, now: time.Now}, nil
}

// Location returns the clock's timezone.
func (c *Local) Location() *time.Location { return c.loc }

// Today returns the local calendar date as YYYY-MM-DD.
func (c *Local) Today() string {
	return c.now().In(c.loc).Format(domain.DateLayout)
}

// Month returns the local calendar month as YYYY-MM.
func (c *Local) Month() string {
	return c.now().In(c.loc).Format(domain.MonthLayout)
}

// ─── Manual Clock ───────────────────────────────────────────────────────────

// Manual is a settable calendar clock for tests and replay tooling.
type Manual struct {
	mu    sync.Mutex
	today string
}

// NewManual returns a clock pinned to the given YYYY-MM-DD date.
func NewManual(today string) *Manual {
	return &Manual{today: today}
}

// Set moves the clock to a new date.
func (m *Manual) Set(today string) {
	m.mu.Lock()
	m.today = today
	m.mu.Unlock()
}

// Advance moves the clock forward by n days.
func (m *Manual) Advance(days int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := time.Parse(domain.DateLayout, m.today)
	if err != nil {
		return
	}
	m.today = d.AddDate(0, 0, days).Format(domain.DateLayout)
}

// Today returns the pinned date.
func (m *Manual) Today() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.today
}

// Month returns the pinned date's month.
func (m *Manual) Month() string {
	return domain.MonthOf(m.Today())
}
