package control

import "time"

// NoFlowThresholdLPM is the rate below which a reading counts as "no flow".
const NoFlowThresholdLPM = 0.01

// StallGuard detects sustained zero flow during a scheduled fill and decides
// when the valve must be forced closed. It never applies to manual sessions.
type StallGuard struct {
	stallSince time.Time // zero = not counting
}

// Evaluate returns true when the valve should be closed now. The guard is
// armed only while the valve is open on a scheduled run; in every other case
// it clears its timer and reports keep-open. A single reading at or above
// the threshold fully resets the countdown.
func (g *StallGuard) Evaluate(rateLPM float64, valveOpen, scheduledRun bool, now time.Time, timeout time.Duration) bool {
	if !valveOpen || !scheduledRun || timeout <= 0 {
		g.stallSince = time.Time{}
		return false
	}

	if rateLPM >= NoFlowThresholdLPM {
		g.stallSince = time.Time{}
		return false
	}

	if g.stallSince.IsZero() {
		g.stallSince = now
		return false
	}

	return now.Sub(g.stallSince) >= timeout
}

// Reset clears the stall timer. Called whenever the valve changes state.
func (g *StallGuard) Reset() {
	g.stallSince = time.Time{}
}

// Stalled reports whether the guard is currently counting down.
func (g *StallGuard) Stalled() bool {
	return !g.stallSince.IsZero()
}
