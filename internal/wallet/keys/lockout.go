package keys

import (
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
)

// Policy throttles unlock attempts. After MaxAttempts consecutive failures,
// failure number n blocks unlocking for BaseDelay*2^(n-MaxAttempts), capped
// at MaxDelay. MaxAttempts == 0 disables throttling.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy allows five attempts, then backs off from 30s up to 1h.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 30 * time.Second, MaxDelay: time.Hour}
}

// Delay returns how long the failures-th consecutive failure blocks
// further attempts.
func (p Policy) Delay(failures int) time.Duration {
	if p.MaxAttempts <= 0 || failures < p.MaxAttempts || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := p.MaxAttempts; i < failures; i++ {
		if (p.MaxDelay > 0 && d >= p.MaxDelay) || d > math.MaxInt64/2 {
			break
		}
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// LockoutError is returned by Unlock while attempts are blocked. It matches
// both common.ErrUnauthorized and common.ErrLockedOut.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s: retry in %s", common.ErrLockedOut, e.RetryAfter.Round(time.Second))
}

func (e *LockoutError) Is(target error) bool {
	return target == common.ErrLockedOut || target == common.ErrUnauthorized
}
