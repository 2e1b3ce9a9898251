package entity

import "time"

const day = 24 * time.Hour

// IsExpired reports whether an entry with the given expiration is expired at now.
// An entry expiring exactly at now is still valid.
func IsExpired(expireAt *time.Time, now time.Time) bool {
	return expireAt != nil && now.After(*expireAt)
}

// ExpireAfterDays returns the expiration for an entry created at now that should
// live ttlDays days. A zero or negative lifetime means the entry never expires.
func ExpireAfterDays(now time.Time, ttlDays int) *time.Time {
	if ttlDays <= 0 {
		return nil
	}

	t := now.Add(time.Duration(ttlDays) * day)
	return &t
}
