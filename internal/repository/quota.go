package repository

import (
	"time"

	"portfolio-be/internal/domain"
)

// evaluateQuota decides whether one more visit fits. used and oldest
// describe the records of ip created at or after now-window.
func evaluateQuota(ip string, used int64, oldest *time.Time, now time.Time, quota domain.Quota) *domain.QuotaDecision {
	decision := &domain.QuotaDecision{
		IP:       ip,
		Used:     used,
		Limit:    quota.Limit,
		Admitted: used < quota.Limit,
	}

	if !decision.Admitted {
		retry := quota.Window
		if oldest != nil {
			retry = oldest.Add(quota.Window).Sub(now)
		}
		if retry < time.Second {
			retry = time.Second
		}
		decision.RetryAfter = retry
	}

	return decision
}
