// services/sweeper.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SweeperService transitions stale Pending referrals to Invalid. It runs on
// a schedule and can also be triggered on demand; completion requests guard
// the deadline themselves, so the sweep is cleanup, not a correctness gate.
type SweeperService struct {
	Store ReferralStore
}

func NewSweeperService(store ReferralStore) *SweeperService {
	return &SweeperService{Store: store}
}

// Sweep expires every Pending referral whose deadline has passed as of now
// and returns how many actually transitioned. Referrals validated between
// the scan and the expire call are skipped without error.
func (s *SweeperService) Sweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.Store.ListExpirablePending(ctx, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		_, transitioned, err := s.Store.ExpireReferral(ctx, id, now)
		if err != nil {
			log.Printf("[Sweeper] Failed to expire referral %s: %v", id, err)
			continue
		}
		if transitioned {
			count++
		}
	}
	return count, nil
}

// StartExpirationScheduler runs Sweep every 10 minutes.
func (s *SweeperService) StartExpirationScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			n, err := s.Sweep(context.Background(), time.Now().UTC())
			if err != nil {
				log.Printf("[Sweeper] Sweep error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("✅ Expired %d stale referral(s)", n)
			}
		}),
	)
}
