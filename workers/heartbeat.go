// workers/heartbeat.go
package workers

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Pinger is anything that can send a keepalive to its listeners.
type Pinger interface {
	Heartbeat() int
}

// StartHeartbeat keeps idle SSE connections open through proxies by sending a
// keepalive comment every interval. Call Shutdown on the returned scheduler.
func StartHeartbeat(p Pinger, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := p.Heartbeat(); n > 0 {
				log.Printf("💓 [Heartbeat] Pinged %d subscribers", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	log.Printf("✅ [Heartbeat] Running every %s", interval)
	return sched, nil
}
