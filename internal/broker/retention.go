package broker

import (
	"context"
	"time"
)

func (b *Broker) retentionLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := b.sweep(now); n > 0 {
				b.logger.Debug("swept finished sessions", "count", n)
			}
		}
	}
}

// sweep drops finished records older than the retention window and
// returns how many were removed.
func (b *Broker) sweep(now time.Time) int {
	retention := b.cfg.ResultRetention()
	if retention <= 0 {
		return 0
	}
	b.recordsMu.Lock()
	defer b.recordsMu.Unlock()
	n := 0
	for id, r := range b.records {
		if r.Finished() && r.FinishedAt != nil && now.Sub(*r.FinishedAt) > retention {
			delete(b.records, id)
			n++
		}
	}
	return n
}
