package tokenstore

import (
	"context"
	"time"

	"github.com/Skotchmaster/blog_api/internal/logging"
)

// RunJanitor purges expired records every interval until ctx is done. It
// is for backends without native expiry.
func RunJanitor(ctx context.Context, p Purger, every time.Duration) {
	l := logging.FromContext(ctx).With("component", "token_janitor")
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := p.PurgeExpired(ctx, now)
			if err != nil {
				l.Warn("purge_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("purged_expired_tokens", "count", n)
			}
		}
	}
}
