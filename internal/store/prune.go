package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartPruneJob deletes records older than retention on the cron schedule
// spec (five fields, e.g. "0 3 * * *"). Stop the returned cron to end it.
func StartPruneJob(s *Store, spec string, retention time.Duration, log logrus.FieldLogger) (*cron.Cron, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		pruneOnce(s, retention, log)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}

	c.Start()
	log.WithFields(logrus.Fields{"schedule": spec, "retention": retention}).Info("analysis pruning scheduled")
	return c, nil
}

func pruneOnce(s *Store, retention time.Duration, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		log.WithError(err).Error("pruning analyses failed")
		return
	}
	log.WithField("deleted", n).Info("pruned old analyses")
}
