// internal/jobs/cron.go
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/commission-engine/internal/models"
)

const rollupTimeout = 30 * time.Minute

// AnalyticsRollup recomputes the analytics rows of one transaction day.
type AnalyticsRollup interface {
	RollupDailyAnalytics(ctx context.Context, day time.Time) ([]models.CommissionAnalytics, error)
}

// CronManager schedules the periodic jobs of the commission engine.
type CronManager struct {
	cron      *cron.Cron
	analytics AnalyticsRollup
	now       func() time.Time
}

// NewCronManager creates a scheduler running in UTC.
func NewCronManager(analytics AnalyticsRollup) *CronManager {
	return &CronManager{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		analytics: analytics,
		now:       time.Now,
	}
}

// SetupJobs registers the daily analytics rollup under schedule, a standard five-field cron expression.
func (cm *CronManager) SetupJobs(schedule string) error {
	if _, err := cm.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), rollupTimeout)
		defer cancel()
		cm.RunDailyRollup(ctx)
	}); err != nil {
		return err
	}

	logrus.WithField("schedule", schedule).Info("Cron jobs configured")
	return nil
}

// RunDailyRollup recomputes yesterday's analytics (UTC). Failures are logged; the next run retries.
func (cm *CronManager) RunDailyRollup(ctx context.Context) {
	day := cm.now().UTC().AddDate(0, 0, -1)
	log := logrus.WithField("date", day.Format("2006-01-02"))

	log.Info("Running daily analytics rollup")
	rows, err := cm.analytics.RollupDailyAnalytics(ctx, day)
	if err != nil {
		log.WithError(err).Error("Daily analytics rollup failed")
		return
	}
	log.WithField("vendors", len(rows)).Info("Daily analytics rollup completed")
}

func (cm *CronManager) Start() {
	logrus.Info("Starting cron scheduler")
	cm.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish, up to ctx.
func (cm *CronManager) Stop(ctx context.Context) {
	logrus.Info("Stopping cron scheduler")
	select {
	case <-cm.cron.Stop().Done():
	case <-ctx.Done():
		logrus.Warn("Cron job still running at shutdown")
	}
}
