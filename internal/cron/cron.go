package cron

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/orderstack/orderstack/config"
	"github.com/orderstack/orderstack/internal/logger"
	"github.com/orderstack/orderstack/internal/tracing"
)

// CronManager schedules the background maintenance jobs. The service
// runs as a single instance, so jobs run locally without coordination.
type CronManager struct {
	cfg    *config.Config
	log    logger.Logger
	cron   *cronv3.Cron
	stopCh chan struct{}
	jobIDs map[string]cronv3.EntryID
}

func NewCronManager(cfg *config.Config, log logger.Logger) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
	}
}

// Start initializes and starts the cron scheduler.
func (cm *CronManager) Start() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	schedule := cm.cfg.CronConfig.PurgeArchivesSchedule
	if schedule == "" {
		return
	}

	id, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		cm.purgeExpiredArchives()
	})
	if err != nil {
		cm.log.Fatalf("Could not add purge archives cron job: %v", err)
	}
	cm.jobIDs["purge_archives"] = id
	cm.log.Infof("Registered purge archives job with schedule: %s", schedule)
}

// purgeExpiredArchives deletes finished zip archives older than the
// configured retention window from the downloads directory.
func (cm *CronManager) purgeExpiredArchives() {
	ctx := context.Background()

	span, _ := tracing.StartTracerSpan(ctx, "CronManager.purgeExpiredArchives")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	retention := cm.cfg.StorageConfig.ArchiveRetention
	if retention <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retention)

	entries, err := os.ReadDir(cm.cfg.StorageConfig.DownloadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to read downloads directory: %v", err)
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(cm.cfg.StorageConfig.DownloadsDir, entry.Name())
		if err := os.Remove(path); err != nil {
			tracing.TraceErr(span, err)
			cm.log.Errorf("Failed to remove expired archive %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		cm.log.Infof("Purged %d expired archives", removed)
	}
}
