package cron

import (
	"log"
	"time"

	"github.com/furnirent/furnirent-api/database"
	"github.com/furnirent/furnirent-api/model"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron  *cron.Cron
	db    *gorm.DB
	store *database.RentalStore
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:  c,
		db:    db,
		store: database.NewRentalStore(db),
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Every 15 minutes: fail Khalti payments that stayed PENDING too long
	// and release the stock their orders committed.
	_, err := m.cron.AddFunc("0 */15 * * * *", func() {
		m.runJob("expire_stale_payments", m.ExpireStalePayments)
	})
	if err != nil {
		return err
	}

	// Every hour: move rentals whose period ended to COMPLETED.
	_, err = m.cron.AddFunc("0 0 * * * *", func() {
		m.runJob("complete_finished_rentals", m.CompleteFinishedRentals)
	})
	if err != nil {
		return err
	}

	// Daily at 03:00: purge expired token blacklist entries.
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.runJob("cleanup_token_blacklist", m.CleanupTokenBlacklist)
	})
	return err
}

// runJob wraps a job with timing and CronJobLog bookkeeping.
func (m *CronManager) runJob(name string, job func() (string, error)) {
	start := time.Now()
	log.Printf("[CRON] %s started", name)

	message, err := job()
	entry := model.CronJobLog{
		JobName:    name,
		Status:     "completed",
		Message:    message,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = "failed"
		entry.Message = err.Error()
		log.Printf("[CRON] %s failed: %v", name, err)
	} else {
		log.Printf("[CRON] %s completed: %s", name, message)
	}

	if dbErr := m.db.Create(&entry).Error; dbErr != nil {
		log.Printf("[CRON] failed to write job log for %s: %v", name, dbErr)
	}
}
