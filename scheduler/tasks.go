package scheduler

import (
	"backend/calsync"
	"backend/database"
	"context"
	"gorm.io/gorm"
	"log"
	"time"
)

// Task represents a scheduled task
type Task struct {
	Name        string
	Description string
	Schedule    string
	Enabled     bool
	Singleton   bool
	Handler     func() error
}

// CalendarTasks returns the periodic sync and dispatch tick
func CalendarTasks(ctx context.Context, engine *calsync.Engine, tickSchedule string) []Task {
	return []Task{
		{
			Name:        "calendar_bot_tick",
			Description: "Sync calendars and dispatch notetaker bots for upcoming meetings",
			Schedule:    tickSchedule,
			Enabled:     true,
			Singleton:   true,
			Handler: func() error {
				return engine.Tick(ctx)
			},
		},
	}
}

// DataMaintenanceTasks returns tasks related to data maintenance
func DataMaintenanceTasks(DB *gorm.DB) []Task {
	return []Task{
		{
			Name:        "prune_expired_sessions",
			Description: "Remove expired sessions",
			Schedule:    "0 4 * * *", // 4 AM every day
			Enabled:     true,
			Handler: func() error {
				result := DB.Where("expiry < ?", time.Now()).Delete(&database.Session{})
				if result.Error != nil {
					return result.Error
				}
				log.Printf("Pruned %d expired sessions", result.RowsAffected)
				return nil
			},
		},
	}
}
