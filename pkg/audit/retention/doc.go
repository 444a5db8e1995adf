// Package retention prunes audit events by age and by count, on demand or on
// a cron schedule.
package retention
