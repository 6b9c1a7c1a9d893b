package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/saludgo/turnos-api/internal/models"
)

// weekdayNames is the locale-fixed day-name mapping used when matching a
// professional's attendance days. Monday starts the week.
var weekdayNames = map[time.Weekday]string{
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
	time.Sunday:    "sunday",
}

// GenerateSlots expands a monthly schedule into its bookable slots. Pure:
// no persistence, no clock reads. For every day of the schedule's month that
// falls on one of the professional's attendance days and is not blacked out,
// the working window [start, end) is tiled with fixed-duration intervals.
// A trailing interval that would overrun the end time is dropped, not
// truncated. Zero attendance days or a fully blacked-out month yield an
// empty batch, which is valid.
func GenerateSlots(schedule models.Schedule, attendanceDays []string) ([]models.Slot, error) {
	if schedule.SlotDurationMin <= 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %d", schedule.SlotDurationMin)
	}

	startMin, err := parseClock(schedule.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse schedule start time: %w", err)
	}
	endMin, err := parseClock(schedule.EndTime)
	if err != nil {
		return nil, fmt.Errorf("parse schedule end time: %w", err)
	}
	if startMin >= endMin {
		return nil, fmt.Errorf("schedule start %s is not before end %s", schedule.StartTime, schedule.EndTime)
	}

	// Attendance day names arrive mixed-case from older records; normalize
	// once here instead of at every comparison.
	attendance := make(map[string]struct{}, len(attendanceDays))
	for _, day := range attendanceDays {
		attendance[strings.ToLower(strings.TrimSpace(day))] = struct{}{}
	}

	blackouts := make(map[string]struct{}, len(schedule.UnavailableDates))
	for _, d := range schedule.UnavailableDates {
		blackouts[d] = struct{}{}
	}

	year, month := schedule.Month.Year(), schedule.Month.Month()
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	var slots []models.Slot
	for day := 1; day <= lastDay; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

		if _, ok := attendance[weekdayNames[date.Weekday()]]; !ok {
			continue
		}
		if _, ok := blackouts[date.Format("2006-01-02")]; ok {
			continue
		}

		scheduleID := schedule.ID
		for cursor := startMin; cursor+schedule.SlotDurationMin <= endMin; cursor += schedule.SlotDurationMin {
			slots = append(slots, models.Slot{
				ProfessionalID: schedule.ProfessionalID,
				ScheduleID:     &scheduleID,
				Date:           date,
				StartTime:      formatClock(cursor),
				EndTime:        formatClock(cursor + schedule.SlotDurationMin),
				State:          models.SlotAvailable,
			})
		}
	}

	return slots, nil
}

// parseClock converts "HH:MM" (seconds tolerated) to minutes from midnight.
func parseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("invalid clock value %q", value)
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
