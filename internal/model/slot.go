package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Clinic hours. Slots start every SlotStep from OpeningHour; the last one
// starts one step before ClosingHour.
const (
	OpeningHour = 10
	ClosingHour = 21
	SlotStep    = 30 * time.Minute

	// TimeLabelLayout renders 10:00 as "10:00 AM" and 13:30 as "1:30 PM".
	TimeLabelLayout = "3:04 PM"
)

var (
	ErrInvalidDayKey    = errors.New("invalid slot date")
	ErrInvalidTimeLabel = errors.New("invalid slot time")
)

// DayKey formats t as D_M_YYYY with no zero padding.
func DayKey(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Day(), int(t.Month()), t.Year())
}

// TimeLabel formats t as H:MM AM/PM.
func TimeLabel(t time.Time) string {
	return t.Format(TimeLabelLayout)
}

// ParseDayKey parses a canonical D_M_YYYY key into midnight of that day in loc.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return time.Time{}, ErrInvalidDayKey
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, ErrInvalidDayKey
		}
		nums[i] = n
	}

	if loc == nil {
		loc = time.UTC
	}
	day := time.Date(nums[2], time.Month(nums[1]), nums[0], 0, 0, 0, 0, loc)
	// Rejects 31_2_2025 (normalized by time.Date) and padded forms like 05_1_2025.
	if DayKey(day) != key {
		return time.Time{}, ErrInvalidDayKey
	}
	return day, nil
}

// ParseTimeLabel returns the offset of a canonical label from midnight.
// Only labels on the half-hour grid inside clinic hours are accepted.
func ParseTimeLabel(label string) (time.Duration, error) {
	t, err := time.Parse(TimeLabelLayout, label)
	if err != nil || TimeLabel(t) != label {
		return 0, ErrInvalidTimeLabel
	}

	offset := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	if offset%SlotStep != 0 ||
		offset < OpeningHour*time.Hour ||
		offset+SlotStep > ClosingHour*time.Hour {
		return 0, ErrInvalidTimeLabel
	}
	return offset, nil
}

// ValidDayKey reports whether key is a canonical day-key.
func ValidDayKey(key string) bool {
	_, err := ParseDayKey(key, time.UTC)
	return err == nil
}

// ValidTimeLabel reports whether label is a bookable time-label.
func ValidTimeLabel(label string) bool {
	_, err := ParseTimeLabel(label)
	return err == nil
}

// SortTimeLabels orders labels by time of day. Unparseable labels sort
// lexically.
func SortTimeLabels(labels []string) {
	sort.Slice(labels, func(i, j int) bool {
		a, errA := ParseTimeLabel(labels[i])
		b, errB := ParseTimeLabel(labels[j])
		if errA != nil || errB != nil {
			return labels[i] < labels[j]
		}
		return a < b
	})
}
