// Package calendar computes the bookable slots of a doctor for the
// rolling seven-day window.
package calendar

import (
	"iter"
	"time"

	"github.com/jwalitptl/healthpoint-api/internal/model"
)

const (
	// WindowDays is the number of days offered, today included.
	WindowDays = 7
	// LeadTime is how far ahead of now the first same-day slot must start.
	LeadTime = time.Hour
)

// Slot is one offerable start time.
type Slot struct {
	Time  time.Time `json:"datetime"`
	Label string    `json:"time"`
}

// Day groups the offerable slots of one calendar day.
type Day struct {
	Key   string    `json:"dayKey"`
	Date  time.Time `json:"date"`
	Slots []Slot    `json:"slots"`
}

// Days yields every day of the window, starting with the day of now, that
// still has an offerable slot. A slot is offerable when booked does not hold
// its label for that day. A nil booked map offers every slot.
//
// The window is computed in now's location. The sequence is finite and may
// be ranged over more than once.
func Days(booked model.SlotsBooked, now time.Time) iter.Seq[Day] {
	return func(yield func(Day) bool) {
		for i := 0; i < WindowDays; i++ {
			day, ok := buildDay(booked, now, i)
			if !ok {
				continue
			}
			if !yield(day) {
				return
			}
		}
	}
}

// Collect drains Days into a slice.
func Collect(booked model.SlotsBooked, now time.Time) []Day {
	out := make([]Day, 0, WindowDays)
	for day := range Days(booked, now) {
		out = append(out, day)
	}
	return out
}

func buildDay(booked model.SlotsBooked, now time.Time, offset int) (Day, bool) {
	loc := now.Location()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
	y, m, d = midnight.Date()

	step := int(model.SlotStep / time.Minute)
	first := model.OpeningHour * 60
	last := model.ClosingHour * 60
	if offset == 0 {
		if earliest := ceilToStep(now.Add(LeadTime)); sameDay(earliest, midnight) {
			first = max(first, minuteOfDay(earliest))
		} else {
			return Day{}, false
		}
	}

	key := model.DayKey(midnight)
	day := Day{Key: key, Date: midnight}
	for minute := first; minute < last; minute += step {
		t := time.Date(y, m, d, 0, minute, 0, 0, loc)
		label := model.TimeLabel(t)
		if booked.Has(key, label) {
			continue
		}
		day.Slots = append(day.Slots, Slot{Time: t, Label: label})
	}
	return day, len(day.Slots) > 0
}

// ceilToStep rounds t up to the next slot boundary on the wall clock.
func ceilToStep(t time.Time) time.Time {
	step := int(model.SlotStep / time.Minute)
	minute := minuteOfDay(t)
	if t.Second() != 0 || t.Nanosecond() != 0 || minute%step != 0 {
		minute = (minute/step + 1) * step
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, minute, 0, 0, t.Location())
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NextFree returns the first slot of dayKey at or after the given label that
// Days would still offer at now, or "" when there is none. Slots already
// past, or inside the lead time, are never suggested.
func NextFree(booked model.SlotsBooked, now time.Time, dayKey, after string) string {
	from, err := model.ParseTimeLabel(after)
	if err != nil {
		return ""
	}
	fromMinute := int(from / time.Minute)
	for day := range Days(booked, now) {
		if day.Key != dayKey {
			continue
		}
		for _, slot := range day.Slots {
			if minuteOfDay(slot.Time) >= fromMinute {
				return slot.Label
			}
		}
		return ""
	}
	return ""
}
