package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/healthpoint-api/internal/model"
)

func at(hour, min int) time.Time {
	return time.Date(2025, 1, 5, hour, min, 0, 0, time.UTC)
}

func labels(d Day) []string {
	out := make([]string, 0, len(d.Slots))
	for _, s := range d.Slots {
		out = append(out, s.Label)
	}
	return out
}

func TestFullDayHasTwentyTwoSlots(t *testing.T) {
	days := Collect(nil, at(6, 0))
	require.Len(t, days, WindowDays)

	first := days[0]
	assert.Equal(t, "5_1_2025", first.Key)
	require.Len(t, first.Slots, 22)
	assert.Equal(t, "10:00 AM", first.Slots[0].Label)
	assert.Equal(t, "8:30 PM", first.Slots[21].Label)

	assert.Equal(t, "11_1_2025", days[6].Key)
	assert.Len(t, days[6].Slots, 22)
}

func TestSameDayStartsOneHourAheadRoundedUp(t *testing.T) {
	days := Collect(nil, at(12, 10))
	assert.Equal(t, "1:30 PM", days[0].Slots[0].Label)

	days = Collect(nil, at(12, 30))
	assert.Equal(t, "1:30 PM", days[0].Slots[0].Label)

	days = Collect(nil, at(9, 59))
	assert.Equal(t, "11:00 AM", days[0].Slots[0].Label)
}

func TestLateEveningBoundaries(t *testing.T) {
	// 19:30 + 1h = 20:30, exactly one slot before the 21:00 close.
	days := Collect(nil, at(19, 30))
	require.Equal(t, "5_1_2025", days[0].Key)
	assert.Equal(t, []string{"8:30 PM"}, labels(days[0]))

	// 19:31 rounds up to 21:00, which is the exclusive end.
	days = Collect(nil, at(19, 31))
	assert.Equal(t, "6_1_2025", days[0].Key)
	assert.Len(t, days, WindowDays-1)

	// 20:45 leaves nothing today.
	days = Collect(nil, at(20, 45))
	assert.Equal(t, "6_1_2025", days[0].Key)
	assert.Len(t, days, WindowDays-1)
}

func TestBookedSlotsAreSkipped(t *testing.T) {
	booked := model.SlotsBooked{"6_1_2025": {"10:00 AM", "3:30 PM"}}
	days := Collect(booked, at(6, 0))

	tomorrow := labels(days[1])
	assert.Len(t, tomorrow, 20)
	assert.NotContains(t, tomorrow, "10:00 AM")
	assert.NotContains(t, tomorrow, "3:30 PM")
	assert.Equal(t, "10:30 AM", tomorrow[0])
}

func TestFullyBookedDayIsOmitted(t *testing.T) {
	all := make([]string, 0, 22)
	for _, s := range Collect(nil, at(6, 0))[1].Slots {
		all = append(all, s.Label)
	}
	booked := model.SlotsBooked{"6_1_2025": all}

	days := Collect(booked, at(6, 0))
	require.Len(t, days, WindowDays-1)
	for _, d := range days {
		assert.NotEqual(t, "6_1_2025", d.Key)
	}
}

func TestSequenceIsRestartableAndStopsEarly(t *testing.T) {
	seq := Days(nil, at(6, 0))

	count := 0
	for range seq {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)

	again := 0
	for range seq {
		again++
	}
	assert.Equal(t, WindowDays, again)
}

func TestDaysFollowLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 23:00 UTC on the 4th is 04:30 on the 5th in IST.
	now := time.Date(2025, 1, 4, 23, 0, 0, 0, time.UTC).In(loc)

	days := Collect(nil, now)
	assert.Equal(t, "5_1_2025", days[0].Key)
	assert.Equal(t, "10:00 AM", days[0].Slots[0].Label)
}

func TestMonthRollover(t *testing.T) {
	days := Collect(nil, time.Date(2025, 1, 30, 8, 0, 0, 0, time.UTC))
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"30_1_2025", "31_1_2025", "1_2_2025", "2_2_2025", "3_2_2025", "4_2_2025", "5_2_2025"}, keys)
}

func TestNextFree(t *testing.T) {
	now := time.Date(2025, 1, 4, 8, 0, 0, 0, time.UTC)
	booked := model.SlotsBooked{"5_1_2025": {"10:00 AM", "10:30 AM"}}
	assert.Equal(t, "11:00 AM", NextFree(booked, now, "5_1_2025", "10:00 AM"))
	assert.Equal(t, "10:00 AM", NextFree(booked, now, "6_1_2025", "10:00 AM"))

	full := model.SlotsBooked{"5_1_2025": {"8:30 PM"}}
	assert.Equal(t, "", NextFree(full, now, "5_1_2025", "8:30 PM"))

	assert.Equal(t, "", NextFree(nil, now, "20_1_2025", "10:00 AM"), "outside the window")
}

func TestNextFreeSkipsPastAndLeadTime(t *testing.T) {
	// 13:10 now: the first offerable same-day slot is 14:30.
	now := at(13, 10)
	booked := model.SlotsBooked{"5_1_2025": {"10:00 AM"}}

	assert.Equal(t, "2:30 PM", NextFree(booked, now, "5_1_2025", "10:00 AM"))
	assert.Equal(t, "3:00 PM", NextFree(booked, now, "5_1_2025", "3:00 PM"))

	late := time.Date(2025, 1, 5, 20, 10, 0, 0, time.UTC)
	assert.Equal(t, "", NextFree(nil, late, "5_1_2025", "10:00 AM"))
}

func TestWindowKeepsWallClockOnDSTDays(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Clocks jump from 02:00 to 03:00 on 9 March 2025 and back on 2 November.
	for _, date := range []time.Time{
		time.Date(2025, 3, 9, 0, 30, 0, 0, loc),
		time.Date(2025, 11, 2, 0, 30, 0, 0, loc),
	} {
		days := Collect(nil, date)
		require.NotEmpty(t, days)
		first := days[0]
		assert.Equal(t, model.DayKey(date), first.Key)
		require.Len(t, first.Slots, 22)
		assert.Equal(t, 10, first.Slots[0].Time.Hour())
		assert.Equal(t, "10:00 AM", first.Slots[0].Label)
		assert.Equal(t, "8:30 PM", first.Slots[len(first.Slots)-1].Label)
	}
}
