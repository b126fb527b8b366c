package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"22:00", 1320, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"banana", 0, true},
		{"8", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAllowedWindow(t *testing.T) {
	// quiet 22:00-08:00 wraps midnight: allowed is 08:00 for 14h
	start, dur := allowedWindow(22*60, 8*60)
	require.Equal(t, 8*60, start)
	require.Equal(t, 14*60, dur)

	// quiet 13:00-14:00 inside the day: allowed opens at 14:00 and wraps
	start, dur = allowedWindow(13*60, 14*60)
	require.Equal(t, 14*60, start)
	require.Equal(t, 23*60, dur)

	// equal bounds mean no quiet window
	start, dur = allowedWindow(9*60, 9*60)
	require.Equal(t, 9*60, start)
	require.Equal(t, 24*60, dur)
}

func localClock(tm time.Time, loc *time.Location) string {
	return tm.In(loc).Format("15:04")
}

func TestDaySlots_SingleSlotCentered(t *testing.T) {
	// quiet 22:00-08:00 leaves [08:00,22:00); one slot sits at its center.
	slots := daySlots(2026, time.June, 10, time.UTC, 22*60, 8*60, 1)
	require.Len(t, slots, 1)
	require.Equal(t, "15:00", localClock(slots[0], time.UTC))
}

func TestDaySlots_FourSlotsWrapQuiet(t *testing.T) {
	slots := daySlots(2026, time.June, 10, time.UTC, 22*60, 8*60, 4)
	require.Len(t, slots, 4)

	want := []string{"09:45", "13:15", "16:45", "20:15"}
	for i, slot := range slots {
		require.Equal(t, want[i], localClock(slot, time.UTC))
		local := slot.In(time.UTC)
		minutes := local.Hour()*60 + local.Minute()
		require.GreaterOrEqual(t, minutes, 8*60)
		require.Less(t, minutes, 22*60)
	}
}

func TestDaySlots_AllowedWindowWrapsMidnight(t *testing.T) {
	// quiet 13:00-14:00: the allowed window runs 14:00 today to 13:00
	// tomorrow, so the late slot lands on the next calendar day.
	slots := daySlots(2026, time.June, 10, time.UTC, 13*60, 14*60, 2)
	require.Len(t, slots, 2)

	require.Equal(t, "19:45", localClock(slots[0], time.UTC))
	require.Equal(t, 10, slots[0].Day())
	require.Equal(t, "07:15", localClock(slots[1], time.UTC))
	require.Equal(t, 11, slots[1].Day())
}

func TestDaySlots_DSTSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2026-03-08: clocks jump 02:00 -> 03:00 in America/New_York. Slots are
	// placed by local wall clock regardless of the shortened day.
	slots := daySlots(2026, time.March, 8, loc, 22*60, 8*60, 2)
	require.Len(t, slots, 2)
	require.Equal(t, "11:30", localClock(slots[0], loc))
	require.Equal(t, "18:30", localClock(slots[1], loc))

	// Both slots fall after the transition, so they are exactly 7h apart in UTC.
	require.Equal(t, 7*time.Hour, slots[1].Sub(slots[0]))
}

func TestDaySlots_StrictlyIncreasingAcrossDays(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	var all []time.Time
	for day := 10; day < 13; day++ {
		all = append(all, daySlots(2026, time.June, day, loc, 22*60, 8*60, 4)...)
	}
	for i := 1; i < len(all); i++ {
		require.True(t, all[i].After(all[i-1]), "slot %d not after slot %d", i, i-1)
	}
}
