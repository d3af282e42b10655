package timeutil

import (
	"testing"
	"time"
)

func TestWillExpireAt(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, Location())

	cases := []struct {
		name string
		due  time.Time
		want time.Time
	}{
		{
			name: "within 90 minutes expires at due",
			due:  created.Add(60 * time.Minute),
			want: created.Add(60 * time.Minute),
		},
		{
			name: "within 24 hours expires 90 minutes after creation",
			due:  created.Add(10 * time.Hour),
			want: created.Add(90 * time.Minute),
		},
		{
			name: "within 72 hours expires halfway",
			due:  created.Add(48 * time.Hour),
			want: created.Add(24 * time.Hour),
		},
		{
			name: "far ahead expires 48 hours before due",
			due:  created.Add(200 * time.Hour),
			want: created.Add(152 * time.Hour),
		},
	}

	for _, c := range cases {
		got := WillExpireAt(c.due, created)
		if !got.Equal(c.want) {
			t.Errorf("%s: WillExpireAt = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsNightTime(t *testing.T) {
	day := time.Date(2025, 3, 10, 14, 30, 0, 0, Location())
	if IsNightTime(day) {
		t.Error("14:30 should not be night time")
	}
	early := time.Date(2025, 3, 10, 7, 59, 0, 0, Location())
	if !IsNightTime(early) {
		t.Error("07:59 should be night time")
	}
	late := time.Date(2025, 3, 10, 21, 0, 0, 0, Location())
	if !IsNightTime(late) {
		t.Error("21:00 should be night time")
	}
	edge := time.Date(2025, 3, 10, 8, 0, 0, 0, Location())
	if IsNightTime(edge) {
		t.Error("08:00 should not be night time")
	}
}

func TestNextBusinessMorning(t *testing.T) {
	night := time.Date(2025, 3, 10, 23, 15, 0, 0, Location())
	got := NextBusinessMorning(night)
	want := time.Date(2025, 3, 11, 8, 0, 0, 0, Location())
	if !got.Equal(want) {
		t.Errorf("NextBusinessMorning(23:15) = %v, want %v", got, want)
	}

	early := time.Date(2025, 3, 10, 5, 0, 0, 0, Location())
	got = NextBusinessMorning(early)
	want = time.Date(2025, 3, 10, 8, 0, 0, 0, Location())
	if !got.Equal(want) {
		t.Errorf("NextBusinessMorning(05:00) = %v, want %v", got, want)
	}
}
