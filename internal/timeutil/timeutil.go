package timeutil

import "time"

var stockholmLocation = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		return time.FixedZone("Europe/Stockholm", 1*60*60)
	}
	return loc
}

// Quiet hours for push delivery: no notifications before 08:00 or after 21:00.
const (
	businessDayStartHour = 8
	businessDayEndHour   = 21
)

// Now returns the current time in Europe/Stockholm timezone.
func Now() time.Time {
	return time.Now().In(stockholmLocation)
}

// InStockholm converts provided time to Europe/Stockholm timezone.
func InStockholm(t time.Time) time.Time {
	return t.In(stockholmLocation)
}

// Location returns Europe/Stockholm location instance.
func Location() *time.Location {
	return stockholmLocation
}

// IsNightTime reports whether the moment falls outside the push delivery window.
func IsNightTime(t time.Time) bool {
	h := InStockholm(t).Hour()
	return h < businessDayStartHour || h >= businessDayEndHour
}

// NextBusinessMorning returns the next 08:00 in Stockholm at or after t.
// Used to defer push notifications for recipients who opted out of night alerts.
func NextBusinessMorning(t time.Time) time.Time {
	local := InStockholm(t)
	morning := time.Date(local.Year(), local.Month(), local.Day(), businessDayStartHour, 0, 0, 0, stockholmLocation)
	if !local.Before(morning) {
		morning = morning.AddDate(0, 0, 1)
	}
	return morning
}

// WillExpireAt computes when an unaccepted booking times out, based on how far
// ahead of the session it was created:
//
//	due within 90 minutes        -> the due time itself
//	due within 24 hours          -> created + 90 minutes
//	due within 72 hours          -> created + half the distance to due
//	otherwise                    -> due - 48 hours
func WillExpireAt(due, created time.Time) time.Time {
	diff := due.Sub(created)
	switch {
	case diff <= 90*time.Minute:
		return due
	case diff <= 24*time.Hour:
		return created.Add(90 * time.Minute)
	case diff <= 72*time.Hour:
		return created.Add(diff / 2)
	default:
		return due.Add(-48 * time.Hour)
	}
}
