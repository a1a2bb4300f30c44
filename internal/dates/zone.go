package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "time/tzdata" // embedded zone database; hosts may lack zoneinfo
)

var ErrUnknownZone = errors.New("unknown timezone")

// Short codes users type instead of full IANA names.
var zoneAliases = map[string]string{
	"PST": "US/Pacific",
	"EST": "US/Eastern",
	"CST": "US/Central",
	"MST": "US/Mountain",
	"GMT": "Etc/GMT",
	"UTC": "UTC",
}

// NormalizeZone resolves a user-supplied zone name or short code to a
// loadable IANA zone name.
func NormalizeZone(name string) (string, error) {
	zone := strings.TrimSpace(name)
	if mapped, ok := zoneAliases[strings.ToUpper(zone)]; ok {
		zone = mapped
	}
	if zone == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	return zone, nil
}

// LocalNow converts the absolute instant now into the zone's local
// calendar date and wall-clock hour and minute.
func LocalNow(zone string, now time.Time) (Date, int, int, error) {
	if zone == "" {
		return Date{}, 0, 0, fmt.Errorf("%w: empty zone", ErrUnknownZone)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Date{}, 0, 0, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	local := now.In(loc)
	return FromTime(local), local.Hour(), local.Minute(), nil
}
