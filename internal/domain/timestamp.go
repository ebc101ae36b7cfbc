package domain

import (
	"fmt"
	"time"
)

// buddhistEraOffset converts a Gregorian year to the Thai solar calendar.
const buddhistEraOffset = 543

// FormatTimestamp renders t the way the questionnaire endpoint expects it:
// dd/MM/yyyy HH:mm:ss with a Buddhist-era year, in loc.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%02d/%02d/%04d %02d:%02d:%02d",
		t.Day(), int(t.Month()), t.Year()+buddhistEraOffset,
		t.Hour(), t.Minute(), t.Second())
}
