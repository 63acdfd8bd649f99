package utils

import (
	"fmt"
	"time"
)

// Date renderings used across the output encoders. Every output file embeds
// "today" somewhere; keeping the variants named here stops each encoder from
// growing its own subtly different formatter.

// UploadDate renders the record-line date of the exchange upload files, e.g. "28-Aug-2026".
func UploadDate(t time.Time) string {
	return t.Format("02-Jan-2006")
}

// FileDate renders the DDMMYYYY filename stamp used by the exchange file names.
func FileDate(t time.Time) string {
	return t.Format("02012006")
}

// FileDateDayForMonth reproduces the historical file-name stamp where the
// day-of-month was written in the month position as well. Downstream systems
// have accepted these names for years; confirm against the exchange file-naming
// spec before changing it.
func FileDateDayForMonth(t time.Time) string {
	return fmt.Sprintf("%02d%02d%04d", t.Day(), t.Day(), t.Year())
}
