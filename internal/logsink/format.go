package logsink

import (
	"fmt"
	"path"
	"time"
)

// DateFolderFormat is the format string for organizing logs by date in blob storage
// Format: YYYY/MM/DD
const DateFolderFormat = "%d/%02d/%02d"

// FormatDateFolder returns the date-based folder path for a given year, month, day
func FormatDateFolder(year int, month int, day int) string {
	return fmt.Sprintf(DateFolderFormat, year, month, day)
}

// DefaultBlobName is "<tool>/YYYY/MM/DD/<host>.jsonl" so each tool's runs land in one blob per day.
func DefaultBlobName(tool, host string, t time.Time) string {
	t = t.UTC()
	if host == "" {
		host = "unknown"
	}
	return path.Join(tool, FormatDateFolder(t.Year(), int(t.Month()), t.Day()), host+".jsonl")
}
