package export

import (
	"regexp"
	"strings"

	"github.com/harun/chronicle/pkg/model"
)

const (
	fallbackName   = "untitled-session"
	maxFilenameLen = 80
)

var (
	unsafeRuns = regexp.MustCompile(`[<>:"/\\|?*\s\p{Cc}\p{Zs}\p{Zl}\p{Zp}]+`)
	dashRuns   = regexp.MustCompile(`-{2,}`)

	// Device names Windows refuses regardless of extension.
	reservedNames = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// Filename derives a filesystem-safe name from the title and creation date of p, e.g.
// "Fix-login-flow_2026-03-01.md". The result never contains a path separator or control
// character and is deterministic for identical input.
func Filename(p model.PersistedSession, format model.ExportFormat) string {
	name := sanitize(p.Title)
	if !p.CreatedAt.IsZero() {
		name += "_" + p.CreatedAt.UTC().Format("2006-01-02")
	}
	return name + format.Extension()
}

func sanitize(title string) string {
	s := unsafeRuns.ReplaceAllString(strings.TrimSpace(title), "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-. ")

	if runes := []rune(s); len(runes) > maxFilenameLen {
		s = strings.TrimRight(string(runes[:maxFilenameLen]), "-. ")
	}
	if s == "" {
		return fallbackName
	}
	if _, reserved := reservedNames[strings.ToUpper(s)]; reserved {
		return "session-" + s
	}
	return s
}
