package flow

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validators are pure: they turn raw text into typed values or report
// rejection, without touching session or draft state.

const maxQuantity = 100000

var nonDigitsRE = regexp.MustCompile(`\D`)

// ToInt parses a whole positive number, tolerating inner spaces
// ("1 000" -> 1000).
func ToInt(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" || nonDigitsRE.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValidQuantity applies the per-category print-run rules: business cards
// require at least 50 pieces in multiples of 50, every category is capped
// at a sane upper bound.
func ValidQuantity(cat Category, n int) bool {
	if n <= 0 || n > maxQuantity {
		return false
	}
	if cat == CategoryBusinessCards {
		return n >= 50 && n%50 == 0
	}
	return true
}

// normalizeSize unifies the separator in "W×H" inputs: latin and cyrillic
// x, the asterisk and surrounding spaces all collapse to "×".
func normalizeSize(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	for _, sep := range []string{"x", "X", "х", "Х", "*"} {
		s = strings.ReplaceAll(s, sep, "×")
	}
	return s
}

var (
	sizeMMRE = regexp.MustCompile(`^(\d+)×(\d+)$`)
	sizeMRE  = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)×(\d+(?:[.,]\d+)?)$`)
)

// ParseCustomSizeMM parses a "W×H" sheet size in millimetres.
// Both dimensions must fall within 20–1200 mm.
func ParseCustomSizeMM(s string) (int, int, bool) {
	m := sizeMMRE.FindStringSubmatch(normalizeSize(s))
	if m == nil {
		return 0, 0, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	if w < 20 || w > 1200 || h < 20 || h > 1200 {
		return 0, 0, false
	}
	return w, h, true
}

// ParseBannerSizeM parses a "W×H" banner size in metres with optional
// decimals. Both dimensions must fall within 0.1–20.0 m.
func ParseBannerSizeM(s string) (float64, float64, bool) {
	m := sizeMRE.FindStringSubmatch(normalizeSize(s))
	if m == nil {
		return 0, 0, false
	}
	w, err1 := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	h, err2 := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if w < 0.1 || w > 20.0 || h < 0.1 || h > 20.0 {
		return 0, 0, false
	}
	return w, h, true
}

// NormalizePhone accepts +7/8/7-prefixed eleven-digit numbers and bare
// ten-digit mobiles starting with 9, normalizing all of them to
// "+7XXXXXXXXXX".
func NormalizePhone(s string) (string, bool) {
	digits := nonDigitsRE.ReplaceAllString(s, "")
	switch {
	case len(digits) == 11 && (digits[0] == '7' || digits[0] == '8'):
		return "+7" + digits[1:], true
	case len(digits) == 10 && digits[0] == '9':
		return "+7" + digits, true
	}
	return "", false
}

// ParseCreaseCount parses the number of crease lines, 0 through 5.
func ParseCreaseCount(s string) (int, bool) {
	n, ok := ToInt(s)
	if !ok || n > 5 {
		return 0, false
	}
	return n, true
}

// Deadline parsing. Supported shapes: relative phrases (сегодня, завтра,
// послезавтра, через N дней and their English twins) and explicit
// dd.mm[.yyyy][ hh:mm] forms resolved in the supplied location. A bare
// day/month already past rolls forward one year; a relative phrase that
// lands in the past rolls forward one day. When no time is given the
// deadline defaults to the end of the business day.
const defaultDeadlineHour = 18

var (
	relDaysRuRE = regexp.MustCompile(`^через (\d+) (?:день|дня|дней)$`)
	relDaysEnRE = regexp.MustCompile(`^in (\d+) days?$`)
	dateTimeRE  = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})(?:\.(\d{4}))?(?:\s+(\d{1,2}):(\d{2}))?$`)
)

// ParseDeadline resolves free-text deadline input against now in loc.
func ParseDeadline(s string, now time.Time, loc *time.Location) (time.Time, bool) {
	t := normButton(s)
	now = now.In(loc)

	if days, ok := relativeDays(t); ok {
		due := time.Date(now.Year(), now.Month(), now.Day(), defaultDeadlineHour, 0, 0, 0, loc).AddDate(0, 0, days)
		if !due.After(now) {
			due = due.AddDate(0, 0, 1)
		}
		return due, true
	}

	m := dateTimeRE.FindStringSubmatch(t)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	hour, minute := defaultDeadlineHour, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		if hour > 23 || minute > 59 {
			return time.Time{}, false
		}
	}

	if m[3] != "" {
		year, _ := strconv.Atoi(m[3])
		due := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
		if due.Month() != time.Month(month) || !due.After(now) {
			// explicit dates in the past are rejected, not repaired
			return time.Time{}, false
		}
		return due, true
	}

	due := time.Date(now.Year(), time.Month(month), day, hour, minute, 0, 0, loc)
	if due.Month() != time.Month(month) {
		return time.Time{}, false
	}
	if !due.After(now) {
		due = due.AddDate(1, 0, 0)
	}
	return due, true
}

func relativeDays(t string) (int, bool) {
	switch t {
	case "сегодня", "today":
		return 0, true
	case "завтра", "tomorrow":
		return 1, true
	case "послезавтра":
		return 2, true
	}
	if m := relDaysRuRE.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := relDaysEnRE.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	return 0, false
}

func isPDF(f FileRef) bool {
	if strings.HasPrefix(strings.ToLower(f.MIME), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(f.Name), ".pdf")
}

var imageMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/tiff": {},
}

func isRasterImage(f FileRef) bool {
	if f.Kind == "photo" {
		return true
	}
	_, ok := imageMIMEs[strings.ToLower(f.MIME)]
	return ok
}
