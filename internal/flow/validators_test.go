package flow

import (
	"testing"
	"time"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"100", 100, true},
		{"1 000", 1000, true},
		{" 50 ", 50, true},
		{"abc", 0, false},
		{"-5", 0, false},
		{"1.5", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ToInt(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ToInt(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestValidQuantity(t *testing.T) {
	tests := []struct {
		cat  Category
		n    int
		want bool
	}{
		{CategoryBusinessCards, 50, true},
		{CategoryBusinessCards, 100, true},
		{CategoryBusinessCards, 75, false},
		{CategoryBusinessCards, 49, false},
		{CategoryBusinessCards, 0, false},
		{CategoryBusinessCards, 1000000000, false},
		{CategoryFlyers, 1, true},
		{CategoryFlyers, 0, false},
		{CategoryFlyers, 1000000000, false},
		{CategoryOther, 3, true},
	}
	for _, tt := range tests {
		if got := ValidQuantity(tt.cat, tt.n); got != tt.want {
			t.Errorf("ValidQuantity(%s, %d) = %v; want %v", tt.cat, tt.n, got, tt.want)
		}
	}
}

func TestParseCustomSizeMM(t *testing.T) {
	tests := []struct {
		in   string
		w, h int
		ok   bool
	}{
		{"100×150", 100, 150, true},
		{"100x150", 100, 150, true},
		{"100 Х 150", 100, 150, true},
		{"100*150", 100, 150, true},
		{"20×20", 20, 20, true},
		{"1200×1200", 1200, 1200, true},
		{"19×100", 0, 0, false},
		{"100×1201", 0, 0, false},
		{"100", 0, 0, false},
		{"a×b", 0, 0, false},
	}
	for _, tt := range tests {
		w, h, ok := ParseCustomSizeMM(tt.in)
		if ok != tt.ok || w != tt.w || h != tt.h {
			t.Errorf("ParseCustomSizeMM(%q) = %d, %d, %v; want %d, %d, %v", tt.in, w, h, ok, tt.w, tt.h, tt.ok)
		}
	}
}

func TestParseBannerSizeM(t *testing.T) {
	tests := []struct {
		in   string
		w, h float64
		ok   bool
	}{
		{"2×1.5", 2, 1.5, true},
		{"2x1,5", 2, 1.5, true},
		{"0.1×20", 0.1, 20, true},
		{"0.05×1", 0, 0, false},
		{"21×1", 0, 0, false},
		{"2", 0, 0, false},
	}
	for _, tt := range tests {
		w, h, ok := ParseBannerSizeM(tt.in)
		if ok != tt.ok || w != tt.w || h != tt.h {
			t.Errorf("ParseBannerSizeM(%q) = %v, %v, %v; want %v, %v, %v", tt.in, w, h, ok, tt.w, tt.h, tt.ok)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+7 999 123-45-67", "+79991234567", true},
		{"89991234567", "+79991234567", true},
		{"79991234567", "+79991234567", true},
		{"9991234567", "+79991234567", true},
		{"8 (999) 123 45 67", "+79991234567", true},
		{"12345", "", false},
		{"1234567890", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizePhone(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseCreaseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"0", 0, true},
		{"3", 3, true},
		{"5", 5, true},
		{"6", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCreaseCount(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCreaseCount(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseDeadline(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"сегодня", time.Date(2026, 8, 31, 18, 0, 0, 0, loc), true},
		{"завтра", time.Date(2026, 9, 1, 18, 0, 0, 0, loc), true},
		{"послезавтра", time.Date(2026, 9, 2, 18, 0, 0, 0, loc), true},
		{"через 3 дня", time.Date(2026, 9, 3, 18, 0, 0, 0, loc), true},
		{"tomorrow", time.Date(2026, 9, 1, 18, 0, 0, 0, loc), true},
		{"25.12", time.Date(2026, 12, 25, 18, 0, 0, 0, loc), true},
		{"25.12 14:30", time.Date(2026, 12, 25, 14, 30, 0, 0, loc), true},
		// a bare date already past rolls one year forward
		{"15.03", time.Date(2027, 3, 15, 18, 0, 0, 0, loc), true},
		{"25.12.2026 14:00", time.Date(2026, 12, 25, 14, 0, 0, 0, loc), true},
		// explicit past dates are rejected, not repaired
		{"25.12.2020", time.Time{}, false},
		{"31.02", time.Time{}, false},
		{"25.13", time.Time{}, false},
		{"25.12.2026 25:00", time.Time{}, false},
		{"когда-нибудь", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseDeadline(tt.in, now, loc)
		if ok != tt.ok {
			t.Errorf("ParseDeadline(%q) ok = %v; want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseDeadline(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDeadlineTodayAfterHours(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	now := time.Date(2026, 8, 31, 19, 0, 0, 0, loc)

	got, ok := ParseDeadline("сегодня", now, loc)
	if !ok {
		t.Fatal("expected ok")
	}
	// the default 18:00 slot is gone, so the deadline slides to tomorrow
	want := time.Date(2026, 9, 1, 18, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("got %v; want %v", got, want)
	}
}
