package flow

import (
	"regexp"
	"strings"
)

var (
	emojiRE  = regexp.MustCompile(`[\x{2190}-\x{21FF}\x{2300}-\x{23FF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE0F}\x{1F000}-\x{1FAFF}]+`)
	spacesRE = regexp.MustCompile(`\s+`)
)

// Button tokens understood on every step regardless of the rendered keyboard.
const (
	tokenBack   = "back"
	tokenCancel = "cancel"
	tokenNext   = "next"
	tokenSkip   = "skip"
	tokenSubmit = "submit"
)

var buttonAliases = map[string][]string{
	tokenBack:   {"назад", "/back", "back"},
	tokenCancel: {"отмена", "/cancel", "cancel"},
	tokenNext:   {"далее", "/next", "next"},
	tokenSkip:   {"пропустить", "/skip", "skip"},
	tokenSubmit: {"готово", "подтвердить", "submit"},
}

var categoryAliases = map[Category][]string{
	CategoryBusinessCards: {"визитки", "визитка"},
	CategoryFlyers:        {"флаеры", "флаер", "буклеты", "буклет"},
	CategoryPosters:       {"плакаты", "плакат"},
	CategoryBanners:       {"баннеры", "баннер"},
	CategoryStickers:      {"наклейки", "наклейка"},
	CategorySheets:        {"листы"},
	CategoryOther:         {"другое"},
}

// normButton strips emoji, lowercases and collapses whitespace so that
// decorated keyboard labels and bare text compare equal.
func normButton(text string) string {
	t := emojiRE.ReplaceAllString(text, "")
	t = strings.ToLower(strings.TrimSpace(t))
	return spacesRE.ReplaceAllString(t, " ")
}

func isToken(text, token string) bool {
	t := normButton(text)
	for _, a := range buttonAliases[token] {
		if t == a {
			return true
		}
	}
	return false
}

// CategoryFromInput resolves free text or a keyboard label to a category.
func CategoryFromInput(text string) (Category, bool) {
	t := normButton(text)
	for cat, aliases := range categoryAliases {
		for _, a := range aliases {
			if t == a {
				return cat, true
			}
		}
	}
	return "", false
}
