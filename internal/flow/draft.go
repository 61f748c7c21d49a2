// Package flow implements the conversation engine of the order intake
// dialogue: the per-category step graph, the navigation stack, input
// validators and the draft order accumulator.
package flow

import "time"

// Category identifies a product category; each category drives its own
// sequence of steps through the graph.
type Category string

const (
	CategoryBusinessCards Category = "business_cards"
	CategoryFlyers        Category = "flyers"
	CategoryPosters       Category = "posters"
	CategoryBanners       Category = "banners"
	CategoryStickers      Category = "stickers"
	CategorySheets        Category = "sheets"
	CategoryOther         Category = "other"
)

var categoryTitles = map[Category]string{
	CategoryBusinessCards: "Визитки",
	CategoryFlyers:        "Флаеры",
	CategoryPosters:       "Плакаты",
	CategoryBanners:       "Баннеры",
	CategoryStickers:      "Наклейки",
	CategorySheets:        "Листы",
	CategoryOther:         "Другое",
}

// Title returns the customer-facing name of the category.
func (c Category) Title() string {
	if t, ok := categoryTitles[c]; ok {
		return t
	}
	return string(c)
}

// FileRef is an opaque reference to an uploaded file. The engine never
// inspects file contents, only metadata.
type FileRef struct {
	ID        string
	UniqueID  string
	Name      string
	MIME      string
	SizeBytes int64
	Kind      string // document | photo
	MessageID int
	ChatID    int64
}

// Draft is the in-progress order record each validated step writes into.
// Fields irrelevant to the active category stay at their zero values.
type Draft struct {
	Category       Category
	WhatToPrint    string
	Quantity       int
	SheetFormat    string // A7..A1, "custom" or empty
	Format         string // resolved dimensions, e.g. "210×297" or "2×1.5 м"
	CustomSize     string // set only when SheetFormat == "custom"
	Sides          string // "1" | "2"
	Paper          string
	Material       string // paper | vinyl
	PrintColor     string // color | bw
	Lamination     string // none | matte | glossy
	CreaseCount    int
	CornerRounding bool
	Deadline       *time.Time // nil = operator will advise
	Phone          string
	Notes          string
	Attachments    []FileRef
}

// NewDraft returns a draft with defaults matching the persisted schema.
func NewDraft() Draft {
	return Draft{
		Lamination: "none",
		PrintColor: "color",
	}
}

// HasArtwork reports whether the draft carries at least one attachment
// qualifying for the active category: business cards require a PDF
// document, everything else accepts any stored attachment.
func (d *Draft) HasArtwork() bool {
	if d.Category == CategoryBusinessCards {
		for _, a := range d.Attachments {
			if a.Kind == "document" && isPDF(a) {
				return true
			}
		}
		return false
	}
	return len(d.Attachments) > 0
}
