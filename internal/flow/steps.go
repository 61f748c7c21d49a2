package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// Step identifies a node of the conversation graph.
type Step string

const (
	StepCategory     Step = "category"
	StepQuantity     Step = "quantity"
	StepSheetFormat  Step = "sheet_format"
	StepCustomSize   Step = "custom_size"
	StepBannerSize   Step = "banner_size"
	StepSides        Step = "sides"
	StepMaterial     Step = "material"
	StepColorMode    Step = "color_mode"
	StepFinishing    Step = "finishing"
	StepCreaseCount  Step = "crease_count"
	StepUpload       Step = "upload"
	StepDeadline     Step = "deadline"
	StepPhone        Step = "phone"
	StepNotes        Step = "notes"
	StepConfirm      Step = "confirm"
	StepCancelChoice Step = "cancel_choice"
)

// action tells the engine what to do with the stack after a step consumed
// an input.
type action int

const (
	actStay       action = iota // re-render the current step, optionally with a message
	actAdvance                  // push spec.next(draft)
	actEnter                    // push an explicit sub-step (custom size, crease count, cancel menu)
	actBack                     // pop one frame
	actCancelStep               // pop the cancel menu plus the step it was asked about
	actCancelAll                // drop the whole draft
	actCommit                   // persist the draft as an order
)

type stepResult struct {
	action action
	msg    string // shown before the next prompt, if any
	target Step   // actEnter only
}

func stay(msg string) stepResult   { return stepResult{action: actStay, msg: msg} }
func advance() stepResult          { return stepResult{action: actAdvance} }
func enter(target Step) stepResult { return stepResult{action: actEnter, target: target} }

// stepSpec is one node of the graph: how to ask, how to consume the answer
// and where to go next. next may depend on the draft, that is how category
// sequences diverge over a shared step vocabulary.
type stepSpec struct {
	prompt func(e *Engine, d *Draft) Prompt
	apply  func(e *Engine, d *Draft, upd Update) stepResult
	next   func(d *Draft) Step
}

var stepTable = map[Step]stepSpec{
	StepCategory: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskCategory, Choices: categoryKeyboard()}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			cat, ok := CategoryFromInput(upd.Text)
			if !ok {
				return stay(remindUseButtons)
			}
			// picking a category restarts the draft so a Back from deep in
			// one flow never leaks fields into another
			*d = NewDraft()
			d.Category = cat
			d.WhatToPrint = cat.Title()
			if cat == CategoryBusinessCards {
				d.SheetFormat = ""
				d.Format = "90×50"
				d.Paper = "300 г/м²"
			}
			return advance()
		},
		next: func(d *Draft) Step { return StepQuantity },
	},

	StepQuantity: {
		prompt: func(e *Engine, d *Draft) Prompt {
			text := msgAskQuantity
			if d.Category == CategoryBusinessCards {
				text = msgAskQuantityBC
			}
			return Prompt{Text: text, Choices: quantityKeyboard(d.Category)}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			n, ok := ToInt(upd.Text)
			if !ok {
				return stay(errInt)
			}
			if !ValidQuantity(d.Category, n) {
				if d.Category == CategoryBusinessCards {
					return stay(errQuantityBC)
				}
				return stay(errQuantity)
			}
			d.Quantity = n
			return advance()
		},
		next: func(d *Draft) Step {
			switch d.Category {
			case CategoryBusinessCards:
				return StepSides
			case CategoryBanners:
				return StepBannerSize
			case CategoryOther:
				return StepUpload
			default:
				return StepSheetFormat
			}
		},
	},

	StepSheetFormat: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskSheetFormat, Choices: sheetFormatKeyboard(d.Category)}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			t := normButton(upd.Text)
			if allowsCustomSize(d.Category) && t == normButton(btnCustomSize) {
				return enter(StepCustomSize)
			}
			for _, f := range sheetFormatsByCategory[d.Category] {
				if t == strings.ToLower(f.name) || strings.HasPrefix(t, strings.ToLower(f.name)+" ") {
					d.SheetFormat = f.name
					d.Format = f.dims
					return advance()
				}
			}
			return stay(remindUseButtons)
		},
		next: afterSize,
	},

	StepCustomSize: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskCustomSize, Choices: [][]string{navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			w, h, ok := ParseCustomSizeMM(upd.Text)
			if !ok {
				return stay(errSizeFormat)
			}
			d.SheetFormat = "custom"
			d.CustomSize = fmt.Sprintf("%d×%d мм", w, h)
			d.Format = d.CustomSize
			return advance()
		},
		next: afterSize,
	},

	StepBannerSize: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskBannerSize, Choices: [][]string{navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			w, h, ok := ParseBannerSizeM(upd.Text)
			if !ok {
				return stay(errBannerSize)
			}
			d.SheetFormat = "custom"
			d.CustomSize = fmt.Sprintf("%s×%s м", trimFloat(w), trimFloat(h))
			d.Format = d.CustomSize
			return advance()
		},
		next: func(d *Draft) Step { return StepFinishing },
	},

	StepSides: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskSides, Choices: [][]string{{btnSides1, btnSides2}, navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			switch t := normButton(upd.Text); {
			case strings.HasPrefix(t, "1"):
				d.Sides = "1"
			case strings.HasPrefix(t, "2"):
				d.Sides = "2"
			default:
				return stay(remindUseButtons)
			}
			return advance()
		},
		next: func(d *Draft) Step {
			if d.Category == CategorySheets {
				return StepUpload
			}
			return StepFinishing
		},
	},

	StepMaterial: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskMaterial, Choices: [][]string{{btnMaterialPaper, btnMaterialVinyl}, navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			switch t := normButton(upd.Text); {
			case strings.Contains(t, "бумага"):
				d.Material = "paper"
			case strings.Contains(t, "винил"):
				d.Material = "vinyl"
			default:
				return stay(remindUseButtons)
			}
			return advance()
		},
		next: func(d *Draft) Step { return StepColorMode },
	},

	StepColorMode: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskColor, Choices: [][]string{{btnColor, btnBW}, navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			switch t := normButton(upd.Text); {
			case strings.Contains(t, "цвет"):
				d.PrintColor = "color"
			case strings.Contains(t, "ч/б") || strings.Contains(t, "черн"):
				d.PrintColor = "bw"
			default:
				return stay(remindUseButtons)
			}
			return advance()
		},
		next: func(d *Draft) Step { return StepSides },
	},

	StepFinishing: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: finishingPromptText(d), Choices: finishingKeyboard()}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			if isToken(upd.Text, tokenNext) {
				return advance()
			}
			switch t := normButton(upd.Text); {
			case strings.HasPrefix(t, "ламинация"):
				lam := "matte"
				if strings.Contains(t, "глянец") {
					lam = "glossy"
				}
				if d.Lamination == lam {
					// pressing the active option again toggles it off
					lam = "none"
				}
				d.Lamination = lam
				return stay("")
			case strings.HasPrefix(t, "биговка"):
				return enter(StepCreaseCount)
			case strings.HasPrefix(t, "скругление"):
				d.CornerRounding = !d.CornerRounding
				return stay("")
			case t == "без обработки":
				d.Lamination = "none"
				d.CreaseCount = 0
				d.CornerRounding = false
				return stay("")
			}
			return stay(remindUseButtons)
		},
		next: func(d *Draft) Step { return StepUpload },
	},

	StepCreaseCount: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskCrease, Choices: [][]string{{"0", "1", "2", "3"}, navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			n, ok := ParseCreaseCount(upd.Text)
			if !ok {
				return stay(errCrease)
			}
			d.CreaseCount = n
			return stepResult{action: actBack, msg: fmt.Sprintf("✅ Биговка: %d линий.", n)}
		},
	},

	StepUpload: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{
				Text:    uploadPromptText(d, e.maxUploadMB),
				Choices: [][]string{{BtnNext}, navRow},
			}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			if upd.File != nil {
				if msg := rejectAttachment(d.Category, *upd.File, e.maxUploadMB); msg != "" {
					return stay(msg)
				}
				d.Attachments = append(d.Attachments, *upd.File)
				return stay(msgUploadOK)
			}
			if isToken(upd.Text, tokenNext) {
				if !d.HasArtwork() {
					if d.Category == CategoryBusinessCards {
						return stay(errOnlyPDF)
					}
					return stay(errNoArtwork)
				}
				return advance()
			}
			return stay(remindUseButtons)
		},
		next: func(d *Draft) Step { return StepDeadline },
	},

	StepDeadline: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskDeadline, Choices: [][]string{{"Сегодня", "Завтра"}, {BtnSkip}, navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			if isToken(upd.Text, tokenSkip) {
				d.Deadline = nil
				return advance()
			}
			due, ok := ParseDeadline(upd.Text, e.now(), e.loc)
			if !ok {
				return stay(errDate)
			}
			d.Deadline = &due
			return advance()
		},
		next: func(d *Draft) Step { return StepPhone },
	},

	StepPhone: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskPhone, Choices: [][]string{navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			p, ok := NormalizePhone(upd.Text)
			if !ok {
				return stay(errPhone)
			}
			d.Phone = p
			return advance()
		},
		next: func(d *Draft) Step { return StepNotes },
	},

	StepNotes: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskNotes, Choices: [][]string{{BtnSkip}, navRow}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			if isToken(upd.Text, tokenSkip) {
				d.Notes = ""
				return advance()
			}
			d.Notes = truncate(strings.TrimSpace(upd.Text), maxNotesLen)
			return advance()
		},
		next: func(d *Draft) Step { return StepConfirm },
	},

	StepConfirm: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{
				Text:    "✅ Подтверждение заказа\n\n" + SummaryText(d),
				Choices: [][]string{{BtnSubmit}, navRow},
			}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			if isToken(upd.Text, tokenSubmit) {
				return stepResult{action: actCommit}
			}
			return stay(remindUseButtons)
		},
	},

	StepCancelChoice: {
		prompt: func(e *Engine, d *Draft) Prompt {
			return Prompt{Text: msgAskCancelChoice, Choices: [][]string{{btnCancelStep}, {btnCancelAll}, {BtnBack}}}
		},
		apply: func(e *Engine, d *Draft, upd Update) stepResult {
			switch t := normButton(upd.Text); {
			case strings.Contains(t, "шаг"):
				return stepResult{action: actCancelStep}
			case strings.Contains(t, "полностью") || strings.Contains(t, "заказ"):
				return stepResult{action: actCancelAll}
			}
			return stay(remindUseButtons)
		},
	},
}

// afterSize routes past the size steps: stickers pick a material next,
// plain sheets go straight to colour, the rest choose sides.
func afterSize(d *Draft) Step {
	switch d.Category {
	case CategoryStickers:
		return StepMaterial
	case CategorySheets:
		return StepColorMode
	default:
		return StepSides
	}
}

const maxNotesLen = 1000

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func trimFloat(f float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(f, 'f', -1, 64), ".", ",")
}

// rejectAttachment screens an uploaded file before it lands in the draft.
// An empty return means the file is acceptable.
func rejectAttachment(cat Category, f FileRef, maxUploadMB int64) string {
	if maxUploadMB > 0 && f.SizeBytes > maxUploadMB<<20 {
		return fmt.Sprintf("Файл слишком большой: лимит %d МБ.", maxUploadMB)
	}
	if cat == CategoryBusinessCards {
		if f.Kind != "document" || !isPDF(f) {
			return errOnlyPDF
		}
		return ""
	}
	if !isPDF(f) && !isRasterImage(f) {
		return errBadFile
	}
	return ""
}
