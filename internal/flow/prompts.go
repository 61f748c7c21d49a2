package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// Keyboard labels. The emoji decoration is stripped by normButton before
// matching, so handlers compare against the bare words.
const (
	BtnBack   = "⬅️ Назад"
	BtnCancel = "❌ Отмена"
	BtnNext   = "➡️ Далее"
	BtnSkip   = "⏭️ Пропустить"
	BtnSubmit = "Готово"

	btnSides1 = "1 сторона"
	btnSides2 = "2 стороны"

	btnMaterialPaper = "📄 Бумага"
	btnMaterialVinyl = "🎯 Винил"

	btnColor = "🎨 Цветная"
	btnBW    = "⚫ Ч/Б"

	btnCustomSize = "Ваш размер"

	btnLamMatte    = "✨ Ламинация (мат)"
	btnLamGlossy   = "✨ Ламинация (глянец)"
	btnCrease      = "➖ Биговка"
	btnCorners     = "🔘 Скругление углов"
	btnNoFinishing = "Без обработки"

	btnCancelStep = "↩️ Только этот шаг"
	btnCancelAll  = "🗑 Полностью отменить заказ"
)

const (
	msgAskCategory     = "Что будем печатать?"
	msgAskQuantity     = "Укажите тираж (количество штук)."
	msgAskQuantityBC   = "Укажите тираж визиток: минимум 50, кратно 50."
	msgAskSheetFormat  = "Выберите формат:"
	msgAskCustomSize   = "Введите размер в мм, например 100×150 (каждая сторона от 20 до 1200 мм)."
	msgAskBannerSize   = "Введите размер баннера в метрах, например 2×1.5 (от 0.1 до 20 м)."
	msgAskSides        = "Печать с одной или с двух сторон?"
	msgAskMaterial     = "Выберите материал:"
	msgAskColor        = "Выберите цветность печати:"
	msgAskCrease       = "Сколько линий биговки? Введите число от 0 до 5."
	msgAskDeadline     = "К какому сроку нужен заказ? Например: завтра, 25.12 или 25.12.2026 14:00.\nНажмите «Пропустить» — тогда срок уточнит оператор."
	msgAskPhone        = "Оставьте номер телефона для связи, например +7 999 123-45-67."
	msgAskNotes        = "Дополнительные пожелания? Можно пропустить."
	msgAskCancelChoice = "Отменить только текущий шаг или весь заказ?"

	msgUploadOK       = "📎 Файл принят. Можно прикрепить ещё или нажать «Далее»."
	msgOrderCancelled = "❌ Заказ отменён."
	msgFlowLeft       = "Чем ещё помочь?"
	msgCommitFailed   = "❌ Не удалось создать заказ: техническая ошибка.\nПопробуйте ещё раз или свяжитесь с оператором: /call_operator"

	remindUseButtons = "Пожалуйста, воспользуйтесь кнопками ниже."

	errInt        = "Нужно целое число. Попробуйте ещё раз."
	errQuantityBC = "Тираж визиток: минимум 50 штук, кратно 50."
	errQuantity   = "Тираж должен быть больше нуля."
	errSizeFormat = "Не понял размер. Введите в формате Ш×В, например 100×150 (мм, от 20 до 1200)."
	errBannerSize = "Не понял размер. Введите в метрах, например 2×1.5 (от 0.1 до 20)."
	errCrease     = "Введите число линий биговки от 0 до 5."
	errPhone      = "Не похоже на номер телефона. Пример: +7 999 123-45-67."
	errDate       = "Не понял срок. Примеры: завтра, 25.12, 25.12.2026 14:00."
	errOnlyPDF    = "Для визиток макет принимается только как PDF-документ."
	errBadFile    = "Такой файл не подойдёт. Принимаются PDF и изображения (JPEG, PNG, TIFF)."
	errNoArtwork  = "Сначала прикрепите хотя бы один макет."
)

var navRow = []string{BtnBack, BtnCancel}

func textPrompt(text string) Prompt {
	return Prompt{Text: text}
}

type sheetFormat struct {
	name string
	dims string // width×height, mm
}

var sheetFormatsByCategory = map[Category][]sheetFormat{
	CategoryFlyers:   {{"A7", "105×74"}, {"A6", "148×105"}, {"A5", "210×148"}, {"A4", "297×210"}},
	CategoryPosters:  {{"A3", "420×297"}, {"A2", "594×420"}, {"A1", "841×594"}},
	CategoryStickers: {{"A6", "148×105"}, {"A5", "210×148"}, {"A4", "297×210"}, {"A3", "420×297"}},
	CategorySheets:   {{"A4", "210×297"}, {"A3", "297×420"}},
}

// Sheets are printed on stock formats only; everything else may ask for a
// custom size.
func allowsCustomSize(cat Category) bool {
	return cat != CategorySheets
}

func categoryKeyboard() [][]string {
	return [][]string{
		{"🪪 Визитки", "📄 Флаеры"},
		{"🖼 Баннеры", "📰 Плакаты"},
		{"🏷 Наклейки", "📚 Листы"},
		{"📦 Другое"},
		{BtnCancel},
	}
}

func quantityKeyboard(cat Category) [][]string {
	if cat == CategoryBusinessCards {
		return [][]string{{"50", "100", "200", "500"}, navRow}
	}
	return [][]string{{"10", "50", "100", "500"}, navRow}
}

func sheetFormatKeyboard(cat Category) [][]string {
	var row []string
	for _, f := range sheetFormatsByCategory[cat] {
		row = append(row, fmt.Sprintf("%s (%s мм)", f.name, f.dims))
	}
	rows := [][]string{row}
	if allowsCustomSize(cat) {
		rows = append(rows, []string{btnCustomSize})
	}
	return append(rows, navRow)
}

func finishingKeyboard() [][]string {
	return [][]string{
		{btnLamMatte, btnLamGlossy},
		{btnCrease, btnCorners},
		{btnNoFinishing, BtnNext},
		navRow,
	}
}

var laminationTitles = map[string]string{
	"none":   "нет",
	"matte":  "мат",
	"glossy": "глянец",
}

func finishingPromptText(d *Draft) string {
	corner := "нет"
	if d.CornerRounding {
		corner = "да"
	}
	return fmt.Sprintf(
		"Постобработка. Отметьте нужное и нажмите «Далее».\n\nЛаминация: %s\nБиговка: %d линий\nСкругление углов: %s",
		laminationTitles[d.Lamination], d.CreaseCount, corner,
	)
}

func uploadPromptText(d *Draft, maxUploadMB int64) string {
	if d.Category == CategoryBusinessCards {
		return fmt.Sprintf("Прикрепите макет визитки: PDF-документ до %d МБ.\nКогда все файлы загружены, нажмите «Далее».", maxUploadMB)
	}
	return fmt.Sprintf("Прикрепите макет: PDF или изображение до %d МБ.\nКогда все файлы загружены, нажмите «Далее».", maxUploadMB)
}

// SummaryText renders the confirmation summary of the draft. It is a pure
// projection used by the terminal confirm step.
func SummaryText(d *Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 Продукт: %s\n", d.WhatToPrint)
	fmt.Fprintf(&b, "📊 Тираж: %d шт\n", d.Quantity)

	if d.Format != "" {
		format := d.Format
		switch {
		case d.SheetFormat == "custom":
			format = "Пользовательский: " + d.CustomSize
		case d.SheetFormat != "":
			format = fmt.Sprintf("%s (%s мм)", d.SheetFormat, d.Format)
		}
		fmt.Fprintf(&b, "📐 Формат: %s\n", format)
	}
	if d.Sides != "" {
		sides := "Односторонняя"
		if d.Sides == "2" {
			sides = "Двусторонняя"
		}
		fmt.Fprintf(&b, "🖨️ Печать: %s\n", sides)
	}
	if d.Paper != "" {
		fmt.Fprintf(&b, "📄 Бумага: %s\n", d.Paper)
	}
	if d.Material != "" {
		material := "Бумага"
		if d.Material == "vinyl" {
			material = "Винил"
		}
		fmt.Fprintf(&b, "🪧 Материал: %s\n", material)
	}
	color := "Цветная"
	if d.PrintColor == "bw" {
		color = "Ч/Б"
	}
	fmt.Fprintf(&b, "🎨 Цветность: %s\n", color)
	fmt.Fprintf(&b, "✨ Ламинация: %s\n", laminationTitles[d.Lamination])
	fmt.Fprintf(&b, "➖ Биговка: %d линий\n", d.CreaseCount)
	corner := "нет"
	if d.CornerRounding {
		corner = "да"
	}
	fmt.Fprintf(&b, "🔘 Скругление углов: %s\n", corner)
	fmt.Fprintf(&b, "📎 Макеты: %d файл(ов)\n", len(d.Attachments))

	if d.Deadline != nil {
		fmt.Fprintf(&b, "🕒 Срок: %s\n", d.Deadline.Format("02.01.2006 15:04"))
	} else {
		b.WriteString("🕒 Срок: уточнит оператор\n")
	}
	if d.Phone != "" {
		fmt.Fprintf(&b, "📞 Телефон: %s\n", d.Phone)
	}
	if d.Notes != "" {
		fmt.Fprintf(&b, "💬 Пожелания: %s\n", d.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func commitSuccessText(code, what string, quantity int) string {
	return fmt.Sprintf(
		"✅ Заказ успешно создан!\n\n📋 Номер заказа: %s\n📝 Что печатать: %s\n🔢 Тираж: %s шт.\n\n📞 Наш оператор свяжется с вами для уточнения деталей и расчёта стоимости.\n💬 Связаться с оператором: /call_operator",
		code, what, formatThousands(quantity),
	)
}

func formatThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return s + " " + strings.Join(parts, " ")
}
