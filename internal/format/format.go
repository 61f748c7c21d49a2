// Package format renders persisted orders into customer and operator
// facing texts. Everything here is a pure projection: no IO, no state.
package format

import (
	"fmt"
	"strings"

	"github.com/vrecdsxcdv/printbot/internal/models"
)

const timeLayout = "02.01.2006 15:04"

// Deadline renders the order deadline, or the agreed placeholder when the
// client left it to the operator.
func Deadline(o models.Order) string {
	if !o.DeadlineAt.Valid {
		return "уточнит оператор"
	}
	return o.DeadlineAt.Time.Format(timeLayout)
}

var laminationTitles = map[string]string{
	"":       "нет",
	"none":   "нет",
	"matte":  "мат",
	"glossy": "глянец",
}

func yesNo(v bool) string {
	if v {
		return "да"
	}
	return "нет"
}

func sidesTitle(s string) string {
	if s == "2" {
		return "Двусторонняя"
	}
	return "Односторонняя"
}

// specLines renders the production parameters shared by both card views,
// skipping fields the category never filled in.
func specLines(o models.Order) []string {
	var lines []string
	lines = append(lines, fmt.Sprintf("📦 Продукт: %s", o.WhatToPrint))
	lines = append(lines, fmt.Sprintf("📊 Тираж: %d шт", o.Quantity))

	if o.Format != "" {
		format := o.Format
		switch {
		case o.SheetFormat == "custom":
			format = "Пользовательский: " + o.CustomSize
		case o.SheetFormat != "":
			format = fmt.Sprintf("%s (%s мм)", o.SheetFormat, o.Format)
		}
		lines = append(lines, "📐 Формат: "+format)
	}
	if o.Sides != "" {
		lines = append(lines, "🖨️ Печать: "+sidesTitle(o.Sides))
	}
	if o.Paper != "" {
		lines = append(lines, "📄 Бумага: "+o.Paper)
	}
	if o.Material != "" {
		material := "Бумага"
		if o.Material == "vinyl" {
			material = "Винил"
		}
		lines = append(lines, "🪧 Материал: "+material)
	}
	if o.PrintColor != "" {
		color := "Цветная"
		if o.PrintColor == "bw" {
			color = "Ч/Б"
		}
		lines = append(lines, "🎨 Цветность: "+color)
	}
	if o.Lamination != "" && o.Lamination != "none" {
		lines = append(lines, "✨ Ламинация: "+laminationTitles[o.Lamination])
	}
	if o.CreaseCount > 0 {
		lines = append(lines, fmt.Sprintf("➖ Биговка: %d линий", o.CreaseCount))
	}
	if o.CornerRounding {
		lines = append(lines, "🔘 Скругление углов: "+yesNo(true))
	}
	lines = append(lines, "🕒 Срок: "+Deadline(o))
	if o.Notes != "" {
		lines = append(lines, "💬 Пожелания: "+o.Notes)
	}
	return lines
}

// CustomerCard renders the detailed order view shown to its owner.
func CustomerCard(o models.Order, attachments int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Заказ %s\n", o.Code)
	fmt.Fprintf(&b, "Статус: %s\n\n", o.Status.Label())
	b.WriteString(strings.Join(specLines(o), "\n"))
	fmt.Fprintf(&b, "\n📎 Макеты: %d файл(ов)", attachments)
	fmt.Fprintf(&b, "\n🗓 Создан: %s", o.CreatedAt.Format(timeLayout))
	return b.String()
}

// OperatorCard renders the full order view posted to the operator chat,
// including customer identity and contact.
func OperatorCard(o models.Order, u models.User, attachments int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 Заказ %s\n", o.Code)
	fmt.Fprintf(&b, "Статус: %s\n", o.Status.Label())
	if o.NeedsOperator {
		b.WriteString("📣 Клиент просит связаться!\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "👤 Клиент: %s\n", u.DisplayName())
	if o.Contact != "" {
		fmt.Fprintf(&b, "📞 Телефон: %s\n", o.Contact)
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(specLines(o), "\n"))
	fmt.Fprintf(&b, "\n📎 Макеты: %d файл(ов)", attachments)
	fmt.Fprintf(&b, "\n🗓 Создан: %s", o.CreatedAt.Format(timeLayout))
	return b.String()
}

// StatusLine renders one row of the paginated /status list.
func StatusLine(o models.Order) string {
	return fmt.Sprintf("%s · %s · %s, %d шт · %s",
		o.Code, o.Status.Label(), o.WhatToPrint, o.Quantity, o.CreatedAt.Format("02.01"))
}

// StatusPage renders a page of the customer's orders. page and pages are
// 1-based; a single page omits the footer.
func StatusPage(orders []models.Order, page, pages int) string {
	if len(orders) == 0 {
		return "У вас пока нет заказов. Нажмите «🖨 Сделать заказ», чтобы создать первый."
	}
	var b strings.Builder
	b.WriteString("📦 Ваши заказы:\n\n")
	for _, o := range orders {
		b.WriteString(StatusLine(o))
		b.WriteString("\n")
	}
	if pages > 1 {
		fmt.Fprintf(&b, "\nСтраница %d из %d", page, pages)
	}
	return strings.TrimRight(b.String(), "\n")
}

// StatusChanged renders the notification sent to the customer when an
// operator moves their order to a new status.
func StatusChanged(o models.Order) string {
	var hint string
	switch o.Status {
	case models.StatusInProgress:
		hint = "Мы приступили к вашему заказу."
	case models.StatusWaitingClient:
		hint = "Нужны правки по макету — оператор напишет детали."
	case models.StatusReady:
		hint = "Заказ готов, можно забирать!"
	case models.StatusCancelled:
		hint = "Заказ отменён. Если это ошибка, свяжитесь с нами: /call_operator"
	}
	s := fmt.Sprintf("📋 Заказ %s: %s", o.Code, o.Status.Label())
	if hint != "" {
		s += "\n" + hint
	}
	return s
}
