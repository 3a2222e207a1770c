package report

import (
	"context"
	"fmt"
	"strings"

	"moni/internal/ai"
)

// FallbackCommentary replaces the AI text when it cannot be produced.
const FallbackCommentary = "No fue posible generar el análisis automático en este momento. " +
	"Revisa el desglose por categoría para identificar tus principales movimientos y oportunidades de ahorro."

const systemPrompt = "Eres un asesor financiero personal. Responde en español, en un tono cercano y profesional, " +
	"sin usar listas ni formato markdown."

// Completer produces text from a chat conversation.
type Completer interface {
	Complete(ctx context.Context, messages []ai.Message) (string, error)
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// PeriodLabel returns "marzo 2024" or "año 2024".
func PeriodLabel(r Request) string {
	if r.Month == 0 {
		return fmt.Sprintf("año %d", r.Year)
	}
	return fmt.Sprintf("%s %d", spanishMonths[r.Month-1], r.Year)
}

// Prompt builds the user message sent for the commentary.
func Prompt(r Request, s Summary, money func(float64) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Escribe un análisis breve (máximo 3 oraciones) del reporte de %s de %s.\n",
		typeNoun(r.Type), PeriodLabel(r))
	fmt.Fprintf(&b, "Ingresos totales: %s.\n", money(floatOf(s.IncomeTotal)))
	fmt.Fprintf(&b, "Gastos totales: %s.\n", money(floatOf(s.ExpenseTotal)))
	fmt.Fprintf(&b, "Balance: %s.\n", money(floatOf(s.Balance)))
	if len(s.Categories) > 0 {
		top := s.Categories
		if len(top) > 3 {
			top = top[:3]
		}
		parts := make([]string, len(top))
		for i, c := range top {
			parts[i] = fmt.Sprintf("%s (%s, %.1f%%)", c.Name, money(floatOf(c.Total)), c.Percentage)
		}
		fmt.Fprintf(&b, "Principales categorías: %s.\n", strings.Join(parts, ", "))
	}
	b.WriteString("Incluye una observación sobre el comportamiento y una recomendación concreta.")
	return b.String()
}

func typeNoun(t Type) string {
	switch t {
	case TypeIncome:
		return "ingresos"
	case TypeExpense:
		return "gastos"
	default:
		return "movimientos"
	}
}
