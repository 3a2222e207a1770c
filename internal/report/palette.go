package report

// Palettes are indexed by category insertion order and wrap around.
var (
	incomePalette = []string{
		"#15803d", "#16a34a", "#22c55e", "#4ade80", "#86efac",
		"#065f46", "#047857", "#10b981", "#34d399", "#6ee7b7",
	}
	expensePalette = []string{
		"#b91c1c", "#dc2626", "#ef4444", "#f97316", "#fb923c",
		"#ea580c", "#c2410c", "#f87171", "#fdba74", "#9a3412",
	}
	mixedPalette = []string{
		"#2563eb", "#16a34a", "#dc2626", "#f59e0b", "#7c3aed",
		"#0891b2", "#db2777", "#65a30d", "#ea580c", "#475569",
	}
)

// Palette returns the name and colors used for a report type.
func Palette(t Type) (string, []string) {
	switch t {
	case TypeIncome:
		return "income", incomePalette
	case TypeExpense:
		return "expense", expensePalette
	default:
		return "mixed", mixedPalette
	}
}

func colorAt(palette []string, i int) string {
	return palette[i%len(palette)]
}
