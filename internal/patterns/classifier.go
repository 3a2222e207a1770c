// Package patterns classifies a user's expenses into fixed, variable, ant and
// impulsive groups using frequency, amount-variance and outlier heuristics.
//
// Classify is pure: it performs no I/O and never fails. Thresholds and keyword
// lists come from a Rules value (see DefaultRules and LoadRules).
package patterns

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"moni/internal/core"
)

const uncategorized = "Sin categoría"

// TransactionRef is the view of an input transaction carried in the output.
type TransactionRef struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category,omitempty"`
}

// Bucket is one of the four classification groups.
type Bucket[T any] struct {
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Expenses   []T     `json:"expenses"`
}

type FixedExpense struct {
	Concept          string           `json:"concept"`
	Description      string           `json:"description"`
	Category         string           `json:"category,omitempty"`
	AverageAmount    float64          `json:"averageAmount"`
	Occurrences      int              `json:"occurrences"`
	MonthsPresent    int              `json:"monthsPresent"`
	LastDate         time.Time        `json:"lastDate"`
	ConsistencyScore float64          `json:"consistencyScore"`
	Transactions     []TransactionRef `json:"transactions"`
}

type VariableExpense struct {
	Concept        string           `json:"concept"`
	Description    string           `json:"description"`
	Category       string           `json:"category,omitempty"`
	AverageMonthly float64          `json:"averageMonthly"`
	MinMonthly     float64          `json:"minMonthly"`
	MaxMonthly     float64          `json:"maxMonthly"`
	Occurrences    int              `json:"occurrences"`
	MonthsPresent  int              `json:"monthsPresent"`
	Variance       float64          `json:"variance"`
	Transactions   []TransactionRef `json:"transactions"`
}

type AntCategory struct {
	Category     string           `json:"category"`
	TotalSpent   float64          `json:"totalSpent"`
	Average      float64          `json:"average"`
	Count        int              `json:"count"`
	Transactions []TransactionRef `json:"transactions"`
}

type ImpulsiveExpense struct {
	TransactionRef
	DeviationFromAvg float64 `json:"deviationFromAvg"`
}

// Result is the full classification of one expense window.
type Result struct {
	Fixed     Bucket[FixedExpense]     `json:"fixed"`
	Variable  Bucket[VariableExpense]  `json:"variable"`
	Ant       Bucket[AntCategory]      `json:"ant"`
	Impulsive Bucket[ImpulsiveExpense] `json:"impulsive"`

	WindowStart  time.Time `json:"windowStart"`
	WindowEnd    time.Time `json:"windowEnd"`
	WindowTotal  float64   `json:"windowTotal"`
	RulesVersion string    `json:"rulesVersion"`
}

// expense is an input transaction prepared for the detectors.
type expense struct {
	tx      core.Transaction
	amount  float64
	concept string
	month   string
}

// Classify buckets the expenses of txs that fall in the lookback window ending at now.
// Income, non-positive amounts and excluded descriptions are ignored.
func Classify(txs []core.Transaction, now time.Time, rules Rules) Result {
	start := WindowStart(now, rules.LookbackMonths)
	antStart := WindowStart(now, rules.AntWindowMonths)

	window := prepare(txs, start, startOfDay(now).AddDate(0, 0, 1), rules.keywords(RuleExclude))

	var antWindow []expense
	for _, e := range window {
		if !e.tx.Date.Before(antStart) {
			antWindow = append(antWindow, e)
		}
	}

	windowTotal := sumExpenses(window)
	antTotal := sumExpenses(antWindow)

	res := Result{
		Fixed:        detectFixed(window, rules),
		Variable:     detectVariable(window, rules),
		Ant:          detectAnt(antWindow, rules),
		Impulsive:    detectImpulsive(window, rules),
		WindowStart:  start,
		WindowEnd:    now,
		WindowTotal:  core.Round2(windowTotal),
		RulesVersion: rules.Version,
	}
	res.Fixed.Percentage = core.Percent(res.Fixed.Total, windowTotal)
	res.Variable.Percentage = core.Percent(res.Variable.Total, windowTotal)
	res.Impulsive.Percentage = core.Percent(res.Impulsive.Total, windowTotal)
	res.Ant.Percentage = core.Percent(res.Ant.Total, antTotal)
	return res
}

// WindowStart returns midnight of the first day of a window covering the last
// months calendar months, and never fewer than 30 days per month.
func WindowStart(now time.Time, months int) time.Time {
	start := now.AddDate(0, -months, 0)
	if days := now.AddDate(0, 0, -30*months); days.Before(start) {
		start = days
	}
	return startOfDay(start)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// prepare keeps the expenses dated in [start, end).
func prepare(txs []core.Transaction, start, end time.Time, exclude []string) []expense {
	out := make([]expense, 0, len(txs))
	for _, t := range txs {
		if !t.IsExpense() || !t.Amount.IsPositive() {
			continue
		}
		if t.Date.Before(start) || !t.Date.Before(end) {
			continue
		}
		concept := Normalize(t.Description)
		if containsAny(concept, exclude) {
			continue
		}
		out = append(out, expense{
			tx:      t,
			amount:  core.Float(t.Amount),
			concept: concept,
			month:   t.Date.Format("2006-01"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].tx.Date.Before(out[j].tx.Date) })
	return out
}

func detectFixed(window []expense, rules Rules) Bucket[FixedExpense] {
	observed := map[string]struct{}{}
	byKey := map[string][]expense{}
	months := map[string]map[string]struct{}{}
	for _, e := range window {
		observed[e.month] = struct{}{}
		key := e.concept + "|" + formatRounded(e.amount)
		byKey[key] = append(byKey[key], e)
		if months[key] == nil {
			months[key] = map[string]struct{}{}
		}
		months[key][e.month] = struct{}{}
	}

	bucket := Bucket[FixedExpense]{Expenses: []FixedExpense{}}
	minMonths := math.Max(float64(rules.FixedMinMonths), rules.FixedMinMonthShare*float64(len(observed)))
	for key, group := range byKey {
		present := len(months[key])
		if float64(present) < minMonths {
			continue
		}
		amounts := amountsOf(group)
		m := mean(amounts)
		sd := math.Sqrt(variance(amounts, m))
		if m <= 0 || sd >= rules.FixedMaxCV*m {
			continue
		}
		last := group[len(group)-1]
		bucket.Expenses = append(bucket.Expenses, FixedExpense{
			Concept:          last.concept,
			Description:      last.tx.Description,
			Category:         last.tx.CategoryName,
			AverageAmount:    core.Round2(m),
			Occurrences:      len(group),
			MonthsPresent:    present,
			LastDate:         last.tx.Date,
			ConsistencyScore: core.Round2((1 - core.SafeRatio(sd, m)) * 100),
			Transactions:     refs(group),
		})
		bucket.Total += sumExpenses(group)
		bucket.Count += len(group)
	}
	sort.Slice(bucket.Expenses, func(i, j int) bool {
		a, b := bucket.Expenses[i], bucket.Expenses[j]
		if a.AverageAmount != b.AverageAmount {
			return a.AverageAmount > b.AverageAmount
		}
		return a.Concept < b.Concept
	})
	bucket.Total = core.Round2(bucket.Total)
	return bucket
}

func detectVariable(window []expense, rules Rules) Bucket[VariableExpense] {
	keywords := rules.keywords(RuleVariable)
	byConcept := map[string][]expense{}
	for _, e := range window {
		if containsAny(e.concept, keywords) || containsAny(Normalize(e.tx.CategoryName), keywords) {
			byConcept[e.concept] = append(byConcept[e.concept], e)
		}
	}

	bucket := Bucket[VariableExpense]{Expenses: []VariableExpense{}}
	for concept, group := range byConcept {
		monthly := map[string]float64{}
		for _, e := range group {
			monthly[e.month] += e.amount
		}
		if len(monthly) < rules.VariableMinMonths {
			continue
		}
		totals := make([]float64, 0, len(monthly))
		for _, v := range monthly {
			totals = append(totals, v)
		}
		m := mean(totals)
		v := variance(totals, m)
		if v <= rules.VariableMinVarianceRatio*m {
			continue
		}
		minM, maxM := totals[0], totals[0]
		for _, t := range totals[1:] {
			minM = math.Min(minM, t)
			maxM = math.Max(maxM, t)
		}
		last := group[len(group)-1]
		bucket.Expenses = append(bucket.Expenses, VariableExpense{
			Concept:        concept,
			Description:    last.tx.Description,
			Category:       last.tx.CategoryName,
			AverageMonthly: core.Round2(m),
			MinMonthly:     core.Round2(minM),
			MaxMonthly:     core.Round2(maxM),
			Occurrences:    len(group),
			MonthsPresent:  len(monthly),
			Variance:       core.Round2(v),
			Transactions:   refs(group),
		})
		bucket.Total += sumExpenses(group)
		bucket.Count += len(group)
	}
	sort.Slice(bucket.Expenses, func(i, j int) bool {
		a, b := bucket.Expenses[i], bucket.Expenses[j]
		if a.AverageMonthly != b.AverageMonthly {
			return a.AverageMonthly > b.AverageMonthly
		}
		return a.Concept < b.Concept
	})
	bucket.Total = core.Round2(bucket.Total)
	return bucket
}

func detectAnt(window []expense, rules Rules) Bucket[AntCategory] {
	byCategory := map[string][]expense{}
	for _, e := range window {
		if e.amount > 0 && e.amount < rules.AntMaxAmount {
			cat := strings.TrimSpace(e.tx.CategoryName)
			if cat == "" {
				cat = uncategorized
			}
			byCategory[cat] = append(byCategory[cat], e)
		}
	}

	bucket := Bucket[AntCategory]{Expenses: []AntCategory{}}
	for cat, group := range byCategory {
		total := sumExpenses(group)
		bucket.Expenses = append(bucket.Expenses, AntCategory{
			Category:     cat,
			TotalSpent:   core.Round2(total),
			Average:      core.Round2(core.SafeRatio(total, float64(len(group)))),
			Count:        len(group),
			Transactions: refs(group),
		})
		bucket.Total += total
		bucket.Count += len(group)
	}
	sort.Slice(bucket.Expenses, func(i, j int) bool {
		a, b := bucket.Expenses[i], bucket.Expenses[j]
		if a.TotalSpent != b.TotalSpent {
			return a.TotalSpent > b.TotalSpent
		}
		return a.Category < b.Category
	})
	bucket.Total = core.Round2(bucket.Total)
	return bucket
}

func detectImpulsive(window []expense, rules Rules) Bucket[ImpulsiveExpense] {
	bucket := Bucket[ImpulsiveExpense]{Expenses: []ImpulsiveExpense{}}
	if len(window) == 0 {
		return bucket
	}
	amounts := amountsOf(window)
	m := mean(amounts)
	sd := math.Sqrt(variance(amounts, m))
	threshold := math.Max(m+rules.ImpulsiveStdDevs*sd, m*rules.ImpulsiveMeanMultiple)

	byConcept := map[string][]expense{}
	for _, e := range window {
		if e.amount > threshold {
			byConcept[e.concept] = append(byConcept[e.concept], e)
		}
	}
	for _, group := range byConcept {
		if len(group) > rules.ImpulsiveMaxOccurrences {
			continue
		}
		for _, e := range group {
			bucket.Expenses = append(bucket.Expenses, ImpulsiveExpense{
				TransactionRef:   ref(e),
				DeviationFromAvg: core.Round2(core.SafeRatio(e.amount-m, m) * 100),
			})
			bucket.Total += e.amount
			bucket.Count++
		}
	}
	sort.Slice(bucket.Expenses, func(i, j int) bool {
		a, b := bucket.Expenses[i], bucket.Expenses[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.ID < b.ID
	})
	bucket.Total = core.Round2(bucket.Total)
	return bucket
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// formatRounded keys fixed-expense groups by amount rounded to the unit.
func formatRounded(x float64) string {
	return strconv.FormatInt(int64(math.Round(x)), 10)
}

func refs(group []expense) []TransactionRef {
	out := make([]TransactionRef, len(group))
	for i, e := range group {
		out[i] = ref(e)
	}
	return out
}

func ref(e expense) TransactionRef {
	return TransactionRef{
		ID:          e.tx.ID,
		Description: e.tx.Description,
		Amount:      e.amount,
		Date:        e.tx.Date,
		Category:    e.tx.CategoryName,
	}
}
