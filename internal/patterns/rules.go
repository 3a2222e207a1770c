package patterns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// RuleKind tags a keyword rule with the detector that consumes it.
type RuleKind string

const (
	// RuleVariable marks a keyword that makes a transaction a variable-expense candidate.
	RuleVariable RuleKind = "variable"
	// RuleExclude marks a keyword whose transactions are ignored by every detector.
	RuleExclude RuleKind = "exclude"
)

// KeywordRule is one entry of the rule table.
type KeywordRule struct {
	Kind    RuleKind `mapstructure:"kind" json:"kind"`
	Keyword string   `mapstructure:"keyword" json:"keyword"`
}

// Rules holds every threshold and keyword list used by the classifier.
type Rules struct {
	Version string `mapstructure:"version" json:"version"`

	// LookbackMonths is the window for fixed, variable and impulsive detection.
	LookbackMonths int `mapstructure:"lookback_months" json:"lookbackMonths"`

	FixedMinMonthShare float64 `mapstructure:"fixed_min_month_share" json:"fixedMinMonthShare"`
	FixedMinMonths     int     `mapstructure:"fixed_min_months" json:"fixedMinMonths"`
	FixedMaxCV         float64 `mapstructure:"fixed_max_cv" json:"fixedMaxCV"`

	VariableMinMonths        int     `mapstructure:"variable_min_months" json:"variableMinMonths"`
	VariableMinVarianceRatio float64 `mapstructure:"variable_min_variance_ratio" json:"variableMinVarianceRatio"`

	AntWindowMonths int     `mapstructure:"ant_window_months" json:"antWindowMonths"`
	AntMaxAmount    float64 `mapstructure:"ant_max_amount" json:"antMaxAmount"`

	ImpulsiveStdDevs        float64 `mapstructure:"impulsive_std_devs" json:"impulsiveStdDevs"`
	ImpulsiveMeanMultiple   float64 `mapstructure:"impulsive_mean_multiple" json:"impulsiveMeanMultiple"`
	ImpulsiveMaxOccurrences int     `mapstructure:"impulsive_max_occurrences" json:"impulsiveMaxOccurrences"`

	Keywords []KeywordRule `mapstructure:"keywords" json:"keywords"`
}

// defaultVariableKeywords covers groceries, transport, utilities and delivery.
var defaultVariableKeywords = []string{
	// groceries
	"super", "supermercado", "walmart", "soriana", "chedraui", "costco", "sams",
	"bodega aurrera", "la comer", "despensa", "mercado", "grocery", "groceries",
	// transport
	"uber", "didi", "gasolina", "gas", "pemex", "transporte", "metro", "taxi",
	"estacionamiento", "caseta", "fuel",
	// utilities
	"luz", "cfe", "agua", "telmex", "izzi", "totalplay", "internet", "telefono",
	"utilities",
	// delivery
	"rappi", "uber eats", "didi food", "sin delantal", "delivery", "comida",
}

// DefaultRules returns the built-in rule table.
func DefaultRules() Rules {
	kw := make([]KeywordRule, 0, len(defaultVariableKeywords))
	for _, k := range defaultVariableKeywords {
		kw = append(kw, KeywordRule{Kind: RuleVariable, Keyword: k})
	}
	return Rules{
		Version:                  "2024.1",
		LookbackMonths:           6,
		FixedMinMonthShare:       0.5,
		FixedMinMonths:           2,
		FixedMaxCV:               0.10,
		VariableMinMonths:        2,
		VariableMinVarianceRatio: 0.15,
		AntWindowMonths:          1,
		AntMaxAmount:             200,
		ImpulsiveStdDevs:         3,
		ImpulsiveMeanMultiple:    5,
		ImpulsiveMaxOccurrences:  2,
		Keywords:                 kw,
	}
}

// Validate checks that every threshold is usable.
func (r Rules) Validate() error {
	var errs []string
	if r.LookbackMonths < 1 {
		errs = append(errs, fmt.Sprintf("lookback_months %d: must be at least 1", r.LookbackMonths))
	}
	if r.FixedMinMonthShare < 0 || r.FixedMinMonthShare > 1 {
		errs = append(errs, fmt.Sprintf("fixed_min_month_share %v: must be within [0, 1]", r.FixedMinMonthShare))
	}
	if r.FixedMinMonths < 1 {
		errs = append(errs, fmt.Sprintf("fixed_min_months %d: must be at least 1", r.FixedMinMonths))
	}
	if r.FixedMaxCV <= 0 {
		errs = append(errs, fmt.Sprintf("fixed_max_cv %v: must be positive", r.FixedMaxCV))
	}
	if r.VariableMinMonths < 1 {
		errs = append(errs, fmt.Sprintf("variable_min_months %d: must be at least 1", r.VariableMinMonths))
	}
	if r.VariableMinVarianceRatio < 0 {
		errs = append(errs, fmt.Sprintf("variable_min_variance_ratio %v: must not be negative", r.VariableMinVarianceRatio))
	}
	if r.AntWindowMonths < 1 || r.AntWindowMonths > r.LookbackMonths {
		errs = append(errs, fmt.Sprintf("ant_window_months %d: must be between 1 and lookback_months", r.AntWindowMonths))
	}
	if r.AntMaxAmount <= 0 {
		errs = append(errs, fmt.Sprintf("ant_max_amount %v: must be positive", r.AntMaxAmount))
	}
	if r.ImpulsiveStdDevs <= 0 || r.ImpulsiveMeanMultiple <= 0 {
		errs = append(errs, "impulsive thresholds must be positive")
	}
	if r.ImpulsiveMaxOccurrences < 1 {
		errs = append(errs, fmt.Sprintf("impulsive_max_occurrences %d: must be at least 1", r.ImpulsiveMaxOccurrences))
	}
	for i, k := range r.Keywords {
		if k.Kind != RuleVariable && k.Kind != RuleExclude {
			errs = append(errs, fmt.Sprintf("keywords[%d]: unknown kind %q", i, k.Kind))
		}
		if strings.TrimSpace(k.Keyword) == "" {
			errs = append(errs, fmt.Sprintf("keywords[%d]: empty keyword", i))
		}
	}
	if len(errs) > 0 {
		return errors.New("invalid pattern rules:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// keywords returns the normalized keywords of the given kind.
func (r Rules) keywords(kind RuleKind) []string {
	var out []string
	for _, k := range r.Keywords {
		if k.Kind == kind {
			if n := Normalize(k.Keyword); n != "" {
				out = append(out, n)
			}
		}
	}
	return out
}

// LoadRules reads a rule file (yaml, json or toml) on top of DefaultRules.
// Fields missing from the file keep their default value; a file without a
// keywords list keeps the default keywords.
func LoadRules(path string) (Rules, error) {
	def := DefaultRules()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("version", def.Version)
	v.SetDefault("lookback_months", def.LookbackMonths)
	v.SetDefault("fixed_min_month_share", def.FixedMinMonthShare)
	v.SetDefault("fixed_min_months", def.FixedMinMonths)
	v.SetDefault("fixed_max_cv", def.FixedMaxCV)
	v.SetDefault("variable_min_months", def.VariableMinMonths)
	v.SetDefault("variable_min_variance_ratio", def.VariableMinVarianceRatio)
	v.SetDefault("ant_window_months", def.AntWindowMonths)
	v.SetDefault("ant_max_amount", def.AntMaxAmount)
	v.SetDefault("impulsive_std_devs", def.ImpulsiveStdDevs)
	v.SetDefault("impulsive_mean_multiple", def.ImpulsiveMeanMultiple)
	v.SetDefault("impulsive_max_occurrences", def.ImpulsiveMaxOccurrences)

	if err := v.ReadInConfig(); err != nil {
		return Rules{}, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var r Rules
	if err := v.Unmarshal(&r); err != nil {
		return Rules{}, fmt.Errorf("decode rules file %s: %w", path, err)
	}
	if len(r.Keywords) == 0 {
		r.Keywords = def.Keywords
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}
