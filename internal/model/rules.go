package model

// RuleKind enumerates the closed set of data-quality rule kinds.
type RuleKind string

const (
	RuleCount     RuleKind = "count_threshold"
	RuleNullRatio RuleKind = "null_ratio"
	RuleRange     RuleKind = "value_range"
)

// Severity tiers a rule outcome. Only critical failures flip the overall
// report verdict.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// CountParams configures a count-threshold rule. When Distinct names a
// field, the measured value is the number of distinct values of that field
// instead of the total record count.
type CountParams struct {
	Distinct string `json:"distinct,omitempty"`
	Min      int    `json:"min"`
}

// NullRatioParams configures a null-ratio rule: fraction of records with a
// null value in Field must be <= Max.
type NullRatioParams struct {
	Field string  `json:"field"`
	Max   float64 `json:"max"`
}

// RangeParams configures a value-range rule: the count of records whose
// Field lies outside [Min, Max] must be <= Tolerance. Null values are not
// counted as out of range.
type RangeParams struct {
	Field     string  `json:"field"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Tolerance int     `json:"tolerance"`
}

// DQRule is a named check. Exactly one parameter payload is set, matching
// Kind. The rule set is static per pipeline version, never derived from
// data.
type DQRule struct {
	Name      string           `json:"name"`
	Kind      RuleKind         `json:"kind"`
	Severity  Severity         `json:"severity"`
	Count     *CountParams     `json:"count,omitempty"`
	NullRatio *NullRatioParams `json:"null_ratio,omitempty"`
	Range     *RangeParams     `json:"range,omitempty"`
}

// RuleResult is the per-rule outcome inside a DQReport.
type RuleResult struct {
	Rule      string   `json:"rule"`
	Kind      RuleKind `json:"kind"`
	Severity  Severity `json:"severity"`
	Measured  float64  `json:"measured"`
	Threshold float64  `json:"threshold"`
	Passed    bool     `json:"passed"`
}

// DQReport is the per-run quality verdict. Passed is false iff at least one
// critical rule failed.
type DQReport struct {
	RunID   string       `json:"run_id"`
	Results []RuleResult `json:"results"`
	Passed  bool         `json:"passed"`
}

// FailedRules returns the results that did not pass, regardless of severity.
func (r DQReport) FailedRules() []RuleResult {
	var failed []RuleResult
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}
