package tokens

// ReportBudget holds the recommended limits enforced by the standalone token
// report (count-tokens). Exceeding a limit fails the report; crossing the
// warn fraction of a limit produces a warning.
type ReportBudget struct {
	SkillTokens     int
	SkillLines      int // recommended; warnings only
	SkillLinesHard  int
	ReferenceTokens int // per reference file
	ReferenceTotal  int
	TotalTokens     int
}

// ScoreBudget holds the limits used by the tokens scoring dimension. They are
// deliberately more lenient than ReportBudget: the report flags what should
// be trimmed, the score only punishes what must not ship.
type ScoreBudget struct {
	SkillTokensSoft int
	SkillTokensHard int
	SkillLinesSoft  int
	SkillLinesHard  int
	ReferenceTokens int
	ReferenceTotal  int
	TotalSoft       int
	TotalHard       int
}

// DefaultWarnThreshold is the fraction of a limit at which the report warns
const DefaultWarnThreshold = 0.8

// DefaultReportBudget is the budget used by Analyze.
var DefaultReportBudget = ReportBudget{
	SkillTokens:     5000,
	SkillLines:      500,
	SkillLinesHard:  1000,
	ReferenceTokens: 2000,
	ReferenceTotal:  10000,
	TotalTokens:     15000,
}

// DefaultScoreBudget is the budget used by the tokens scoring dimension.
var DefaultScoreBudget = ScoreBudget{
	SkillTokensSoft: 5000,
	SkillTokensHard: 10000,
	SkillLinesSoft:  500,
	SkillLinesHard:  1000,
	ReferenceTokens: 4000,
	ReferenceTotal:  20000,
	TotalSoft:       15000,
	TotalHard:       30000,
}
