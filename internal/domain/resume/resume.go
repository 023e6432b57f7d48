// Package resume defines the domain types shared by the analyze, improve, and
// generate collaborators.
package resume

import "time"

// Severity classifies how badly an issue hurts the resume.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Priority ranks suggestions for the caller.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Experience is a single work history entry extracted from a resume.
type Experience struct {
	Title            string   `json:"title,omitempty"`
	Company          string   `json:"company,omitempty"`
	Duration         string   `json:"duration,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

// Education is a single education entry extracted from a resume.
type Education struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Dates       string `json:"dates,omitempty"`
	GPA         string `json:"gpa,omitempty"`
}

// ParsedResume is the structured content extracted from raw resume text.
type ParsedResume struct {
	Name        string       `json:"name,omitempty"`
	Email       string       `json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Location    string       `json:"location,omitempty"`
	LinkedIn    string       `json:"linkedin,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Experiences []Experience `json:"experiences,omitempty"`
	Education   []Education  `json:"education,omitempty"`
	Skills      []string     `json:"skills,omitempty"`
	RawText     string       `json:"raw_text,omitempty"`
}

// ScoreBreakdown carries the weighted category scores: formatting 20, content
// quality 30, ATS optimization 25, skills 15, professional summary 10.
type ScoreBreakdown struct {
	OverallScore             float64 `json:"overall_score"`
	FormattingScore          float64 `json:"formatting_score"`
	ContentQualityScore      float64 `json:"content_quality_score"`
	ATSOptimizationScore     float64 `json:"ats_optimization_score"`
	SkillsSectionScore       float64 `json:"skills_section_score"`
	ProfessionalSummaryScore float64 `json:"professional_summary_score"`
}

// Grade maps an overall score to a letter grade band.
func Grade(overall float64) string {
	switch {
	case overall >= 95:
		return "A+"
	case overall >= 90:
		return "A"
	case overall >= 85:
		return "B+"
	case overall >= 80:
		return "B"
	case overall >= 75:
		return "C+"
	case overall >= 70:
		return "C"
	case overall >= 60:
		return "D"
	default:
		return "F"
	}
}

// Issue flags one concrete problem found during analysis.
type Issue struct {
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Issue    string   `json:"issue"`
	Location string   `json:"location,omitempty"`
	Example  string   `json:"example,omitempty"`
}

// Suggestion is an actionable fix derived from the issue list.
type Suggestion struct {
	Category   string   `json:"category"`
	Priority   Priority `json:"priority"`
	Suggestion string   `json:"suggestion"`
	Examples   []string `json:"examples,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// AnalysisMetadata carries structural facts observed during analysis.
type AnalysisMetadata struct {
	WordCount                  int            `json:"word_count"`
	PageCount                  int            `json:"page_count"`
	SectionsFound              []string       `json:"sections_found"`
	HasActionVerbs             bool           `json:"has_action_verbs"`
	HasQuantifiableAchievement bool           `json:"has_quantifiable_achievements"`
	KeywordDensity             map[string]int `json:"keyword_density"`
}

// ScoreReport is the result payload of an analyze job.
type ScoreReport struct {
	Scores      ScoreBreakdown   `json:"scores"`
	Grade       string           `json:"grade"`
	Issues      []Issue          `json:"issues"`
	Suggestions []Suggestion     `json:"suggestions"`
	Metadata    AnalysisMetadata `json:"metadata"`
	Content     *ParsedResume    `json:"content,omitempty"`
}

// Improvement kinds produced by improve jobs.
const (
	ImprovementBullet   = "bullet_point"
	ImprovementSummary  = "summary"
	ImprovementKeywords = "keywords"
)

// Improvement is one rewrite or addition suggested by an improve job.
type Improvement struct {
	Kind      string   `json:"kind"`
	Original  string   `json:"original,omitempty"`
	Improved  string   `json:"improved,omitempty"`
	Suggested []string `json:"suggested,omitempty"`
}

// ImprovementResult is the result payload of an improve job.
type ImprovementResult struct {
	Improvements           []Improvement `json:"improvements"`
	FocusAreas             []string      `json:"focus_areas"`
	EstimatedScoreIncrease float64       `json:"estimated_score_increase"`
}

// FileReference is the result payload of a generate job.
type FileReference struct {
	DocumentID  string    `json:"document_id"`
	TemplateID  string    `json:"template"`
	FileURL     string    `json:"file_url"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	GeneratedAt time.Time `json:"generated_at"`
}

// TemplateInfo describes one generation template for catalog listings.
type TemplateInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BestFor     []string `json:"best_for"`
	PreviewPath string   `json:"preview_path"`
}
