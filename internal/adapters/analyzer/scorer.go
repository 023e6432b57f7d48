package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/craftcv/craftcv-api/internal/domain/resume"
)

// Scoring weights per category. They sum to 100.
const (
	formattingWeight = 20.0
	contentWeight    = 30.0
	atsWeight        = 25.0
	skillsWeight     = 15.0
	summaryWeight    = 10.0
)

// The scorer never sees concrete structs: callers hand it an opaque content
// map (parsed resume JSON or client-supplied content) and section values are
// pulled with compiled JMESPath expressions.
var (
	exprName         = mustCompile("name")
	exprEmail        = mustCompile("email")
	exprSummary      = mustCompile("summary")
	exprSkills       = mustCompile("skills")
	exprEducation    = mustCompile("education")
	exprExperiences  = mustCompile("experiences")
	exprDurations    = mustCompile("experiences[].duration")
	exprTitles       = mustCompile("experiences[].title")
	exprCompanies    = mustCompile("experiences[].company")
	exprBulletLists  = mustCompile("experiences[].responsibilities")
	exprFlatBullets  = mustCompile("experiences[].responsibilities[]")
	exprDegrees      = mustCompile("education[].degree")
	exprInstitutions = mustCompile("education[].institution")
)

func mustCompile(expr string) jmespath.JMESPath {
	compiled, err := jmespath.Compile(expr)
	if err != nil {
		panic(fmt.Sprintf("compile jmespath %q: %v", expr, err))
	}
	return compiled
}

// contentView is the scorer's flattened read of the opaque content map.
type contentView struct {
	Name            string
	Email           string
	Summary         string
	Skills          []string
	EducationCount  int
	ExperienceCount int
	Durations       []string
	BulletLists     [][]string
	Bullets         []string
	Titles          []string
	Companies       []string
	Degrees         []string
	Institutions    []string
}

func newContentView(content map[string]any) contentView {
	return contentView{
		Name:            searchString(exprName, content),
		Email:           searchString(exprEmail, content),
		Summary:         searchString(exprSummary, content),
		Skills:          searchStrings(exprSkills, content),
		EducationCount:  searchLen(exprEducation, content),
		ExperienceCount: searchLen(exprExperiences, content),
		Durations:       searchStrings(exprDurations, content),
		BulletLists:     searchStringLists(exprBulletLists, content),
		Bullets:         searchStrings(exprFlatBullets, content),
		Titles:          searchStrings(exprTitles, content),
		Companies:       searchStrings(exprCompanies, content),
		Degrees:         searchStrings(exprDegrees, content),
		Institutions:    searchStrings(exprInstitutions, content),
	}
}

func searchString(expr jmespath.JMESPath, data any) string {
	v, err := expr.Search(data)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func searchStrings(expr jmespath.JMESPath, data any) []string {
	v, err := expr.Search(data)
	if err != nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func searchStringLists(expr jmespath.JMESPath, data any) [][]string {
	v, err := expr.Search(data)
	if err != nil {
		return nil
	}
	lists, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([][]string, 0, len(lists))
	for _, list := range lists {
		items, ok := list.([]any)
		if !ok {
			continue
		}
		var inner []string
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				inner = append(inner, s)
			}
		}
		out = append(out, inner)
	}
	return out
}

func searchLen(expr jmespath.JMESPath, data any) int {
	v, err := expr.Search(data)
	if err != nil {
		return 0
	}
	if items, ok := v.([]any); ok {
		return len(items)
	}
	return 0
}

// Scorer grades resume content across five weighted categories.
type Scorer struct{}

// NewScorer constructs a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score produces the full report for the supplied content map.
func (s *Scorer) Score(content map[string]any) *resume.ScoreReport {
	view := newContentView(content)

	var issues []resume.Issue

	formatting, formattingIssues := scoreFormatting(view)
	issues = append(issues, formattingIssues...)

	contentScore, contentIssues := scoreContentQuality(view)
	issues = append(issues, contentIssues...)

	ats, atsIssues := scoreATSOptimization(view)
	issues = append(issues, atsIssues...)

	skills, skillsIssues := scoreSkillsSection(view)
	issues = append(issues, skillsIssues...)

	summary, summaryIssues := scoreProfessionalSummary(view)
	issues = append(issues, summaryIssues...)

	overall := formatting + contentScore + ats + skills + summary

	return &resume.ScoreReport{
		Scores: resume.ScoreBreakdown{
			OverallScore:             overall,
			FormattingScore:          formatting,
			ContentQualityScore:      contentScore,
			ATSOptimizationScore:     ats,
			SkillsSectionScore:       skills,
			ProfessionalSummaryScore: summary,
		},
		Grade:       resume.Grade(overall),
		Issues:      issues,
		Suggestions: generateSuggestions(issues),
		Metadata:    extractMetadata(view),
	}
}

// scoreFormatting awards up to 20 points: date consistency 5, section
// presence 5, bullet structure 5, length 5.
func scoreFormatting(view contentView) (float64, []resume.Issue) {
	var score float64
	var issues []resume.Issue

	// Date consistency
	formats := detectDateFormats(view.Durations)
	switch {
	case len(formats) <= 1:
		score += 5.0
	case len(formats) == 2:
		score += 2.5
		issues = append(issues, resume.Issue{
			Category: "formatting",
			Severity: resume.SeverityMedium,
			Issue:    "Inconsistent date formats detected",
			Location: "Experience section",
			Example:  fmt.Sprintf("Mix of %s formats", strings.Join(formats, " and ")),
		})
	default:
		issues = append(issues, resume.Issue{
			Category: "formatting",
			Severity: resume.SeverityHigh,
			Issue:    "Multiple inconsistent date formats",
			Location: "Experience section",
			Example:  fmt.Sprintf("Found %d different date formats", len(formats)),
		})
	}

	// Section presence
	hasContact := view.Name != "" || view.Email != ""
	hasExperience := view.ExperienceCount > 0
	hasSkills := len(view.Skills) > 0
	hasEducation := view.EducationCount > 0
	present := countTrue(hasContact, hasExperience, hasSkills, hasEducation)
	score += float64(present) / 4 * 5.0

	if present < 4 {
		var missing []string
		if !hasContact {
			missing = append(missing, "contact info")
		}
		if !hasExperience {
			missing = append(missing, "experience")
		}
		if !hasSkills {
			missing = append(missing, "skills")
		}
		if !hasEducation {
			missing = append(missing, "education")
		}
		issues = append(issues, resume.Issue{
			Category: "formatting",
			Severity: resume.SeverityHigh,
			Issue:    fmt.Sprintf("Missing standard sections: %s", strings.Join(missing, ", ")),
			Location: "Overall structure",
		})
	}

	// Bullet structure
	if view.ExperienceCount > 0 {
		withoutBullets := view.ExperienceCount
		for _, bullets := range view.BulletLists {
			if len(bullets) > 0 {
				withoutBullets--
			}
		}
		switch {
		case withoutBullets == 0:
			score += 5.0
		case withoutBullets*2 <= view.ExperienceCount:
			score += 2.5
			issues = append(issues, resume.Issue{
				Category: "formatting",
				Severity: resume.SeverityMedium,
				Issue:    "Some experience entries lack bullet points",
				Location: "Experience section",
			})
		default:
			issues = append(issues, resume.Issue{
				Category: "formatting",
				Severity: resume.SeverityHigh,
				Issue:    "Most experience entries lack bullet points/descriptions",
				Location: "Experience section",
			})
		}
	} else {
		score += 2.5
	}

	// Length
	words := estimateWordCount(view)
	switch {
	case words >= 400 && words <= 800:
		score += 5.0
	case (words >= 300 && words < 400) || (words > 800 && words <= 1000):
		score += 3.0
		issues = append(issues, resume.Issue{
			Category: "formatting",
			Severity: resume.SeverityLow,
			Issue:    fmt.Sprintf("Resume length could be optimized (estimated %d words)", words),
			Location: "Overall",
			Example:  "Aim for 400-800 words for 1-2 pages",
		})
	case words < 300:
		score += 1.0
		issues = append(issues, resume.Issue{
			Category: "formatting",
			Severity: resume.SeverityHigh,
			Issue:    fmt.Sprintf("Resume appears too short (estimated %d words)", words),
			Location: "Overall",
		})
	default:
		score += 2.0
		issues = append(issues, resume.Issue{
			Category: "formatting",
			Severity: resume.SeverityMedium,
			Issue:    fmt.Sprintf("Resume may be too long (estimated %d words)", words),
			Location: "Overall",
			Example:  "Consider condensing to 1-2 pages",
		})
	}

	return score, issues
}

var dateFormatPatterns = []struct {
	label string
	match func(string) bool
}{
	{"YYYY-YYYY", func(s string) bool { return yearRangeRe.MatchString(s) }},
	{"Mon YYYY", func(s string) bool { return monthYearRe.MatchString(s) }},
	{"MM/YYYY", func(s string) bool { return slashYearRe.MatchString(s) }},
}

var (
	yearRangeRe = regexp.MustCompile(`\d{4}-\d{4}`)
	monthYearRe = regexp.MustCompile(`[A-Z][a-z]{2} \d{4}`)
	slashYearRe = regexp.MustCompile(`\d{1,2}/\d{4}`)
)

func detectDateFormats(durations []string) []string {
	seen := make(map[string]bool)
	var formats []string
	for _, d := range durations {
		for _, p := range dateFormatPatterns {
			if p.match(d) && !seen[p.label] {
				seen[p.label] = true
				formats = append(formats, p.label)
				break
			}
		}
	}
	return formats
}

// scoreContentQuality awards up to 30 points: action verbs 10, quantifiable
// achievements 10, pronoun avoidance 5, accomplishment depth 5.
func scoreContentQuality(view contentView) (float64, []resume.Issue) {
	var issues []resume.Issue

	if len(view.Bullets) == 0 {
		issues = append(issues, resume.Issue{
			Category: "content",
			Severity: resume.SeverityCritical,
			Issue:    "No bullet points found in experience section",
			Location: "Experience section",
		})
		return 5.0, issues
	}

	var score float64

	verbCount := 0
	for _, b := range view.Bullets {
		if resume.StartsWithActionVerb(b) {
			verbCount++
		}
	}
	verbRatio := float64(verbCount) / float64(len(view.Bullets))
	score += verbRatio * 10.0
	if verbRatio < 0.5 {
		issues = append(issues, resume.Issue{
			Category: "content",
			Severity: resume.SeverityHigh,
			Issue:    fmt.Sprintf("Only %d%% of bullet points start with strong action verbs", int(verbRatio*100)),
			Location: "Experience section",
			Example:  "Use verbs like: managed, coordinated, implemented, optimized",
		})
	}

	metricCount := 0
	for _, b := range view.Bullets {
		if resume.HasQuantifiableMetric(b) {
			metricCount++
		}
	}
	metricRatio := float64(metricCount) / float64(len(view.Bullets))
	score += metricRatio * 10.0
	if metricRatio < 0.3 {
		issues = append(issues, resume.Issue{
			Category: "content",
			Severity: resume.SeverityHigh,
			Issue:    fmt.Sprintf("Only %d%% of bullet points contain quantifiable achievements", int(metricRatio*100)),
			Location: "Experience section",
			Example:  "Add metrics like: 'Managed 15+ calendars', 'Reduced response time by 40%'",
		})
	}

	pronounCount := countPronouns(view.Bullets)
	switch {
	case pronounCount == 0:
		score += 5.0
	case pronounCount <= 2:
		score += 3.0
		issues = append(issues, resume.Issue{
			Category: "content",
			Severity: resume.SeverityLow,
			Issue:    fmt.Sprintf("Resume contains %d personal pronouns", pronounCount),
			Location: "Experience section",
			Example:  "Avoid 'I', 'my', 'we' - use direct action statements",
		})
	default:
		score += 1.0
		issues = append(issues, resume.Issue{
			Category: "content",
			Severity: resume.SeverityMedium,
			Issue:    fmt.Sprintf("Resume contains %d personal pronouns", pronounCount),
			Location: "Experience section",
			Example:  "Remove 'I', 'my', 'we' - start with action verbs directly",
		})
	}

	totalLen := 0
	for _, b := range view.Bullets {
		totalLen += len(b)
	}
	avgLen := float64(totalLen) / float64(len(view.Bullets))
	switch {
	case avgLen >= 80:
		score += 5.0
	case avgLen >= 50:
		score += 3.0
	case avgLen >= 30:
		score += 2.0
		issues = append(issues, resume.Issue{
			Category: "content",
			Severity: resume.SeverityMedium,
			Issue:    "Bullet points are too brief - add more detail about impact",
			Location: "Experience section",
			Example:  "Expand: 'Managed calendars' -> 'Managed 10+ executive calendars, optimizing scheduling efficiency by 40%'",
		})
	default:
		score += 1.0
		issues = append(issues, resume.Issue{
			Category: "content",
			Severity: resume.SeverityHigh,
			Issue:    "Bullet points are very brief and lack detail",
			Location: "Experience section",
		})
	}

	return score, issues
}

var pronouns = []string{"i ", "my ", "me ", "we ", "our ", "us "}

func countPronouns(bullets []string) int {
	text := strings.ToLower(strings.Join(bullets, " "))
	count := 0
	for _, p := range pronouns {
		count += strings.Count(text, p)
	}
	return count
}

// scoreATSOptimization awards up to 25 points: standard sections 10, keyword
// coverage 10, machine-readable structure 5.
func scoreATSOptimization(view contentView) (float64, []resume.Issue) {
	var score float64
	var issues []resume.Issue

	hasStandardSections := (view.Name != "" || view.Email != "") &&
		view.ExperienceCount > 0 &&
		len(view.Skills) > 0 &&
		view.EducationCount > 0
	if hasStandardSections {
		score += 10.0
	} else {
		score += 5.0
	}

	allText := keywordSearchText(view)
	matched := 0
	for _, kw := range resume.VAKeywords {
		if strings.Contains(allText, kw) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(resume.VAKeywords))
	score += ratio * 10.0

	switch {
	case ratio < 0.15:
		issues = append(issues, resume.Issue{
			Category: "ats",
			Severity: resume.SeverityCritical,
			Issue:    "Very few VA-specific keywords detected",
			Location: "Overall content",
			Example:  "Add keywords like: calendar management, administrative support, CRM, Asana, Google Workspace",
		})
	case ratio < 0.3:
		issues = append(issues, resume.Issue{
			Category: "ats",
			Severity: resume.SeverityHigh,
			Issue:    fmt.Sprintf("Only %d%% keyword coverage for VA roles", int(ratio*100)),
			Location: "Overall content",
			Example:  "Include more VA-specific terms and tools",
		})
	}

	// Parsed text carries no tables or graphics, so structure passes.
	score += 5.0

	return score, issues
}

func keywordSearchText(view contentView) string {
	parts := []string{view.Summary}
	parts = append(parts, view.Titles...)
	parts = append(parts, view.Bullets...)
	parts = append(parts, view.Skills...)
	return strings.ToLower(strings.Join(parts, " "))
}

// scoreSkillsSection awards up to 15 points: presence 5, breadth 5,
// VA relevance 5.
func scoreSkillsSection(view contentView) (float64, []resume.Issue) {
	var score float64
	var issues []resume.Issue

	if len(view.Skills) == 0 {
		issues = append(issues, resume.Issue{
			Category: "skills",
			Severity: resume.SeverityCritical,
			Issue:    "No skills section found",
			Location: "Skills section",
		})
		return score, issues
	}
	score += 5.0

	switch n := len(view.Skills); {
	case n >= 12:
		score += 5.0
	case n >= 8:
		score += 3.5
	case n >= 5:
		score += 2.0
		issues = append(issues, resume.Issue{
			Category: "skills",
			Severity: resume.SeverityMedium,
			Issue:    fmt.Sprintf("Only %d skills listed - aim for 10-15", n),
			Location: "Skills section",
			Example:  "Add more specific tools and software you're proficient in",
		})
	default:
		score += 1.0
		issues = append(issues, resume.Issue{
			Category: "skills",
			Severity: resume.SeverityHigh,
			Issue:    fmt.Sprintf("Very few skills listed (%d) - should have 10-15", n),
			Location: "Skills section",
		})
	}

	relevant := 0
	for _, skill := range view.Skills {
		lower := strings.ToLower(skill)
		for _, kw := range resume.VAKeywords {
			if strings.Contains(lower, kw) {
				relevant++
				break
			}
		}
	}
	relevance := float64(relevant) / float64(len(view.Skills))
	score += relevance * 5.0
	if relevance < 0.3 {
		issues = append(issues, resume.Issue{
			Category: "skills",
			Severity: resume.SeverityHigh,
			Issue:    fmt.Sprintf("Only %d%% of skills are VA-relevant", int(relevance*100)),
			Location: "Skills section",
			Example:  "Add VA-specific skills: Asana, Google Calendar, CRM tools, email management",
		})
	}

	return score, issues
}

// scoreProfessionalSummary awards up to 10 points: presence 3, length 4,
// keyword usage 3.
func scoreProfessionalSummary(view contentView) (float64, []resume.Issue) {
	var score float64
	var issues []resume.Issue

	summary := strings.TrimSpace(view.Summary)
	if summary == "" {
		issues = append(issues, resume.Issue{
			Category: "summary",
			Severity: resume.SeverityHigh,
			Issue:    "No professional summary found",
			Location: "Summary section",
			Example:  "Add a 2-3 sentence summary highlighting your VA experience and key strengths",
		})
		return score, issues
	}
	score += 3.0

	words := len(strings.Fields(summary))
	switch {
	case words >= 40 && words <= 100:
		score += 4.0
	case (words >= 25 && words < 40) || (words > 100 && words <= 150):
		score += 2.5
		issues = append(issues, resume.Issue{
			Category: "summary",
			Severity: resume.SeverityLow,
			Issue:    fmt.Sprintf("Summary length could be optimized (%d words)", words),
			Location: "Summary section",
			Example:  "Aim for 40-100 words (2-3 sentences)",
		})
	case words < 25:
		score += 1.0
		issues = append(issues, resume.Issue{
			Category: "summary",
			Severity: resume.SeverityMedium,
			Issue:    fmt.Sprintf("Summary is too brief (%d words)", words),
			Location: "Summary section",
		})
	default:
		score += 2.0
		issues = append(issues, resume.Issue{
			Category: "summary",
			Severity: resume.SeverityMedium,
			Issue:    fmt.Sprintf("Summary is too long (%d words)", words),
			Location: "Summary section",
			Example:  "Condense to 2-3 impactful sentences",
		})
	}

	lower := strings.ToLower(summary)
	keywordCount := 0
	for _, kw := range resume.VAKeywords {
		if strings.Contains(lower, kw) {
			keywordCount++
		}
	}
	switch {
	case keywordCount >= 3:
		score += 3.0
	case keywordCount >= 2:
		score += 2.0
	case keywordCount >= 1:
		score += 1.0
		issues = append(issues, resume.Issue{
			Category: "summary",
			Severity: resume.SeverityMedium,
			Issue:    "Summary lacks VA-specific keywords",
			Location: "Summary section",
			Example:  "Include terms like: virtual assistant, administrative support, calendar management",
		})
	default:
		issues = append(issues, resume.Issue{
			Category: "summary",
			Severity: resume.SeverityHigh,
			Issue:    "Summary has no VA-specific keywords",
			Location: "Summary section",
		})
	}

	return score, issues
}

// generateSuggestions derives prioritized fixes from the issue list.
func generateSuggestions(issues []resume.Issue) []resume.Suggestion {
	var suggestions []resume.Suggestion

	issueContains := func(substr string) bool {
		for _, i := range issues {
			if strings.Contains(strings.ToLower(i.Issue), substr) {
				return true
			}
		}
		return false
	}
	severeCategoryPresent := func(category string) bool {
		for _, i := range issues {
			if i.Category == category && (i.Severity == resume.SeverityCritical || i.Severity == resume.SeverityHigh) {
				return true
			}
		}
		return false
	}
	categoryPresent := func(category string) bool {
		for _, i := range issues {
			if i.Category == category {
				return true
			}
		}
		return false
	}

	if issueContains("quantifiable achievements") {
		suggestions = append(suggestions, resume.Suggestion{
			Category:   "content",
			Priority:   resume.PriorityCritical,
			Suggestion: "Add quantifiable metrics to demonstrate your impact",
			Examples: []string{
				"Managed 15+ executive calendars with 99% accuracy",
				"Reduced email response time by 45% through automation",
				"Coordinated travel for 20+ international trips annually",
			},
			Reasoning: "Numbers make your achievements concrete and memorable to recruiters",
		})
	}

	if issueContains("action verb") {
		suggestions = append(suggestions, resume.Suggestion{
			Category:   "content",
			Priority:   resume.PriorityHigh,
			Suggestion: "Start bullet points with strong action verbs",
			Examples: []string{
				"Coordinated", "Streamlined", "Optimized", "Managed", "Implemented",
			},
			Reasoning: "Action verbs make your resume more dynamic and results-oriented",
		})
	}

	if issueContains("keyword") {
		suggestions = append(suggestions, resume.Suggestion{
			Category:   "ats",
			Priority:   resume.PriorityCritical,
			Suggestion: "Optimize for ATS with VA-specific keywords",
			Examples: []string{
				"Administrative Support", "Calendar Management", "CRM (HubSpot, Salesforce)",
				"Project Management Tools (Asana, Monday.com)", "Google Workspace", "Data Entry",
			},
			Reasoning: "80% of resumes are filtered by ATS before human review",
		})
	}

	if categoryPresent("skills") {
		suggestions = append(suggestions, resume.Suggestion{
			Category:   "skills",
			Priority:   resume.PriorityHigh,
			Suggestion: "Expand your skills section with specific tools and platforms",
			Examples: []string{
				"Scheduling: Google Calendar, Calendly",
				"Communication: Slack, Zoom, Microsoft Teams",
				"Project Management: Asana, Trello, Monday.com",
				"CRM: HubSpot, Salesforce, Pipedrive",
			},
			Reasoning: "Specific tool proficiency helps you stand out and pass ATS filters",
		})
	}

	if severeCategoryPresent("summary") {
		suggestions = append(suggestions, resume.Suggestion{
			Category:   "summary",
			Priority:   resume.PriorityHigh,
			Suggestion: "Craft a compelling professional summary that hooks recruiters",
			Examples: []string{
				"Detail-oriented Virtual Assistant with 5+ years supporting C-suite executives",
				"Specialized in calendar optimization, reducing scheduling conflicts by 40%",
				"Proficient in Google Workspace, Asana, and HubSpot",
			},
			Reasoning: "Your summary is the first thing recruiters read - make it count",
		})
	}

	return suggestions
}

// extractMetadata reports structural facts observed during scoring.
func extractMetadata(view contentView) resume.AnalysisMetadata {
	words := estimateWordCount(view)

	var sections []string
	if view.Name != "" || view.Email != "" {
		sections = append(sections, "contact")
	}
	if view.Summary != "" {
		sections = append(sections, "summary")
	}
	if view.ExperienceCount > 0 {
		sections = append(sections, "experience")
	}
	if view.EducationCount > 0 {
		sections = append(sections, "education")
	}
	if len(view.Skills) > 0 {
		sections = append(sections, "skills")
	}

	hasVerbs := false
	hasMetrics := false
	for _, b := range view.Bullets {
		if resume.StartsWithActionVerb(b) {
			hasVerbs = true
		}
		if resume.HasQuantifiableMetric(b) {
			hasMetrics = true
		}
	}

	allText := keywordSearchText(view)
	density := make(map[string]int)
	for _, kw := range resume.VAKeywords {
		if count := strings.Count(allText, kw); count > 0 {
			density[kw] = count
		}
	}

	pages := 1
	if words >= 500 {
		pages = 2
	}

	return resume.AnalysisMetadata{
		WordCount:                  words,
		PageCount:                  pages,
		SectionsFound:              sections,
		HasActionVerbs:             hasVerbs,
		HasQuantifiableAchievement: hasMetrics,
		KeywordDensity:             density,
	}
}

func estimateWordCount(view contentView) int {
	parts := []string{view.Name, view.Email, view.Summary}
	parts = append(parts, view.Skills...)
	parts = append(parts, view.Titles...)
	parts = append(parts, view.Companies...)
	parts = append(parts, view.Bullets...)
	parts = append(parts, view.Degrees...)
	parts = append(parts, view.Institutions...)
	return len(strings.Fields(strings.Join(parts, " ")))
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
