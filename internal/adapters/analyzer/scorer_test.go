package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftcv/craftcv-api/internal/domain/resume"
)

func strongResumeContent(t *testing.T) map[string]any {
	t.Helper()

	parsed := &resume.ParsedResume{
		Name:    "Jane Smith",
		Email:   "jane@example.com",
		Summary: "Detail-oriented virtual assistant with over five years of experience delivering administrative support and calendar coordination for busy distributed executive teams. Skilled in email triage, travel planning, and CRM upkeep, with a record of streamlining scheduling workflows and keeping shared inboxes at zero each day without fail.",
		Experiences: []resume.Experience{
			{
				Title:    "Executive Assistant",
				Company:  "Acme Corp",
				Duration: "Jan 2020 - Present",
				Responsibilities: []string{
					"Managed 15+ executive calendars across multiple regions, cutting scheduling conflicts by 40% quarter over quarter",
					"Coordinated travel and expense management for 20+ international trips annually, saving $18,000 in vendor fees",
				},
			},
			{
				Title:    "Administrative Coordinator",
				Company:  "Bright Agency",
				Duration: "Mar 2016 - Dec 2019",
				Responsibilities: []string{
					"Implemented CRM hygiene routines in HubSpot, lifting data accuracy to 99% across 5,000 contact records",
					"Streamlined email workflows with shared reply templates, reducing average response times by 35% overall",
				},
			},
		},
		Education: []resume.Education{
			{Degree: "BA Communications", Institution: "State University", Dates: "2016"},
		},
		Skills: []string{
			"Calendar Management", "Email Management", "Data Entry", "CRM",
			"Asana", "Trello", "Slack", "Zoom", "Google Workspace",
			"Scheduling", "Invoicing", "Bookkeeping",
		},
	}

	content, err := contentMap(parsed)
	require.NoError(t, err)
	return content
}

func TestContentViewProjectsNestedFields(t *testing.T) {
	view := newContentView(map[string]any{
		"name":    "Jane Smith",
		"email":   "jane@example.com",
		"summary": "Virtual assistant.",
		"skills":  []any{"Asana", "Slack"},
		"experiences": []any{
			map[string]any{
				"title":            "Executive Assistant",
				"company":          "Acme Corp",
				"duration":         "Jan 2020 - Present",
				"responsibilities": []any{"Managed calendars", "Booked travel"},
			},
			map[string]any{
				"title":            "Coordinator",
				"company":          "Bright Agency",
				"duration":         "Mar 2016 - Dec 2019",
				"responsibilities": []any{"Filed expense reports"},
			},
		},
		"education": []any{
			map[string]any{"degree": "BA Communications", "institution": "State University"},
		},
	})

	assert.Equal(t, "Jane Smith", view.Name)
	assert.Equal(t, "jane@example.com", view.Email)
	assert.Equal(t, []string{"Asana", "Slack"}, view.Skills)
	assert.Equal(t, 2, view.ExperienceCount)
	assert.Equal(t, 1, view.EducationCount)
	assert.Equal(t, []string{"Executive Assistant", "Coordinator"}, view.Titles)
	assert.Equal(t, []string{"Jan 2020 - Present", "Mar 2016 - Dec 2019"}, view.Durations)
	assert.Equal(t, [][]string{{"Managed calendars", "Booked travel"}, {"Filed expense reports"}}, view.BulletLists)
	assert.Equal(t, []string{"Managed calendars", "Booked travel", "Filed expense reports"}, view.Bullets)
	assert.Equal(t, []string{"BA Communications"}, view.Degrees)
}

func TestScorerStrongResume(t *testing.T) {
	report := NewScorer().Score(strongResumeContent(t))

	assert.InDelta(t, 30.0, report.Scores.ContentQualityScore, 0.001)
	assert.InDelta(t, 15.0, report.Scores.SkillsSectionScore, 0.001)
	assert.InDelta(t, 10.0, report.Scores.ProfessionalSummaryScore, 0.001)
	assert.GreaterOrEqual(t, report.Scores.OverallScore, 85.0)
	assert.Equal(t, resume.Grade(report.Scores.OverallScore), report.Grade)

	sum := report.Scores.FormattingScore +
		report.Scores.ContentQualityScore +
		report.Scores.ATSOptimizationScore +
		report.Scores.SkillsSectionScore +
		report.Scores.ProfessionalSummaryScore
	assert.InDelta(t, sum, report.Scores.OverallScore, 0.001)

	meta := report.Metadata
	assert.ElementsMatch(t, []string{"contact", "summary", "experience", "education", "skills"}, meta.SectionsFound)
	assert.Equal(t, 1, meta.PageCount)
	assert.True(t, meta.HasActionVerbs)
	assert.True(t, meta.HasQuantifiableAchievement)
	assert.GreaterOrEqual(t, meta.KeywordDensity["asana"], 1)
}

func TestScorerEmptyContent(t *testing.T) {
	report := NewScorer().Score(map[string]any{})

	assert.InDelta(t, 23.5, report.Scores.OverallScore, 0.001)
	assert.Equal(t, "F", report.Grade)
	assert.InDelta(t, 0.0, report.Scores.SkillsSectionScore, 0.001)
	assert.InDelta(t, 5.0, report.Scores.ContentQualityScore, 0.001)
	assert.InDelta(t, 0.0, report.Scores.ProfessionalSummaryScore, 0.001)

	var severities []resume.Severity
	var categories []string
	for _, issue := range report.Issues {
		severities = append(severities, issue.Severity)
		categories = append(categories, issue.Category)
	}
	assert.Contains(t, severities, resume.SeverityCritical)
	assert.Contains(t, categories, "skills")
	assert.Contains(t, categories, "summary")
	assert.NotEmpty(t, report.Suggestions)
}

func TestScorerFlagsInconsistentDates(t *testing.T) {
	content := map[string]any{
		"name":  "Jane Smith",
		"email": "jane@example.com",
		"experiences": []any{
			map[string]any{"title": "Executive Assistant", "company": "Acme Corp", "duration": "Jan 2020 - Present"},
			map[string]any{"title": "Office Coordinator", "company": "Bright Agency", "duration": "2016-2019"},
		},
	}

	report := NewScorer().Score(content)

	found := false
	for _, issue := range report.Issues {
		if issue.Issue == "Inconsistent date formats detected" {
			found = true
			assert.Equal(t, resume.SeverityMedium, issue.Severity)
			assert.Equal(t, "formatting", issue.Category)
		}
	}
	assert.True(t, found, "expected a date format issue")
}

func TestGenerateSuggestions(t *testing.T) {
	issues := []resume.Issue{
		{Category: "content", Severity: resume.SeverityHigh, Issue: "Only 20% of bullet points contain quantifiable achievements"},
		{Category: "content", Severity: resume.SeverityHigh, Issue: "Only 30% of bullet points start with strong action verbs"},
		{Category: "ats", Severity: resume.SeverityCritical, Issue: "Very few VA-specific keywords detected"},
		{Category: "skills", Severity: resume.SeverityHigh, Issue: "Very few skills listed (3) - should have 10-15"},
		{Category: "summary", Severity: resume.SeverityHigh, Issue: "No professional summary found"},
	}

	suggestions := generateSuggestions(issues)
	require.Len(t, suggestions, 5)

	var got []string
	for _, s := range suggestions {
		got = append(got, s.Category+"/"+string(s.Priority))
	}
	assert.Contains(t, got, "content/critical")
	assert.Contains(t, got, "content/high")
	assert.Contains(t, got, "ats/critical")
	assert.Contains(t, got, "skills/high")
	assert.Contains(t, got, "summary/high")
}

func TestGenerateSuggestionsEmpty(t *testing.T) {
	assert.Empty(t, generateSuggestions(nil))
}
