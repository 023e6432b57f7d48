package analyzer

import (
	"regexp"
	"strings"

	"github.com/craftcv/craftcv-api/internal/domain/resume"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

// Section parsing is regex-driven: resumes are close enough to plain text
// that header detection plus a handful of anchored expressions covers the
// common layouts. Anything we cannot extract stays empty; a resume with no
// recognizable structure at all is a permanent failure, never synthetic
// placeholder content.

var (
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe    = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	locationRe = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*,\s*(?:[A-Z]{2}|[A-Z][a-z]+)`)
	linkedinRe = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/in/[\w-]+`)

	summaryHeaderRe    = regexp.MustCompile(`(?is)(?:summary|profile|objective|about)[:\s]+(.+?)(?:\n\s*\n|\n[A-Z][A-Z\s]+:|\n(?:EXPERIENCE|EDUCATION|SKILLS|CERTIFICATIONS)|\z)`)
	experienceHeaderRe = regexp.MustCompile(`(?is)(?:EXPERIENCE|WORK HISTORY|EMPLOYMENT|PROFESSIONAL EXPERIENCE)[:\s]*(.+?)(?:EDUCATION|SKILLS|CERTIFICATIONS|PROJECTS|\z)`)
	educationHeaderRe  = regexp.MustCompile(`(?is)(?:EDUCATION|ACADEMIC|QUALIFICATION)[:\s]*(.+?)(?:EXPERIENCE|SKILLS|CERTIFICATIONS|PROJECTS|\z)`)
	skillsHeaderRe     = regexp.MustCompile(`(?is)(?:SKILLS|TECHNICAL SKILLS|CORE COMPETENCIES)[:\s]*(.+?)(?:EXPERIENCE|EDUCATION|CERTIFICATIONS|PROJECTS|\z)`)

	durationRe = regexp.MustCompile(`\d{4}\s*[-–]\s*(?:\d{4}|Present)|[A-Za-z]+\s+\d{4}\s*[-–]\s*(?:[A-Za-z]+\s+\d{4}|Present)`)
	yearRe     = regexp.MustCompile(`[A-Za-z]+\s+\d{4}|\d{4}`)
	gpaRe      = regexp.MustCompile(`(?i)GPA[:\s]*([0-9.]+)`)

	blankLineSplitRe = regexp.MustCompile(`\n\s*\n`)
	skillsSplitRe    = regexp.MustCompile(`[,•\-\n|]`)
)

const (
	maxExperiences       = 5
	maxBulletsPerEntry   = 8
	maxEducationEntries  = 3
	maxSkills            = 25
	maxSummaryLength     = 500
	minParsedTextLength  = 30
	bulletVerbWindowSize = 30
)

var bulletMarkers = []string{"•", "-", "–", "◦", "*"}

// inlineBulletVerbs recognise narrative bullets that carry no marker.
var inlineBulletVerbs = []string{
	"led", "managed", "developed", "created", "improved", "increased",
	"reduced", "achieved", "delivered", "implemented", "designed",
}

// ParseResumeText parses raw resume text into structured content.
func ParseResumeText(text string) (*resume.ParsedResume, error) {
	text = strings.TrimSpace(text)
	if len(text) < minParsedTextLength {
		return nil, apperrors.Permanent("resume text too short to parse")
	}

	lines := nonEmptyLines(text)

	parsed := &resume.ParsedResume{
		Name:        extractName(lines),
		Email:       firstMatch(emailRe, text),
		Phone:       firstMatch(phoneRe, text),
		Location:    firstMatch(locationRe, text),
		LinkedIn:    firstMatch(linkedinRe, text),
		Summary:     extractSummary(text),
		Experiences: extractExperiences(text),
		Education:   extractEducation(text),
		Skills:      extractSkills(text),
		RawText:     text,
	}

	if !hasAnyStructure(parsed) {
		return nil, apperrors.Permanent("no recognizable resume structure found")
	}
	return parsed, nil
}

func hasAnyStructure(p *resume.ParsedResume) bool {
	return p.Email != "" ||
		p.Summary != "" ||
		len(p.Experiences) > 0 ||
		len(p.Education) > 0 ||
		len(p.Skills) > 0
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func firstMatch(re *regexp.Regexp, text string) string {
	return re.FindString(text)
}

// extractName treats the first line as the candidate name when it looks like
// one: two to four words and no contact punctuation.
func extractName(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	first := lines[0]
	words := strings.Fields(first)
	if len(words) < 2 || len(words) > 4 {
		return ""
	}
	if strings.ContainsAny(first, "@|•") {
		return ""
	}
	return first
}

func extractSummary(text string) string {
	m := summaryHeaderRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	summary := strings.TrimSpace(m[1])
	if len(summary) > maxSummaryLength {
		summary = summary[:maxSummaryLength]
	}
	return summary
}

func extractExperiences(text string) []resume.Experience {
	m := experienceHeaderRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var experiences []resume.Experience
	for _, entry := range blankLineSplitRe.Split(m[1], -1) {
		if len(experiences) >= maxExperiences {
			break
		}
		if len(strings.TrimSpace(entry)) < 30 {
			continue
		}
		lines := nonEmptyLines(entry)
		if len(lines) < 2 {
			continue
		}

		exp := resume.Experience{
			Title:    lines[0],
			Company:  lines[1],
			Duration: durationRe.FindString(entry),
		}

		for _, line := range lines[2:] {
			if bullet, ok := parseBullet(line); ok {
				exp.Responsibilities = append(exp.Responsibilities, bullet)
				if len(exp.Responsibilities) >= maxBulletsPerEntry {
					break
				}
			}
		}

		experiences = append(experiences, exp)
	}
	return experiences
}

func parseBullet(line string) (string, bool) {
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimLeft(line, "•-–◦* ")), true
		}
	}
	// Narrative bullets: long enough and led by an action verb.
	if len(line) > 20 {
		window := strings.ToLower(line)
		if len(window) > bulletVerbWindowSize {
			window = window[:bulletVerbWindowSize]
		}
		for _, verb := range inlineBulletVerbs {
			if strings.Contains(window, verb) {
				return line, true
			}
		}
	}
	return "", false
}

func extractEducation(text string) []resume.Education {
	m := educationHeaderRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var education []resume.Education
	for _, entry := range blankLineSplitRe.Split(m[1], -1) {
		if len(education) >= maxEducationEntries {
			break
		}
		if len(strings.TrimSpace(entry)) < 15 {
			continue
		}
		lines := nonEmptyLines(entry)
		if len(lines) == 0 {
			continue
		}

		edu := resume.Education{
			Degree: lines[0],
			Dates:  yearRe.FindString(entry),
		}
		if len(lines) > 1 {
			edu.Institution = lines[1]
		}
		if gpa := gpaRe.FindStringSubmatch(entry); gpa != nil {
			edu.GPA = gpa[1]
		}

		education = append(education, edu)
	}
	return education
}

func extractSkills(text string) []string {
	m := skillsHeaderRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	seen := make(map[string]bool)
	var skills []string
	for _, raw := range skillsSplitRe.Split(m[1], -1) {
		skill := strings.TrimSpace(raw)
		if len(skill) < 3 || len(skill) > 100 {
			continue
		}
		key := strings.ToLower(skill)
		if seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, skill)
		if len(skills) >= maxSkills {
			break
		}
	}
	return skills
}
