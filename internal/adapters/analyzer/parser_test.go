package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

const sampleResumeText = `Jane Smith
jane.smith@example.com | (555) 123-4567
Austin, TX
linkedin.com/in/janesmith

SUMMARY
Detail-oriented virtual assistant providing administrative support and calendar coordination for busy executive teams.

EXPERIENCE
Executive Assistant
Acme Corp
Jan 2020 - Present
• Managed 15+ executive calendars with 99% accuracy
• Coordinated travel for 20 international trips annually

Office Coordinator
Bright Agency
Mar 2016 - Dec 2019
• Implemented a new filing system reducing retrieval delays by 30%

EDUCATION
BA Communications
State University
GPA: 3.8

SKILLS
Google Workspace, Asana, Slack, Data Entry, Invoicing`

func TestParseResumeText(t *testing.T) {
	parsed, err := ParseResumeText(sampleResumeText)
	require.NoError(t, err)

	assert.Equal(t, "Jane Smith", parsed.Name)
	assert.Equal(t, "jane.smith@example.com", parsed.Email)
	assert.Equal(t, "(555) 123-4567", parsed.Phone)
	assert.Equal(t, "Austin, TX", parsed.Location)
	assert.Equal(t, "linkedin.com/in/janesmith", parsed.LinkedIn)
	assert.Contains(t, parsed.Summary, "virtual assistant")

	require.Len(t, parsed.Experiences, 2)
	first := parsed.Experiences[0]
	assert.Equal(t, "Executive Assistant", first.Title)
	assert.Equal(t, "Acme Corp", first.Company)
	assert.Equal(t, "Jan 2020 - Present", first.Duration)
	require.Len(t, first.Responsibilities, 2)
	assert.Equal(t, "Managed 15+ executive calendars with 99% accuracy", first.Responsibilities[0])

	second := parsed.Experiences[1]
	assert.Equal(t, "Office Coordinator", second.Title)
	assert.Equal(t, "Bright Agency", second.Company)
	assert.Equal(t, "Mar 2016 - Dec 2019", second.Duration)
	require.Len(t, second.Responsibilities, 1)

	require.Len(t, parsed.Education, 1)
	assert.Equal(t, "BA Communications", parsed.Education[0].Degree)
	assert.Equal(t, "State University", parsed.Education[0].Institution)
	assert.Equal(t, "3.8", parsed.Education[0].GPA)

	assert.Equal(t, []string{"Google Workspace", "Asana", "Slack", "Data Entry", "Invoicing"}, parsed.Skills)
	assert.NotEmpty(t, parsed.RawText)
}

func TestParseResumeTextTooShort(t *testing.T) {
	_, err := ParseResumeText("too short")
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
}

func TestParseResumeTextNoStructure(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 10)
	_, err := ParseResumeText(text)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
	assert.Contains(t, err.Error(), "no recognizable resume structure")
}

func TestParseBullet(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
		ok   bool
	}{
		{"marker bullet", "• Managed executive calendars", "Managed executive calendars", true},
		{"dash bullet", "- Coordinated vendor onboarding", "Coordinated vendor onboarding", true},
		{"narrative with verb", "Led a distributed support team of twelve", "Led a distributed support team of twelve", true},
		{"plain heading", "Acme Corp", "", false},
		{"short line", "Led team", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseBullet(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"two words", []string{"Jane Smith"}, "Jane Smith"},
		{"contains email", []string{"jane@example.com"}, ""},
		{"too many words", []string{"This Line Has Too Many Words"}, ""},
		{"single word", []string{"Resume"}, ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractName(tt.lines))
		})
	}
}
