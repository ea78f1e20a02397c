package resume

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bharatcrest/hrmatcher/internal/models"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "title-cased line wins",
			text: "John Doe\nSoftware developer with 5 years experience",
			want: "John Doe",
		},
		{
			name: "three word name",
			text: "Mary Jane Watson\nsome text",
			want: "Mary Jane Watson",
		},
		{
			name: "resume heading is skipped",
			text: "My Resume\nJohn Doe\nmore text",
			want: "John Doe",
		},
		{
			name: "curriculum vitae heading is skipped",
			text: "Curriculum Vitae\nname: jane smith\nbody",
			want: "jane smith",
		},
		{
			name: "name label fallback",
			text: "some lowercase intro\nName: alice johnson\nmore",
			want: "alice johnson",
		},
		{
			name: "full name label",
			text: "intro line here lowercase\nFull Name: bob brown",
			want: "bob brown",
		},
		{
			name: "first non-empty line fallback",
			text: "\n\nall lowercase first line\nanother line",
			want: "all lowercase first line",
		},
		{
			name: "empty text",
			text: "",
			want: models.UnknownCandidate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractName(tt.text); got != tt.want {
				t.Errorf("ExtractName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain address", "Contact: john.doe@example.com or call", "john.doe@example.com"},
		{"subdomain", "mail me at j-d@mail.example.co.uk today", "j-d@mail.example.co.uk"},
		{"absent", "no contact information here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractEmail(tt.text); got != tt.want {
				t.Errorf("ExtractEmail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"north american dashes", "Phone: 555-123-4567", "555-123-4567"},
		{"north american with country code", "call +1 555 123 4567 now", "+1 555 123 4567"},
		{"parenthesized area code", "(555) 123-4567", "(555) 123-4567"},
		{"absent", "no phone listed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPhone(tt.text); got != tt.want {
				t.Errorf("ExtractPhone() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractExperience_ExplicitPatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"years experience", "I have 5 years experience in Go", 5},
		{"years of experience", "7 years of experience", 7},
		{"yrs abbreviation", "3 yrs experience with AWS", 3},
		{"experience label", "Experience: 4 years", 4},
		{"plus years", "10+ years building systems", 10},
		{"nothing found", "a resume with no dates at all", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractExperience(tt.text); got != tt.want {
				t.Errorf("ExtractExperience() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractExperience_DateRanges(t *testing.T) {
	r := &RuleBased{now: func() time.Time {
		return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	}}

	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "closed range",
			text: "Developer at ABC\nJan 2020 - Jan 2023\nbuilt things",
			want: 3.0,
		},
		{
			name: "present maps to now",
			text: "Engineer\nJun 2020 - Present",
			want: 5.0,
		},
		{
			name: "two ranges summed",
			text: "Jan 2020 - Jan 2021\nJan 2022 - Jan 2024",
			want: 3.0,
		},
		{
			name: "only first three ranges count",
			text: "Jan 2010 - Jan 2011\nJan 2012 - Jan 2013\nJan 2014 - Jan 2015\nJan 2016 - Jan 2020",
			want: 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.extractExperience(tt.text)
			// Day-span conversion wobbles around leap years; allow a
			// tenth either side.
			if got < tt.want-0.1 || got > tt.want+0.1 {
				t.Errorf("extractExperience() = %v, want ~%v", got, tt.want)
			}
		})
	}
}

func TestMatchSkills(t *testing.T) {
	text := "Experienced with PYTHON, aws, and Docker Compose deployments"

	t.Run("exact matches preserve requested casing", func(t *testing.T) {
		got := MatchSkills(text, []string{"Python", "AWS", "Kubernetes"})
		want := []string{"Python", "AWS"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("MatchSkills() = %v, want %v", got, want)
		}
	})

	t.Run("partial pass only when exact pass is empty", func(t *testing.T) {
		got := MatchSkills("worked with compose files", []string{"Docker Compose"})
		want := []string{"Docker Compose"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("MatchSkills() = %v, want %v", got, want)
		}
	})

	t.Run("short words are ignored in partial pass", func(t *testing.T) {
		if got := MatchSkills("jobs and css here", []string{"CSS Grid Pro"}); got != nil {
			t.Errorf("MatchSkills() = %v, want nil (css is too short to match)", got)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		if got := MatchSkills(text, []string{"Rust", "Scala"}); got != nil {
			t.Errorf("MatchSkills() = %v, want nil", got)
		}
	})
}

func TestSkillsSection(t *testing.T) {
	text := `John Doe

Skills:
- Python
- Django, SQL
- Python

Experience:
Software Developer at ABC`

	got := SkillsSection(text)
	want := []string{"Python", "Django", "SQL"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SkillsSection() = %v, want %v", got, want)
	}
}

func TestSkillsSection_Absent(t *testing.T) {
	if got := SkillsSection("a resume without the section"); got != nil {
		t.Errorf("SkillsSection() = %v, want nil", got)
	}
}

func TestExtractEducation(t *testing.T) {
	text := `Education
Bachelor of Science in Computer Science
MBA from State University
PhD in progress
MSc Data Science
unrelated line`

	got := ExtractEducation(text)
	if len(got) != 3 {
		t.Fatalf("expected at most 3 education lines, got %d: %v", len(got), got)
	}
	if got[0] != "Bachelor of Science in Computer Science" {
		t.Errorf("first education line = %q", got[0])
	}
}

func TestExtractEducation_WholeWordOnly(t *testing.T) {
	// "microsoft" contains "ms" but must not match as a degree.
	if got := ExtractEducation("worked at microsoft on problems"); got != nil {
		t.Errorf("ExtractEducation() = %v, want nil", got)
	}
}

func TestRuleBased_Extract(t *testing.T) {
	text := `John Doe
Software Developer
john.doe@example.com
555-123-4567

5 years experience

Skills:
- Python
- AWS

Bachelor of Science in Computer Science`

	attrs, err := NewRuleBased().Extract(context.Background(), text, []string{"Python", "AWS", "Go"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if attrs.Name != "John Doe" {
		t.Errorf("Name = %q, want John Doe", attrs.Name)
	}
	if attrs.Email != "john.doe@example.com" {
		t.Errorf("Email = %q", attrs.Email)
	}
	if attrs.ExperienceYears != 5 {
		t.Errorf("ExperienceYears = %v, want 5", attrs.ExperienceYears)
	}
	if want := []string{"Python", "AWS"}; !reflect.DeepEqual(attrs.Skills, want) {
		t.Errorf("Skills = %v, want %v", attrs.Skills, want)
	}
	if len(attrs.Education) != 1 {
		t.Errorf("Education = %v, want one line", attrs.Education)
	}
}

// fakeGenerator returns a canned response or error
type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	return f.response, f.err
}

func TestAssisted_FallsBackOnError(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("quota exceeded")}
	assisted := NewAssisted(gen, NewRuleBased(), testLogger())

	text := "John Doe\n5 years experience\nknows Python well"
	attrs, err := assisted.Extract(context.Background(), text, []string{"Python"})
	if err != nil {
		t.Fatalf("Extract() error = %v, fallback must not propagate failures", err)
	}
	if attrs.Name != "John Doe" {
		t.Errorf("Name = %q, want rule-based result", attrs.Name)
	}
	if attrs.ExperienceYears != 5 {
		t.Errorf("ExperienceYears = %v, want 5", attrs.ExperienceYears)
	}
}

func TestAssisted_FallsBackOnMalformedResponse(t *testing.T) {
	gen := &fakeGenerator{response: "sorry, I cannot help with that"}
	assisted := NewAssisted(gen, NewRuleBased(), testLogger())

	attrs, err := assisted.Extract(context.Background(), "Jane Roe\nknows AWS", []string{"AWS"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if attrs.Name != "Jane Roe" {
		t.Errorf("Name = %q, want rule-based result", attrs.Name)
	}
}

func TestAssisted_FiltersSkillsToRequested(t *testing.T) {
	gen := &fakeGenerator{response: `Here you go:
{"name": "Jane Roe", "email": "jane@example.com", "phone": "", "skills": ["python", "Haskell"], "experience": 4}`}
	assisted := NewAssisted(gen, NewRuleBased(), testLogger())

	attrs, err := assisted.Extract(context.Background(), "irrelevant", []string{"Python", "AWS"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if want := []string{"Python"}; !reflect.DeepEqual(attrs.Skills, want) {
		t.Errorf("Skills = %v, want %v (requested casing, allow-list enforced)", attrs.Skills, want)
	}
	if attrs.Name != "Jane Roe" {
		t.Errorf("Name = %q", attrs.Name)
	}
	if attrs.ExperienceYears != 4 {
		t.Errorf("ExperienceYears = %v, want 4", attrs.ExperienceYears)
	}
}

func TestAssisted_NegativeExperienceClamped(t *testing.T) {
	gen := &fakeGenerator{response: `{"name": "X Y", "skills": [], "experience": -3}`}
	assisted := NewAssisted(gen, NewRuleBased(), testLogger())

	attrs, err := assisted.Extract(context.Background(), "text", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if attrs.ExperienceYears != 0 {
		t.Errorf("ExperienceYears = %v, want 0", attrs.ExperienceYears)
	}
}
