package models

import (
	"fmt"
	"strings"
	"time"
)

// UnknownCandidate is the name recorded when no candidate name could be
// extracted from a resume.
const UnknownCandidate = "Unknown Candidate"

// JobRequirement represents a job profile candidates are matched against
type JobRequirement struct {
	ID            string   `json:"id"`
	Position      string   `json:"position"`
	Skills        []string `json:"skills"`
	MinExperience int      `json:"min_experience"`
	MinScore      float64  `json:"min_score"`
	Priority      string   `json:"priority,omitempty"` // high, medium, low
}

// ParseSkills splits a comma-separated skills string into a trimmed list
func ParseSkills(s string) []string {
	var skills []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			skills = append(skills, trimmed)
		}
	}
	return skills
}

// Protocol identifies the direction a mailbox configuration is used for
type Protocol string

const (
	ProtocolRetrieval Protocol = "imap"
	ProtocolSending   Protocol = "smtp"
)

// MailboxConfig holds resolved mail server settings. It is supplied by an
// external configuration collaborator and held only for the duration of a
// single fetch; it is never persisted by the pipeline.
type MailboxConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"-"`
	UseTLS   bool     `json:"use_tls"`
	Protocol Protocol `json:"protocol"`
}

// Addr returns the host:port dial address, defaulting to the IMAPS port
func (c MailboxConfig) Addr() string {
	port := c.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// FetchedAttachment records a resume attachment saved during a mailbox fetch.
// It exists only between fetch and extraction; the retention sweep deletes
// the underlying file independently of any matching run.
type FetchedAttachment struct {
	Path       string    `json:"path"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
}

// CandidateAttributes holds the attributes extracted from one resume
type CandidateAttributes struct {
	Name            string   `json:"name"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Skills          []string `json:"skills"`
	ExperienceYears float64  `json:"experience_years"`
	Education       []string `json:"education,omitempty"`
}

// CandidateResult represents the evaluation of one resume against one job
// requirement. Results are immutable once created; re-running a match
// produces a fresh result set rather than updating prior ones.
type CandidateResult struct {
	CandidateAttributes
	Score         float64  `json:"score"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	SourceFile    string   `json:"source_file"`
	Matched       bool     `json:"matched"`
}

// MatchReport is the ranked output of a completed pipeline run
type MatchReport struct {
	JobRequirementID string            `json:"job_requirement_id"`
	Position         string            `json:"position"`
	Candidates       []CandidateResult `json:"candidates"`
	Timestamp        string            `json:"timestamp"`
}

// NewMatchReport assembles a report around an already-ranked candidate list
func NewMatchReport(job JobRequirement, candidates []CandidateResult) MatchReport {
	return MatchReport{
		JobRequirementID: job.ID,
		Position:         job.Position,
		Candidates:       candidates,
		Timestamp:        time.Now().Format(time.RFC3339),
	}
}
