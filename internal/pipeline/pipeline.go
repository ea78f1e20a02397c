package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bharatcrest/hrmatcher/internal/cache"
	"github.com/bharatcrest/hrmatcher/internal/ingestion"
	"github.com/bharatcrest/hrmatcher/internal/mailbox"
	"github.com/bharatcrest/hrmatcher/internal/models"
	"github.com/bharatcrest/hrmatcher/internal/resume"
	"github.com/bharatcrest/hrmatcher/internal/scoring"
)

// State names a stage of a matching run
type State string

const (
	StateFetching   State = "FETCHING"
	StateExtracting State = "EXTRACTING"
	StateScoring    State = "SCORING"
	StateRanked     State = "RANKED"
	StateFailed     State = "FAILED"
)

// Progress is a coarse, advisory status snapshot of a run. External
// callers poll it; it is never used for control flow.
type Progress struct {
	RunID   string `json:"run_id"`
	State   State  `json:"state"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// ProgressFunc is called on every progress update
type ProgressFunc func(Progress)

// MailFetcher retrieves resume attachments from a mailbox
type MailFetcher interface {
	Fetch(cfg models.MailboxConfig, opts mailbox.FetchOptions) ([]models.FetchedAttachment, error)
}

// DocumentExtractor converts a file into plain text
type DocumentExtractor interface {
	Extract(path string) (string, error)
}

// ResumeLister enumerates resume files already on disk
type ResumeLister interface {
	ListResumes() ([]string, error)
}

// Pipeline orchestrates fetch, extraction, scoring, and ranking. A single
// run is strictly sequential; independent runs may execute concurrently
// and share only the result cache.
type Pipeline struct {
	fetcher MailFetcher
	docs    DocumentExtractor
	attrs   resume.Extractor
	lister  ResumeLister
	cache   cache.ResultCache
	log     *zap.Logger

	fetchLimit int

	mu         sync.RWMutex
	statuses   map[string]Progress
	progressCb ProgressFunc
}

// New creates a pipeline. fetchLimit bounds mailbox fetches to the N most
// recent candidate messages; zero means unbounded.
func New(fetcher MailFetcher, docs DocumentExtractor, attrs resume.Extractor, lister ResumeLister, resultCache cache.ResultCache, fetchLimit int, log *zap.Logger) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		docs:       docs,
		attrs:      attrs,
		lister:     lister,
		cache:      resultCache,
		fetchLimit: fetchLimit,
		log:        log,
		statuses:   make(map[string]Progress),
	}
}

// SetProgressCallback registers a callback invoked on progress updates
func (p *Pipeline) SetProgressCallback(cb ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progressCb = cb
}

// Status returns the latest progress snapshot for a run
func (p *Pipeline) Status(runID string) (Progress, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	progress, ok := p.statuses[runID]
	return progress, ok
}

func (p *Pipeline) report(progress Progress) {
	p.mu.Lock()
	p.statuses[progress.RunID] = progress
	cb := p.progressCb
	p.mu.Unlock()

	if cb != nil {
		cb(progress)
	}
}

// MatchMailbox fetches resumes from the mailbox and scores them with the
// ATS strategy. A fetch failure aborts the whole run: partial mailbox
// state is not safe to continue from, so no partial results are returned.
func (p *Pipeline) MatchMailbox(ctx context.Context, runID string, job models.JobRequirement, mailCfg models.MailboxConfig, window mailbox.DateWindow) ([]models.CandidateResult, error) {
	p.report(Progress{RunID: runID, State: StateFetching, Message: "fetching resumes from mailbox"})

	attachments, err := p.fetcher.Fetch(mailCfg, mailbox.FetchOptions{
		Window: window,
		Limit:  p.fetchLimit,
	})
	if err != nil {
		p.report(Progress{RunID: runID, State: StateFailed, Message: err.Error()})
		return nil, fmt.Errorf("mailbox fetch failed: %w", err)
	}

	files := make([]string, len(attachments))
	for i, att := range attachments {
		files[i] = att.Path
	}

	return p.processFiles(ctx, runID, job, files, p.atsScore)
}

// MatchDirectory scores resumes already present on disk with the weighted
// 50/50 strategy, without touching the mailbox
func (p *Pipeline) MatchDirectory(ctx context.Context, runID string, job models.JobRequirement) ([]models.CandidateResult, error) {
	files, err := p.lister.ListResumes()
	if err != nil {
		p.report(Progress{RunID: runID, State: StateFailed, Message: err.Error()})
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}

	return p.processFiles(ctx, runID, job, files, p.weightedScore)
}

// scoreFunc scores one extracted resume against the job requirement
type scoreFunc func(text string, attrs models.CandidateAttributes, job models.JobRequirement) (float64, []string, []string)

func (p *Pipeline) weightedScore(_ string, attrs models.CandidateAttributes, job models.JobRequirement) (float64, []string, []string) {
	score := scoring.CalculateMatchScore(attrs.Skills, job.Skills, job.MinExperience, attrs.ExperienceYears)
	return score.Total, score.MatchedSkills, score.MissingSkills
}

func (p *Pipeline) atsScore(text string, _ models.CandidateAttributes, job models.JobRequirement) (float64, []string, []string) {
	score := scoring.CalculateATSScore(text, scoring.ATSRequirements{
		RequiredSkills: job.Skills,
		MinExperience:  job.MinExperience,
		TitleKeywords:  titleKeywords(job.Position),
	})
	return score.Total, score.MatchedSkills, score.MissingSkills
}

// processFiles runs extract and score for each file with per-file error
// isolation, then ranks the results and publishes them to the cache
func (p *Pipeline) processFiles(ctx context.Context, runID string, job models.JobRequirement, files []string, score scoreFunc) ([]models.CandidateResult, error) {
	total := len(files)
	var results []models.CandidateResult

	for i, path := range files {
		base := filepath.Base(path)
		p.report(Progress{
			RunID: runID, State: StateExtracting,
			Current: i + 1, Total: total,
			Message: base,
		})

		text, err := p.docs.Extract(path)
		if err != nil {
			if errors.Is(err, ingestion.ErrUnsupportedFormat) {
				p.log.Debug("skipping unsupported file", zap.String("path", path))
			} else {
				p.log.Warn("extraction error, skipping file",
					zap.String("path", path), zap.Error(err))
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			p.log.Warn("no text extracted, skipping file", zap.String("path", path))
			continue
		}

		p.report(Progress{
			RunID: runID, State: StateScoring,
			Current: i + 1, Total: total,
			Message: base,
		})

		attrs, err := p.attrs.Extract(ctx, text, job.Skills)
		if err != nil {
			p.log.Warn("attribute extraction failed, skipping file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		if attrs.Name == "" || attrs.Name == models.UnknownCandidate {
			attrs.Name = strings.TrimSuffix(base, filepath.Ext(base))
		}

		rawScore, matched, missing := score(text, attrs, job)
		finalScore := scoring.ApplyPriority(rawScore, job.Priority)

		// Zero matched skills is a hard filter, not a scoring penalty. A
		// requirement with no skill list ranks on the other components, so
		// the filter only applies when there were skills to match.
		if len(job.Skills) > 0 && len(matched) == 0 {
			p.log.Info("candidate excluded: no matched skills",
				zap.String("file", base))
			continue
		}

		results = append(results, models.CandidateResult{
			CandidateAttributes: attrs,
			Score:               finalScore,
			MatchedSkills:       matched,
			MissingSkills:       missing,
			SourceFile:          base,
			Matched:             finalScore >= job.MinScore,
		})
	}

	// Rank by score descending; ties keep discovery order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if err := p.cache.Put(ctx, job.ID, models.NewMatchReport(job, results)); err != nil {
		p.log.Error("failed to publish results to cache",
			zap.String("job_requirement_id", job.ID), zap.Error(err))
	}

	p.report(Progress{
		RunID: runID, State: StateRanked,
		Current: total, Total: total,
		Message: fmt.Sprintf("%d candidates ranked", len(results)),
	})
	p.log.Info("matching run complete",
		zap.String("run_id", runID),
		zap.String("job_requirement_id", job.ID),
		zap.Int("processed", total),
		zap.Int("ranked", len(results)))

	return results, nil
}

// titleKeywords lowercases the position name into its component keywords
func titleKeywords(position string) []string {
	return strings.Fields(strings.ToLower(position))
}
