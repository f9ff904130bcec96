package insights

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// EventLogSynthesizer merges the five record streams of a repository into one
// chronologically ordered event log per evolution cycle. It holds only
// immutable inputs, so a single synthesizer can serve every cycle of its
// repository.
type EventLogSynthesizer struct {
	logger   *zap.SugaredLogger
	timeline *CommitTimeline
	commits  map[string]CommitRecord
}

// NewEventLogSynthesizer returns a synthesizer over the repository's ordered
// timeline and commit map.
func NewEventLogSynthesizer(timeline *CommitTimeline, commits map[string]CommitRecord, logger *zap.SugaredLogger) *EventLogSynthesizer {
	return &EventLogSynthesizer{
		logger:   logger,
		timeline: timeline,
		commits:  commits,
	}
}

// Synthesize produces the event log for one cycle. Records whose timestamp
// falls outside [cycle.Begin.Epoch, cycle.End.Epoch] are filtered out;
// records with a missing or unparsable timestamp are logged and skipped.
// The result is sorted ascending by timestamp, ties keeping the stream order
// issues, comments, events, commits, pull requests.
func (s *EventLogSynthesizer) Synthesize(cycle EvolutionCycle, issues []Issue, comments []Comment, events []Event, pullRequests []PullRequest) ([]EventLogEntry, error) {
	begin := cycle.Begin.Epoch
	end := cycle.End.Epoch
	if begin == 0 || end == 0 {
		return nil, fmt.Errorf("cycle window %s..%s is missing an epoch", cycle.Begin.Hash, cycle.End.Hash)
	}

	// Pull request commit attribution is resolved up front so the commit
	// stream below can skip commits a pull request already carries. A pull
	// request with an unusable timestamp gets no attribution at all: its
	// commits must stay in the commit stream instead of disappearing with
	// the skipped record.
	resolver := NewMergeRangeResolver(s.timeline, s.logger)
	attributed := make([][]string, len(pullRequests))
	for i, pr := range pullRequests {
		if _, err := parseTimestamp(pr.CreatedAt); err != nil {
			s.logger.Warnf("Pull request %d has no usable created_at date: %v", pr.Number, err)
			continue
		}
		attributed[i] = resolver.Resolve(pr.MergeCommitSHA)
	}

	entries := []EventLogEntry{}

	for _, issue := range issues {
		createdAt, err := parseTimestamp(issue.CreatedAt)
		if err != nil {
			s.logger.Warnf("Issue %d has no usable created_at date: %v", issue.Number, err)
			continue
		}

		var closedEpoch int64
		if issue.ClosedAt != "" {
			closedAt, err := parseTimestamp(issue.ClosedAt)
			if err != nil {
				s.logger.Warnf("Issue %d has no usable closed_at date: %v", issue.Number, err)
				continue
			}
			closedEpoch = closedAt.Unix()
		}

		if inWindow(createdAt.Unix(), begin, end) {
			entries = append(entries, EventLogEntry{
				CaseID:    issueCaseID(issue.Number),
				Activity:  ActivityIssueCreated,
				Timestamp: createdAt.UTC().Format(TimestampLayout),
				User:      username(issue.User),
			})
		}

		if closedEpoch != 0 && inWindow(closedEpoch, begin, end) {
			entries = append(entries, EventLogEntry{
				CaseID:    issueCaseID(issue.Number),
				Activity:  ActivityIssueClosed,
				Timestamp: epochToTimestamp(closedEpoch),
				User:      username(issue.User),
			})
		}
	}

	for _, comment := range comments {
		createdAt, err := parseTimestamp(comment.CreatedAt)
		if err != nil {
			s.logger.Warnf("Comment %d has no usable created_at date: %v", comment.ID, err)
			continue
		}

		if inWindow(createdAt.Unix(), begin, end) {
			segments := strings.Split(comment.IssueURL, "/")
			entries = append(entries, EventLogEntry{
				CaseID:    "Issue-" + segments[len(segments)-1],
				Activity:  ActivityIssueCommented,
				Timestamp: createdAt.UTC().Format(TimestampLayout),
				User:      username(comment.User),
			})
		}
	}

	for _, event := range events {
		createdAt, err := parseTimestamp(event.CreatedAt)
		if err != nil {
			s.logger.Warnf("Event %d has no usable created_at date: %v", event.ID, err)
			continue
		}

		if inWindow(createdAt.Unix(), begin, end) {
			entries = append(entries, EventLogEntry{
				CaseID:    issueCaseID(event.IssueNumber),
				Activity:  event.Event,
				Timestamp: createdAt.UTC().Format(TimestampLayout),
				User:      username(event.Actor),
			})
		}
	}

	// Net additions anywhere in the cycle mark all its commits as workflow
	// evolution commits.
	commitActivity := ActivityCommitted
	if cycle.RulesAdded > 0 || cycle.ModulesAdded > 0 {
		commitActivity = ActivityCommittedWorkflow
	}

	for _, hash := range s.timeline.Hashes() {
		if resolver.Consumed(hash) {
			continue
		}

		commit := s.commits[hash]
		if !inWindow(commit.CommitterEpoch, begin, end) {
			continue
		}

		entries = append(entries, EventLogEntry{
			CaseID:    "Commit-" + shortHash(hash),
			Activity:  commitActivity,
			Timestamp: epochToTimestamp(commit.CommitterEpoch),
			User:      username(commit.Committer),
		})
	}

	for i, pr := range pullRequests {
		createdAt, err := parseTimestamp(pr.CreatedAt)
		if err != nil {
			// Already logged during the attribution pass.
			continue
		}

		if inWindow(createdAt.Unix(), begin, end) {
			entries = append(entries, EventLogEntry{
				CaseID:    issueCaseID(pr.Number),
				Activity:  ActivityPullRequestOpened,
				Timestamp: createdAt.UTC().Format(TimestampLayout),
				User:      username(pr.User),
			})
		}

		// Attributed commits land in the pull request's case so commit
		// activity folds into the pull request's process-mining trace.
		for _, hash := range attributed[i] {
			entries = append(entries, EventLogEntry{
				CaseID:    issueCaseID(pr.Number),
				Activity:  ActivityCommitted,
				Timestamp: epochToTimestamp(s.commits[hash].CommitterEpoch),
				User:      username(pr.User),
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})

	return entries, nil
}

func inWindow(epoch, begin, end int64) bool {
	return epoch >= begin && epoch <= end
}

func issueCaseID(number int) string {
	return fmt.Sprintf("Issue-%d", number)
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func username(login string) *string {
	if login == "" {
		return nil
	}
	return &login
}
