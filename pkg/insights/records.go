// package insights derives process-mining insights from the history of a
// workflow repository: it orders raw commit records into a timeline, segments
// the timeline into evolution cycles, and merges commits with issue, comment,
// event and pull request records into per-cycle event logs.
package insights

import "time"

// TimestampLayout is the fixed timestamp format shared by every record this
// package consumes and every event log entry it produces. Because the layout
// is fixed-width and always UTC, lexicographic comparison of rendered
// timestamps is equivalent to chronological comparison.
const TimestampLayout = "2006-01-02T15:04:05Z"

// CommitRecord is a single extracted git commit. Records are immutable once
// ingested: the insights functions never modify them.
type CommitRecord struct {
	// Hash is the full 40 character commit hash.
	Hash string

	// Author and Committer are "name:email" identity strings.
	Author    string
	Committer string

	// CommitterEpoch is the committer timestamp in seconds. It is the
	// ordering key for the timeline and is required on every commit.
	CommitterEpoch int64

	// Parents holds the parent commit hashes: none for a root commit, one
	// for a regular commit, two for a merge commit.
	Parents []string

	// Net structural deltas of the workflow build files in this commit.
	RulesAdded     int
	RulesRemoved   int
	ModulesAdded   int
	ModulesRemoved int

	// FileExtensions is the set of file extensions touched by this commit.
	FileExtensions []string

	// IncludedRuleFiles holds the rule files pulled in via include
	// statements in this commit's build files; IrregularRuleFiles holds
	// the included files missing the regular .smk extension.
	IncludedRuleFiles  []string
	IrregularRuleFiles []string

	// Related reports whether the commit touched workflow build files or
	// workflow scripts.
	Related bool

	// Seq is the position of the commit in extraction order. It breaks
	// ties between commits sharing a committer epoch, since Go maps do not
	// preserve insertion order.
	Seq int
}

// Issue is an issue record fetched from the git forge.
type Issue struct {
	Number    int
	CreatedAt string
	// ClosedAt is empty while the issue is still open.
	ClosedAt string
	User     string
}

// Comment is an issue comment record fetched from the git forge. The parent
// issue number is the last path segment of IssueURL.
type Comment struct {
	ID        int64
	CreatedAt string
	IssueURL  string
	User      string
}

// Event is a provider-native issue event record. Actor is empty when the
// provider reported no actor.
type Event struct {
	ID          int64
	CreatedAt   string
	Event       string
	Actor       string
	IssueNumber int
}

// PullRequest is a pull request record fetched from the git forge.
// MergeCommitSHA is empty for pull requests that were never merged.
type PullRequest struct {
	Number         int
	CreatedAt      string
	User           string
	MergeCommitSHA string
}

// CycleMarker pins one end of an evolution cycle to a commit.
type CycleMarker struct {
	Hash  string
	Epoch int64
}

// EvolutionCycle is a contiguous span of commits closed by a structurally
// significant commit.
type EvolutionCycle struct {
	Begin CycleMarker
	End   CycleMarker

	// Duration from Begin to End, expressed in whole days, hours and
	// minutes respectively.
	DiffDays  int64
	DiffHours int64
	DiffMins  int64

	// NCommits counts the commits in the cycle. The commit shared between
	// two adjacent cycles is only counted in the earlier one.
	NCommits        int
	NRelatedCommits int

	RulesAdded     int
	RulesRemoved   int
	ModulesAdded   int
	ModulesRemoved int

	// FileExtensions is the sorted union of file extensions seen in the
	// cycle's accumulated commits.
	FileExtensions []string
}

// Activity names emitted by the event log synthesizer. Provider-native event
// types are passed through verbatim and are not enumerated here.
const (
	ActivityIssueCreated      = "Issue Created"
	ActivityIssueClosed       = "Issue Closed"
	ActivityIssueCommented    = "Issue Commented"
	ActivityPullRequestOpened = "Pull Request Opened"
	ActivityCommitted         = "Committed"
	ActivityCommittedWorkflow = "Committed-Snakemake"
)

// EventLogEntry is one row of the process-mining event log. Entries are value
// objects: they are never modified after creation.
type EventLogEntry struct {
	// CaseID correlates all activities belonging to one unit of work:
	// "Issue-<number>" for issues, pull requests and their comments and
	// events, "Commit-<short hash>" for standalone commits.
	CaseID   string `json:"case_id"`
	Activity string `json:"activity"`
	// Timestamp uses TimestampLayout and is the global sort key.
	Timestamp string `json:"timestamp"`
	// User is nil when the originating record carried no user.
	User *string `json:"user"`
}

// epochToTimestamp renders an epoch in the shared timestamp layout.
func epochToTimestamp(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(TimestampLayout)
}

// parseTimestamp parses a record timestamp in the shared layout.
func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(TimestampLayout, value)
}
