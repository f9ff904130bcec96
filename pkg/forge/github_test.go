package forge

import (
	"testing"
	"time"

	"github.com/google/go-github/v54/github"
)

func timestamp(t *testing.T, value string) github.Timestamp {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parsing timestamp %q: %v", value, err)
	}
	return github.Timestamp{Time: parsed}
}

func TestConvertIssues(t *testing.T) {
	t.Parallel()

	closedAt := timestamp(t, "2024-01-03T08:30:00Z")
	issues := []*github.Issue{
		{
			Number:    github.Int(42),
			CreatedAt: &github.Timestamp{Time: timestamp(t, "2024-01-01T00:00:00Z").Time},
			ClosedAt:  &closedAt,
			User:      &github.User{Login: github.String("alice")},
		},
		{
			Number:    github.Int(43),
			CreatedAt: &github.Timestamp{Time: timestamp(t, "2024-01-02T00:00:00Z").Time},
			User:      &github.User{Login: github.String("bob")},
		},
		{
			Number:           github.Int(44),
			CreatedAt:        &github.Timestamp{Time: timestamp(t, "2024-01-02T12:00:00Z").Time},
			PullRequestLinks: &github.PullRequestLinks{URL: github.String("https://api.github.com/repos/o/r/pulls/44")},
		},
	}

	converted := ConvertIssues(issues)
	if len(converted) != 2 {
		t.Fatalf("expected pull requests to be dropped, got %d issues", len(converted))
	}

	if converted[0].Number != 42 {
		t.Errorf("expected issue number 42, got %d", converted[0].Number)
	}
	if converted[0].CreatedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("unexpected created timestamp: %s", converted[0].CreatedAt)
	}
	if converted[0].ClosedAt != "2024-01-03T08:30:00Z" {
		t.Errorf("unexpected closed timestamp: %s", converted[0].ClosedAt)
	}
	if converted[0].User != "alice" {
		t.Errorf("unexpected user: %s", converted[0].User)
	}

	if converted[1].ClosedAt != "" {
		t.Errorf("expected open issue to have empty closed timestamp, got %s", converted[1].ClosedAt)
	}
}

func TestConvertComments(t *testing.T) {
	t.Parallel()

	createdAt := timestamp(t, "2024-01-02T10:15:00Z")
	comments := []*github.IssueComment{
		{
			ID:        github.Int64(9001),
			CreatedAt: &createdAt,
			IssueURL:  github.String("https://api.github.com/repos/o/r/issues/42"),
			User:      &github.User{Login: github.String("carol")},
		},
	}

	converted := ConvertComments(comments)
	if len(converted) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(converted))
	}
	if converted[0].ID != 9001 {
		t.Errorf("unexpected comment id: %d", converted[0].ID)
	}
	if converted[0].CreatedAt != "2024-01-02T10:15:00Z" {
		t.Errorf("unexpected created timestamp: %s", converted[0].CreatedAt)
	}
	if converted[0].IssueURL != "https://api.github.com/repos/o/r/issues/42" {
		t.Errorf("unexpected issue url: %s", converted[0].IssueURL)
	}
}

func TestConvertEvents(t *testing.T) {
	t.Parallel()

	createdAt := timestamp(t, "2024-01-04T09:00:00Z")
	events := []*github.IssueEvent{
		{
			ID:        github.Int64(501),
			CreatedAt: &createdAt,
			Event:     github.String("labeled"),
			Actor:     &github.User{Login: github.String("dave")},
			Issue:     &github.Issue{Number: github.Int(42)},
		},
		{
			ID:        github.Int64(502),
			CreatedAt: &createdAt,
			Event:     github.String("unassigned"),
		},
	}

	converted := ConvertEvents(events)
	if len(converted) != 2 {
		t.Fatalf("expected 2 events, got %d", len(converted))
	}
	if converted[0].Event != "labeled" || converted[0].Actor != "dave" || converted[0].IssueNumber != 42 {
		t.Errorf("unexpected event record: %+v", converted[0])
	}
	if converted[1].Actor != "" {
		t.Errorf("expected actorless event to convert with empty actor, got %s", converted[1].Actor)
	}
}

func TestConvertPullRequests(t *testing.T) {
	t.Parallel()

	createdAt := timestamp(t, "2024-01-05T14:00:00Z")
	pulls := []*github.PullRequest{
		{
			Number:         github.Int(7),
			CreatedAt:      &createdAt,
			User:           &github.User{Login: github.String("erin")},
			MergeCommitSHA: github.String("aaa0000aaa0000aaa0000aaa0000aaa0000aaa00"),
		},
		{
			Number:    github.Int(8),
			CreatedAt: &createdAt,
		},
	}

	converted := ConvertPullRequests(pulls)
	if len(converted) != 2 {
		t.Fatalf("expected 2 pull requests, got %d", len(converted))
	}
	if converted[0].Number != 7 || converted[0].User != "erin" {
		t.Errorf("unexpected pull request record: %+v", converted[0])
	}
	if converted[0].MergeCommitSHA != "aaa0000aaa0000aaa0000aaa0000aaa0000aaa00" {
		t.Errorf("unexpected merge commit sha: %s", converted[0].MergeCommitSHA)
	}
	if converted[1].MergeCommitSHA != "" {
		t.Errorf("expected unmerged pull request to have empty merge sha, got %s", converted[1].MergeCommitSHA)
	}
}
