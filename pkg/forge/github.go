// package forge fetches issue, comment, event and pull request histories from
// a git forge and converts them into the records the insights package
// consumes.
package forge

import (
	"context"
	"net/http"

	"github.com/google/go-github/v54/github"

	"github.com/openworkflow/evolog/pkg/insights"
)

// Forge is the collaboration-history side of a git hosting service.
type Forge interface {
	FetchIssues(owner string, repo string) ([]insights.Issue, error)
	FetchComments(owner string, repo string) ([]insights.Comment, error)
	FetchEvents(owner string, repo string) ([]insights.Event, error)
	FetchPullRequests(owner string, repo string) ([]insights.PullRequest, error)
}

type GithubForge struct {
	client *github.Client
}

func NewGithubTokenForge(token string) *GithubForge {
	ctx := context.Background()
	s := &GithubForge{
		client: github.NewTokenClient(ctx, token),
	}
	return s
}

func NewGithubForge(httpClient *http.Client) *GithubForge {
	s := &GithubForge{
		client: github.NewClient(httpClient),
	}
	return s
}

// FetchIssues returns all issues of the repository, open and closed. Pull
// requests surfaced through the issues listing are dropped so they are not
// double counted against FetchPullRequests.
func (s *GithubForge) FetchIssues(owner string, repo string) ([]insights.Issue, error) {
	ctx := context.Background()
	opt := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	// get all pages of results
	var allIssues []*github.Issue
	for {
		issues, resp, err := s.client.Issues.ListByRepo(ctx, owner, repo, opt)
		if err != nil {
			return nil, err
		}
		allIssues = append(allIssues, issues...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return ConvertIssues(allIssues), nil
}

// FetchComments returns all issue comments of the repository.
func (s *GithubForge) FetchComments(owner string, repo string) ([]insights.Comment, error) {
	ctx := context.Background()
	opt := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var allComments []*github.IssueComment
	for {
		comments, resp, err := s.client.Issues.ListComments(ctx, owner, repo, 0, opt)
		if err != nil {
			return nil, err
		}
		allComments = append(allComments, comments...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return ConvertComments(allComments), nil
}

// FetchEvents returns all issue events of the repository.
func (s *GithubForge) FetchEvents(owner string, repo string) ([]insights.Event, error) {
	ctx := context.Background()
	opt := &github.ListOptions{PerPage: 100}
	var allEvents []*github.IssueEvent
	for {
		events, resp, err := s.client.Issues.ListRepositoryEvents(ctx, owner, repo, opt)
		if err != nil {
			return nil, err
		}
		allEvents = append(allEvents, events...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return ConvertEvents(allEvents), nil
}

// FetchPullRequests returns all pull requests of the repository, merged or
// not.
func (s *GithubForge) FetchPullRequests(owner string, repo string) ([]insights.PullRequest, error) {
	ctx := context.Background()
	opt := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var allPulls []*github.PullRequest
	for {
		pulls, resp, err := s.client.PullRequests.List(ctx, owner, repo, opt)
		if err != nil {
			return nil, err
		}
		allPulls = append(allPulls, pulls...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return ConvertPullRequests(allPulls), nil
}

func ConvertIssues(issues []*github.Issue) []insights.Issue {
	var converted []insights.Issue
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}

		record := insights.Issue{
			Number:    issue.GetNumber(),
			CreatedAt: formatTimestamp(issue.GetCreatedAt()),
			User:      issue.GetUser().GetLogin(),
		}
		if issue.ClosedAt != nil {
			record.ClosedAt = formatTimestamp(issue.GetClosedAt())
		}
		converted = append(converted, record)
	}
	return converted
}

func ConvertComments(comments []*github.IssueComment) []insights.Comment {
	var converted []insights.Comment
	for _, comment := range comments {
		converted = append(converted, insights.Comment{
			ID:        comment.GetID(),
			CreatedAt: formatTimestamp(comment.GetCreatedAt()),
			IssueURL:  comment.GetIssueURL(),
			User:      comment.GetUser().GetLogin(),
		})
	}
	return converted
}

func ConvertEvents(events []*github.IssueEvent) []insights.Event {
	var converted []insights.Event
	for _, event := range events {
		converted = append(converted, insights.Event{
			ID:          event.GetID(),
			CreatedAt:   formatTimestamp(event.GetCreatedAt()),
			Event:       event.GetEvent(),
			Actor:       event.GetActor().GetLogin(),
			IssueNumber: event.GetIssue().GetNumber(),
		})
	}
	return converted
}

func ConvertPullRequests(pulls []*github.PullRequest) []insights.PullRequest {
	var converted []insights.PullRequest
	for _, pull := range pulls {
		converted = append(converted, insights.PullRequest{
			Number:         pull.GetNumber(),
			CreatedAt:      formatTimestamp(pull.GetCreatedAt()),
			User:           pull.GetUser().GetLogin(),
			MergeCommitSHA: pull.GetMergeCommitSHA(),
		})
	}
	return converted
}

func formatTimestamp(ts github.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(insights.TimestampLayout)
}
