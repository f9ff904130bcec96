package insights

// RepoSummary aggregates repository-wide facts from the commit map.
type RepoSummary struct {
	NCommits         int
	NRelatedCommits  int
	NAuthors         int
	NCommitters      int
	FirstCommitEpoch int64
	LastCommitEpoch  int64
	FirstCommitAt    string
	LastCommitAt     string
}

// SummarizeRepository computes the repository summary stored alongside the
// evolution cycles.
func SummarizeRepository(commits map[string]CommitRecord) (RepoSummary, error) {
	if len(commits) == 0 {
		return RepoSummary{}, ErrNoCommits
	}

	authors := make(map[string]struct{})
	committers := make(map[string]struct{})

	summary := RepoSummary{NCommits: len(commits)}
	for _, commit := range commits {
		if commit.Author != "" {
			authors[commit.Author] = struct{}{}
		}
		if commit.Committer != "" {
			committers[commit.Committer] = struct{}{}
		}
		if commit.Related {
			summary.NRelatedCommits++
		}

		if summary.FirstCommitEpoch == 0 || commit.CommitterEpoch < summary.FirstCommitEpoch {
			summary.FirstCommitEpoch = commit.CommitterEpoch
		}
		if commit.CommitterEpoch > summary.LastCommitEpoch {
			summary.LastCommitEpoch = commit.CommitterEpoch
		}
	}

	summary.NAuthors = len(authors)
	summary.NCommitters = len(committers)
	summary.FirstCommitAt = epochToTimestamp(summary.FirstCommitEpoch)
	summary.LastCommitAt = epochToTimestamp(summary.LastCommitEpoch)

	return summary, nil
}
