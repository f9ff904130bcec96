package insights

import (
	"go.uber.org/zap"
)

// MergeRangeResolver determines which commits in the timeline were carried by
// a pull request, given the pull request's merge commit. Resolved commits are
// marked consumed so the commit stream does not emit a second, standalone
// "Committed" entry for them.
//
// A resolver only lives for one synthesis call: the consumed set is the only
// mutable state and it must not be shared across cycles.
type MergeRangeResolver struct {
	timeline *CommitTimeline
	logger   *zap.SugaredLogger
	consumed map[string]bool
}

// NewMergeRangeResolver returns a resolver over the given immutable timeline.
func NewMergeRangeResolver(timeline *CommitTimeline, logger *zap.SugaredLogger) *MergeRangeResolver {
	return &MergeRangeResolver{
		timeline: timeline,
		logger:   logger,
		consumed: make(map[string]bool),
	}
}

// Resolve returns the commit hashes attributed to the given merge commit and
// marks them consumed.
//
// A merge commit with one parent attributes exactly that parent (the fast
// forward / squash case). A merge commit with two parents attributes every
// commit strictly between the two parents' timeline positions, neither
// parent included. Parents missing from the timeline, typically merge
// commits of rebased or force-pushed branches, are logged and skipped; a
// pull request without a merge commit attributes nothing.
func (r *MergeRangeResolver) Resolve(mergeCommitSHA string) []string {
	if mergeCommitSHA == "" {
		return nil
	}

	parents := r.timeline.ParentsOf(mergeCommitSHA)

	switch len(parents) {
	case 1:
		if _, err := r.timeline.IndexOf(parents[0]); err != nil {
			r.logger.Warnf("Merge commit %s parent %s not in timeline, skipping attribution", mergeCommitSHA, parents[0])
			return nil
		}
		r.consumed[parents[0]] = true
		return []string{parents[0]}

	case 2:
		first, firstErr := r.timeline.IndexOf(parents[0])
		second, secondErr := r.timeline.IndexOf(parents[1])
		if firstErr != nil || secondErr != nil {
			r.logger.Warnf("Merge commit %s has a parent outside the timeline, skipping attribution", mergeCommitSHA)
			return nil
		}

		lower, upper := first, second
		if lower > upper {
			lower, upper = upper, lower
		}

		hashes := r.timeline.Hashes()
		attributed := make([]string, 0, upper-lower)
		for i := lower + 1; i < upper; i++ {
			r.consumed[hashes[i]] = true
			attributed = append(attributed, hashes[i])
		}
		return attributed
	}

	return nil
}

// Consumed reports whether the commit was already attributed to a pull
// request by an earlier Resolve call.
func (r *MergeRangeResolver) Consumed(hash string) bool {
	return r.consumed[hash]
}
