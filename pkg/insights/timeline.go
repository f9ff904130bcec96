package insights

import (
	"errors"
	"sort"
)

var (
	// ErrNoCommits is returned when a timeline is built from an empty
	// commit map.
	ErrNoCommits = errors.New("commit map is empty")

	// ErrHashNotFound is returned by IndexOf for hashes outside the
	// timeline. Pull requests fetched from the forge may reference merge
	// commits on branches the extraction never walked, so callers must
	// log and skip rather than fail on this error.
	ErrHashNotFound = errors.New("commit hash not found in timeline")
)

// CommitTimeline is the immutable, chronologically ordered view over a commit
// map. It is built once per repository and shared by the cycle segmenter and
// the event log synthesizer.
type CommitTimeline struct {
	hashes  []string
	indexes map[string]int
	parents map[string][]string
}

// NewCommitTimeline orders the commit map by committer epoch, ascending.
// Commits sharing an epoch keep their extraction order (CommitRecord.Seq).
func NewCommitTimeline(commits map[string]CommitRecord) (*CommitTimeline, error) {
	if len(commits) == 0 {
		return nil, ErrNoCommits
	}

	hashes := make([]string, 0, len(commits))
	for hash := range commits {
		hashes = append(hashes, hash)
	}

	sort.SliceStable(hashes, func(i, j int) bool {
		a := commits[hashes[i]]
		b := commits[hashes[j]]
		if a.CommitterEpoch != b.CommitterEpoch {
			return a.CommitterEpoch < b.CommitterEpoch
		}
		return a.Seq < b.Seq
	})

	indexes := make(map[string]int, len(hashes))
	parents := make(map[string][]string, len(hashes))
	for i, hash := range hashes {
		indexes[hash] = i
		if len(commits[hash].Parents) > 0 {
			parents[hash] = commits[hash].Parents
		}
	}

	return &CommitTimeline{
		hashes:  hashes,
		indexes: indexes,
		parents: parents,
	}, nil
}

// Hashes returns the commit hashes in timeline order. The returned slice is
// shared and must not be modified.
func (t *CommitTimeline) Hashes() []string {
	return t.hashes
}

// Len returns the number of commits in the timeline.
func (t *CommitTimeline) Len() int {
	return len(t.hashes)
}

// ParentsOf returns the parent hashes of the given commit, or nil when the
// commit is unknown or a root commit.
func (t *CommitTimeline) ParentsOf(hash string) []string {
	return t.parents[hash]
}

// IndexOf returns the position of the given commit in the timeline.
func (t *CommitTimeline) IndexOf(hash string) (int, error) {
	index, ok := t.indexes[hash]
	if !ok {
		return 0, ErrHashNotFound
	}
	return index, nil
}
