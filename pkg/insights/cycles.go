package insights

import (
	"fmt"
	"sort"
)

const (
	secondsPerDay    = 24 * 60 * 60
	secondsPerHour   = 60 * 60
	secondsPerMinute = 60
)

// cycleAccumulator holds the running state for the evolution cycle currently
// being built. A fresh accumulator is created whenever a cycle closes so no
// counter leaks across cycle boundaries.
type cycleAccumulator struct {
	nCommits int
	nRelated int

	// Same-day buffers: counters of structurally changed commits whose
	// close was deferred because the next commit landed within a day.
	sameDayPending        bool
	sameDayRulesAdded     int
	sameDayRulesRemoved   int
	sameDayModulesAdded   int
	sameDayModulesRemoved int

	extensions map[string]struct{}
}

func newCycleAccumulator() *cycleAccumulator {
	return &cycleAccumulator{extensions: make(map[string]struct{})}
}

func (a *cycleAccumulator) addExtensions(extensions []string) {
	for _, ext := range extensions {
		a.extensions[ext] = struct{}{}
	}
}

// deferClose folds a structurally changed commit into the same-day buffers
// instead of closing the cycle at it.
func (a *cycleAccumulator) deferClose(commit CommitRecord) {
	a.sameDayRulesAdded += commit.RulesAdded
	a.sameDayRulesRemoved += commit.RulesRemoved
	a.sameDayModulesAdded += commit.ModulesAdded
	a.sameDayModulesRemoved += commit.ModulesRemoved
	a.addExtensions(commit.FileExtensions)
	a.sameDayPending = true
}

// close produces the finished cycle: the closing commit's own counters plus
// anything buffered from deferred same-day commits.
func (a *cycleAccumulator) close(begin, end CycleMarker, commit CommitRecord) EvolutionCycle {
	a.addExtensions(commit.FileExtensions)
	return EvolutionCycle{
		Begin:           begin,
		End:             end,
		DiffDays:        (end.Epoch - begin.Epoch) / secondsPerDay,
		DiffHours:       (end.Epoch - begin.Epoch) / secondsPerHour,
		DiffMins:        (end.Epoch - begin.Epoch) / secondsPerMinute,
		NCommits:        a.nCommits,
		NRelatedCommits: a.nRelated,
		RulesAdded:      commit.RulesAdded + a.sameDayRulesAdded,
		RulesRemoved:    commit.RulesRemoved + a.sameDayRulesRemoved,
		ModulesAdded:    commit.ModulesAdded + a.sameDayModulesAdded,
		ModulesRemoved:  commit.ModulesRemoved + a.sameDayModulesRemoved,
		FileExtensions:  a.sortedExtensions(),
	}
}

// flush produces the trailing open cycle at the end of the walk. No commit
// closed it, so the structural totals are always zero: any pending same-day
// buffers were already drained by the forced close at the final commit.
func (a *cycleAccumulator) flush(begin, end CycleMarker) EvolutionCycle {
	return EvolutionCycle{
		Begin:           begin,
		End:             end,
		DiffDays:        (end.Epoch - begin.Epoch) / secondsPerDay,
		DiffHours:       (end.Epoch - begin.Epoch) / secondsPerHour,
		DiffMins:        (end.Epoch - begin.Epoch) / secondsPerMinute,
		NCommits:        a.nCommits,
		NRelatedCommits: a.nRelated,
		FileExtensions:  a.sortedExtensions(),
	}
}

func (a *cycleAccumulator) sortedExtensions() []string {
	extensions := make([]string, 0, len(a.extensions))
	for ext := range a.extensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// SegmentCycles walks the timeline in a single forward pass and partitions it
// into evolution cycles.
//
// A cycle is closed by a commit whose signed rule delta or signed module
// delta is non-zero, unless the next commit lands within a day of it: then
// the close is deferred and the commit's counters are folded into the cycle
// via the same-day buffers. The signed-difference test deliberately treats a
// commit that adds and removes the same number of rules as unchanged; it
// matches how structural change has always been detected upstream, and the
// produced cycles would shift if it were replaced with a plain
// "anything changed" test.
//
// A repository with a single commit yields no cycles. If the walk ends with
// an open cycle spanning at least two commits, it is flushed as-is.
func SegmentCycles(timeline *CommitTimeline, commits map[string]CommitRecord) ([]EvolutionCycle, error) {
	if timeline == nil || timeline.Len() == 0 {
		return nil, ErrNoCommits
	}

	cycles := []EvolutionCycle{}
	hashes := timeline.Hashes()

	var begin, end CycleMarker
	acc := newCycleAccumulator()

	for i, hash := range hashes {
		commit := commits[hash]
		acc.nCommits++

		current := CycleMarker{Hash: hash, Epoch: commit.CommitterEpoch}

		if begin == (CycleMarker{}) {
			// The first commit only seeds the cycle begin marker.
			begin = current
			acc.nCommits = 1
			continue
		}

		end = current
		if commit.Related {
			acc.nRelated++
		}

		changed := (commit.RulesAdded-commit.RulesRemoved) != 0 ||
			(commit.ModulesAdded-commit.ModulesRemoved) != 0
		if !changed && !acc.sameDayPending {
			continue
		}

		if begin.Epoch == 0 || end.Epoch == 0 {
			return nil, fmt.Errorf("cannot close cycle %s..%s: commit is missing its committer epoch", begin.Hash, end.Hash)
		}

		if i+1 < len(hashes) {
			next := commits[hashes[i+1]]
			if (next.CommitterEpoch-end.Epoch)/secondsPerDay == 0 {
				acc.deferClose(commit)
				continue
			}
		}

		cycles = append(cycles, acc.close(begin, end, commit))
		begin = end
		acc = newCycleAccumulator()
	}

	if begin != (CycleMarker{}) && end != (CycleMarker{}) && begin != end {
		cycles = append(cycles, acc.flush(begin, end))
	}

	return cycles, nil
}
