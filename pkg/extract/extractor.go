// package extract walks a git repository's commit history and produces the
// commit records consumed by the insights package, including the structural
// deltas of Snakemake build files computed by diffing each commit against its
// first parent.
package extract

import (
	"fmt"
	"path"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/openworkflow/evolog/pkg/insights"
	"github.com/openworkflow/evolog/pkg/rules"
)

// CommitHistory walks every commit reachable from HEAD and returns the commit
// map keyed by hash. Each record is stamped with its walk sequence so commits
// sharing a committer epoch keep a stable relative order downstream.
func CommitHistory(repo *git.Repository, logger *zap.SugaredLogger) (map[string]insights.CommitRecord, error) {
	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("could not resolve repository head: %s", err.Error())
	}

	commitIter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("could not get commit iterator: %s", err.Error())
	}

	commits := make(map[string]insights.CommitRecord)
	seq := 0

	err = commitIter.ForEach(func(c *object.Commit) error {
		logger.Debugf("Extracting commit: %s", c.Hash.String())

		record, err := extractCommit(c, logger)
		if err != nil {
			return err
		}

		record.Seq = seq
		seq++
		commits[record.Hash] = record
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not walk commit history: %s", err.Error())
	}

	return commits, nil
}

func extractCommit(c *object.Commit, logger *zap.SugaredLogger) (insights.CommitRecord, error) {
	record := insights.CommitRecord{
		Hash:           c.Hash.String(),
		Author:         fmt.Sprintf("%s:%s", c.Author.Name, c.Author.Email),
		Committer:      fmt.Sprintf("%s:%s", c.Committer.Name, c.Committer.Email),
		CommitterEpoch: c.Committer.When.Unix(),
	}

	for _, parentHash := range c.ParentHashes {
		record.Parents = append(record.Parents, parentHash.String())
	}

	currentTree, err := c.Tree()
	if err != nil {
		return record, fmt.Errorf("could not load tree of %s: %s", record.Hash, err.Error())
	}

	// Merge commits are diffed against their first parent, matching how
	// the structural deltas are meant to track the mainline history.
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return record, fmt.Errorf("could not load first parent of %s: %s", record.Hash, err.Error())
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return record, fmt.Errorf("could not load parent tree of %s: %s", record.Hash, err.Error())
		}
	}

	changes, err := object.DiffTree(parentTree, currentTree)
	if err != nil {
		return record, fmt.Errorf("could not diff trees of %s: %s", record.Hash, err.Error())
	}

	extensions := make(map[string]struct{})
	var ruleNames, ruleNamesBefore []string
	var moduleNames, moduleNamesBefore []string

	for _, change := range changes {
		name := change.To.Name
		if name == "" {
			name = change.From.Name
		}

		if ext := rules.FileExtension(name); ext != "" {
			extensions[ext] = struct{}{}
		}

		switch {
		case rules.IsRuleFile(path.Base(name)):
			record.Related = true

			source, sourceBefore, err := changeContents(change)
			if err != nil {
				logger.Warnf("Could not read rule file %s in commit %s: %s", name, record.Hash, err.Error())
				continue
			}

			ruleNames = append(ruleNames, rules.NamesFromCode(source)...)
			ruleNamesBefore = append(ruleNamesBefore, rules.NamesFromCode(sourceBefore)...)
			moduleNames = append(moduleNames, rules.ModuleNamesFromCode(source)...)
			moduleNamesBefore = append(moduleNamesBefore, rules.ModuleNamesFromCode(sourceBefore)...)
			record.IncludedRuleFiles = append(record.IncludedRuleFiles, rules.IncludedFilesFromCode(source)...)
			record.IrregularRuleFiles = append(record.IrregularRuleFiles, rules.IrregularRuleFilesFromCode(source)...)

		case rules.IsWorkflowScript(name):
			record.Related = true
		}
	}

	record.RulesAdded = rules.CountNewNames(ruleNames, ruleNamesBefore)
	record.RulesRemoved = rules.CountNewNames(ruleNamesBefore, ruleNames)
	record.ModulesAdded = rules.CountNewNames(moduleNames, moduleNamesBefore)
	record.ModulesRemoved = rules.CountNewNames(moduleNamesBefore, moduleNames)

	for ext := range extensions {
		record.FileExtensions = append(record.FileExtensions, ext)
	}
	sort.Strings(record.FileExtensions)

	return record, nil
}

// changeContents returns the file text after and before the change. A missing
// side (file added or deleted) yields "".
func changeContents(change *object.Change) (string, string, error) {
	from, to, err := change.Files()
	if err != nil {
		return "", "", err
	}

	var source, sourceBefore string
	if to != nil {
		source, err = to.Contents()
		if err != nil {
			return "", "", err
		}
	}
	if from != nil {
		sourceBefore, err = from.Contents()
		if err != nil {
			return "", "", err
		}
	}

	return source, sourceBefore, nil
}
