// package rules extracts Snakemake rule and module names from build-file
// text. Only line-level prefixes are inspected; no full Snakefile grammar is
// parsed.
package rules

import (
	"path"
	"strings"
)

// IsRuleFile reports whether a file name denotes a Snakemake rule file.
func IsRuleFile(filename string) bool {
	lower := strings.ToLower(filename)
	return lower == "snakefile" ||
		strings.HasSuffix(lower, ".smk") ||
		strings.HasSuffix(lower, ".snakefile") ||
		strings.HasSuffix(lower, ".rules")
}

// IsWorkflowScript reports whether a repository path points into a workflow
// scripts directory.
func IsWorkflowScript(repoPath string) bool {
	lower := strings.ToLower(repoPath)
	return strings.HasPrefix(lower, "scripts/") ||
		strings.HasPrefix(lower, "workflow/scripts/")
}

// FileExtension returns the lowercased extension of a file name, without the
// dot, or "" when the name has none.
func FileExtension(filename string) string {
	base := path.Base(filename)
	parts := strings.Split(base, ".")
	if len(parts) > 1 {
		return strings.ToLower(parts[len(parts)-1])
	}
	return ""
}

// NamesFromCode returns the rule names declared in the given source text, in
// declaration order, duplicates included.
func NamesFromCode(code string) []string {
	return namesWithPrefix(code, "rule ")
}

// ModuleNamesFromCode returns the module names declared in the given source
// text.
func ModuleNamesFromCode(code string) []string {
	return namesWithPrefix(code, "module ")
}

func namesWithPrefix(code, prefix string) []string {
	var names []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		name, _, _ := strings.Cut(fields[1], ":")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// IncludedFilesFromCode returns included files carrying the regular .smk
// extension.
func IncludedFilesFromCode(code string) []string {
	return includedFiles(code, true)
}

// IrregularRuleFilesFromCode returns included files missing the .smk
// extension.
func IrregularRuleFilesFromCode(code string) []string {
	return includedFiles(code, false)
}

func includedFiles(code string, regular bool) []string {
	var files []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "include:") {
			continue
		}

		_, included, _ := strings.Cut(line, ":")
		included = strings.TrimSpace(included)
		included = strings.ReplaceAll(included, `"`, "")
		included = strings.ReplaceAll(included, "'", "")
		if included == "" {
			continue
		}

		if strings.HasSuffix(included, ".smk") == regular {
			files = append(files, included)
		}
	}
	return files
}

// CountNewNames counts names present in current but not in previous, treating
// both as sets.
func CountNewNames(current, previous []string) int {
	seen := make(map[string]struct{}, len(previous))
	for _, name := range previous {
		seen[name] = struct{}{}
	}

	counted := make(map[string]struct{}, len(current))
	count := 0
	for _, name := range current {
		if _, dup := counted[name]; dup {
			continue
		}
		counted[name] = struct{}{}
		if _, ok := seen[name]; !ok {
			count++
		}
	}
	return count
}
