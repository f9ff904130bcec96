package rules

import (
	"reflect"
	"testing"
)

func TestIsRuleFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		expected bool
	}{
		{name: "Snakefile", filename: "Snakefile", expected: true},
		{name: "Lowercase snakefile", filename: "snakefile", expected: true},
		{name: "smk extension", filename: "align.smk", expected: true},
		{name: "snakefile extension", filename: "main.Snakefile", expected: true},
		{name: "rules extension", filename: "qc.rules", expected: true},
		{name: "Python script", filename: "align.py", expected: false},
		{name: "Plain file", filename: "README", expected: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsRuleFile(tt.filename); got != tt.expected {
				t.Fatalf("IsRuleFile(%s): %v, expected: %v", tt.filename, got, tt.expected)
			}
		})
	}
}

func TestIsWorkflowScript(t *testing.T) {
	t.Parallel()

	if !IsWorkflowScript("scripts/plot.py") {
		t.Fatalf("scripts/plot.py should be a workflow script")
	}
	if !IsWorkflowScript("workflow/scripts/align.R") {
		t.Fatalf("workflow/scripts/align.R should be a workflow script")
	}
	if IsWorkflowScript("src/scripts/other.py") {
		t.Fatalf("src/scripts/other.py should not be a workflow script")
	}
}

func TestFileExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{name: "Simple extension", filename: "align.py", expected: "py"},
		{name: "Uppercase lowered", filename: "plot.R", expected: "r"},
		{name: "Multiple dots", filename: "data.tar.gz", expected: "gz"},
		{name: "No extension", filename: "Snakefile", expected: ""},
		{name: "Full path", filename: "workflow/rules/qc.smk", expected: "smk"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FileExtension(tt.filename); got != tt.expected {
				t.Fatalf("FileExtension(%s): %q, expected: %q", tt.filename, got, tt.expected)
			}
		})
	}
}

const sampleSnakefile = `
configfile: "config.yaml"

include: "rules/qc.smk"
include: "rules/common"

module align_module:
    snakefile: "align.smk"

rule all:
    input:
        "results/done.txt"

rule trim_reads:
    input:
        "data/{sample}.fastq"
    output:
        "results/{sample}.trimmed.fastq"
`

func TestNamesFromCode(t *testing.T) {
	t.Parallel()

	names := NamesFromCode(sampleSnakefile)
	expected := []string{"all", "trim_reads"}
	if !reflect.DeepEqual(names, expected) {
		t.Fatalf("rule names: %v, expected: %v", names, expected)
	}
}

func TestModuleNamesFromCode(t *testing.T) {
	t.Parallel()

	names := ModuleNamesFromCode(sampleSnakefile)
	expected := []string{"align_module"}
	if !reflect.DeepEqual(names, expected) {
		t.Fatalf("module names: %v, expected: %v", names, expected)
	}
}

func TestIncludedFilesFromCode(t *testing.T) {
	t.Parallel()

	regular := IncludedFilesFromCode(sampleSnakefile)
	if !reflect.DeepEqual(regular, []string{"rules/qc.smk"}) {
		t.Fatalf("regular includes: %v, expected: [rules/qc.smk]", regular)
	}

	irregular := IrregularRuleFilesFromCode(sampleSnakefile)
	if !reflect.DeepEqual(irregular, []string{"rules/common"}) {
		t.Fatalf("irregular includes: %v, expected: [rules/common]", irregular)
	}
}

func TestCountNewNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		current  []string
		previous []string
		expected int
	}{
		{name: "All new", current: []string{"a", "b"}, previous: nil, expected: 2},
		{name: "None new", current: []string{"a"}, previous: []string{"a", "b"}, expected: 0},
		{name: "Duplicates counted once", current: []string{"a", "a", "b"}, previous: []string{"b"}, expected: 1},
		{name: "Empty current", current: nil, previous: []string{"a"}, expected: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := CountNewNames(tt.current, tt.previous); got != tt.expected {
				t.Fatalf("CountNewNames: %d, expected: %d", got, tt.expected)
			}
		})
	}
}
