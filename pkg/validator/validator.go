// package validator checks analysis requests before any cloning or mining
// starts, so precondition failures surface as 400s instead of mid-pipeline
// errors.
package validator

import (
	"net/http"
	"regexp"
)

// Only plain github.com owner/repo URLs are minable: the forge side of the
// pipeline has nowhere to fetch issues and pull requests from for anything
// else.
var githubRegex = regexp.MustCompile(`^https://github.com/[\w-]+/[\w.-]+$`)

// Validator collects named validation errors for one request.
type Validator struct {
	Errors map[string]string
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid reports whether no validation error was recorded.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records a validation error under the given key. The first error
// per key wins.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// CheckConstraint records the error unless the constraint held.
func (v *Validator) CheckConstraint(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// ValidateURL runs every repository URL precondition: non-empty, shaped like
// a github.com repository, and reachable.
func ValidateURL(validator *Validator, url string) {
	validator.CheckConstraint(url != "", "url", "URL must be provided")
	validator.CheckConstraint(MatchesGithubURL(url), "url", "The URL provided is not a minable github.com repository")
	validator.CheckConstraint(checkURLValid(url), "url", "The URL provided does not exist")
}

func checkURLValid(url string) bool {
	res, err := http.Head(url)
	if err != nil || res.StatusCode != http.StatusOK {
		return false
	}
	return true
}

// MatchesGithubURL reports whether the URL points at a github.com repository
// the miner can analyze.
func MatchesGithubURL(url string) bool {
	return githubRegex.MatchString(url)
}
