// package server serves the workflow mining service: it accepts repository
// analysis requests, runs the evolution cycle segmentation and event log
// synthesis, and persists the results.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/openworkflow/evolog/pkg/common"
	"github.com/openworkflow/evolog/pkg/database"
	"github.com/openworkflow/evolog/pkg/extract"
	"github.com/openworkflow/evolog/pkg/forge"
	"github.com/openworkflow/evolog/pkg/insights"
	"github.com/openworkflow/evolog/pkg/providers"
	"github.com/openworkflow/evolog/pkg/validator"
)

// MinerServer ties the repository provider, the git forge client and the
// database handler together behind the analysis HTTP endpoints.
type MinerServer struct {
	Logger      *zap.SugaredLogger
	DB          *database.EventLogDbHandler
	GitProvider providers.GitRepoProvider
	Forge       forge.Forge
}

// NewMinerServer returns a MinerServer wired with the provided logger, db
// handler, git repo provider and forge client
func NewMinerServer(logger *zap.SugaredLogger, dbHandler *database.EventLogDbHandler, provider providers.GitRepoProvider, forgeClient forge.Forge) *MinerServer {
	return &MinerServer{
		Logger:      logger,
		DB:          dbHandler,
		GitProvider: provider,
		Forge:       forgeClient,
	}
}

// Run starts the http server on the provided port
func (p MinerServer) Run(serverPort string) {
	//nolint:errcheck
	defer p.Logger.Sync()
	p.Logger.Infof("Starting server on port %s", serverPort)
	http.HandleFunc("/analyze", p.handleAnalyze)
	http.HandleFunc("/ping", p.pingHandler)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%s", serverPort), nil))
}

type reqData struct {
	URL string `json:"url"`
}

// analysisResult is the response body of a successful analysis request.
type analysisResult struct {
	Repo             string `json:"repo"`
	NCommits         int    `json:"n_commits"`
	NEvolutionCycles int    `json:"n_evolution_cycles"`
	NEventLogEntries int    `json:"n_event_log_entries"`
}

func (p MinerServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		p.Logger.Errorf("Received request with invalid method: %v", r.Body)
		http.Error(w, "Invalid request method, expected post", http.StatusMethodNotAllowed)
		return
	}

	var data reqData
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		p.Logger.Errorf("Could not decode request json body: %v with error: %v", r.Body, err)
		http.Error(w, "Could not decode request body", http.StatusBadRequest)
		return
	}

	normalizedURL, err := common.NormalizeGitURL(data.URL)
	if err != nil {
		p.Logger.Errorf("Could not normalize repo URL: %s with error: %v", data.URL, err)
		http.Error(w, "Could not normalize repo URL", http.StatusBadRequest)
		return
	}

	v := validator.New()
	validator.ValidateURL(v, normalizedURL)
	if !v.Valid() {
		p.Logger.Errorf("Rejected repo URL: %s with validation errors: %v", normalizedURL, v.Errors)
		http.Error(w, "The provided URL is not an analyzable repository", http.StatusBadRequest)
		return
	}

	result, err := p.processRepository(normalizedURL)
	if err != nil {
		p.Logger.Errorf("Could not process repository input: %v with error: %v", normalizedURL, err)
		http.Error(w, "Could not process input", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		p.Logger.Errorf("Could not encode response body: %v", err)
	}
}

func (p MinerServer) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		p.Logger.Errorf("Could not connect to /ping endpoint: %v", err.Error())
		http.Error(w, "Could not connect, server is down", http.StatusInternalServerError)
	}
}

// processRepository runs the full mining pipeline for one repository: commit
// extraction, cycle segmentation, event log synthesis per cycle, and
// persistence of all results.
func (p MinerServer) processRepository(repoURL string) (*analysisResult, error) {
	owner, repoName, err := common.OwnerAndRepo(repoURL)
	if err != nil {
		return nil, err
	}

	p.Logger.Debugf("Fetching repo from git provider: %s", repoURL)
	gitRepo, err := p.GitProvider.FetchRepo(repoURL)
	if err != nil {
		return nil, err
	}
	defer gitRepo.Done()

	p.Logger.Debugf("Extracting commit history: %s", repoURL)
	commits, err := extract.CommitHistory(gitRepo.GetRepo(), p.Logger)
	if err != nil {
		return nil, err
	}

	timeline, err := insights.NewCommitTimeline(commits)
	if err != nil {
		return nil, err
	}

	p.Logger.Debugf("Segmenting evolution cycles: %s", repoURL)
	cycles, err := insights.SegmentCycles(timeline, commits)
	if err != nil {
		return nil, err
	}

	summary, err := insights.SummarizeRepository(commits)
	if err != nil {
		return nil, err
	}

	p.Logger.Debugf("Fetching collaboration history from forge: %s/%s", owner, repoName)
	issues, err := p.Forge.FetchIssues(owner, repoName)
	if err != nil {
		return nil, err
	}
	comments, err := p.Forge.FetchComments(owner, repoName)
	if err != nil {
		return nil, err
	}
	events, err := p.Forge.FetchEvents(owner, repoName)
	if err != nil {
		return nil, err
	}
	pullRequests, err := p.Forge.FetchPullRequests(owner, repoName)
	if err != nil {
		return nil, err
	}

	p.Logger.Debugf("Checking if repository is already in database: %s", repoURL)
	repoID, err := p.DB.GetRepositoryID(repoURL)
	if err != nil {
		if err == sql.ErrNoRows {
			p.Logger.Debugf("No repo found in db. Inserting repo: %s", repoURL)
			repoID, err = p.DB.InsertRepository(repoURL, summary, len(cycles))
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	} else {
		// Re-analysis replaces the previously stored cycles and event logs.
		p.Logger.Debugf("Repo already analyzed. Clearing stored cycles: %s", repoURL)
		if err := p.DB.DeleteEvolutionCycles(repoID); err != nil {
			return nil, err
		}
	}

	synthesizer := insights.NewEventLogSynthesizer(timeline, commits, p.Logger)

	totalEntries := 0
	for _, cycle := range cycles {
		p.Logger.Debugf("Synthesizing event log for cycle %s..%s", cycle.Begin.Hash, cycle.End.Hash)
		entries, err := synthesizer.Synthesize(cycle, issues, comments, events, pullRequests)
		if err != nil {
			return nil, err
		}

		cycleID, err := p.DB.InsertEvolutionCycle(repoID, cycle)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if err := p.DB.InsertEventLogEntry(cycleID, entry); err != nil {
				return nil, err
			}
		}

		totalEntries += len(entries)
	}

	return &analysisResult{
		Repo:             repoURL,
		NCommits:         summary.NCommits,
		NEvolutionCycles: len(cycles),
		NEventLogEntries: totalEntries,
	}, nil
}
