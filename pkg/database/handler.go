// package database provides the miner server with a wrapper around an
// sql database connection pool and the public methods to query and access
// that database
package database

import (
	"database/sql"
	"fmt"
	"log"

	// also injects the postgres interface implementations for Go SQL
	"github.com/lib/pq"

	"github.com/openworkflow/evolog/pkg/insights"
)

// EventLogDbHandler is a wrapper around *sql.DB. It provides a single point
// where internal methods and queries can access the event log database
// connection pool.
type EventLogDbHandler struct {
	db *sql.DB
}

// NewEventLogDbHandler builds an EventLogDbHandler based on the provided
// database connection parameters
func NewEventLogDbHandler(host, port, user, pwd, dbName string) *EventLogDbHandler {
	connectString := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=require", host, port, user, pwd, dbName)

	// Acquire the *sql.DB instance
	dbPool, err := sql.Open("postgres", connectString)
	if err != nil {
		log.Fatalf("Could not open database connection: %s", err)
	}

	// ping once to ensure the database values and connection are valid and working
	err = dbPool.Ping()
	if err != nil {
		log.Fatalf("Could not ping database: %s", err)
	}

	return &EventLogDbHandler{
		db: dbPool,
	}
}

// GetRepositoryID queries the id of a repository based on its git URL
func (p EventLogDbHandler) GetRepositoryID(gitURL string) (int, error) {
	var id int
	err := p.db.QueryRow("SELECT id FROM public.repos WHERE git_url=$1", gitURL).Scan(&id)
	return id, err
}

// InsertRepository inserts a git repository by its git_url along with its
// commit history summary and the number of cycles the analysis produced
func (p EventLogDbHandler) InsertRepository(gitURL string, summary insights.RepoSummary, nCycles int) (int, error) {
	var id int
	err := p.db.QueryRow(
		"INSERT INTO public.repos(git_url, n_commits, n_evolution_cycles, first_commit_at, last_commit_at, n_authors, n_committers) VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING id",
		gitURL, summary.NCommits, nCycles, summary.FirstCommitAt, summary.LastCommitAt, summary.NAuthors, summary.NCommitters).Scan(&id)
	return id, err
}

// DeleteEvolutionCycles removes all evolution cycles of a repository so a
// re-analysis starts from a clean slate. Event log rows are removed through
// the cascading foreign key.
func (p EventLogDbHandler) DeleteEvolutionCycles(repoID int) error {
	_, err := p.db.Exec("DELETE FROM public.evolution_cycles WHERE repo_id=$1", repoID)
	return err
}

// InsertEvolutionCycle inserts one evolution cycle of a repository
func (p EventLogDbHandler) InsertEvolutionCycle(repoID int, cycle insights.EvolutionCycle) (int, error) {
	var id int
	err := p.db.QueryRow(
		"INSERT INTO public.evolution_cycles(repo_id, begin_hash, begin_epoch, end_hash, end_epoch, diff_days, diff_hours, diff_mins, n_commits, n_related_commits, n_rules_added, n_rules_removed, n_modules_added, n_modules_removed, file_extensions) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id",
		repoID, cycle.Begin.Hash, cycle.Begin.Epoch, cycle.End.Hash, cycle.End.Epoch,
		cycle.DiffDays, cycle.DiffHours, cycle.DiffMins, cycle.NCommits, cycle.NRelatedCommits,
		cycle.RulesAdded, cycle.RulesRemoved, cycle.ModulesAdded, cycle.ModulesRemoved,
		pq.Array(cycle.FileExtensions)).Scan(&id)
	return id, err
}

// InsertEventLogEntry inserts one event log entry of an evolution cycle. The
// username column is nullable for entries with no resolvable actor.
func (p EventLogDbHandler) InsertEventLogEntry(cycleID int, entry insights.EventLogEntry) error {
	var username sql.NullString
	if entry.User != nil {
		username = sql.NullString{String: *entry.User, Valid: true}
	}
	_, err := p.db.Exec("INSERT INTO event_logs(cycle_id, case_id, activity, timestamp, username) VALUES($1, $2, $3, $4, $5)",
		cycleID, entry.CaseID, entry.Activity, entry.Timestamp, username)
	return err
}
