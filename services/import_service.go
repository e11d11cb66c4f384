package services

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/gedcom"
	"github.com/camden-git/familytreebackend/repository"
	"golang.org/x/crypto/blake2b"
)

// ErrAlreadyImported is returned when the same content was already queued or committed
// into the same tree.
var ErrAlreadyImported = errors.New("content already imported into this tree")

// import stages reported through ImportProgress
const (
	StageQueued        = "queued"
	StageParsing       = "parsing"
	StageMembers       = "members"
	StageRelationships = "relationships"
	StageGenerations   = "generations"
	StageDone          = "done"
	StageError         = "error"
)

// ImportProgress is emitted after every stage and every stored batch.
type ImportProgress struct {
	RunID   int64  `json:"run_id"`
	TreeID  string `json:"tree_id"`
	Stage   string `json:"stage"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives import progress. It may be nil.
type ProgressFunc func(ImportProgress)

// ImportService parses uploaded files and commits them into a tree, keeping a ledger of
// every run.
type ImportService struct {
	ledger           *sql.DB
	tree             *TreeService
	batchSize        int
	maxLifespanYears int
}

// NewImportService creates a new import service
func NewImportService(ledger *sql.DB, tree *TreeService, batchSize, maxLifespanYears int) *ImportService {
	return &ImportService{
		ledger:           ledger,
		tree:             tree,
		batchSize:        repository.ClampBatchSize(batchSize),
		maxLifespanYears: maxLifespanYears,
	}
}

// Fingerprint identifies uploaded content.
func Fingerprint(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (s *ImportService) parseOptions(treeID string) gedcom.Options {
	return gedcom.Options{TreeID: treeID, MaxLifespanYears: s.maxLifespanYears}
}

// Preview parses content without storing anything.
func (s *ImportService) Preview(filename string, content []byte) (*gedcom.Result, error) {
	return gedcom.ParseFile(filename, content, s.parseOptions(""))
}

// Register records a queued run. When the same content is already queued, running or
// committed for the tree, the existing run is returned with ErrAlreadyImported.
func (s *ImportService) Register(treeID, filename string, content []byte) (database.ImportRun, error) {
	fingerprint := Fingerprint(content)
	existing, err := database.FindImportRunByFingerprint(s.ledger, treeID, fingerprint)
	if err == nil {
		return existing, ErrAlreadyImported
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.ImportRun{}, err
	}

	format := gedcom.DetectFormat(filename, content)
	runID, err := database.CreateImportRun(s.ledger, fingerprint, treeID, filename, format)
	if err != nil {
		return database.ImportRun{}, err
	}
	return database.GetImportRun(s.ledger, runID)
}

// Commit registers and runs an import synchronously.
func (s *ImportService) Commit(treeID, filename string, content []byte, progress ProgressFunc) (database.ImportRun, error) {
	run, err := s.Register(treeID, filename, content)
	if err != nil {
		return run, err
	}
	return s.Run(run, content, progress)
}

// Run parses content and stores it into the run's tree: members first, then
// relationships, then a generation recalculation. The outcome is written to the ledger
// whether or not the run succeeds. Parse errors that are not fatal do not stop a run;
// they are counted on it.
func (s *ImportService) Run(run database.ImportRun, content []byte, progress ProgressFunc) (database.ImportRun, error) {
	emit := func(stage string, done, total int, message string) {
		if progress != nil {
			progress(ImportProgress{RunID: run.ID, TreeID: run.TreeID, Stage: stage, Done: done, Total: total, Message: message})
		}
	}
	fail := func(err error) (database.ImportRun, error) {
		log.Printf("Import run %d for tree %s failed: %v", run.ID, run.TreeID, err)
		if dbErr := database.SetImportRunResult(s.ledger, run, err); dbErr != nil {
			log.Printf("Failed to store failed result of import run %d: %v", run.ID, dbErr)
		}
		run.Status = database.StatusError
		msg := err.Error()
		run.Error = &msg
		emit(StageError, 0, 0, msg)
		return run, err
	}

	if err := database.MarkImportRunProcessing(s.ledger, run.ID); err != nil {
		return run, fmt.Errorf("failed to start import run %d: %w", run.ID, err)
	}
	run.Status = database.StatusProcessing

	emit(StageParsing, 0, 1, run.Filename)
	result, err := gedcom.ParseFile(run.Filename, content, s.parseOptions(run.TreeID))
	if err != nil {
		return fail(fmt.Errorf("failed to parse %s: %w", run.Filename, err))
	}
	run.Format = result.Format
	run.ParseErrors = len(result.Errors)
	run.ParseWarnings = len(result.Warnings)
	emit(StageParsing, 1, 1, fmt.Sprintf("%d people, %d relationships", len(result.Individuals), len(result.Relationships)))

	total := len(result.Individuals)
	for start := 0; start < total; start += s.batchSize {
		end := min(start+s.batchSize, total)
		batch := s.tree.BatchImportMembers(result.Individuals[start:end], s.batchSize)
		run.PeopleImported += batch.Imported
		run.PeopleSkipped += batch.Skipped
		for _, msg := range batch.Errors {
			log.Printf("Import run %d members: %s", run.ID, msg)
		}
		emit(StageMembers, end, total, "")
	}

	total = len(result.Relationships)
	for start := 0; start < total; start += s.batchSize {
		end := min(start+s.batchSize, total)
		batch := s.tree.BatchImportRelationships(result.Relationships[start:end], s.batchSize)
		run.RelationshipsImported += batch.Imported
		run.RelationshipsSkipped += batch.Skipped
		for _, msg := range batch.Errors {
			log.Printf("Import run %d relationships: %s", run.ID, msg)
		}
		emit(StageRelationships, end, total, "")
	}

	emit(StageGenerations, 0, 1, "")
	report, err := s.tree.CalculateGenerations(run.TreeID)
	if err != nil {
		return fail(err)
	}
	run.Generations = report.Levels
	emit(StageGenerations, 1, 1, "")

	if err := database.SetImportRunResult(s.ledger, run, nil); err != nil {
		return run, fmt.Errorf("failed to store result of import run %d: %w", run.ID, err)
	}
	run.Status = database.StatusDone
	emit(StageDone, run.PeopleImported, len(result.Individuals), "")
	log.Printf("Import run %d for tree %s done: %d people, %d relationships, %d generations",
		run.ID, run.TreeID, run.PeopleImported, run.RelationshipsImported, run.Generations)
	return run, nil
}

// ListRuns returns the ledger of a tree, newest first.
func (s *ImportService) ListRuns(treeID string) ([]database.ImportRun, error) {
	return database.ListImportRuns(s.ledger, treeID)
}

// Abandon marks a registered run as failed without running it.
func (s *ImportService) Abandon(run database.ImportRun, reason error) error {
	return database.SetImportRunResult(s.ledger, run, reason)
}

// FailUnfinished marks runs left queued or processing by a previous process as failed,
// so their content can be imported again.
func (s *ImportService) FailUnfinished() (int, error) {
	runs, err := database.ListUnfinishedImportRuns(s.ledger)
	if err != nil {
		return 0, err
	}
	for _, run := range runs {
		if err := database.SetImportRunResult(s.ledger, run, errors.New("interrupted by restart")); err != nil {
			return 0, err
		}
	}
	return len(runs), nil
}
