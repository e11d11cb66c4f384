package workers

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/realtime"
	"github.com/camden-git/familytreebackend/services"
)

// ErrQueueFull is returned when an import could not be queued.
var ErrQueueFull = errors.New("import queue is full")

// Broadcaster receives progress events. *realtime.Hub implements it.
type Broadcaster interface {
	Broadcast(event realtime.Event)
}

type ImportJob struct {
	Run     database.ImportRun
	Content []byte
}

type ImportProcessor struct {
	JobQueue chan ImportJob
	Service  *services.ImportService
	Events   Broadcaster
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex
}

func NewImportProcessor(service *services.ImportService, events Broadcaster, queueSize, numWorkers int) *ImportProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	proc := &ImportProcessor{
		JobQueue: make(chan ImportJob, queueSize),
		Service:  service,
		Events:   events,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d import worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func pendingKey(run database.ImportRun) string {
	return fmt.Sprintf("%s:%s", run.TreeID, run.Fingerprint)
}

// worker commits queued imports one at a time
func (ip *ImportProcessor) worker(id int) {
	defer ip.Wg.Done()

	log.Printf("Import worker %d started", id)
	for {
		select {
		case job, ok := <-ip.JobQueue:
			if !ok {
				log.Printf("Import worker %d stopping: Job queue closed", id)
				return
			}
			log.Printf("Worker %d: Received import run %d (%s) for tree %s", id, job.Run.ID, job.Run.Filename, job.Run.TreeID)
			ip.processJob(job)

			ip.Mutex.Lock()
			delete(ip.Pending, pendingKey(job.Run))
			ip.Mutex.Unlock()

		case <-ip.StopChan:
			log.Printf("Import worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (ip *ImportProcessor) processJob(job ImportJob) {
	run, err := ip.Service.Run(job.Run, job.Content, func(p services.ImportProgress) {
		ip.broadcast(realtime.Event{
			Type:    realtime.EventImportProgress,
			TreeID:  p.TreeID,
			RunID:   p.RunID,
			Stage:   p.Stage,
			Done:    p.Done,
			Total:   p.Total,
			Message: p.Message,
		})
	})

	finished := realtime.Event{
		Type:   realtime.EventImportFinished,
		TreeID: run.TreeID,
		RunID:  run.ID,
		Status: run.Status,
		Done:   run.PeopleImported,
		Total:  run.PeopleImported + run.PeopleSkipped,
		Extra: map[string]interface{}{
			"relationships_imported": run.RelationshipsImported,
			"generations":            run.Generations,
			"parse_errors":           run.ParseErrors,
			"parse_warnings":         run.ParseWarnings,
		},
	}
	if err != nil {
		finished.Error = err.Error()
	} else {
		ip.broadcast(realtime.Event{Type: realtime.EventTreeChanged, TreeID: run.TreeID})
	}
	ip.broadcast(finished)
}

func (ip *ImportProcessor) broadcast(event realtime.Event) {
	if ip.Events != nil {
		ip.Events.Broadcast(event)
	}
}

// QueueJob adds a registered run to the queue. It returns false when the same content
// is already pending for the tree or the queue is full.
func (ip *ImportProcessor) QueueJob(job ImportJob) bool {
	key := pendingKey(job.Run)

	ip.Mutex.Lock()
	if ip.Pending[key] {
		ip.Mutex.Unlock()
		return false
	}

	ip.Pending[key] = true
	ip.Mutex.Unlock()

	select {
	case ip.JobQueue <- job:
		log.Printf("Queued import run %d (%s) for tree %s", job.Run.ID, job.Run.Filename, job.Run.TreeID)
		return true
	default:
		log.Printf("WARNING: Import job queue full. Failed to queue run %d for tree %s", job.Run.ID, job.Run.TreeID)
		ip.Mutex.Lock()
		delete(ip.Pending, key)
		ip.Mutex.Unlock()
		return false
	}
}

// Submit registers an import in the ledger and queues it. Content already imported into
// the tree returns the earlier run with services.ErrAlreadyImported.
func (ip *ImportProcessor) Submit(treeID, filename string, content []byte) (database.ImportRun, error) {
	run, err := ip.Service.Register(treeID, filename, content)
	if err != nil {
		return run, err
	}
	if !ip.QueueJob(ImportJob{Run: run, Content: content}) {
		if abandonErr := ip.Service.Abandon(run, ErrQueueFull); abandonErr != nil {
			log.Printf("Failed to abandon import run %d: %v", run.ID, abandonErr)
		}
		return run, ErrQueueFull
	}
	ip.broadcast(realtime.Event{
		Type:   realtime.EventImportProgress,
		TreeID: run.TreeID,
		RunID:  run.ID,
		Stage:  services.StageQueued,
	})
	return run, nil
}

// Stop signals the workers and waits for the running imports to finish. Queued jobs that
// were not started stay queued in the ledger and are failed on the next start.
func (ip *ImportProcessor) Stop() {
	log.Println("Stopping import workers...")
	close(ip.StopChan)
	ip.Wg.Wait()
	log.Println("All import workers stopped")
}
