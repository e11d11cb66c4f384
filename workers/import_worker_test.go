package workers

import (
	"sync"
	"testing"
	"time"

	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/realtime"
	"github.com/camden-git/familytreebackend/repository"
	"github.com/camden-git/familytreebackend/services"
	"github.com/camden-git/familytreebackend/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallTree = `0 HEAD
0 @I1@ INDI
1 NAME Anna /Holm/
1 FAMS @F1@
0 @I2@ INDI
1 NAME Erik /Holm/
1 FAMC @F1@
0 @F1@ FAM
1 WIFE @I1@
1 CHIL @I2@
0 TRLR
`

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Broadcast(event realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) find(eventType string) (realtime.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == eventType {
			return e, true
		}
	}
	return realtime.Event{}, false
}

func newImportService(t *testing.T) (*services.ImportService, *repository.PersonRepository) {
	t.Helper()
	db := testhelper.NewGormDB(t)
	people := repository.NewPersonRepository(db)
	rels := repository.NewRelationshipRepository(db)
	tree := services.NewTreeService(people, rels, services.NewGenerationService(people, rels, 25, 100))
	return services.NewImportService(testhelper.NewLedgerDB(t), tree, 100, 0), people
}

func TestImportProcessor_Submit(t *testing.T) {
	svc, people := newImportService(t)
	events := &recorder{}
	proc := NewImportProcessor(svc, events, 4, 1)
	defer proc.Stop()

	run, err := proc.Submit("tree", "holm.ged", []byte(smallTree))
	require.NoError(t, err)
	assert.Equal(t, database.StatusQueued, run.Status)

	var finished realtime.Event
	require.Eventually(t, func() bool {
		var ok bool
		finished, ok = events.find(realtime.EventImportFinished)
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, run.ID, finished.RunID)
	assert.Equal(t, database.StatusDone, finished.Status)
	assert.Empty(t, finished.Error)
	assert.Equal(t, 2, finished.Done)

	_, changed := events.find(realtime.EventTreeChanged)
	assert.True(t, changed)

	stored, err := people.ListByTree("tree")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = proc.Submit("tree", "holm.ged", []byte(smallTree))
	assert.ErrorIs(t, err, services.ErrAlreadyImported)
}

func TestImportProcessor_QueueJob(t *testing.T) {
	proc := &ImportProcessor{
		JobQueue: make(chan ImportJob, 1),
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}

	first := ImportJob{Run: database.ImportRun{ID: 1, TreeID: "tree", Fingerprint: "abc"}}
	assert.True(t, proc.QueueJob(first))
	assert.False(t, proc.QueueJob(first), "same content for the same tree is pending")

	other := ImportJob{Run: database.ImportRun{ID: 2, TreeID: "tree", Fingerprint: "def"}}
	assert.False(t, proc.QueueJob(other), "queue is full")
	assert.False(t, proc.Pending["tree:def"])

	<-proc.JobQueue
	assert.True(t, proc.QueueJob(other))
}
