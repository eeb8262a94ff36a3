package worker

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/G-Node/formwork/formwork/db"
)

// ErrQueueFull is returned by Enqueue when the queue has no free slots.
var ErrQueueFull = errors.New("submission queue is full")

// SubmitAction processes the values of an accepted form submission.  The
// returned messages are stored with the submission.
type SubmitAction func(formID string, values map[string]string) ([]string, error)

// Worker with queue for processing accepted submissions asynchronously.
type Worker struct {
	queue  chan *db.Submission
	stop   chan bool
	done   chan bool
	Action SubmitAction
	db     *db.Connection
	log    *log.Logger
}

// New returns a Worker with a queue of the given length.
func New(dbconn *db.Connection, queueLength int) *Worker {
	if queueLength <= 0 {
		queueLength = 100
	}
	w := new(Worker)
	w.queue = make(chan *db.Submission, queueLength)
	w.stop = make(chan bool)
	w.done = make(chan bool)
	w.db = dbconn
	w.log = log.New(os.Stderr, "", log.LstdFlags)
	return w
}

// SetLogger sets the logger used for worker messages.
func (w *Worker) SetLogger(logger *log.Logger) {
	w.log = logger
}

// Enqueue stores the submission in the database and adds it to the queue.
// It does not block: when the queue is full the stored submission is marked
// as failed and ErrQueueFull is returned.
func (w *Worker) Enqueue(s *db.Submission) error {
	s.SubmitTime = time.Now()
	if err := w.db.InsertSubmission(s); err != nil {
		w.log.Printf("Error inserting submission %+v into db: %v", s, err)
		return err
	}
	select {
	case w.queue <- s:
		return nil
	default:
	}

	w.log.Printf("Submission [S%d] rejected: queue full", s.ID)
	s.Error = ErrQueueFull.Error()
	s.EndTime = time.Now()
	if err := w.db.UpdateSubmission(s); err != nil {
		w.log.Printf("Error updating submission [S%d]: %v", s.ID, err)
	}
	return ErrQueueFull
}

// Stop signals the worker to stop and waits for the submission in progress to
// finish.  Queued submissions that were not started remain unfinished in the
// database.
func (w *Worker) Stop() {
	w.stop <- true
	<-w.done
}

func (w *Worker) run(s *db.Submission) {
	defer func() {
		// Update submission entry in db when done
		if err := w.db.UpdateSubmission(s); err != nil {
			w.log.Printf("Error updating submission [S%d]: %v", s.ID, err)
		}
	}()
	w.log.Printf("Processing submission [S%d] of form %q", s.ID, s.FormID)
	msgs, err := w.Action(s.FormID, s.ValueMap)
	s.Messages = msgs
	s.EndTime = time.Now()
	if err == nil {
		w.log.Printf("Submission [S%d] finished", s.ID)
	} else {
		w.log.Printf("Submission [S%d] failed: %s", s.ID, err)
		s.Error = err.Error()
	}
}

// Start runs the worker loop in a goroutine and returns.
func (w *Worker) Start() {
	go func() {
		defer close(w.done)
		for {
			select {
			case sub := <-w.queue:
				w.run(sub)
			case <-w.stop:
				return
			}
		}
	}()
	w.log.Print("Worker started")
}
