package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pdfqa/internal/answer"
)

// RunStatus is the lifecycle state of a question run.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusStopped   RunStatus = "stopped"
	StatusFailed    RunStatus = "failed"
	StatusExported  RunStatus = "exported"
)

// Run is the session state of answering the question bank for one document.
// Only the runner mutates it; readers use Snapshot and Answers.
type Run struct {
	mu sync.Mutex

	ID       string
	Filename string
	Strategy answer.Strategy
	Force    bool // ignore cached answers
	Manual   bool // the upload is pasted text, not a PDF

	status      RunStatus
	phase       string
	title       string
	docID       string
	contentHash string
	method      string
	pages       int
	chunks      int
	current     int
	total       int
	slots       []answer.Answer
	filled      []bool
	errors      []string

	stop atomic.Bool

	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	updatedAt  time.Time

	// Internal: not serialized.
	fileData []byte
}

// NewRun creates an idle run for filename.
func NewRun(filename string) *Run {
	now := time.Now()
	return &Run{
		ID:        uuid.NewString(),
		Filename:  filename,
		status:    StatusIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// RequestStop asks the runner to issue no further questions. Questions
// already in flight finish and are recorded.
func (r *Run) RequestStop() {
	r.stop.Store(true)
}

// StopRequested reports whether RequestStop was called.
func (r *Run) StopRequested() bool {
	return r.stop.Load()
}

// Status returns the current state.
func (r *Run) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Run) setStatus(status RunStatus, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.phase = phase
	r.updatedAt = time.Now()
	if status == StatusRunning && r.startedAt.IsZero() {
		r.startedAt = r.updatedAt
	}
	if isTerminal(status) && r.finishedAt.IsZero() {
		r.finishedAt = r.updatedAt
	}
}

// fail records err and moves the run to failed.
func (r *Run) fail(phase string, err error) {
	r.AddError(fmt.Sprintf("%s: %s", phase, err))
	r.setStatus(StatusFailed, phase)
}

// AddError records an error.
func (r *Run) AddError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
	r.updatedAt = time.Now()
}

// setDocument records the extracted document's identity.
func (r *Run) setDocument(docID, title, hash, method string, pages, chunks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docID = docID
	r.title = title
	r.contentHash = hash
	r.method = method
	r.pages = pages
	r.chunks = chunks
	r.updatedAt = time.Now()
}

// begin resets progress for a bank of total questions.
func (r *Run) begin(total int) {
	r.mu.Lock()
	r.current = 0
	r.total = total
	r.slots = make([]answer.Answer, total)
	r.filled = make([]bool, total)
	r.errors = nil
	r.mu.Unlock()
	r.setStatus(StatusRunning, "answering")
}

// record stores a at bank position pos and returns the number of questions
// recorded so far.
func (r *Run) record(pos int, a answer.Answer) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.filled[pos] {
		r.filled[pos] = true
		r.current++
	}
	r.slots[pos] = a
	if a.Status == answer.StatusFailed {
		r.errors = append(r.errors, fmt.Sprintf("%s: %s", a.QuestionID, a.Error))
	}
	r.updatedAt = time.Now()
	return r.current
}

// Answers returns the recorded answers in bank order. Questions that were
// never issued are omitted.
func (r *Run) Answers() []answer.Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]answer.Answer, 0, r.current)
	for i, ok := range r.filled {
		if ok {
			out = append(out, r.slots[i])
		}
	}
	return out
}

// MarkExported moves a finished run to exported.
func (r *Run) MarkExported() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.status {
	case StatusCompleted, StatusStopped, StatusExported:
		r.status = StatusExported
		r.updatedAt = time.Now()
		return nil
	default:
		return fmt.Errorf("run %s is %s, not finished", r.ID, r.status)
	}
}

// Exportable reports whether the run has finished answering.
func (r *Run) Exportable() bool {
	switch r.Status() {
	case StatusCompleted, StatusStopped, StatusExported:
		return true
	}
	return false
}

// SetFileData sets the raw upload bytes for processing.
func (r *Run) SetFileData(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileData = data
}

// takeFileData returns the upload bytes and releases them from the run.
func (r *Run) takeFileData() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := r.fileData
	r.fileData = nil
	return data
}

func isTerminal(s RunStatus) bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusFailed
}

// Progress tracks answering progress.
type Progress struct {
	Current  int      `json:"current"`
	Total    int      `json:"total"`
	Answered int      `json:"answered"`
	NoAnswer int      `json:"no_answer"`
	Failed   int      `json:"failed"`
	Cached   int      `json:"cached"`
	Errors   []string `json:"errors"`
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID            string          `json:"run_id"`
	Status        RunStatus       `json:"status"`
	Phase         string          `json:"phase"`
	Filename      string          `json:"filename"`
	Title         string          `json:"title,omitempty"`
	DocID         string          `json:"doc_id,omitempty"`
	ContentHash   string          `json:"content_hash,omitempty"`
	Method        string          `json:"method,omitempty"`
	Pages         int             `json:"pages"`
	Chunks        int             `json:"chunks"`
	Strategy      answer.Strategy `json:"strategy,omitempty"`
	StopRequested bool            `json:"stop_requested"`
	Progress      Progress        `json:"progress"`
	CreatedAt     time.Time       `json:"created_at"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := make([]string, len(r.errors))
	copy(errs, r.errors)
	p := Progress{Current: r.current, Total: r.total, Errors: errs}
	for i, ok := range r.filled {
		if !ok {
			continue
		}
		a := r.slots[i]
		switch a.Status {
		case answer.StatusAnswered:
			p.Answered++
		case answer.StatusFailed:
			p.Failed++
		default:
			p.NoAnswer++
		}
		if a.Cached {
			p.Cached++
		}
	}

	snap := RunSnapshot{
		ID:            r.ID,
		Status:        r.status,
		Phase:         r.phase,
		Filename:      r.Filename,
		Title:         r.title,
		DocID:         r.docID,
		ContentHash:   r.contentHash,
		Method:        r.method,
		Pages:         r.pages,
		Chunks:        r.chunks,
		Strategy:      r.Strategy,
		StopRequested: r.stop.Load(),
		Progress:      p,
		CreatedAt:     r.createdAt,
	}
	if !r.startedAt.IsZero() {
		t := r.startedAt
		snap.StartedAt = &t
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		snap.FinishedAt = &t
	}
	return snap
}
