package model

// AnswerPath records which branch produced an answer.
type AnswerPath string

const (
	PathContext   AnswerPath = "context"
	PathNoContext AnswerPath = "no_context"
	PathWeb       AnswerPath = "web"
)

// Answer is the typed outcome of one question. Text is always displayable:
// on failure it carries the provider error string.
type Answer struct {
	Text    string     `json:"answer"`
	Path    AnswerPath `json:"path"`
	Sources []Hit      `json:"sources,omitempty"`
	Kind    ErrorKind  `json:"errorKind,omitempty"`
	Err     error      `json:"-"`
}

// Failed reports whether the answer is an error answer.
func (a Answer) Failed() bool { return a.Err != nil }

// IngestStatus is the per-file outcome of ingestion.
type IngestStatus string

const (
	StatusIndexed IngestStatus = "indexed"
	StatusSkipped IngestStatus = "skipped"
	StatusFailed  IngestStatus = "failed"
)

// IngestResult reports what happened to one uploaded document.
type IngestResult struct {
	FileName string       `json:"fileName"`
	Status   IngestStatus `json:"status"`
	Chunks   int          `json:"chunks"`
	Kind     ErrorKind    `json:"errorKind,omitempty"`
	Err      error        `json:"-"`
}

// OK reports whether the document is present in the index afterwards.
func (r IngestResult) OK() bool { return r.Status != StatusFailed }
