package model

import (
	"strconv"
	"time"
)

// Metadata keys attached to every indexed chunk.
const (
	MetaSourceType = "source_type"
	MetaFileName   = "file_name"
	MetaTimestamp  = "timestamp"
	MetaSource     = "source"
	MetaPage       = "page"

	SourceTypePDF = "pdf"
)

// Metadata is the provenance of a page or chunk.
type Metadata map[string]any

// Clone returns a shallow copy so derived chunks never share a map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+3)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document is an uploaded artifact, consumed once by ingestion.
type Document struct {
	Name       string    `json:"name"`
	Data       []byte    `json:"-"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Page is the extracted text of one PDF page.
type Page struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Chunk is a unit of indexed text.
type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Hit is a single similarity match, best first.
type Hit struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

// ChatTurn is one question/answer exchange.
type ChatTurn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

type AskRequest struct {
	Question string `json:"question"`
}

// ChunkID builds the deterministic id of the ordinal-th chunk of a document.
func ChunkID(docName string, ordinal int) string {
	return docName + "-" + strconv.Itoa(ordinal)
}
