package commonModels

import "time"

type Document struct {
	Id                  string    `json:"source_doc_id"`
	Name                string    `json:"doc_name"`
	LastIngestTimestamp time.Time `json:"ingested_at"`
	ContentType         DocType   `json:"contentType"`
}

type DocChunk struct {
	Doc            Document
	ChunkId        string `json:"chunk_id"`
	Chunk          string `json:"content"`
	PageNum        int    `json:"page_num"`
	ChunkPageOrder int    `json:"chunk_order"`
	EmbeddingModel string `json:"embeddingModel"`
}

// Passage is one retrieval hit.
type Passage struct {
	Content string  `json:"content"`
	DocName string  `json:"doc_name"`
	PageNum int64   `json:"page_num"`
	Score   float32 `json:"score"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"
