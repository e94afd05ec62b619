package domain

import (
	"context"
	"encoding/json"
)

// Document is the wire shape of a merged per-user document: a flat set of
// named fields, each an opaque JSON value. Merge-writes replace only the
// fields present in the payload.
type Document map[string]json.RawMessage

// Record is one independently addressable entry of a record collection.
type Record struct {
	ID   string
	Data json.RawMessage
}

// BatchOpKind discriminates the operations an atomic batch may carry.
type BatchOpKind string

const (
	BatchOpCreateRecord  BatchOpKind = "create_record"
	BatchOpDeleteRecord  BatchOpKind = "delete_record"
	BatchOpMergeDocument BatchOpKind = "merge_document"
	BatchOpDeleteField   BatchOpKind = "delete_field"
)

// BatchOp is one operation inside an atomic batch. Record ids inside a batch
// are pre-generated with NewRecordID, mirroring how the store hands out
// identifiers before the write commits.
type BatchOp struct {
	Kind       BatchOpKind
	Path       string          // document path (merge_document, delete_field)
	Field      string          // field name (delete_field)
	Collection string          // collection path (create_record, delete_record)
	RecordID   string          // record id (create_record, delete_record)
	Data       json.RawMessage // payload (create_record, merge_document)
}

// DocumentStore is the capability surface of the remote per-user document
// store. Implementations must make ApplyBatch all-or-nothing; everything
// else is a single independent operation.
type DocumentStore interface {
	// ReadDocument returns the document at path, or ErrDocumentNotFound.
	ReadDocument(ctx context.Context, path string) (Document, error)
	// WriteDocument stores data at path. With merge set, fields absent from
	// data are left untouched; otherwise the document is replaced whole.
	WriteDocument(ctx context.Context, path string, data Document, merge bool) error
	// CreateRecord appends a record to the collection and returns its
	// store-generated identifier.
	CreateRecord(ctx context.Context, collection string, data json.RawMessage) (string, error)
	// ListRecords returns all records of a collection in arrival order.
	ListRecords(ctx context.Context, collection string) ([]Record, error)
	// UpdateRecord merges partial into an existing record's payload.
	UpdateRecord(ctx context.Context, collection, id string, partial json.RawMessage) error
	// DeleteRecord removes a record by id.
	DeleteRecord(ctx context.Context, collection, id string) error
	// NewRecordID hands out a fresh record identifier for use in a batch.
	NewRecordID() string
	// ApplyBatch commits all operations or none of them.
	ApplyBatch(ctx context.Context, ops []BatchOp) error
}
