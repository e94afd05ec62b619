package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dcanales/billetera-backend/internal/domain"
)

// DocumentWrite records one WriteDocument call for assertions.
type DocumentWrite struct {
	Path  string
	Data  domain.Document
	Merge bool
}

// MockDocumentStore is an in-memory implementation of domain.DocumentStore.
// Per-method Fn overrides allow individual calls to be intercepted or failed.
type MockDocumentStore struct {
	mu        sync.Mutex
	Documents map[string]domain.Document
	Records   map[string][]domain.Record
	NextID    int

	// Call tracking
	Writes       []DocumentWrite
	CreateCount  int
	BatchCount   int
	UpdateCalls  map[string]json.RawMessage // record id -> last partial payload
	DeletedIDs   []string

	ReadDocumentFn  func(path string) (domain.Document, error)
	WriteDocumentFn func(path string, data domain.Document, merge bool) error
	CreateRecordFn  func(collection string, data json.RawMessage) (string, error)
	ListRecordsFn   func(collection string) ([]domain.Record, error)
	UpdateRecordFn  func(collection, id string, partial json.RawMessage) error
	DeleteRecordFn  func(collection, id string) error
	ApplyBatchFn    func(ops []domain.BatchOp) error
}

// NewMockDocumentStore creates a new MockDocumentStore.
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		Documents:   make(map[string]domain.Document),
		Records:     make(map[string][]domain.Record),
		UpdateCalls: make(map[string]json.RawMessage),
		NextID:      1,
	}
}

// SetDocument seeds a document (helper for tests).
func (m *MockDocumentStore) SetDocument(path string, doc domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents[path] = doc
}

// SetDocumentField seeds one field of a document from a Go value (helper for tests).
func (m *MockDocumentStore) SetDocumentField(path, field string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.Documents[path]
	if !ok {
		doc = domain.Document{}
		m.Documents[path] = doc
	}
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	doc[field] = raw
}

// ReadDocument returns the document at path.
func (m *MockDocumentStore) ReadDocument(_ context.Context, path string) (domain.Document, error) {
	if m.ReadDocumentFn != nil {
		return m.ReadDocumentFn(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.Documents[path]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	// Copy so callers cannot mutate the stored document
	out := make(domain.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

// WriteDocument stores or merges a document at path.
func (m *MockDocumentStore) WriteDocument(_ context.Context, path string, data domain.Document, merge bool) error {
	if m.WriteDocumentFn != nil {
		return m.WriteDocumentFn(path, data, merge)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeDocumentLocked(path, data, merge)
	return nil
}

func (m *MockDocumentStore) writeDocumentLocked(path string, data domain.Document, merge bool) {
	m.Writes = append(m.Writes, DocumentWrite{Path: path, Data: data, Merge: merge})
	if !merge {
		replaced := make(domain.Document, len(data))
		for k, v := range data {
			replaced[k] = v
		}
		m.Documents[path] = replaced
		return
	}
	doc, ok := m.Documents[path]
	if !ok {
		doc = domain.Document{}
		m.Documents[path] = doc
	}
	for k, v := range data {
		doc[k] = v
	}
}

// CreateRecord appends a record and returns its generated id.
func (m *MockDocumentStore) CreateRecord(_ context.Context, collection string, data json.RawMessage) (string, error) {
	if m.CreateRecordFn != nil {
		return m.CreateRecordFn(collection, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newRecordIDLocked()
	m.Records[collection] = append(m.Records[collection], domain.Record{ID: id, Data: data})
	m.CreateCount++
	return id, nil
}

// ListRecords returns all records of a collection in arrival order.
func (m *MockDocumentStore) ListRecords(_ context.Context, collection string) ([]domain.Record, error) {
	if m.ListRecordsFn != nil {
		return m.ListRecordsFn(collection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.Records[collection]
	out := make([]domain.Record, len(recs))
	copy(out, recs)
	return out, nil
}

// UpdateRecord merges a partial payload into an existing record.
func (m *MockDocumentStore) UpdateRecord(_ context.Context, collection, id string, partial json.RawMessage) error {
	if m.UpdateRecordFn != nil {
		return m.UpdateRecordFn(collection, id, partial)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.Records[collection] {
		if rec.ID != id {
			continue
		}
		var base, patch map[string]json.RawMessage
		if err := json.Unmarshal(rec.Data, &base); err != nil {
			return err
		}
		if err := json.Unmarshal(partial, &patch); err != nil {
			return err
		}
		for k, v := range patch {
			base[k] = v
		}
		merged, err := json.Marshal(base)
		if err != nil {
			return err
		}
		m.Records[collection][i].Data = merged
		m.UpdateCalls[id] = partial
		return nil
	}
	return domain.ErrRecordNotFound
}

// DeleteRecord removes a record by id.
func (m *MockDocumentStore) DeleteRecord(_ context.Context, collection, id string) error {
	if m.DeleteRecordFn != nil {
		return m.DeleteRecordFn(collection, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.Records[collection]
	for i, rec := range recs {
		if rec.ID == id {
			m.Records[collection] = append(recs[:i], recs[i+1:]...)
			m.DeletedIDs = append(m.DeletedIDs, id)
			return nil
		}
	}
	return domain.ErrRecordNotFound
}

// NewRecordID hands out a fresh record identifier.
func (m *MockDocumentStore) NewRecordID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newRecordIDLocked()
}

func (m *MockDocumentStore) newRecordIDLocked() string {
	id := fmt.Sprintf("rec-%d", m.NextID)
	m.NextID++
	return id
}

// ApplyBatch applies every operation or, via ApplyBatchFn, none of them.
func (m *MockDocumentStore) ApplyBatch(_ context.Context, ops []domain.BatchOp) error {
	if m.ApplyBatchFn != nil {
		return m.ApplyBatchFn(ops)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchCount++
	for _, op := range ops {
		switch op.Kind {
		case domain.BatchOpCreateRecord:
			m.Records[op.Collection] = append(m.Records[op.Collection], domain.Record{ID: op.RecordID, Data: op.Data})
			m.CreateCount++
		case domain.BatchOpDeleteRecord:
			recs := m.Records[op.Collection]
			for i, rec := range recs {
				if rec.ID == op.RecordID {
					m.Records[op.Collection] = append(recs[:i], recs[i+1:]...)
					break
				}
			}
		case domain.BatchOpMergeDocument:
			var data domain.Document
			if err := json.Unmarshal(op.Data, &data); err != nil {
				return err
			}
			m.writeDocumentLocked(op.Path, data, true)
		case domain.BatchOpDeleteField:
			if doc, ok := m.Documents[op.Path]; ok {
				delete(doc, op.Field)
			}
		default:
			return fmt.Errorf("unknown batch op %q", op.Kind)
		}
	}
	return nil
}

var _ domain.DocumentStore = (*MockDocumentStore)(nil)

// MockAuthProvider is an in-memory implementation of domain.AuthProvider.
type MockAuthProvider struct {
	mu       sync.Mutex
	Users    map[string]string // email -> password
	UIDs     map[string]string // email -> uid
	handlers []domain.AuthStateHandler
	nextUID  int
}

// NewMockAuthProvider creates a new MockAuthProvider.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		Users:   make(map[string]string),
		UIDs:    make(map[string]string),
		nextUID: 1,
	}
}

// Register creates a user and emits a signed-in transition.
func (m *MockAuthProvider) Register(ctx context.Context, email, password string) (string, error) {
	m.mu.Lock()
	if _, exists := m.Users[email]; exists {
		m.mu.Unlock()
		return "", domain.ErrEmailTaken
	}
	uid := fmt.Sprintf("user-%d", m.nextUID)
	m.nextUID++
	m.Users[email] = password
	m.UIDs[email] = uid
	m.mu.Unlock()

	m.emit(ctx, domain.AuthState{UID: uid, Email: email, SignedIn: true})
	return "token-" + uid, nil
}

// SignIn verifies credentials and emits a signed-in transition.
func (m *MockAuthProvider) SignIn(ctx context.Context, email, password string) (string, error) {
	m.mu.Lock()
	stored, ok := m.Users[email]
	uid := m.UIDs[email]
	m.mu.Unlock()
	if !ok || stored != password {
		return "", domain.ErrInvalidCredentials
	}
	m.emit(ctx, domain.AuthState{UID: uid, Email: email, SignedIn: true})
	return "token-" + uid, nil
}

// SignOut emits a signed-out transition.
func (m *MockAuthProvider) SignOut(ctx context.Context, uid string) error {
	m.emit(ctx, domain.AuthState{UID: uid, SignedIn: false})
	return nil
}

// OnAuthStateChange registers a state handler.
func (m *MockAuthProvider) OnAuthStateChange(handler domain.AuthStateHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// TriggerSignIn emits a signed-in transition directly (helper for tests).
func (m *MockAuthProvider) TriggerSignIn(ctx context.Context, uid, email string) {
	m.emit(ctx, domain.AuthState{UID: uid, Email: email, SignedIn: true})
}

// TriggerSignOut emits a signed-out transition directly (helper for tests).
func (m *MockAuthProvider) TriggerSignOut(ctx context.Context, uid string) {
	m.emit(ctx, domain.AuthState{UID: uid, SignedIn: false})
}

func (m *MockAuthProvider) emit(ctx context.Context, state domain.AuthState) {
	m.mu.Lock()
	handlers := make([]domain.AuthStateHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()
	for _, h := range handlers {
		h(ctx, state)
	}
}

var _ domain.AuthProvider = (*MockAuthProvider)(nil)
