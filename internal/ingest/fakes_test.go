package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

// fakeExtractor maps a page body to a record template.
type fakeExtractor struct {
	records map[string]domain.Record
}

func (f *fakeExtractor) ExtractRecord(body []byte, pageURL string) (*domain.Record, error) {
	rec, ok := f.records[string(body)]
	if !ok {
		return nil, errors.New("malformed page")
	}
	rec.SourceURL = pageURL
	rec.RawSnapshot = rec.Snapshot()
	return &rec, nil
}

// fakeListings maps a listing body to its record URLs. A body of the form
// "pages:N" reports N total pages.
type fakeListings struct {
	links map[string][]string
	total int
}

func (f *fakeListings) ExtractRecordURLs(body []byte, _ string) ([]string, error) {
	if strings.HasPrefix(string(body), "broken") {
		return nil, errors.New("unparseable listing")
	}
	return f.links[string(body)], nil
}

func (f *fakeListings) ExtractTotalPages([]byte) int {
	return f.total
}

// memRecords is an in-memory RecordStore.
type memRecords struct {
	mu      sync.Mutex
	byID    map[string]*domain.Record
	changes []domain.ChangeEntry
	seq     int

	inserts int
	saves   int
	saveErr error
}

func newMemRecords() *memRecords {
	return &memRecords{byID: make(map[string]*domain.Record)}
}

func (m *memRecords) seed(rec domain.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	rec.ID = fmt.Sprintf("seed-%d", m.seq)
	m.byID[rec.ID] = &rec
}

func (m *memRecords) FindRecordByRemoteID(_ context.Context, remoteID string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.byID {
		if r.RemoteID == remoteID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (m *memRecords) FindRecordBySourceURL(_ context.Context, sourceURL string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.byID {
		if r.SourceURL == sourceURL {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (m *memRecords) InsertRecord(_ context.Context, rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	rec.ID = fmt.Sprintf("rec-%d", m.seq)
	cp := *rec
	m.byID[rec.ID] = &cp
	m.inserts++
	return nil
}

func (m *memRecords) SaveRecord(_ context.Context, rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.byID[rec.ID]; !ok {
		return domain.ErrRecordNotFound
	}
	cp := *rec
	m.byID[rec.ID] = &cp
	m.saves++
	return nil
}

func (m *memRecords) InsertChangeEntry(_ context.Context, entry *domain.ChangeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.changes = append(m.changes, *entry)
	return nil
}

func (m *memRecords) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memRecords) changeLog() []domain.ChangeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChangeEntry(nil), m.changes...)
}

// memSessions is an in-memory session.Store.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.CrawlSession
	// failSaveAt makes the Nth SaveSession call fail (1-based, 0 disables).
	failSaveAt int
	saveCalls  int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]domain.CrawlSession)}
}

func (m *memSessions) CreateSession(_ context.Context, s *domain.CrawlSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) FindSession(_ context.Context, id string) (*domain.CrawlSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memSessions) SaveSession(_ context.Context, s *domain.CrawlSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCalls++
	if m.failSaveAt > 0 && m.saveCalls == m.failSaveAt {
		return errors.New("connection reset by peer")
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) get(id string) domain.CrawlSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// countingObserver records pipeline events.
type countingObserver struct {
	mu       sync.Mutex
	records  map[domain.Outcome]int
	pages    map[string]int
	sessions []string
	progress []int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{records: map[domain.Outcome]int{}, pages: map[string]int{}}
}

func (o *countingObserver) ObserveRecord(outcome domain.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[outcome]++
}

func (o *countingObserver) ObservePage(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pages[result]++
}

func (o *countingObserver) ObserveSession(status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = append(o.sessions, status)
}

func (o *countingObserver) ObserveProgress(processedPages int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, processedPages)
}
