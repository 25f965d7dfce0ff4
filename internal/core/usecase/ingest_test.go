package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

type repoFake struct {
	docs          map[string]*domain.Document
	created       []*domain.Document
	statusUpdates []statusUpdate
	countsID      string
	pageCount     int
	passageCount  int
	deletedIDs    []string
	getErr        error
	createErr     error
}

type statusUpdate struct {
	id      string
	status  domain.DocumentStatus
	message string
}

func newRepoFake(docs ...*domain.Document) *repoFake {
	f := &repoFake{docs: map[string]*domain.Document{}}
	for _, doc := range docs {
		f.docs[doc.ID] = doc
	}
	return f
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	f.docs[doc.ID] = doc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return doc, nil
}

func (f *repoFake) List(context.Context) ([]domain.Document, error) { return nil, nil }

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, message string) error {
	f.statusUpdates = append(f.statusUpdates, statusUpdate{id: id, status: status, message: message})
	return nil
}

func (f *repoFake) SetCounts(_ context.Context, id string, pageCount, passageCount int) error {
	f.countsID, f.pageCount, f.passageCount = id, pageCount, passageCount
	return nil
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.docs, id)
	return nil
}

type storageFake struct {
	saved   map[string]string
	removed []string
	saveErr error
}

func newStorageFake() *storageFake { return &storageFake{saved: map[string]string{}} }

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.saved[key]
	if !ok {
		return nil, errors.New("missing key " + key)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	delete(f.saved, key)
	return nil
}

type queueFake struct {
	ingested   []string
	changed    []string
	publishErr error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.ingested = append(f.ingested, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func (f *queueFake) PublishCorpusChanged(_ context.Context, documentID string) error {
	f.changed = append(f.changed, documentID)
	return nil
}

func (f *queueFake) SubscribeCorpusChanged(context.Context, func(context.Context, string) error) error {
	return nil
}

type passageStoreFake struct {
	saved      []domain.Passage
	deletedDoc []string
	saveErr    error
}

func (f *passageStoreFake) SavePassages(_ context.Context, passages []domain.Passage) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, passages...)
	return nil
}

func (f *passageStoreFake) DeleteByDocument(_ context.Context, documentID string) error {
	f.deletedDoc = append(f.deletedDoc, documentID)
	return nil
}

type indexingVectorFake struct {
	vectorFake
	indexed    []domain.Passage
	deletedDoc []string
	indexErr   error
}

func (f *indexingVectorFake) IndexPassages(_ context.Context, passages []domain.Passage, vectors [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	if len(passages) != len(vectors) {
		return errors.New("passages/vectors mismatch")
	}
	f.indexed = append(f.indexed, passages...)
	return nil
}

func (f *indexingVectorFake) DeleteByDocument(_ context.Context, documentID string) error {
	f.deletedDoc = append(f.deletedDoc, documentID)
	return nil
}

func TestUploadStoresMetadataAndPublishesEvent(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue, &passageStoreFake{}, &indexingVectorFake{})

	doc, err := uc.Upload(context.Background(), "my resume.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected generated document id")
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", doc.Status)
	}
	if !strings.HasSuffix(doc.StoragePath, "_my_resume.pdf") {
		t.Fatalf("expected sanitized storage key, got %q", doc.StoragePath)
	}
	if _, ok := storage.saved[doc.StoragePath]; !ok {
		t.Fatal("file content not saved under storage key")
	}
	if len(repo.created) != 1 || repo.created[0].ID != doc.ID {
		t.Fatalf("metadata not persisted: %+v", repo.created)
	}
	if len(queue.ingested) != 1 || queue.ingested[0] != doc.ID {
		t.Fatalf("expected one ingestion event for %s, got %v", doc.ID, queue.ingested)
	}
}

func TestUploadStorageFailureSkipsMetadataAndQueue(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	storage.saveErr = errors.New("disk full")
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue, &passageStoreFake{}, &indexingVectorFake{})

	if _, err := uc.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("expected storage error")
	}
	if len(repo.created) != 0 || len(queue.ingested) != 0 {
		t.Fatal("failed upload must not create metadata or publish events")
	}
}

func TestDeleteRemovesEverywhereAndAnnouncesChange(t *testing.T) {
	doc := &domain.Document{ID: "doc-1", Filename: "cv.pdf", StoragePath: "doc-1_cv.pdf"}
	repo := newRepoFake(doc)
	storage := newStorageFake()
	storage.saved[doc.StoragePath] = "content"
	queue := &queueFake{}
	passages := &passageStoreFake{}
	vectors := &indexingVectorFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue, passages, vectors)

	if err := uc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(storage.removed) != 1 || storage.removed[0] != doc.StoragePath {
		t.Fatalf("stored file not removed: %v", storage.removed)
	}
	if len(vectors.deletedDoc) != 1 || vectors.deletedDoc[0] != "doc-1" {
		t.Fatalf("vectors not deleted: %v", vectors.deletedDoc)
	}
	if len(passages.deletedDoc) != 1 || passages.deletedDoc[0] != "doc-1" {
		t.Fatalf("passages not deleted: %v", passages.deletedDoc)
	}
	if len(repo.deletedIDs) != 1 || repo.deletedIDs[0] != "doc-1" {
		t.Fatalf("metadata not deleted: %v", repo.deletedIDs)
	}
	if len(queue.changed) != 1 || queue.changed[0] != "doc-1" {
		t.Fatalf("expected corpus-changed event, got %v", queue.changed)
	}
}

func TestDeleteUnknownDocumentKeepsNotFoundKind(t *testing.T) {
	uc := NewIngestDocumentUseCase(newRepoFake(), newStorageFake(), &queueFake{}, &passageStoreFake{}, &indexingVectorFake{})

	err := uc.Delete(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not-found kind, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"my resume.pdf", "my_resume.pdf"},
		{"../../etc/passwd", "passwd"},
		{"отчёт.xlsx", "_____.xlsx"},
		{"", "document.bin"},
		{".", "document.bin"},
		{"..", "document.bin"},
		{"/", "document.bin"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
