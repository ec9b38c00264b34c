package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/abduss/foldershare/internal/blob"
	"github.com/abduss/foldershare/internal/config"
	"github.com/abduss/foldershare/internal/folder"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	repo    *fakeRepo
	folders *fakeFolders
	objects *fakeObjectStore
	service *Service
	owner   uuid.UUID
	folder  uuid.UUID
}

func newFixture(t *testing.T, log *zap.Logger) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newFakeRepo(),
		folders: &fakeFolders{folders: map[uuid.UUID]folder.Folder{}},
		objects: newFakeObjectStore(),
		owner:   uuid.New(),
		folder:  uuid.New(),
	}
	f.folders.folders[f.folder] = folder.Folder{ID: f.folder, OwnerID: f.owner, Name: "docs"}
	f.service = NewService(f.repo, f.folders, f.objects, config.UploadConfig{MaxBytes: 64}, time.Minute, log)
	return f
}

func TestUploadListDeleteRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	header := buildFileHeader(t, "file", "notes.txt", "text/plain", []byte("hello world"))
	meta, err := f.service.Upload(ctx, f.owner, f.folder, header)
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if meta.OriginalName != "notes.txt" {
		t.Fatalf("unexpected filename: %s", meta.OriginalName)
	}
	if meta.SizeBytes != int64(len("hello world")) {
		t.Fatalf("unexpected size: %d", meta.SizeBytes)
	}
	assert.Equal(t, "text/plain", meta.ContentType)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", meta.Checksum)
	assert.True(t, strings.HasPrefix(meta.StorageKey, f.owner.String()+"/"+f.folder.String()+"/"))
	assert.True(t, strings.HasSuffix(meta.StorageKey, ".txt"))
	assert.Equal(t, []byte("hello world"), f.objects.objects[meta.StorageKey])

	listed, err := f.service.List(ctx, f.owner, &f.folder)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, meta.ID, listed[0].ID)
	assert.Equal(t, meta.SizeBytes, listed[0].SizeBytes)
	assert.Equal(t, meta.ContentType, listed[0].ContentType)
	assert.Equal(t, meta.OriginalName, listed[0].OriginalName)

	require.NoError(t, f.service.Delete(ctx, f.owner, meta.ID))

	listed, err = f.service.List(ctx, f.owner, nil)
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.NotContains(t, f.objects.objects, meta.StorageKey)
}

func TestUploadRejectsForeignFolder(t *testing.T) {
	f := newFixture(t, nil)

	header := buildFileHeader(t, "file", "notes.txt", "text/plain", []byte("hi"))
	_, err := f.service.Upload(context.Background(), uuid.New(), f.folder, header)
	if !errors.Is(err, folder.ErrFolderNotFound) {
		t.Fatalf("expected ErrFolderNotFound, got %v", err)
	}
	assert.Zero(t, f.objects.putCount)
	assert.Empty(t, f.repo.records)
}

func TestUploadValidatesBeforeStoring(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	big := buildFileHeader(t, "file", "big.txt", "text/plain", bytes.Repeat([]byte("a"), 65))
	_, err := f.service.Upload(ctx, f.owner, f.folder, big)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	zip := buildFileHeader(t, "file", "archive.zip", "application/zip", []byte("PK"))
	_, err = f.service.Upload(ctx, f.owner, f.folder, zip)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = f.service.Upload(ctx, f.owner, f.folder, nil)
	assert.ErrorIs(t, err, ErrMissingPayload)

	assert.Zero(t, f.objects.putCount)
	assert.Empty(t, f.repo.records)
}

func TestUploadSniffsGenericContentType(t *testing.T) {
	f := newFixture(t, nil)
	png := append([]byte("\x89PNG\r\n\x1a\n"), []byte("\x00\x00\x00\rIHDR")...)

	meta, err := f.service.Upload(context.Background(), f.owner, f.folder,
		buildFileHeader(t, "file", "pixel", "application/octet-stream", png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", meta.ContentType)
	assert.Equal(t, png, f.objects.objects[meta.StorageKey], "sniffing must not consume the upload")
}

func TestUploadRemovesObjectWhenPublishFails(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.createErr = errors.New("insert failed")

	_, err := f.service.Upload(context.Background(), f.owner, f.folder,
		buildFileHeader(t, "file", "notes.txt", "text/plain", []byte("hi")))
	require.Error(t, err)
	assert.Equal(t, 1, f.objects.putCount)
	assert.Empty(t, f.objects.objects)
}

func TestDeleteToleratesBlobFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, zap.New(core))
	ctx := context.Background()

	meta, err := f.service.Upload(ctx, f.owner, f.folder,
		buildFileHeader(t, "file", "notes.txt", "text/plain", []byte("hi")))
	require.NoError(t, err)

	f.objects.deleteErr = errors.New("object store offline")
	require.NoError(t, f.service.Delete(ctx, f.owner, meta.ID))

	assert.Empty(t, f.repo.records, "metadata deletion stands")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, meta.StorageKey, logs.All()[0].ContextMap()["storage_key"])
}

func TestFilesAreScopedToOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	stranger := uuid.New()

	meta, err := f.service.Upload(ctx, f.owner, f.folder,
		buildFileHeader(t, "file", "notes.txt", "text/plain", []byte("hi")))
	require.NoError(t, err)

	_, err = f.service.Get(ctx, stranger, meta.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, _, err = f.service.Download(ctx, stranger, meta.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, f.service.Delete(ctx, stranger, meta.ID), ErrFileNotFound)
	_, err = f.service.List(ctx, stranger, &f.folder)
	assert.ErrorIs(t, err, folder.ErrFolderNotFound)

	list, err := f.service.List(ctx, stranger, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Len(t, f.repo.records, 1)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		meta, err := f.service.Upload(ctx, f.owner, f.folder,
			buildFileHeader(t, "file", fmt.Sprintf("f%d.txt", i), "text/plain", []byte("x")))
		require.NoError(t, err)
		ids = append(ids, meta.ID)
	}

	list, err := f.service.List(ctx, f.owner, nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{list[0].ID, list[1].ID, list[2].ID})
}

func TestFolderFiles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	meta, err := f.service.Upload(ctx, f.owner, f.folder,
		buildFileHeader(t, "file", "notes.txt", "text/plain", []byte("hi")))
	require.NoError(t, err)

	entries, err := f.service.FolderFiles(ctx, f.owner, f.folder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, meta.ID, entries[0].ID)
	assert.Equal(t, "notes.txt", entries[0].OriginalName)
	assert.Equal(t, int64(2), entries[0].SizeBytes)

	_, err = f.service.FolderFiles(ctx, uuid.New(), f.folder)
	assert.ErrorIs(t, err, folder.ErrFolderNotFound)
}

func TestDownloadLocator(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	meta, err := f.service.Upload(ctx, f.owner, f.folder,
		buildFileHeader(t, "file", "notes.txt", "text/plain", []byte("hi")))
	require.NoError(t, err)

	_, loc, err := f.service.Download(ctx, f.owner, meta.ID)
	require.NoError(t, err)
	assert.Empty(t, loc.URL)
	assert.Equal(t, meta.StorageKey, loc.Key)

	f.objects.urls = true
	_, loc, err = f.service.Download(ctx, f.owner, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://objects.test/"+meta.StorageKey, loc.URL)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "upload", sanitizeFilename("  "))
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "report.pdf", sanitizeFilename(`C:\Users\me\report.pdf`))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("ж", 300))), maxNameLength)
}

// --- helpers & fakes ---

func buildFileHeader(t *testing.T, fieldName, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, filename))
	partHeader.Set("Content-Type", contentType)
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("CreatePart error: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(int64(len(content)) + 1024); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}

	return req.MultipartForm.File[fieldName][0]
}

type fakeRepo struct {
	records   map[uuid.UUID]Metadata
	clock     time.Time
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records: make(map[uuid.UUID]Metadata),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRepo) Create(ctx context.Context, meta Metadata) (Metadata, error) {
	if f.createErr != nil {
		return Metadata{}, f.createErr
	}
	f.clock = f.clock.Add(time.Second)
	meta.CreatedAt = f.clock
	f.records[meta.ID] = meta
	return meta, nil
}

func (f *fakeRepo) List(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]Metadata, error) {
	list := []Metadata{}
	for _, m := range f.records {
		if m.OwnerID != ownerID || (folderID != nil && m.FolderID != *folderID) {
			continue
		}
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (f *fakeRepo) Get(ctx context.Context, ownerID, fileID uuid.UUID) (Metadata, error) {
	meta, ok := f.records[fileID]
	if !ok || meta.OwnerID != ownerID {
		return Metadata{}, ErrFileNotFound
	}
	return meta, nil
}

func (f *fakeRepo) Delete(ctx context.Context, ownerID, fileID uuid.UUID) (Metadata, error) {
	meta, err := f.Get(ctx, ownerID, fileID)
	if err != nil {
		return Metadata{}, err
	}
	delete(f.records, fileID)
	return meta, nil
}

type fakeFolders struct {
	folders map[uuid.UUID]folder.Folder
}

func (f *fakeFolders) GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (folder.Folder, error) {
	fd, ok := f.folders[folderID]
	if !ok || fd.OwnerID != ownerID {
		return folder.Folder{}, folder.ErrFolderNotFound
	}
	return fd, nil
}

type fakeObjectStore struct {
	objects   map[string][]byte
	putCount  int
	deleteErr error
	urls      bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	f.putCount++
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.objects[key] = data
	return int64(len(data)), nil
}

func (f *fakeObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, blob.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) URL(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	if !f.urls {
		return "", blob.ErrURLUnsupported
	}
	return "https://objects.test/" + key, nil
}
