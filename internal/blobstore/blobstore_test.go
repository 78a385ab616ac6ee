package blobstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
)

// fileServer is a minimal stand-in for the document file service.
type fileServer struct {
	mu      sync.Mutex
	files   map[string][]byte
	failPut bool
	delay   time.Duration
}

func newFileServer() *fileServer {
	return &fileServer{files: map[string][]byte{}}
}

func (f *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/files":
		if f.failPut {
			http.Error(w, "disk full", http.StatusServiceUnavailable)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		id := header.Filename
		f.files[id] = data
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/files/"):
		data, ok := f.files[strings.TrimPrefix(r.URL.Path, "/files/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func TestHTTPBlobStore_UploadAndFetch(t *testing.T) {
	fs := newFileServer()
	srv := httptest.NewServer(fs)
	defer srv.Close()

	store := NewHTTPBlobStore(srv.URL, "", 5*time.Second, zap.NewNop())
	ctx := context.Background()

	locator, err := store.Upload(ctx, []byte("%PDF-1.4"), "application/pdf", "abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/files/abc.pdf", locator)

	data, err := store.Fetch(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestHTTPBlobStore_UploadRejected(t *testing.T) {
	fs := newFileServer()
	fs.failPut = true
	srv := httptest.NewServer(fs)
	defer srv.Close()

	store := NewHTTPBlobStore(srv.URL, "", 5*time.Second, zap.NewNop())
	_, err := store.Upload(context.Background(), []byte("x"), "image/png", "a.png")
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}

func TestPrecondition_HealthyStore(t *testing.T) {
	srv := httptest.NewServer(newFileServer())
	defer srv.Close()

	p := NewPrecondition(NewHTTPBlobStore(srv.URL, "", 5*time.Second, zap.NewNop()), time.Second, zap.NewNop())
	assert.True(t, p.Probe(context.Background()))
	assert.NoError(t, p.Check(context.Background()))
}

func TestPrecondition_UnhealthyStore(t *testing.T) {
	mem := NewMemoryBlobStore()
	mem.SetFailUploads(true)

	p := NewPrecondition(mem, time.Second, zap.NewNop())
	assert.False(t, p.Probe(context.Background()))
	assert.ErrorIs(t, p.Check(context.Background()), domain.ErrPreconditionFailed)
	assert.Equal(t, 0, mem.Len())
}

func TestPrecondition_TimesOut(t *testing.T) {
	fs := newFileServer()
	fs.delay = 300 * time.Millisecond
	srv := httptest.NewServer(fs)
	defer srv.Close()

	p := NewPrecondition(NewHTTPBlobStore(srv.URL, "", 5*time.Second, zap.NewNop()), 50*time.Millisecond, zap.NewNop())
	start := time.Now()
	assert.False(t, p.Probe(context.Background()))
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestPrecondition_ProbeName(t *testing.T) {
	rec := &recordingStore{MemoryBlobStore: NewMemoryBlobStore()}
	p := NewPrecondition(rec, 0, zap.NewNop())
	require.True(t, p.Probe(context.Background()))
	assert.Regexp(t, `^probe_[0-9a-f-]{8}\.txt$`, rec.lastName)
	assert.Equal(t, "text/plain", rec.lastType)
}

type recordingStore struct {
	*MemoryBlobStore
	lastName string
	lastType string
}

func (r *recordingStore) Upload(ctx context.Context, data []byte, contentType, name string) (string, error) {
	r.lastName = name
	r.lastType = contentType
	return r.MemoryBlobStore.Upload(ctx, data, contentType, name)
}

func TestValidateDocument(t *testing.T) {
	ext, err := ValidateDocument("application/pdf", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, ".pdf", ext)

	ext, err = ValidateDocument("image/jpeg; charset=binary", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, ".jpg", ext)

	_, err = ValidateDocument("text/html", 100, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ValidateDocument("image/png", 2048, 1024)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ValidateDocument("image/png", 0, 1024)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.NotEqual(t, ObjectName(".pdf"), ObjectName(".pdf"))
}

func TestHTTPBlobStore_UploadIsNotRetried(t *testing.T) {
	var mu sync.Mutex
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		posts++
		mu.Unlock()
		// the file is stored but the connection drops before the reply
		_, _, _ = r.FormFile("file")
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	defer srv.Close()

	store := NewHTTPBlobStore(srv.URL, "", 5*time.Second, zap.NewNop())
	_, err := store.Upload(context.Background(), []byte("%PDF-1.4"), "application/pdf", "a.pdf")
	require.ErrorIs(t, err, domain.ErrUploadFailed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, posts)
}

func TestHTTPBlobStore_FetchRetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	gets := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gets++
		n := gets
		mu.Unlock()
		if n == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	store := NewHTTPBlobStore(srv.URL, "", 5*time.Second, zap.NewNop())
	data, err := store.Fetch(context.Background(), srv.URL+"/files/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, gets)
}
