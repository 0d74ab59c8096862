package curseforge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const sparkweaveProject = `{
  "data": {
    "id": 1104580,
    "gameId": 432,
    "name": "Sparkweave",
    "slug": "sparkweave",
    "links": {
      "websiteUrl": "https://www.curseforge.com/minecraft/mc-mods/sparkweave",
      "wikiUrl": null,
      "issuesUrl": "https://github.com/Up-Mods/Sparkweave/issues",
      "sourcesUrl": "https://github.com/Up-Mods/Sparkweave"
    },
    "summary": "Library mod",
    "status": 4,
    "downloadCount": 123456,
    "primaryCategoryId": 421,
    "classId": 6,
    "authors": [{"id": 1, "name": "up", "url": "https://www.curseforge.com/members/up"}],
    "logo": {"id": 9, "modId": 1104580, "title": "logo.png", "url": "https://media.forgecdn.net/logo.png"},
    "screenshots": [],
    "mainFileId": 6774233,
    "latestFiles": [],
    "latestFilesIndexes": [{"gameVersion": "1.21.1", "fileId": 6774233, "filename": "sparkweave-0.6.0.jar", "releaseType": 1, "modLoader": 6}],
    "latestEarlyAccessFilesIndexes": [],
    "dateCreated": "2024-08-01T10:00:00Z",
    "dateModified": "2025-07-12T08:30:00Z",
    "isAvailable": true,
    "allowModDistribution": false
  }
}`

const sparkweaveFile = `{
  "id": 6774233,
  "gameId": 432,
  "modId": 1104580,
  "isAvailable": true,
  "displayName": "Sparkweave 0.6.0",
  "fileName": "sparkweave-0.6.0.jar",
  "releaseType": 1,
  "fileStatus": 4,
  "hashes": [{"value": "da39a3ee5e6b4b0d3255bfef95601890afd80709", "algo": 1}, {"value": "d41d8cd98f00b204e9800998ecf8427e", "algo": 2}],
  "fileDate": "2025-07-12T08:30:00Z",
  "fileLength": 204800,
  "downloadCount": 42,
  "gameVersions": ["1.21.1", "NeoForge"],
  "fileFingerprint": 3735928559
}`

// fakeAPI emulates the subset of the v1 API the client uses.
type fakeAPI struct {
	mu        sync.Mutex
	projects  map[string]string
	files     map[uint64]string
	filesCode int
	calls     []string
	bodies    [][]uint64
	headers   http.Header
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		projects: map[string]string{"1104580": sparkweaveProject},
		files:    map[uint64]string{6774233: sparkweaveFile},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.headers = r.Header.Clone()
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/mods/files":
		var req struct {
			FileIDs []uint64 `json:"fileIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.bodies = append(f.bodies, req.FileIDs)
		code := f.filesCode
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			return
		}
		var parts []string
		for _, id := range req.FileIDs {
			if body, ok := f.files[id]; ok {
				parts = append(parts, body)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[` + strings.Join(parts, ",") + `]}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/mods/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/mods/")
		body, ok := f.projects[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestClient(t *testing.T, api http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client, err := New("test-key", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

func TestGetProjectDecodesSchema(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	project, err := client.GetProject(context.Background(), 1104580)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if project.Slug != "sparkweave" || project.Links.WebsiteURL != "https://www.curseforge.com/minecraft/mc-mods/sparkweave" {
		t.Fatalf("unexpected project %+v", project)
	}
	if project.Status != ProjectStatusApproved || project.Status.String() != "approved" {
		t.Fatalf("unexpected status %v", project.Status)
	}
	if !project.Featured() {
		t.Fatal("isFeatured should default to true when omitted")
	}
	if project.DistributionAllowed() {
		t.Fatal("allowModDistribution=false should be honoured")
	}
	if len(project.LatestFilesIndexes) != 1 || project.LatestFilesIndexes[0].ModLoader == nil || *project.LatestFilesIndexes[0].ModLoader != ModLoaderNeoForge {
		t.Fatalf("unexpected file indexes %+v", project.LatestFilesIndexes)
	}

	if got := api.headers.Get("x-api-key"); got != "test-key" {
		t.Fatalf("unexpected api key header %q", got)
	}
	if got := api.headers.Get("User-Agent"); got != UserAgent {
		t.Fatalf("unexpected user agent %q", got)
	}
	if got := api.headers.Get("Accept"); got != "application/json" {
		t.Fatalf("unexpected accept header %q", got)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	client := newTestClient(t, newFakeAPI())

	_, err := client.GetProject(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProjectUpstreamFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))

	_, err := client.GetProject(context.Background(), 1104580)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if statusErr.Status != http.StatusServiceUnavailable || statusErr.Message != "maintenance" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestGetProjectDecodeErrorReportsFieldPath(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":7,"links":{"websiteUrl":12}}}`))
	}))

	_, err := client.GetProject(context.Background(), 7)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Field != "data.links.websiteUrl" {
		t.Fatalf("unexpected field path %q", decodeErr.Field)
	}
	if !strings.Contains(err.Error(), "project 7") {
		t.Fatalf("expected error to name the project id, got %v", err)
	}
}

func TestGetProjectMissingWebsiteURL(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":7,"links":{}}}`))
	}))

	_, err := client.GetProject(context.Background(), 7)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Field != "data.links.websiteUrl" {
		t.Fatalf("unexpected field path %q", decodeErr.Field)
	}
}

func TestGetFilesEmptyInputSkipsRequest(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	files, err := client.GetFiles(context.Background(), nil)
	if err != nil {
		t.Fatalf("get files: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(files))
	}
	if api.callCount() != 0 {
		t.Fatalf("expected no upstream calls, got %d", api.callCount())
	}
}

func TestGetFilesDeduplicatesAndKeysByID(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	files, err := client.GetFiles(context.Background(), []uint64{6774233, 6774233, 1})
	if err != nil {
		t.Fatalf("get files: %v", err)
	}
	file, ok := files[6774233]
	if !ok || len(files) != 1 {
		t.Fatalf("unexpected files %+v", files)
	}
	if sha1, ok := file.Hash(HashSHA1); !ok || sha1 != "da39a3ee5e6b4b0d3255bfef95601890afd80709" {
		t.Fatalf("unexpected sha1 %q", sha1)
	}
	if file.Fingerprint != 3735928559 || file.ProjectID != 1104580 {
		t.Fatalf("unexpected file %+v", file)
	}
	if len(api.bodies) != 1 || len(api.bodies[0]) != 2 {
		t.Fatalf("expected one deduplicated batch, got %v", api.bodies)
	}
}

func TestGetFilesTreatsBadRequestAsEmpty(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound} {
		api := newFakeAPI()
		api.filesCode = code
		client := newTestClient(t, api)

		files, err := client.GetFiles(context.Background(), []uint64{0})
		if err != nil {
			t.Fatalf("status %d: unexpected error %v", code, err)
		}
		if len(files) != 0 {
			t.Fatalf("status %d: expected empty map", code)
		}
	}
}

func TestGetFilesRejectsDuplicateRecords(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[` + sparkweaveFile + `,` + sparkweaveFile + `]}`))
	}))

	_, err := client.GetFiles(context.Background(), []uint64{6774233})
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

func TestGetFileInfoResolvesOwningProject(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	project, file, err := client.GetFileInfo(context.Background(), 6774233)
	if err != nil {
		t.Fatalf("get file info: %v", err)
	}
	if project.ID != 1104580 || file.ID != 6774233 {
		t.Fatalf("unexpected result project=%d file=%d", project.ID, file.ID)
	}
	if got := project.FileURL(file.ID); got != "https://www.curseforge.com/minecraft/mc-mods/sparkweave/files/6774233" {
		t.Fatalf("unexpected file url %q", got)
	}
}

func TestGetFileInfoUnknownFile(t *testing.T) {
	client := newTestClient(t, newFakeAPI())

	_, _, err := client.GetFileInfo(context.Background(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetFileInfoMissingProjectIsInconsistent(t *testing.T) {
	api := newFakeAPI()
	delete(api.projects, "1104580")
	client := newTestClient(t, api)

	_, _, err := client.GetFileInfo(context.Background(), 6774233)
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("a missing owning project must not surface as not found")
	}
}

func TestGetFileInfoMultipleRecordsIsInconsistent(t *testing.T) {
	other := strings.Replace(sparkweaveFile, `"id": 6774233`, `"id": 6774234`, 1)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[` + sparkweaveFile + `,` + other + `]}`))
	}))

	_, _, err := client.GetFileInfo(context.Background(), 6774233)
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

func TestGetFileInfoDecodeErrorNamesFile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"6774233"}]}`))
	}))

	_, _, err := client.GetFileInfo(context.Background(), 6774233)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !strings.Contains(decodeErr.Subject, "6774233") {
		t.Fatalf("expected subject to carry the file id, got %q", decodeErr.Subject)
	}
	if !strings.HasSuffix(decodeErr.Field, "id") {
		t.Fatalf("unexpected field path %q", decodeErr.Field)
	}
}

func TestProjectPageURL(t *testing.T) {
	if got := ProjectPageURL(911456); got != "https://curseforge.com/projects/911456" {
		t.Fatalf("unexpected project url %q", got)
	}
}

func TestEnumNames(t *testing.T) {
	if ReleaseTypeBeta.String() != "beta" || FileStatusMalwareDetected.String() != "malware_detected" {
		t.Fatal("unexpected enum names")
	}
	if HashMD5.String() != "md5" || ModLoaderAny.String() != "any" {
		t.Fatal("unexpected enum names")
	}
	if got := FileStatus(99).String(); got != "unknown(99)" {
		t.Fatalf("unexpected unknown name %q", got)
	}
}
