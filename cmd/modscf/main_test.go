package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeDirectory(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/mods/files", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "cli-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":6774233,"modId":1104580,"fileName":"sparkweave-0.6.0.jar","releaseType":1,"fileStatus":4,
			"hashes":[{"value":"abc123","algo":1}]}]}`))
	})
	mux.HandleFunc("GET /v1/mods/1104580", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":1104580,"name":"Sparkweave","slug":"sparkweave","status":4,"downloadCount":10,
			"links":{"websiteUrl":"https://www.curseforge.com/minecraft/mc-mods/sparkweave"}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProjectPrintsRedirectTarget(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), "project", []string{"911456"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "https://curseforge.com/projects/911456" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestProjectResolve(t *testing.T) {
	srv := fakeDirectory(t)
	var out bytes.Buffer
	args := []string{"--resolve", "--token", "cli-key", "--api", srv.URL, "1104580"}
	if err := run(context.Background(), "project", args, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "sparkweave\tapproved") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestFileCommand(t *testing.T) {
	srv := fakeDirectory(t)
	var out bytes.Buffer
	args := []string{"--token", "cli-key", "--api", srv.URL, "6774233"}
	if err := run(context.Background(), "file", args, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[0] != "https://www.curseforge.com/minecraft/mc-mods/sparkweave/files/6774233" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(out.String(), "sha1\tabc123") {
		t.Fatalf("expected sha1 line, got %q", out.String())
	}
}

func TestFileCommandJSON(t *testing.T) {
	srv := fakeDirectory(t)
	var out bytes.Buffer
	args := []string{"--json", "--token", "cli-key", "--api", srv.URL, "6774233"}
	if err := run(context.Background(), "file", args, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	var payload struct {
		URL  string `json:"url"`
		File struct {
			ID uint64 `json:"id"`
		} `json:"file"`
	}
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if payload.File.ID != 6774233 || !strings.HasSuffix(payload.URL, "/files/6774233") {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestFilesReportsMissingIDs(t *testing.T) {
	srv := fakeDirectory(t)
	var out bytes.Buffer
	args := []string{"--token", "cli-key", "--api", srv.URL, "6774233", "5"}
	if err := run(context.Background(), "files", args, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "6774233\t1104580\tsparkweave-0.6.0.jar\trelease") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if !strings.Contains(out.String(), "5\tnot found") {
		t.Fatalf("expected missing id to be reported, got %q", out.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), "deploy", nil, &out); !errors.Is(err, errUnknownCommand) {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if err := run(context.Background(), "project", []string{"abc"}, &out); err == nil {
		t.Fatal("expected invalid id error")
	}
	if err := run(context.Background(), "file", []string{}, &out); err == nil {
		t.Fatal("expected usage error")
	}
}
