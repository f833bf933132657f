package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const payload = "width = 320\n"

func TestLocalResource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procrt.toml")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	for specIndex, location := range []string{path, "file://" + path} {
		res, err := Open(location)
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		data, err := io.ReadAll(res)
		res.Close()
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if string(data) != payload {
			t.Fatalf("[spec %d] expected %q; got %q", specIndex, payload, data)
		}
		if res.IsRemote() || res.Path() != path {
			t.Fatalf("[spec %d] expected local resource at %s; got %s", specIndex, path, res.Path())
		}
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.toml")); err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error; got %v", err)
	}
}

func TestHttpResource(t *testing.T) {
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/configs/procrt.toml" {
			w.Write([]byte(payload))
			return
		}
		http.NotFound(w, r)
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	fetchUrl := server.URL + "/configs/procrt.toml"
	res, err := Open(fetchUrl)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if !res.IsRemote() || res.Path() != fetchUrl {
		t.Fatalf("expected remote resource %s; got %s", fetchUrl, res.Path())
	}
	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != payload {
		t.Fatalf("expected %q; got %q", payload, data)
	}

	fetchUrl = server.URL + "/file-not-found.toml"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = Open(fetchUrl)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	expError := "resource: unsupported scheme 'gopher'"
	_, err := Open("gopher://digging.toml")
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceConnectionRefusedError(t *testing.T) {
	_, err := Open("http://localhost:12345/procrt.toml")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected to get 'connection refused error'; got %v", err)
	}
}
