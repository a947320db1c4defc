package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/imgapi"
)

var (
	uuidA = "01b2c898-945f-11e1-a523-af1afbe22821"
	uuidB = "01b2c898-945f-11e1-a523-af1afbe22822"
	uuidC = "01b2c898-945f-11e1-a523-af1afbe22823"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

func TestListTableOutput(t *testing.T) {
	c, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images", r.URL.Path)
		assert.Equal(t, "linux", r.URL.Query().Get("os"))
		writeJSON(w, []*imgapi.Manifest{
			{UUID: uuidA, Name: "base", Version: "1.0.0", OS: "linux",
				PublishedAt: "2026-04-01T12:00:00Z"},
			{UUID: uuidB, Name: "minimal", Version: "2.1.0", OS: "linux",
				PublishedAt: "2026-05-20T12:00:00Z"},
		})
	}))
	require.NoError(t, c.Execute([]string{"list", "os=linux", "-o", "uuid,name,pubdate"}))

	want := "UUID                                  NAME     PUBDATE\n" +
		uuidA + "  base     2026-04-01\n" +
		uuidB + "  minimal  2026-05-20\n"
	assert.Equal(t, want, out.String())
}

func TestListJSONOutput(t *testing.T) {
	c, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []*imgapi.Manifest{{UUID: uuidA, Name: "base"}})
	}))
	require.NoError(t, c.Execute([]string{"list", "-j"}))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, uuidA, got[0]["uuid"])
}

func TestListInvalidColumnIsUsageError(t *testing.T) {
	c, _ := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []*imgapi.Manifest{{UUID: uuidA}})
	}))
	err := c.Execute([]string{"list", "-o", "uuid,nope"})
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cmderr.CodeUsage, ce.Code)
	assert.Contains(t, ce.Message, `"nope"`)
}

func TestBatchActivate(t *testing.T) {
	failing := map[string]bool{uuidB: true, uuidC: true}
	c, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "activate", r.URL.Query().Get("action"))
		u := filepath.Base(r.URL.Path)
		if failing[u] {
			writeAPIError(w, http.StatusNotFound, "ResourceNotFound",
				"image not found: "+u)
			return
		}
		writeJSON(w, &imgapi.Manifest{UUID: u, State: "active"})
	}))

	err := c.Execute([]string{"activate", uuidA, uuidB, uuidC})
	var me *cmderr.MultiError
	require.ErrorAs(t, err, &me)
	require.Len(t, me.Errors, 2)
	// Failures come back in input order regardless of completion order.
	assert.Contains(t, me.Errors[0].Error(), uuidB)
	assert.Contains(t, me.Errors[1].Error(), uuidC)
	assert.Contains(t, out.String(), "Activated image "+uuidA)
}

func TestBatchSingleFailureSurfacesAsIs(t *testing.T) {
	c, _ := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == uuidB {
			writeAPIError(w, http.StatusNotFound, "ResourceNotFound", "no such image")
			return
		}
		writeJSON(w, &imgapi.Manifest{State: "active"})
	}))

	err := c.Execute([]string{"activate", uuidA, uuidB})
	var me *cmderr.MultiError
	assert.False(t, errors.As(err, &me), "single failure must not wrap in MultiError")
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ResourceNotFound", ce.Code)
}

func TestBatchValidatesAllUUIDsFirst(t *testing.T) {
	var calls int32
	c, _ := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, &imgapi.Manifest{})
	}))

	err := c.Execute([]string{"delete", uuidA, "not-a-uuid"})
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cmderr.CodeInvalidUUID, ce.Code)
	assert.Zero(t, atomic.LoadInt32(&calls), "network call made before validation finished")
}

func TestGetFileVerifiesDigest(t *testing.T) {
	// sha1("hello world")
	const goodSHA1 = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	payload := []byte("hello world")

	serve := func(sha1 string, size int64) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/images/"+uuidA:
				writeJSON(w, &imgapi.Manifest{
					UUID: uuidA, Name: "base", Version: "1.0.0",
					Files: []imgapi.FileSpec{{SHA1: sha1, Size: size, Compression: "gzip"}},
				})
			case r.URL.Path == "/images/"+uuidA+"/file":
				w.Write(payload)
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL)
			}
		})
	}

	t.Run("ok", func(t *testing.T) {
		c, out := newTestCLI(t, serve(goodSHA1, int64(len(payload))))
		dest := filepath.Join(t.TempDir(), "img.gz")
		require.NoError(t, c.Execute([]string{"get-file", uuidA, "-o", dest}))
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
		assert.Contains(t, out.String(), "Saved image "+uuidA)
	})

	t.Run("checksum mismatch removes the partial file", func(t *testing.T) {
		c, _ := newTestCLI(t, serve("deadbeef"+goodSHA1[8:], int64(len(payload))))
		dest := filepath.Join(t.TempDir(), "img.gz")
		err := c.Execute([]string{"get-file", uuidA, "-o", dest})
		var ce *cmderr.Error
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, cmderr.CodeChecksum, ce.Code)
		_, statErr := os.Stat(dest)
		assert.True(t, os.IsNotExist(statErr), "partial download left behind")
	})

	t.Run("size mismatch is its own code", func(t *testing.T) {
		c, _ := newTestCLI(t, serve(goodSHA1, int64(len(payload))+7))
		dest := filepath.Join(t.TempDir(), "img.gz")
		err := c.Execute([]string{"get-file", uuidA, "-o", dest})
		var ce *cmderr.Error
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, cmderr.CodeSizeMismatch, ce.Code)
	})
}

func TestCreateWithDataRollsBackOnUploadFailure(t *testing.T) {
	var deleted int32
	c, _ := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/images":
			writeJSON(w, &imgapi.Manifest{UUID: uuidA, Name: "base", State: "unactivated"})
		case r.Method == http.MethodPut && r.URL.Path == "/images/"+uuidA+"/file":
			assert.Equal(t, "gzip", r.URL.Query().Get("compression"))
			writeAPIError(w, http.StatusInternalServerError, "UploadError", "storage backend down")
		case r.Method == http.MethodDelete && r.URL.Path == "/images/"+uuidA:
			atomic.AddInt32(&deleted, 1)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
	}))

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath,
		[]byte(`{"name": "base", "version": "1.0.0", "os": "linux", "type": "zvol"}`), 0o644))
	dataPath := filepath.Join(dir, "payload.gz")
	require.NoError(t, os.WriteFile(dataPath, []byte("compressed bits"), 0o644))

	err := c.Execute([]string{"create", "-f", manifestPath, "--data", dataPath})
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "UploadError", ce.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&deleted),
		"partially created image was not deleted")
}

func TestCreateWithDataRollsBackOnActivateFailure(t *testing.T) {
	// sha1("hello world"), matching the payload so the upload leg passes
	// and only the activate step fails.
	const payloadSHA1 = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	payload := []byte("hello world")

	var deleted int32
	c, _ := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/images":
			writeJSON(w, &imgapi.Manifest{UUID: uuidA, Name: "base", State: "unactivated"})
		case r.Method == http.MethodPut && r.URL.Path == "/images/"+uuidA+"/file":
			writeJSON(w, &imgapi.Manifest{UUID: uuidA, Files: []imgapi.FileSpec{{
				SHA1: payloadSHA1, Size: int64(len(payload)),
			}}})
		case r.Method == http.MethodPost && r.URL.Path == "/images/"+uuidA:
			assert.Equal(t, "activate", r.URL.Query().Get("action"))
			writeAPIError(w, http.StatusConflict, "ImageFilesImmutable", "cannot activate")
		case r.Method == http.MethodDelete && r.URL.Path == "/images/"+uuidA:
			atomic.AddInt32(&deleted, 1)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
	}))

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath,
		[]byte(`{"name": "base", "version": "1.0.0"}`), 0o644))
	dataPath := filepath.Join(dir, "payload.gz")
	require.NoError(t, os.WriteFile(dataPath, payload, 0o644))

	err := c.Execute([]string{"create", "-f", manifestPath, "--data", dataPath})
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ImageFilesImmutable", ce.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&deleted),
		"record not deleted after the activate step failed")
}

func TestImportWithDataRollsBackOnUploadFailure(t *testing.T) {
	var deleted int32
	c, _ := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/images/"+uuidA:
			assert.Equal(t, "import", r.URL.Query().Get("action"))
			writeJSON(w, &imgapi.Manifest{UUID: uuidA, Name: "base", State: "unactivated"})
		case r.Method == http.MethodPut && r.URL.Path == "/images/"+uuidA+"/file":
			writeAPIError(w, http.StatusInternalServerError, "UploadError", "storage backend down")
		case r.Method == http.MethodDelete && r.URL.Path == "/images/"+uuidA:
			atomic.AddInt32(&deleted, 1)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
	}))

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath,
		[]byte(`{"uuid": "`+uuidA+`", "name": "base", "version": "1.0.0"}`), 0o644))
	dataPath := filepath.Join(dir, "payload.gz")
	require.NoError(t, os.WriteFile(dataPath, []byte("compressed bits"), 0o644))

	err := c.Execute([]string{"import", "-f", manifestPath, "--data", dataPath})
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "UploadError", ce.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&deleted),
		"partially imported image was not deleted")
}

func TestCreateWithoutDataPrintsManifest(t *testing.T) {
	c, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/images", r.URL.Path)
		var m imgapi.Manifest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		m.UUID = uuidA
		m.State = "unactivated"
		writeJSON(w, &m)
	}))

	manifestPath := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath,
		[]byte(`{"name": "base", "version": "1.0.0"}`), 0o644))

	require.NoError(t, c.Execute([]string{"create", "-f", manifestPath}))
	var got imgapi.Manifest
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, uuidA, got.UUID)
	assert.Equal(t, "base", got.Name)
}

func TestImportFromSourceCopiesManifestAndFile(t *testing.T) {
	// sha1("hello world")
	const payloadSHA1 = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	payload := []byte("hello world")
	manifest := &imgapi.Manifest{
		UUID: uuidA, Name: "base", Version: "1.0.0", State: "active",
		Files: []imgapi.FileSpec{{
			SHA1: payloadSHA1, Size: int64(len(payload)), Compression: "gzip",
		}},
	}

	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/images/" + uuidA:
			writeJSON(w, manifest)
		case "/images/" + uuidA + "/file":
			w.Write(payload)
		default:
			t.Errorf("unexpected source request %s %s", r.Method, r.URL)
		}
	}))
	defer src.Close()

	var actions []string
	c, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/images/"+uuidA:
			actions = append(actions, r.URL.Query().Get("action"))
			writeJSON(w, manifest)
		case r.Method == http.MethodPut && r.URL.Path == "/images/"+uuidA+"/file":
			actions = append(actions, "add-file")
			assert.Equal(t, payloadSHA1, r.URL.Query().Get("sha1"))
			assert.Equal(t, "gzip", r.URL.Query().Get("compression"))
			writeJSON(w, manifest)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
	}))

	require.NoError(t, c.Execute([]string{"import", uuidA, "--source", src.URL}))
	assert.Equal(t, []string{"import", "add-file", "activate"}, actions)

	var got imgapi.Manifest
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, uuidA, got.UUID)
}

func TestImportSourceRejectsLocalInputs(t *testing.T) {
	c, _ := newTestCLI(t, nil)
	err := c.Execute([]string{"import", uuidA, "--source", "http://127.0.0.1:1", "--data", "x.gz"})
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cmderr.CodeUsage, ce.Code)
}

func TestChannelsTable(t *testing.T) {
	c, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/channels", r.URL.Path)
		writeJSON(w, []*imgapi.Channel{
			{Name: "dev", Description: "bleeding edge", Default: true},
			{Name: "release", Description: "stable bits"},
		})
	}))
	require.NoError(t, c.Execute([]string{"channels"}))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "dev")
	assert.Contains(t, out.String(), "release")
}

func TestChannelScopesRequests(t *testing.T) {
	var gotChannel string
	c, _ := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotChannel = r.URL.Query().Get("channel")
		writeJSON(w, []*imgapi.Manifest{})
	}))
	require.NoError(t, c.Execute([]string{"-C", "staging", "list"}))
	assert.Equal(t, "staging", gotChannel)
}

func TestRunStepsRollsBackInReverseOrder(t *testing.T) {
	var trace []string
	mk := func(name string, fail bool) step {
		return step{
			name: name,
			run: func() error {
				trace = append(trace, "run "+name)
				if fail {
					return fmt.Errorf("%s blew up", name)
				}
				return nil
			},
			undo: func() error {
				trace = append(trace, "undo "+name)
				return nil
			},
		}
	}

	err := runSteps([]step{mk("one", false), mk("two", false), mk("three", true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "three")
	assert.Equal(t, []string{
		"run one", "run two", "run three", "undo two", "undo one",
	}, trace)
}

func TestRunStepsNoRollbackOnSuccess(t *testing.T) {
	var trace []string
	steps := []step{
		{name: "a", run: func() error { trace = append(trace, "a"); return nil },
			undo: func() error { trace = append(trace, "undo a"); return nil }},
		{name: "b", run: func() error { trace = append(trace, "b"); return nil }},
	}
	require.NoError(t, runSteps(steps))
	assert.Equal(t, []string{"a", "b"}, trace)
}
