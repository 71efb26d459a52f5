package store

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/cyrogem/nodedialogue/pkg/asset"
)

const testBucket = "dialogues"

// fakeS3 serves the path-style object calls S3Store makes: conditional
// PutObject, GetObject, HeadObject, DeleteObject and ListObjectsV2.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

type s3ListResult struct {
	XMLName     xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name        string   `xml:"Name"`
	Prefix      string   `xml:"Prefix"`
	KeyCount    int      `xml:"KeyCount"`
	MaxKeys     int      `xml:"MaxKeys"`
	IsTruncated bool     `xml:"IsTruncated"`
	Contents    []s3Object
}

type s3Object struct {
	Key  string `xml:"Key"`
	Size int    `xml:"Size"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest, ok := strings.CutPrefix(r.URL.Path, "/"+testBucket)
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	key := strings.TrimPrefix(rest, "/")

	f.mu.Lock()
	defer f.mu.Unlock()
	data, exists := f.objects[key]

	switch {
	case r.Method == http.MethodGet && key == "":
		f.list(w, r.URL.Query().Get("prefix"))
	case r.Method == http.MethodPut:
		if exists && r.Header.Get("If-None-Match") == "*" {
			writeS3Error(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody")
			return
		}
		f.objects[key] = body
		w.Header().Set("ETag", fmt.Sprintf(`"%x"`, len(body)))
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		if !exists {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", asset.FormatAsset.ContentType())
		_, _ = w.Write(data)
	case r.Method == http.MethodHead:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (f *fakeS3) list(w http.ResponseWriter, prefix string) {
	res := s3ListResult{Name: testBucket, Prefix: prefix, MaxKeys: 1000}
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			res.Contents = append(res.Contents, s3Object{Key: key, Size: len(data)})
		}
	}
	slices.SortFunc(res.Contents, func(a, b s3Object) int { return strings.Compare(a.Key, b.Key) })
	res.KeyCount = len(res.Contents)
	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(res)
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%s<Error><Code>%s</Code><Message>%s</Message><RequestId>test</RequestId></Error>",
		xml.Header, code, code)
}

// newTestS3Store points an S3Store at an in-process fake with static
// credentials, so no AWS profile or network is needed.
func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3Store(context.Background(), S3Config{
		Bucket:   testBucket,
		Prefix:   "Assets/Dialogue",
		Region:   "us-east-1",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	return s, fake
}

func TestS3StoreCreateIsConditional(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestS3Store(t)
	a, err := asset.FromGraph(testGraph(t, "Intro"), "")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"Intro", true},
		{"Intro", false},
		{"Intro (1)", true},
	}
	for _, tt := range tests {
		got, err := b.Create(ctx, tt.name, a)
		if err != nil {
			t.Fatalf("Create(%q): %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Create(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	want := []string{"Assets/Dialogue/Intro (1).asset", "Assets/Dialogue/Intro.asset"}
	if got := fake.keys(); !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	fake.mu.Lock()
	data := string(fake.objects["Assets/Dialogue/Intro.asset"])
	fake.mu.Unlock()
	if !strings.HasPrefix(data, "%YAML 1.1") {
		t.Errorf("object lacks the Unity header:\n%s", data)
	}
}

func TestS3StoreListSkipsForeignKeys(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestS3Store(t)
	if _, err := New(b).Save(ctx, "Intro", testGraph(t, "Intro")); err != nil {
		t.Fatal(err)
	}
	fake.mu.Lock()
	fake.objects["Assets/Dialogue/notes.txt"] = []byte("x")
	fake.objects["Assets/Dialogue/Old/Intro.asset"] = []byte("x")
	fake.objects["Assets/Other.asset"] = []byte("x")
	fake.mu.Unlock()

	names, err := b.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"Intro"}) {
		t.Errorf("List = %v, want [Intro]", names)
	}
}
