package download

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/spotify"
)

const testMediaID = "4cOdK2wGLETKBW3PvgPWqT"

// The counter block halves of the Vorbis scheme, fixed service-wide.
var (
	testNonce        = []byte{0x72, 0xE0, 0x67, 0xFB, 0xDD, 0xCB, 0xCF, 0x77}
	testInitialValue = []byte{0xEB, 0xE8, 0xBC, 0x64, 0x3F, 0x63, 0x0D, 0x93}
)

var testKey = []byte("0123456789abcdef")

// testSecret deobfuscates to a valid code-generation key.
var testSecret = spotify.Secret{
	Version: 19,
	Data:    []int{8, 8, 8, 8, 8, 8, 8, 24, 24, 18, 18, 22, 22, 18, 18, 30, 30, 18, 18, 28},
}

type fixedUnwrapper struct{}

func (fixedUnwrapper) Unwrap(ctx context.Context, fileID string, obfuscated []byte) ([]byte, error) {
	return testKey, nil
}

func encryptedVorbisBody(t *testing.T, payload []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(testKey)
	if err != nil {
		t.Fatalf("building cipher: %v", err)
	}
	iv := append(append([]byte{}, testNonce...), testInitialValue...)
	out := make([]byte, len(payload))
	cipher.NewCTR(block, iv).XORKeyStream(out, payload)
	return out
}

// newServiceServer serves every endpoint one Vorbis track download needs.
func newServiceServer(t *testing.T, metadataJSON string) *httptest.Server {
	t.Helper()
	payload := append([]byte("OggS"), []byte("finished vorbis stream")...)
	plaintext := append([]byte("junk-prefix!"), payload...)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/server-time", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"serverTime": 60}`)
	})
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"clientId": "web-client", "accessToken": "token", "accessTokenExpirationTimestampMs": 9999999999999}`)
	})
	mux.HandleFunc("/v1/clienttoken", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"granted_token": {"token": "granted"}}`)
	})
	mux.HandleFunc("/metadata/track/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metadataJSON)
	})
	mux.HandleFunc("/playplay/", func(w http.ResponseWriter, r *http.Request) {
		var envelope []byte
		envelope = protowire.AppendTag(envelope, 1, protowire.BytesType)
		envelope = protowire.AppendBytes(envelope, []byte("obfuscated-key"))
		w.Write(envelope)
	})
	mux.HandleFunc("/storage-resolve/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"result": "CDN", "cdnurl": [%q]}`, "http://"+r.Host+"/cdn/file-1")
	})
	mux.HandleFunc("/cdn/file-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write(encryptedVorbisBody(t, plaintext))
	})
	return httptest.NewServer(mux)
}

func newTestManager(t *testing.T, server *httptest.Server, quality string) (*Manager, *config.Settings, *[]ProgressEvent) {
	t.Helper()
	dir := t.TempDir()
	settings := config.DefaultSettings()
	settings.OutputPath = filepath.Join(dir, "out")
	settings.TempPath = filepath.Join(dir, "tmp")
	settings.ArchivePath = filepath.Join(dir, "archive.txt")
	settings.AudioQuality = quality
	settings.QueueDelay = 0
	settings.UnwrapperPath = ""

	client := spotify.NewClient(spotify.Options{
		Registry: &spotify.StaticSecretRegistry{Secrets: []spotify.Secret{testSecret}},
		Endpoints: spotify.Endpoints{
			ServerTime:      server.URL + "/api/server-time",
			SessionToken:    server.URL + "/api/token",
			ClientToken:     server.URL + "/v1/clienttoken",
			DeviceAuthorize: server.URL + "/oauth2/device/authorize",
			PairResolve:     server.URL + "/pair/api/resolve",
			DeviceToken:     server.URL + "/device/api/token",
			TrackMetadata:   server.URL + "/metadata/track/%s",
			StorageResolve:  server.URL + "/storage-resolve/%s",
			PlayPlayLicense: server.URL + "/playplay/%s",
		},
		Now: func() time.Time { return time.UnixMilli(0) },
	})

	var events []ProgressEvent
	manager, err := NewManager(settings, client, func(e ProgressEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	manager.SetUnwrapper(fixedUnwrapper{})
	return manager, settings, &events
}

func TestRunDownloadsVorbisTrack(t *testing.T) {
	// Only the two lower tiers exist; requesting the top tier must
	// downgrade, never fail.
	metadata := `{
		"name": "Test Track",
		"file": [
			{"file_id": "file-1", "format": "OGG_VORBIS_160"},
			{"file_id": "file-2", "format": "OGG_VORBIS_96"}
		]
	}`
	server := newServiceServer(t, metadata)
	defer server.Close()

	manager, settings, events := newTestManager(t, server, string(model.QualityVorbisHigh))
	if err := manager.Initialize(context.Background(), []string{"https://open.spotify.com/track/" + testMediaID}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := manager.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	jobs := manager.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("queued %d jobs, want 1", len(jobs))
	}
	job := jobs[0]
	if job.State != model.StateFinalized {
		t.Fatalf("job state = %s, want %s", job.State, model.StateFinalized)
	}
	if manager.Failures() != 0 {
		t.Errorf("failures = %d, want 0", manager.Failures())
	}

	wantPath := filepath.Join(settings.OutputPath, "Test Track.ogg")
	if job.FinalPath != wantPath {
		t.Errorf("final path = %q, want %q", job.FinalPath, wantPath)
	}
	data, err := os.ReadFile(job.FinalPath)
	if err != nil {
		t.Fatalf("reading finished file: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("OggS")) {
		t.Errorf("finished file starts with %q, want the container signature", data[:4])
	}

	// Every temporary artifact is gone.
	leftovers, err := os.ReadDir(settings.TempPath)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("reading temp dir: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp dir still holds %d files", len(leftovers))
	}

	// The downgrade from the requested tier was reported.
	downgraded := false
	for _, e := range *events {
		if e.Level == LevelWarning && strings.Contains(e.Message, "downgrading") {
			downgraded = true
		}
	}
	if !downgraded {
		t.Error("no downgrade warning was reported")
	}
}

func TestRunSkipsArchivedItems(t *testing.T) {
	metadata := `{"name": "Test Track", "file": [{"file_id": "file-1", "format": "OGG_VORBIS_320"}]}`
	server := newServiceServer(t, metadata)
	defer server.Close()

	manager, settings, _ := newTestManager(t, server, string(model.QualityVorbisHigh))
	if err := os.WriteFile(settings.ArchivePath, []byte(testMediaID+"\n"), 0o644); err != nil {
		t.Fatalf("seeding archive: %v", err)
	}
	// Reload the archive the manager already holds.
	archive, err := LoadArchive(settings.ArchivePath)
	if err != nil {
		t.Fatalf("LoadArchive: %v", err)
	}
	manager.archive = archive

	if err := manager.Initialize(context.Background(), []string{"spotify:track:" + testMediaID}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := manager.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job := manager.Jobs()[0]
	if job.State != model.StateSkipped {
		t.Errorf("job state = %s, want %s", job.State, model.StateSkipped)
	}
	if job.FinalPath != "" {
		t.Errorf("skipped job has final path %q", job.FinalPath)
	}
}

func TestRunSkipsUnavailableItem(t *testing.T) {
	server := newServiceServer(t, `{"name": "Gone Track", "file": []}`)
	defer server.Close()

	manager, _, events := newTestManager(t, server, string(model.QualityVorbisHigh))
	if err := manager.Initialize(context.Background(), []string{"https://open.spotify.com/track/" + testMediaID}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	// Items without a usable rendition are skipped with a warning, not
	// counted as failures.
	if err := manager.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := manager.Jobs()[0].State; got != model.StateSkipped {
		t.Errorf("job state = %s, want %s", got, model.StateSkipped)
	}
	if manager.Failures() != 0 {
		t.Errorf("failures = %d, want 0", manager.Failures())
	}

	warned := false
	for _, e := range *events {
		if e.Level == LevelWarning && strings.Contains(e.Message, "Skipping") {
			warned = true
		}
		if e.Level == LevelError {
			t.Errorf("unexpected error event: %q", e.Message)
		}
	}
	if !warned {
		t.Error("no skip warning was reported")
	}
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	manager, _, _ := newTestManager(t, server, string(model.QualityVorbisHigh))
	if err := manager.Initialize(context.Background(), []string{"https://open.spotify.com/track/" + testMediaID}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := manager.Run(context.Background()); err == nil {
		t.Fatal("Run continued despite an authentication failure")
	}
}

func TestInitializeExpandsCollections(t *testing.T) {
	server := newServiceServer(t, `{"name": "x", "file": []}`)
	defer server.Close()

	manager, _, _ := newTestManager(t, server, string(model.QualityVorbisHigh))
	manager.SetCatalog(catalogFunc(func(ctx context.Context, kind, id string) ([]QueueItem, error) {
		if kind != "album" {
			t.Errorf("expanded kind = %q, want album", kind)
		}
		return []QueueItem{
			{MediaID: "1111111111111111111111", MediaType: model.MediaTrack},
			{MediaID: "2222222222222222222222", MediaType: model.MediaTrack},
		}, nil
	}))

	err := manager.Initialize(context.Background(), []string{"https://open.spotify.com/album/3333333333333333333333"})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := len(manager.Jobs()); got != 2 {
		t.Errorf("queued %d jobs, want 2", got)
	}
}

type catalogFunc func(ctx context.Context, kind, id string) ([]QueueItem, error)

func (f catalogFunc) Expand(ctx context.Context, kind, id string) ([]QueueItem, error) {
	return f(ctx, kind, id)
}
