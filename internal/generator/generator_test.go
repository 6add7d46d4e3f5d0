package generator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/gridmapper/internal/logging"
	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/internal/render"
	"evalgo.org/gridmapper/internal/storage"
	"evalgo.org/gridmapper/models"
)

// w1abcLog has three European contacts on 20m and one North American
// contact on 40m.
const w1abcLog = `START-OF-LOG: 3.0
CALLSIGN: W1ABC
CONTEST: CQ-WW-CW
QSO: 14025 CW 2024-06-08 1802 W1ABC FN42 G4ABC IO91
QSO: 14030 CW 2024-06-08 1803 W1ABC FN42 DL1ABC JO62
QSO: 14035 CW 2024-06-08 1804 W1ABC FN42 PA3XYZ JO31
QSO:  7020 CW 2024-06-08 1810 W1ABC FN42 K2XYZ FN31
END-OF-LOG:
`

// fakeStore records uploads and fails keys containing any of failOn.
type fakeStore struct {
	mu     sync.Mutex
	keys   []string
	failOn []string
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	for _, s := range f.failOn {
		if strings.Contains(key, s) {
			return "", fmt.Errorf("%w: bucket unavailable", storage.ErrStore)
		}
	}
	if len(data) == 0 || contentType != storage.ContentTypePNG {
		return "", errors.New("unexpected artifact")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return "https://maps.example.org/" + key, nil
}

func (f *fakeStore) Backend() string { return "fake" }

// stallingStore stores the first stallAfter artifacts, then holds every
// call until the context ends. With holdStored set the stored calls also
// wait for the context before returning.
type stallingStore struct {
	fakeStore
	stallAfter int
	holdStored bool
}

func (s *stallingStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	stall := len(s.keys) >= s.stallAfter
	s.mu.Unlock()

	if stall {
		<-ctx.Done()
		return "", fmt.Errorf("%w: put %s: %w", storage.ErrStore, key, ctx.Err())
	}

	url, err := s.fakeStore.Put(ctx, key, data, contentType)
	if s.holdStored {
		<-ctx.Done()
	}
	return url, err
}

func newGenerator(store storage.Store) *Generator {
	return newGeneratorWith(store, 2, time.Minute)
}

func newGeneratorWith(store storage.Store, workers int, timeout time.Duration) *Generator {
	tables := refdata.Default()
	return New(tables, render.New(tables, render.Options{Width: 400}), store, logging.Discard(), Options{
		Workers: workers,
		Timeout: timeout,
		Now:     func() time.Time { return time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC) },
	})
}

func request(log string, continents ...string) *models.GenerationRequest {
	return &models.GenerationRequest{
		Callsign:    "w1abc",
		Continents:  continents,
		FileContent: base64.StdEncoding.EncodeToString([]byte(log)),
		FileName:    "contest.cbr",
	}
}

func TestGenerate_SingleContinent(t *testing.T) {
	store := &fakeStore{}
	g := newGenerator(store)
	ctx := WithRequestID(context.Background(), "req-123")

	res := g.Generate(ctx, request(w1abcLog, "EU"))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "W1ABC", res.Callsign)
	assert.Equal(t, 1, res.MapsGenerated)
	require.Len(t, res.Maps, 1)
	assert.Equal(t, "W1ABC_20m_EU.png", res.Maps[0].Filename)
	assert.Equal(t, "2024-06-08/W1ABC/req-123/W1ABC_20m_EU.png", res.Maps[0].StorageKey)
	assert.Equal(t, "https://maps.example.org/2024-06-08/W1ABC/req-123/W1ABC_20m_EU.png", res.Maps[0].DownloadURL)
	assert.Equal(t, []string{res.Maps[0].StorageKey}, store.keys)

	assert.Contains(t, res.LogOutput, "1 contact(s) on 40m outside requested continents (EU)")
	assert.Contains(t, res.LogOutput, "20m: 3 unique grid squares, 3 contacts")
	assert.Contains(t, res.LogOutput, "40m: 1 unique grid squares, 1 contacts")
	assert.Contains(t, res.LogOutput, "operator at FN42 (from log)")
	assert.Equal(t, models.FailureNone, res.Failure)
}

func TestGenerate_AllContinents(t *testing.T) {
	store := &fakeStore{}
	g := newGenerator(store)

	res := g.Generate(context.Background(), request(w1abcLog))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, len(res.Maps), res.MapsGenerated)

	names := make([]string, len(res.Maps))
	for i, m := range res.Maps {
		names[i] = m.Filename
		call, _, region, ok := models.ParseMapFilename(m.Filename)
		require.True(t, ok, m.Filename)
		assert.Equal(t, "W1ABC", call)
		assert.Equal(t, models.ScopeAll, region)
	}
	// band plan order
	assert.Equal(t, []string{"W1ABC_40m_ALL.png", "W1ABC_20m_ALL.png"}, names)
	assert.NotContains(t, res.LogOutput, "outside requested continents")
}

func TestGenerate_MultipleContinentsUniqueFilenames(t *testing.T) {
	g := newGenerator(&fakeStore{})

	res := g.Generate(context.Background(), request(w1abcLog, "north_america", "EU", "eu"))

	require.True(t, res.Success, res.Error)
	seen := map[string]bool{}
	for _, m := range res.Maps {
		assert.False(t, seen[m.Filename], "duplicate %s", m.Filename)
		seen[m.Filename] = true
	}
	assert.Equal(t, map[string]bool{"W1ABC_20m_EU.png": true, "W1ABC_40m_NA.png": true}, seen)
}

func TestGenerate_NoContacts(t *testing.T) {
	store := &fakeStore{}
	g := newGenerator(store)

	res := g.Generate(context.Background(), request("START-OF-LOG: 3.0\nCALLSIGN: W1ABC\nEND-OF-LOG:\n"))

	assert.False(t, res.Success)
	assert.Equal(t, "no valid contacts found", res.Error)
	assert.Equal(t, models.FailureNoContacts, res.Failure)
	assert.Equal(t, 0, res.MapsGenerated)
	assert.Empty(t, res.Maps)
	assert.Empty(t, store.keys)
}

func TestGenerate_PartialUploadFailure(t *testing.T) {
	g := newGenerator(&fakeStore{failOn: []string{"_40m_"}})

	res := g.Generate(context.Background(), request(w1abcLog))

	require.True(t, res.Success, res.Error)
	require.Len(t, res.Maps, 1)
	assert.Equal(t, "W1ABC_20m_ALL.png", res.Maps[0].Filename)
	assert.Contains(t, res.LogOutput, "[WARN] store 40m/ALL: artifact store failure: bucket unavailable")
}

func TestGenerate_AllUploadsFail(t *testing.T) {
	g := newGenerator(&fakeStore{failOn: []string{"W1ABC"}})

	res := g.Generate(context.Background(), request(w1abcLog))

	assert.False(t, res.Success)
	assert.Equal(t, models.FailureStore, res.Failure)
	assert.Contains(t, res.Error, "failed to store maps")
	assert.Equal(t, 0, res.MapsGenerated)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	g := newGenerator(&fakeStore{})

	req := request(w1abcLog)
	req.Callsign = "  "
	res := g.Generate(context.Background(), req)

	assert.False(t, res.Success)
	assert.Equal(t, models.FailureValidation, res.Failure)
	assert.Contains(t, res.Error, "callsign")
}

func TestGenerate_ContentTooLarge(t *testing.T) {
	tables := refdata.Default()
	g := New(tables, render.New(tables, render.Options{}), &fakeStore{}, logging.Discard(), Options{MaxLogBytes: 64})

	res := g.Generate(context.Background(), request(w1abcLog))

	assert.False(t, res.Success)
	assert.Equal(t, models.FailureValidation, res.Failure)
	assert.Contains(t, res.Error, "log content too large")
	assert.Contains(t, res.LogOutput, "[WARN] decode:")
}

func TestGenerate_RequestLocatorOverridesLog(t *testing.T) {
	g := newGenerator(&fakeStore{})

	req := request(w1abcLog, "EU")
	req.GridLocator = "jo31aa"
	res := g.Generate(context.Background(), req)

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.LogOutput, "operator at JO31AA (from request)")
	assert.NotContains(t, res.LogOutput, "(from log)")
}

func TestGenerate_PlainTextAndWarnings(t *testing.T) {
	log := strings.Replace(w1abcLog, "K2XYZ FN31", "K2XYZ ZZ99", 1)
	req := request("")
	req.FileContent = log

	res := newGenerator(&fakeStore{}).Generate(context.Background(), req)

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.LogOutput, "parsed 4 contact(s) as cabrillo, 3 with a locator")
	assert.Contains(t, res.LogOutput, "plain)")
	assert.Contains(t, res.LogOutput, "[WARN] parse: line 7:")
	assert.Equal(t, 1, res.MapsGenerated)
}

func TestGenerate_CancelledContext(t *testing.T) {
	store := &fakeStore{}
	g := newGenerator(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := g.Generate(ctx, request(w1abcLog))

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.MapsGenerated)
	assert.Contains(t, res.LogOutput, "skipped: context canceled")
	assert.Empty(t, store.keys)
}

func TestGenerate_DeadlineKeepsFinishedMaps(t *testing.T) {
	store := &stallingStore{stallAfter: 1, holdStored: true}
	g := newGeneratorWith(store, 1, time.Second)

	res := g.Generate(context.Background(), request(w1abcLog))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, models.FailureNone, res.Failure)
	assert.Equal(t, 1, res.MapsGenerated)
	require.Len(t, res.Maps, 1)
	assert.Equal(t, "W1ABC_40m_ALL.png", res.Maps[0].Filename)
	assert.Contains(t, res.LogOutput, "[WARN] render 20m/ALL: skipped: context deadline exceeded")
}

func TestGenerate_DeadlineDuringUploadIsNotStoreFailure(t *testing.T) {
	store := &stallingStore{stallAfter: 0}
	g := newGeneratorWith(store, 2, 500*time.Millisecond)

	res := g.Generate(context.Background(), request(w1abcLog))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, models.FailureNone, res.Failure)
	assert.Equal(t, 0, res.MapsGenerated)
	assert.Contains(t, res.LogOutput, "[WARN] store 40m/ALL: skipped: context deadline exceeded")
	assert.Contains(t, res.LogOutput, "[WARN] store 20m/ALL: skipped: context deadline exceeded")
	assert.NotContains(t, res.LogOutput, "artifact store failure")
}

func TestGenerate_UntrustedRequestIDNotInKey(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"path traversal", "../../2020-01-01/K2XYZ/abc"},
		{"slash", "a/b"},
		{"too long", strings.Repeat("a", 65)},
		{"dots", ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			res := newGenerator(store).Generate(WithRequestID(context.Background(), tt.id), request(w1abcLog, "EU"))

			require.True(t, res.Success, res.Error)
			require.Len(t, res.Maps, 1)

			parts := strings.Split(res.Maps[0].StorageKey, "/")
			require.Len(t, parts, 4, res.Maps[0].StorageKey)
			assert.Equal(t, "2024-06-08", parts[0])
			assert.Equal(t, "W1ABC", parts[1])
			_, err := uuid.Parse(parts[2])
			assert.NoError(t, err, "key segment %q", parts[2])
			assert.Equal(t, "W1ABC_20m_EU.png", parts[3])
		})
	}
}

func TestKeyID(t *testing.T) {
	assert.Equal(t, "req-123", KeyID("req-123"))
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", KeyID("0f8fad5b-d9cb-469f-a165-70867728950e"))

	for _, id := range []string{"", "../x", "a b", "a_b", "x/y"} {
		_, err := uuid.Parse(KeyID(id))
		assert.NoError(t, err, id)
	}
}

func TestGenerate_LogsOutcome(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	tables := refdata.Default()
	g := New(tables, render.New(tables, render.Options{Width: 400}), &fakeStore{}, logger, Options{Workers: 1})

	log := strings.Replace(w1abcLog, "K2XYZ FN31", "K2XYZ ZZ99", 1)
	res := g.Generate(WithRequestID(context.Background(), "req-9"), request(log, "EU"))
	require.True(t, res.Success, res.Error)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "Generated maps", last.Message)
	assert.Equal(t, "req-9", last.Data["request_id"])
	assert.Equal(t, 1, last.Data["maps"])
	assert.Equal(t, strings.Count(res.LogOutput, "[WARN]"), last.Data["warnings"])
	assert.Greater(t, last.Data["warnings"], 0)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := newGenerator(&fakeStore{}).Generate(WithRequestID(context.Background(), "r"), request(w1abcLog))
	b := newGenerator(&fakeStore{}).Generate(WithRequestID(context.Background(), "r"), request(w1abcLog))
	assert.Equal(t, a, b)
}
