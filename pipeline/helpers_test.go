package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/popforest/pkg/log"
	"github.com/YuminosukeSato/popforest/tracking"
)

var spotifyHeader = []string{
	"track_id", "popularity", "danceability", "energy", "key", "loudness", "mode",
	"speechiness", "acousticness", "instrumentalness", "liveness", "valence",
	"tempo", "duration_ms",
}

// writeSpotifyCSV は人気度が danceability と energy に依存する合成データを書く
func writeSpotifyCSV(t *testing.T, path string, n int) {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 7))

	var b strings.Builder
	b.WriteString(strings.Join(spotifyHeader, ","))
	b.WriteByte('\n')
	for i := 0; i < n; i++ {
		dance := rng.Float64()
		energy := rng.Float64()
		pop := 5 + 60*dance + 30*energy + rng.Float64()*4
		fmt.Fprintf(&b, "t%03d,%.0f,%.3f,%.3f,%d,%.2f,%d,%.3f,%.3f,%.3f,%.3f,%.3f,%.1f,%d\n",
			i, pop, dance, energy, rng.IntN(12), -20+rng.Float64()*15, rng.IntN(2),
			rng.Float64()*0.3, rng.Float64(), rng.Float64()*0.5, rng.Float64()*0.4,
			rng.Float64(), 80+rng.Float64()*100, 120000+rng.IntN(180000))
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func fixedClock() time.Time {
	return time.Date(2025, 10, 5, 14, 3, 27, 123456000, time.Local)
}

func newTestRunner(t *testing.T, opts ...Option) (*Runner, *bytes.Buffer, *log.TestLogger) {
	t.Helper()
	out := &bytes.Buffer{}
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts = append([]Option{WithLogger(logger), WithClock(fixedClock)}, opts...)
	return NewRunner(out, opts...), out, logger
}

// fakeLedger はメモリ上に記録を保持する
type fakeLedger struct {
	mu        sync.Mutex
	artifacts []string
	runs      []tracking.Run
}

func (f *fakeLedger) RecordArtifact(_ context.Context, stage, path string) (*tracking.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifacts = append(f.artifacts, stage+":"+filepath.Base(path))
	return &tracking.Artifact{Stage: stage, Path: path}, nil
}

func (f *fakeLedger) RecordRun(_ context.Context, run *tracking.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeLedger) CountRuns(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs), nil
}
