package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"FinPredict/internal/domain/models"
	"FinPredict/internal/forecast/dataset"
	"FinPredict/internal/forecast/gbdt"
	"FinPredict/internal/forecast/gru"
	"FinPredict/internal/forecast/hybrid"
)

func testArtifactSet(symbol string, horizon int) *ArtifactSet {
	cfg := gru.DefaultConfig()
	cfg.Hidden = 4
	cfg.Dense = 2
	temporal := gru.New(3, cfg)
	temporal.Trained = true

	tree := gbdt.New(gbdt.DefaultConfig())
	tree.Base = 100
	tree.Trained = true

	return &ArtifactSet{
		Symbol:  symbol,
		Horizon: horizon,
		Scaler: &dataset.Scaler{
			FeatureMin: []float64{0, 0, 0},
			FeatureMax: []float64{1, 1, 1},
			TargetMin:  90,
			TargetMax:  110,
		},
		Temporal: temporal,
		Tree:     tree,
		Weights:  hybrid.Weights{Temporal: 0.6, Tree: 0.4},
		Evaluation: &models.EvaluationReport{
			Symbol:  symbol,
			Horizon: horizon,
			RMSE:    1.5,
		},
	}
}

func testMetadata(symbol string) *models.TrainingMetadata {
	return &models.TrainingMetadata{
		Symbol:    symbol,
		Version:   "v1",
		TrainedAt: time.Now().UTC(),
		Horizons:  []int{1, 7},
	}
}

func TestPutLoadRoundTrip(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	sets := []*ArtifactSet{testArtifactSet("AAPL", 1), testArtifactSet("AAPL", 7)}
	if err := s.Put("AAPL", testMetadata("AAPL"), sets); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Load("AAPL", 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Weights.Temporal != 0.6 || got.Weights.Tree != 0.4 {
		t.Fatalf("weights drifted: %+v", got.Weights)
	}
	if got.Scaler.TargetMax != 110 {
		t.Fatalf("scaler drifted: %+v", got.Scaler)
	}
	if got.Evaluation.RMSE != 1.5 {
		t.Fatalf("evaluation drifted: %+v", got.Evaluation)
	}

	meta, err := s.Metadata("AAPL")
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.Version != "v1" {
		t.Fatalf("metadata drifted: %+v", meta)
	}
}

func TestLoadDistinguishesUntrained(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// unknown symbol
	if _, err := s.Load("MSFT", 1); !errors.Is(err, models.ErrNotTrained) {
		t.Fatalf("want ErrNotTrained for unknown symbol, got %v", err)
	}

	// known symbol, missing horizon
	if err := s.Put("MSFT", testMetadata("MSFT"), []*ArtifactSet{testArtifactSet("MSFT", 1)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Load("MSFT", 30); !errors.Is(err, models.ErrNotTrained) {
		t.Fatalf("want ErrNotTrained for missing horizon, got %v", err)
	}
	if _, err := s.Load("MSFT", 1); err != nil {
		t.Fatalf("trained horizon should load: %v", err)
	}
}

func TestPutReplacesPreviousArtifacts(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := s.Put("TSLA", testMetadata("TSLA"), []*ArtifactSet{testArtifactSet("TSLA", 1), testArtifactSet("TSLA", 7)}); err != nil {
		t.Fatalf("first put: %v", err)
	}

	// retrain with only horizon 1: old horizon-7 files must be gone
	replacement := testArtifactSet("TSLA", 1)
	replacement.Weights = hybrid.Weights{Temporal: 0.2, Tree: 0.8}
	if err := s.Put("TSLA", testMetadata("TSLA"), []*ArtifactSet{replacement}); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Load("TSLA", 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Weights.Temporal != 0.2 {
		t.Fatalf("replacement not visible: %+v", got.Weights)
	}
	if _, err := s.Load("TSLA", 7); !errors.Is(err, models.ErrNotTrained) {
		t.Fatalf("stale horizon survived replace: %v", err)
	}
}

func TestLoadDuringReplaceSeesCompleteVersion(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stamped := func(version float64) *ArtifactSet {
		set := testArtifactSet("AAPL", 1)
		set.Scaler.TargetMax = version
		set.Evaluation.RMSE = version
		return set
	}
	if err := s.Put("AAPL", testMetadata("AAPL"), []*ArtifactSet{stamped(0)}); err != nil {
		t.Fatalf("initial put: %v", err)
	}

	done := make(chan struct{})
	var putErr error
	go func() {
		defer close(done)
		for i := 1; i <= 200; i++ {
			if err := s.Put("AAPL", testMetadata("AAPL"), []*ArtifactSet{stamped(float64(i))}); err != nil {
				putErr = err
				return
			}
		}
	}()

	for loads := 0; ; loads++ {
		select {
		case <-done:
			if putErr != nil {
				t.Fatalf("put: %v", putErr)
			}
			if loads == 0 {
				t.Fatal("reader never ran during replace")
			}
			return
		default:
		}
		got, err := s.Load("AAPL", 1)
		if err != nil {
			t.Fatalf("load during replace: %v", err)
		}
		// both files must come from the same installed version
		if got.Scaler.TargetMax != got.Evaluation.RMSE {
			t.Fatalf("mixed versions: scaler %v vs evaluation %v", got.Scaler.TargetMax, got.Evaluation.RMSE)
		}
	}
}

func TestPutPrunesRetiredVersions(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Put("AAPL", testMetadata("AAPL"), []*ArtifactSet{testArtifactSet("AAPL", 1)}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(dir, "AAPL"))
	if err != nil {
		t.Fatalf("read symbol dir: %v", err)
	}
	versions := 0
	for _, e := range entries {
		if e.IsDir() {
			versions++
		}
	}
	// the installed version plus at most the previous one
	if versions > 2 {
		t.Fatalf("retired versions not pruned: %d dirs", versions)
	}
}

func TestSymbolsListsInstalledDirs(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, sym := range []string{"aapl", "MSFT"} {
		if err := s.Put(sym, testMetadata(sym), []*ArtifactSet{testArtifactSet(sym, 1)}); err != nil {
			t.Fatalf("put %s: %v", sym, err)
		}
	}
	got, err := s.Symbols()
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	found := map[string]bool{}
	for _, sym := range got {
		found[sym] = true
	}
	if len(got) != 2 || !found["AAPL"] || !found["MSFT"] {
		t.Fatalf("unexpected symbols: %v", got)
	}
}

func TestLedgerTransitions(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := s.SetStatus("aapl", models.TrainingPending, nil); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if err := s.SetStatus("aapl", models.TrainingInProgress, nil); err != nil {
		t.Fatalf("in_progress: %v", err)
	}
	if err := s.SetStatus("aapl", models.TrainingComplete, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.SetStatus("msft", models.TrainingFailed, errors.New("boom")); err != nil {
		t.Fatalf("failed: %v", err)
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	aapl, msft := entries[0], entries[1]
	if aapl.Symbol != "AAPL" || aapl.Status != models.TrainingComplete {
		t.Fatalf("unexpected aapl entry: %+v", aapl)
	}
	if aapl.StartedAt == nil || aapl.FinishedAt == nil || aapl.Duration < 0 {
		t.Fatalf("missing timing on completed entry: %+v", aapl)
	}
	if msft.Status != models.TrainingFailed || msft.Error != "boom" {
		t.Fatalf("unexpected msft entry: %+v", msft)
	}
}
