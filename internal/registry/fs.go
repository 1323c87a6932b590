package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"FinPredict/internal/domain/models"
	"FinPredict/internal/forecast/dataset"
	"FinPredict/internal/forecast/gbdt"
	"FinPredict/internal/forecast/gru"
	"FinPredict/internal/forecast/hybrid"
)

// ArtifactSet is everything needed to serve one (symbol, horizon) pair.
type ArtifactSet struct {
	Symbol     string
	Horizon    int
	Scaler     *dataset.Scaler
	Temporal   *gru.Network
	Tree       *gbdt.Model
	Weights    hybrid.Weights
	Evaluation *models.EvaluationReport
}

// FS is a filesystem model registry. Each symbol owns a directory of
// versioned artifact sets plus a "current" pointer file naming the installed
// version. A retrain writes a fresh version directory and flips the pointer
// with a single rename as the last step, so a reader always resolves either
// the previous complete version or the new one, never a half-written set and
// never a missing one. The pointer flip keeps replace safe across processes
// too (a separate training binary writing while the server reads).
type FS struct {
	root string
	mu   sync.Mutex // serializes installs and ledger writes
}

func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("registry: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create root: %w", err)
	}
	return &FS{root: root}, nil
}

func (s *FS) symbolDir(symbol string) string {
	return filepath.Join(s.root, strings.ToUpper(symbol))
}

func scalerFile(h int) string     { return fmt.Sprintf("scaler_%dd.json", h) }
func temporalFile(h int) string   { return fmt.Sprintf("gru_%dd.json", h) }
func treeFile(h int) string       { return fmt.Sprintf("gbdt_%dd.json", h) }
func ensembleFile(h int) string   { return fmt.Sprintf("ensemble_%dd.json", h) }
func evaluationFile(h int) string { return fmt.Sprintf("evaluation_%dd.json", h) }

const (
	metadataFile   = "metadata.json"
	currentPointer = "current"
)

// currentVersion resolves the installed version directory for a symbol.
func (s *FS) currentVersion(symbol string) (string, error) {
	sdir := s.symbolDir(symbol)
	raw, err := os.ReadFile(filepath.Join(sdir, currentPointer))
	if err != nil {
		return "", err
	}
	return filepath.Join(sdir, strings.TrimSpace(string(raw))), nil
}

// Put installs a symbol's artifact sets as a new version. All files are
// written into a fresh version directory first; the "current" pointer is
// flipped with a single rename only once the version is complete. The
// version a reader resolved before the flip stays on disk until the next
// install, so in-flight loads finish against a complete set.
func (s *FS) Put(symbol string, meta *models.TrainingMetadata, sets []*ArtifactSet) error {
	if len(sets) == 0 {
		return fmt.Errorf("registry: no artifact sets for %s", symbol)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sdir := s.symbolDir(symbol)
	if err := os.MkdirAll(sdir, 0o755); err != nil {
		return fmt.Errorf("registry: symbol dir: %w", err)
	}
	prev, _ := s.currentVersion(symbol)

	version, err := os.MkdirTemp(sdir, "v-")
	if err != nil {
		return fmt.Errorf("registry: version dir: %w", err)
	}
	if err := s.writeVersion(version, meta, sets); err != nil {
		_ = os.RemoveAll(version)
		return err
	}

	pointer, err := os.CreateTemp(sdir, currentPointer+".tmp-")
	if err != nil {
		_ = os.RemoveAll(version)
		return fmt.Errorf("registry: stage pointer: %w", err)
	}
	tmpName := pointer.Name()
	if _, err := pointer.WriteString(filepath.Base(version)); err != nil {
		pointer.Close()
		_ = os.Remove(tmpName)
		_ = os.RemoveAll(version)
		return fmt.Errorf("registry: write pointer: %w", err)
	}
	if err := pointer.Close(); err != nil {
		_ = os.Remove(tmpName)
		_ = os.RemoveAll(version)
		return fmt.Errorf("registry: close pointer: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(sdir, currentPointer)); err != nil {
		_ = os.Remove(tmpName)
		_ = os.RemoveAll(version)
		return fmt.Errorf("registry: install artifacts: %w", err)
	}

	s.pruneVersions(sdir, filepath.Base(version), prev)
	return nil
}

func (s *FS) writeVersion(version string, meta *models.TrainingMetadata, sets []*ArtifactSet) error {
	for _, set := range sets {
		files := map[string]interface{}{
			scalerFile(set.Horizon):     set.Scaler,
			temporalFile(set.Horizon):   set.Temporal,
			treeFile(set.Horizon):       set.Tree,
			ensembleFile(set.Horizon):   set.Weights,
			evaluationFile(set.Horizon): set.Evaluation,
		}
		for name, v := range files {
			if err := writeJSON(filepath.Join(version, name), v); err != nil {
				return err
			}
		}
	}
	return writeJSON(filepath.Join(version, metadataFile), meta)
}

// pruneVersions removes version directories other than the freshly installed
// one and the previously installed one, which readers may still be holding.
func (s *FS) pruneVersions(sdir, installed, prev string) {
	entries, err := os.ReadDir(sdir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || name == installed || filepath.Join(sdir, name) == prev {
			continue
		}
		_ = os.RemoveAll(filepath.Join(sdir, name))
	}
}

// Load reads one (symbol, horizon) artifact set from the installed version.
// A symbol with no installed version or with missing horizon files has
// simply not been trained yet. If the resolved version is pruned by an
// install racing ahead of the read, Load re-resolves the pointer and
// retries against the newer version.
func (s *FS) Load(symbol string, horizon int) (*ArtifactSet, error) {
	dir, err := s.currentVersion(symbol)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("registry: %s: %w", symbol, models.ErrNotTrained)
		}
		return nil, fmt.Errorf("registry: resolve %s: %w", symbol, err)
	}
	for {
		set, err := s.loadVersion(symbol, horizon, dir)
		if err == nil {
			return set, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		latest, rerr := s.currentVersion(symbol)
		if rerr != nil || latest == dir {
			return nil, fmt.Errorf("registry: %s horizon %d: %w", symbol, horizon, models.ErrNotTrained)
		}
		dir = latest
	}
}

func (s *FS) loadVersion(symbol string, horizon int, dir string) (*ArtifactSet, error) {
	set := &ArtifactSet{
		Symbol:     strings.ToUpper(symbol),
		Horizon:    horizon,
		Scaler:     &dataset.Scaler{},
		Temporal:   &gru.Network{},
		Tree:       &gbdt.Model{},
		Evaluation: &models.EvaluationReport{},
	}
	files := map[string]interface{}{
		scalerFile(horizon):     set.Scaler,
		temporalFile(horizon):   set.Temporal,
		treeFile(horizon):       set.Tree,
		ensembleFile(horizon):   &set.Weights,
		evaluationFile(horizon): set.Evaluation,
	}
	for name, v := range files {
		if err := readJSON(filepath.Join(dir, name), v); err != nil {
			return nil, err
		}
	}
	if !set.Temporal.Trained || !set.Tree.Trained {
		return nil, fmt.Errorf("registry: %s horizon %d untrained artifacts: %w", symbol, horizon, models.ErrNotTrained)
	}
	return set, nil
}

// Metadata reads a symbol's training provenance.
func (s *FS) Metadata(symbol string) (*models.TrainingMetadata, error) {
	dir, err := s.currentVersion(symbol)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("registry: %s: %w", symbol, models.ErrNotTrained)
		}
		return nil, fmt.Errorf("registry: resolve %s: %w", symbol, err)
	}
	meta := &models.TrainingMetadata{}
	if err := readJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("registry: %s: %w", symbol, models.ErrNotTrained)
		}
		return nil, err
	}
	return meta, nil
}

// Symbols lists every symbol with an installed version.
func (s *FS) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), currentPointer)); err != nil {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("registry: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("registry: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("registry: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
