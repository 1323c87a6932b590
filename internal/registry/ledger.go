package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"FinPredict/internal/domain/models"
)

const ledgerFile = "ledger.json"

// SetStatus records a symbol's batch-training state transition in the
// shared ledger file. Timestamps and duration are derived from the
// transition: in_progress stamps the start, terminal states stamp the
// finish.
func (s *FS) SetStatus(symbol string, status models.TrainingStatus, trainErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLedger()
	if err != nil {
		return err
	}

	key := strings.ToUpper(symbol)
	entry := entries[key]
	entry.Symbol = key
	entry.Status = status
	entry.Error = ""

	now := time.Now().UTC()
	switch status {
	case models.TrainingPending:
		entry.StartedAt = nil
		entry.FinishedAt = nil
		entry.Duration = 0
	case models.TrainingInProgress:
		entry.StartedAt = &now
		entry.FinishedAt = nil
		entry.Duration = 0
	case models.TrainingComplete, models.TrainingFailed:
		entry.FinishedAt = &now
		if entry.StartedAt != nil {
			entry.Duration = now.Sub(*entry.StartedAt).Seconds()
		}
		if trainErr != nil {
			entry.Error = trainErr.Error()
		}
	}
	entries[key] = entry

	return writeJSON(filepath.Join(s.root, ledgerFile), entries)
}

// Entries returns the ledger sorted by symbol.
func (s *FS) Entries() ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLedger()
	if err != nil {
		return nil, err
	}
	out := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *FS) readLedger() (map[string]models.LedgerEntry, error) {
	entries := map[string]models.LedgerEntry{}
	err := readJSON(filepath.Join(s.root, ledgerFile), &entries)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("registry: read ledger: %w", err)
	}
	return entries, nil
}
