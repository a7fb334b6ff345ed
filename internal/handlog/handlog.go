// Package handlog exports completed hands as JSON files, one per hand.
// The files are an operator-facing record: the service never reads them
// back, and losing the directory loses nothing but history.
package handlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/cardroom/internal/deck"
	"github.com/lox/cardroom/internal/fileutil"
	"github.com/lox/cardroom/internal/protocol"
)

// Record is the on-disk shape of one completed hand.
type Record struct {
	RoomID      string                    `json:"roomId"`
	RoomName    string                    `json:"roomName"`
	HandID      string                    `json:"handId"`
	HandNumber  int                       `json:"handNumber"`
	CompletedAt time.Time                 `json:"completedAt"`
	Board       []deck.Card               `json:"board"`
	Pot         int                       `json:"pot"`
	IsShowdown  bool                      `json:"isShowdown"`
	Winners     []protocol.WinnerInfo     `json:"winners"`
	Players     []protocol.RevealedPlayer `json:"players"`
}

// Writer persists hand records under a single directory.
type Writer struct {
	dir    string
	logger *log.Logger
}

// NewWriter ensures the directory exists and returns a writer for it.
func NewWriter(dir string, logger *log.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating hand log directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger.WithPrefix("handlog")}, nil
}

// Write stores one record as <roomId>-<handNumber>.json. The write is
// atomic so a crash never leaves a truncated record.
func (w *Writer) Write(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding hand record: %w", err)
	}
	name := fmt.Sprintf("%s-%06d.json", rec.RoomID, rec.HandNumber)
	if err := fileutil.WriteFileAtomic(filepath.Join(w.dir, name), data, 0644); err != nil {
		return fmt.Errorf("writing hand record: %w", err)
	}
	w.logger.Debug("Wrote hand record", "file", name, "pot", rec.Pot)
	return nil
}
