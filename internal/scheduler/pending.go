package scheduler

import (
	"encoding/json"
	"os"
	"time"

	"github.com/web3gaoyutang/snapback/internal/trader"
)

// pendingSnapshot is the on-disk form of orders swept before the close.
type pendingSnapshot struct {
	SavedAt time.Time       `json:"saved_at"`
	Tickets []trader.Ticket `json:"tickets"`
}

// LoadPending reads swept orders from a JSON file. Returns nil if the file
// doesn't exist.
func LoadPending(filePath string) ([]trader.Ticket, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap pendingSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return snap.Tickets, nil
}

// SavePending writes swept orders to a JSON file.
func SavePending(filePath string, tickets []trader.Ticket) error {
	snap := pendingSnapshot{SavedAt: time.Now(), Tickets: tickets}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// ClearPendingFile removes the snapshot file. A missing file is not an error.
func ClearPendingFile(filePath string) error {
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
