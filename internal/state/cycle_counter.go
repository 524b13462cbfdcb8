/*

This file manages the persistent global cycle counter for the daemon loop.
The counter is stored in the database to ensure continuity across restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetCurrentCycleNumber retrieves the current cycle number from the database.
func GetCurrentCycleNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_cycle FROM cycle_counter WHERE id = 1;`

	var currentCycle int
	row := DB.QueryRow(query)
	if err := row.Scan(&currentCycle); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cycle counter: %w", err)
	}
	return currentCycle, nil
}

// IncrementCycleNumber advances the persistent cycle counter and returns
// the new value.
func IncrementCycleNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		UPDATE cycle_counter
		SET current_cycle = current_cycle + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_cycle;`

	var newCycle int
	if err := DB.QueryRow(query).Scan(&newCycle); err != nil {
		return 0, fmt.Errorf("failed to increment cycle counter: %w", err)
	}

	log.Debug().Int("cycle", newCycle).Msg("Cycle counter incremented")
	return newCycle, nil
}
