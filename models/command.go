package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdSearchNow     CommandType = "search_now"
	CmdRunSaved      CommandType = "run_saved"
	CmdPause         CommandType = "pause"
	CmdResume        CommandType = "resume"
	CmdRunRevalidate CommandType = "run_revalidate"
	CmdRunEnrich     CommandType = "run_enrich"
	CmdRunExport     CommandType = "run_export"
)

// Command is an operator instruction queued in the operational store and
// picked up by the scheduler poll loop.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Query   string `json:"query,omitempty"`
	SavedID int64  `json:"saved_id,omitempty"`
}
