// model/station.go
package model

import "time"

type SlotState string

const (
	SlotOccupied SlotState = "OCCUPIED"
	SlotEmpty    SlotState = "EMPTY"
	SlotFaulty   SlotState = "FAULTY"
	SlotUnknown  SlotState = "UNKNOWN"
)

// UnitPlacement is the last state the hardware reported for a power bank:
// where it sits and when the station last synced with the backend.
type UnitPlacement struct {
	UnitID       int64      `json:"unit_id"`
	StationID    *int64     `json:"station_id,omitempty"`
	SlotNumber   *int       `json:"slot_number,omitempty"`
	SlotState    SlotState  `json:"slot_state"`
	LastSyncedAt time.Time  `json:"last_synced_at"`
}
