package patchstream

// EntryState is the cache state of one cell.
type EntryState int

const (
	// StateAbsent means the cell has no cache entry.
	StateAbsent EntryState = iota

	// StateReserved means a build for the cell is in flight.
	StateReserved

	// StateResident means a built patch is cached for the cell.
	StateResident
)

// String returns the state name.
func (s EntryState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateReserved:
		return "reserved"
	case StateResident:
		return "resident"
	default:
		return "unknown"
	}
}
