package store

import "github.com/google/uuid"

// IDGenerator produces sweep run IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
//
// Run ordering still comes from seq; the timestamp prefix only makes IDs
// roughly sortable for humans reading the database.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
