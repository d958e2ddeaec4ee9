package service

import "github.com/google/uuid"

// validID reports whether id is a canonical UUID. Every table is keyed by
// UUID, so anything else cannot match a row.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
