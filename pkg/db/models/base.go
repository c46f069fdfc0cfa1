package models

import "github.com/google/uuid"

// assignID fills an empty primary key so inserts do not depend on database-side defaults.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
