package domain

import (
	"context"
	"strings"
)

// SystemSchemas are server-owned databases that are never backed up.
var SystemSchemas = []string{"information_schema", "performance_schema"}

// IsSystemSchema reports whether name is one of SystemSchemas, ignoring case.
func IsSystemSchema(name string) bool {
	for _, s := range SystemSchemas {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

type Database struct {
	Name   string
	Tables []string
}

// Schema lists databases in the order the server returned them.
type Schema []Database

func (s Schema) TableCount() int {
	n := 0
	for _, db := range s {
		n += len(db.Tables)
	}
	return n
}

type SchemaEnumerator interface {
	Enumerate(ctx context.Context) (Schema, error)
}
