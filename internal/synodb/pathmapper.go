package synodb

import (
	"fmt"
	"strings"
)

// PathMapper translates paths stored in the Synology database into the
// paths the migration ledger uses. The database records NAS-internal
// volume paths; the ledger records paths as seen through the configured
// source, so a prefix swap bridges the two.
type PathMapper struct {
	dbPrefix   string
	sourceRoot string
}

// NewPathMapper builds a mapper that replaces dbPrefix with sourceRoot.
// Both sides are normalized to have no trailing slash.
func NewPathMapper(dbPrefix, sourceRoot string) *PathMapper {
	return &PathMapper{
		dbPrefix:   strings.TrimRight(dbPrefix, "/"),
		sourceRoot: strings.TrimRight(sourceRoot, "/"),
	}
}

// ToSourcePath converts a database path into a ledger source path.
func (m *PathMapper) ToSourcePath(dbPath string) (string, error) {
	if m.dbPrefix == "" {
		return m.sourceRoot + "/" + strings.TrimLeft(dbPath, "/"), nil
	}
	rel, ok := strings.CutPrefix(dbPath, m.dbPrefix)
	if !ok {
		return "", fmt.Errorf("database path %s is outside prefix %s", dbPath, m.dbPrefix)
	}
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return "", fmt.Errorf("database path %s names the prefix itself", dbPath)
	}
	return m.sourceRoot + "/" + rel, nil
}
