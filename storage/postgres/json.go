package postgres

import (
	"encoding/json"

	"github.com/shipitai/filereviewer/storage"
)

// filesToJSON converts file outcomes to a JSON string for storage.
func filesToJSON(files []storage.FileRecord) string {
	if len(files) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(files)
	return string(b)
}

// filesFromJSON parses a JSON string into file outcomes.
func filesFromJSON(s string) []storage.FileRecord {
	if s == "" || s == "null" {
		return nil
	}
	var files []storage.FileRecord
	if err := json.Unmarshal([]byte(s), &files); err != nil {
		return nil
	}
	return files
}
