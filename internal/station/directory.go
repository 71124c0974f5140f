// Package station provides the reference directory mapping station
// identifiers to their metadata. The directory is an injectable
// collaborator: ingestion consults it when a file references a station
// the store has not seen, and falls back to a placeholder when the
// station is unknown.
package station

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
)

// Directory resolves station metadata by identifier. A nil entry map is
// valid and resolves nothing.
type Directory struct {
	entries map[string]domain.StationMetadata
}

// Load reads a YAML file mapping station id to metadata:
//
//	USC00110072:
//	  name: Lincoln Municipal Airport
//	  latitude: 40.85
//	  longitude: -96.75
//	  elevation: 362.0
//	  state: NE
//
// Invalid entries fail the load; a bad reference table is a startup error,
// not something to discover mid-sweep.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file: %w", err)
	}

	entries := make(map[string]domain.StationMetadata)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse stations file: %w", err)
	}
	for id, meta := range entries {
		if err := meta.Validate(); err != nil {
			return nil, fmt.Errorf("station %s: %w", id, err)
		}
	}
	return &Directory{entries: entries}, nil
}

// Empty returns a directory that resolves no stations; every lookup falls
// back to the placeholder.
func Empty() *Directory {
	return &Directory{}
}

// Lookup returns the metadata for id, if known.
func (d *Directory) Lookup(id string) (domain.StationMetadata, bool) {
	meta, ok := d.entries[id]
	return meta, ok
}

// Resolve builds the station row for id: full metadata when the directory
// knows the station, the minimal placeholder otherwise.
func (d *Directory) Resolve(id string) domain.Station {
	if meta, ok := d.Lookup(id); ok {
		return domain.StationFromMetadata(id, meta)
	}
	return domain.PlaceholderStation(id)
}
