package favorites

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/models"
)

// Stats summarises the favorites collection.
type Stats struct {
	Count         int         `json:"count"`
	AverageRating float64     `json:"averageRating"`
	ByRating      map[int]int `json:"byRating"`
	WithNotes     int         `json:"withNotes"`
}

// Stats computes the collection summary shown above the favorites list.
func (s *Store) Stats() Stats {
	items := s.All()
	stats := Stats{Count: len(items), ByRating: make(map[int]int, models.MaxRating)}
	if len(items) == 0 {
		return stats
	}

	total := 0
	for _, e := range items {
		total += e.Rating
		stats.ByRating[e.Rating]++
		if e.Notes != nil && *e.Notes != "" {
			stats.WithNotes++
		}
	}
	stats.AverageRating = float64(total) / float64(len(items))
	return stats
}

type exportDocument struct {
	ExportedAt time.Time              `json:"exportedAt"`
	Favorites  []models.FavoriteEntry `json:"favorites"`
}

// Export serialises the collection for backup.
func (s *Store) Export() ([]byte, error) {
	doc := exportDocument{ExportedAt: s.now(), Favorites: s.All()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export favorites: %w", err)
	}
	return data, nil
}

// Import merges a document produced by Export. Entries that fail
// validation are skipped; entries for movies already saved replace the
// stored rating and notes. It returns the number of entries applied.
func (s *Store) Import(data []byte) (int, error) {
	var doc struct {
		Favorites []json.RawMessage `json:"favorites"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("failed to parse favorites export: %w", err)
	}

	var incoming []models.FavoriteEntry
	for _, raw := range doc.Favorites {
		var e models.FavoriteEntry
		if err := json.Unmarshal(raw, &e); err != nil || !validEntry(e) {
			continue
		}
		incoming = append(incoming, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneEntries(s.items)
	for _, e := range incoming {
		if i := indexOf(next, e.Movie.ID); i >= 0 {
			next[i].Rating = e.Rating
			if e.Notes != nil {
				next[i].Notes = copyString(e.Notes)
			}
			continue
		}
		next = append(next, e)
	}

	if !s.commit(next) {
		return 0, fmt.Errorf("failed to import favorites: %s", saveErrorMessage)
	}

	s.logger.WithFields(logrus.Fields{
		"imported": len(incoming),
		"skipped":  len(doc.Favorites) - len(incoming),
	}).Info("Imported favorites")
	return len(incoming), nil
}
