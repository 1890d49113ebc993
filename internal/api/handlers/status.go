package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/favorites"
	"github.com/AtharvRaotole/reel-picks/internal/recent"
	"github.com/AtharvRaotole/reel-picks/internal/reminders"
)

// ClientCounter reports connected change-stream tabs.
type ClientCounter interface {
	ClientCount() int
}

// StatusHandler handles status requests
type StatusHandler struct {
	favorites *favorites.Store
	recent    *recent.Store
	reminders *reminders.Store
	tabs      ClientCounter
	logger    *logrus.Logger
}

// NewStatusHandler creates a new status handler. tabs may be nil.
func NewStatusHandler(fav *favorites.Store, rec *recent.Store, rem *reminders.Store, tabs ClientCounter, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		favorites: fav,
		recent:    rec,
		reminders: rem,
		tabs:      tabs,
		logger:    logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Favorites         int     `json:"favorites"`
	AverageRating     float64 `json:"average_rating"`
	RecentlyViewed    int     `json:"recently_viewed"`
	Reminders         int     `json:"reminders"`
	UpcomingReminders int     `json:"upcoming_reminders"`
	ConnectedTabs     int     `json:"connected_tabs"`
	LastSaveError     string  `json:"last_save_error,omitempty"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats := h.favorites.Stats()
	response := StatusResponse{
		Favorites:         stats.Count,
		AverageRating:     stats.AverageRating,
		RecentlyViewed:    len(h.recent.All()),
		Reminders:         len(h.reminders.All()),
		UpcomingReminders: len(h.reminders.Upcoming()),
		LastSaveError:     h.favorites.Err(),
	}
	if h.tabs != nil {
		response.ConnectedTabs = h.tabs.ClientCount()
	}
	writeJSON(w, http.StatusOK, response)
}
