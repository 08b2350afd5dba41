// Package feed implements the listing feed: a location-scoped "nearby" mode
// that falls back one-way to an unscoped "all" mode, with an independent page
// cursor per mode and de-duplicated accumulation of results.
package feed

import (
	"errors"

	"estatehub/gateway/internal/models"
)

// Mode selects which upstream endpoint the next page comes from.
type Mode string

const (
	ModeNearby Mode = "nearby"
	ModeAll    Mode = "all"
)

// StateVersion is bumped whenever the stored shape of State changes.
const StateVersion = 1

var (
	// ErrFetchInProgress is returned when a page request is already in flight for the feed.
	ErrFetchInProgress = errors.New("feed: fetch already in progress")
	// ErrExhausted is returned by Plan when neither mode has pages left.
	ErrExhausted = errors.New("feed: no more listings")
	// ErrStaleResult is returned when a response arrives for a feed that was reset after the request was planned.
	ErrStaleResult = errors.New("feed: result belongs to a reset feed")
)

// State is the paginated feed held for one client.
type State struct {
	Version       int              `json:"v"`
	Mode          Mode             `json:"fetchMode"`
	NearbyPage    int              `json:"nearbyPage"`
	AllPage       int              `json:"allPage"`
	HasMoreNearby bool             `json:"hasMoreNearby"`
	HasMoreAll    bool             `json:"hasMoreAll"`
	Items         []models.Listing `json:"items"`
	Loading       bool             `json:"loading"`
	Error         string           `json:"error,omitempty"`
	Generation    int64            `json:"generation"`
}

// Request describes one upstream page fetch.
type Request struct {
	Mode       Mode             `json:"mode"`
	Page       int              `json:"page"`
	Location   *models.GeoPoint `json:"location,omitempty"`
	Generation int64            `json:"-"`
}

// NewState returns a feed positioned at page 1 of nearby mode.
func NewState() *State {
	return &State{
		Version:       StateVersion,
		Mode:          ModeNearby,
		NearbyPage:    1,
		AllPage:       1,
		HasMoreNearby: true,
		HasMoreAll:    true,
		Items:         []models.Listing{},
	}
}

// Plan picks the next page to request and marks the feed as loading.
// Nearby mode is used while it has pages and a location is known; otherwise
// the feed switches to all mode and stays there until Reset.
func (s *State) Plan(loc *models.GeoPoint) (Request, error) {
	if s.Loading {
		return Request{}, ErrFetchInProgress
	}
	if s.Mode == ModeNearby && (!s.HasMoreNearby || loc == nil) {
		s.Mode = ModeAll
	}

	req := Request{Mode: s.Mode, Generation: s.Generation}
	switch s.Mode {
	case ModeNearby:
		at := *loc
		req.Page = s.NearbyPage
		req.Location = &at
	default:
		if !s.HasMoreAll {
			return Request{}, ErrExhausted
		}
		req.Page = s.AllPage
	}

	s.Loading = true
	s.Error = ""
	return req, nil
}

// Apply records a successful page for req and returns how many listings were new.
func (s *State) Apply(req Request, page *models.ListingPage) (int, error) {
	if req.Generation != s.Generation {
		return 0, ErrStaleResult
	}
	if page == nil {
		page = &models.ListingPage{}
	}

	s.Loading = false
	s.Error = ""
	added := s.appendUnique(page.Items)

	exhausted := len(page.Items) == 0 || !page.HasMore
	switch req.Mode {
	case ModeNearby:
		s.NearbyPage = req.Page + 1
		if exhausted {
			s.HasMoreNearby = false
		}
	case ModeAll:
		s.AllPage = req.Page + 1
		if exhausted {
			s.HasMoreAll = false
		}
	}
	return added, nil
}

// Fail records a failed fetch for req. Cursors and hasMore flags are left as
// they were so that the same page can be requested again.
func (s *State) Fail(req Request, err error) error {
	if req.Generation != s.Generation {
		return ErrStaleResult
	}
	s.Loading = false
	if err != nil {
		s.Error = err.Error()
	}
	return nil
}

// Reset discards accumulated listings and returns both cursors to page 1 in nearby mode.
func (s *State) Reset() {
	gen := s.Generation + 1
	*s = *NewState()
	s.Generation = gen
}

// appendUnique appends listings whose id is not yet held. A repeated id keeps
// its original position but takes the newer field values.
func (s *State) appendUnique(items []models.Listing) int {
	index := make(map[string]int, len(s.Items))
	for i, l := range s.Items {
		index[l.ID] = i
	}
	added := 0
	for _, l := range items {
		if l.ID == "" {
			continue
		}
		if i, ok := index[l.ID]; ok {
			s.Items[i] = l
			continue
		}
		index[l.ID] = len(s.Items)
		s.Items = append(s.Items, l)
		added++
	}
	return added
}

// Clone returns a deep enough copy of s for independent mutation.
func (s *State) Clone() *State {
	c := *s
	c.Items = make([]models.Listing, len(s.Items))
	copy(c.Items, s.Items)
	return &c
}
