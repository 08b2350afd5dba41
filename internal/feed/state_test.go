package feed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/gateway/internal/models"
)

var here = &models.GeoPoint{Latitude: -36.85, Longitude: 174.76}

func listings(ids ...string) []models.Listing {
	out := make([]models.Listing, len(ids))
	for i, id := range ids {
		out[i] = models.Listing{ID: id, Title: "listing " + id}
	}
	return out
}

func itemIDs(st *State) []string {
	out := make([]string, len(st.Items))
	for i, l := range st.Items {
		out[i] = l.ID
	}
	return out
}

func TestPlan_NearbyWhenLocationKnown(t *testing.T) {
	st := NewState()
	req, err := st.Plan(here)
	require.NoError(t, err)
	assert.Equal(t, ModeNearby, req.Mode)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, *here, *req.Location)
	assert.True(t, st.Loading)
}

func TestPlan_AllWhenNoLocation(t *testing.T) {
	st := NewState()
	req, err := st.Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, ModeAll, req.Mode)
	assert.Equal(t, 1, req.Page)
	assert.Nil(t, req.Location)
	assert.Equal(t, ModeAll, st.Mode)
}

func TestPlan_RejectsWhileLoading(t *testing.T) {
	st := NewState()
	_, err := st.Plan(here)
	require.NoError(t, err)
	_, err = st.Plan(here)
	assert.ErrorIs(t, err, ErrFetchInProgress)
}

func TestPlan_NearbyExhaustedSwitchesToAllPageOne(t *testing.T) {
	st := NewState()
	st.HasMoreNearby = false
	st.NearbyPage = 4

	req, err := st.Plan(here)
	require.NoError(t, err)
	assert.Equal(t, ModeAll, req.Mode)
	assert.Equal(t, 1, req.Page)
}

func TestPlan_AllModeIsOneWay(t *testing.T) {
	st := NewState()
	req, _ := st.Plan(nil)
	_, err := st.Apply(req, &models.ListingPage{Items: listings("a"), HasMore: true})
	require.NoError(t, err)

	req, err = st.Plan(here)
	require.NoError(t, err)
	assert.Equal(t, ModeAll, req.Mode, "a location appearing later does not return the feed to nearby")
	assert.Equal(t, 2, req.Page)
}

func TestPlan_Exhausted(t *testing.T) {
	st := NewState()
	st.Mode = ModeAll
	st.HasMoreAll = false
	_, err := st.Plan(here)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.False(t, st.Loading)
}

func TestApply_DeduplicatesFirstSeenOrderLastSeenValues(t *testing.T) {
	st := NewState()
	req, _ := st.Plan(here)
	added, err := st.Apply(req, &models.ListingPage{Items: listings("a", "b", "c"), HasMore: true})
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	again := listings("b", "d", "b")
	again[2].Title = "b updated"
	req, _ = st.Plan(here)
	added, err = st.Apply(req, &models.ListingPage{Items: again, HasMore: true})
	require.NoError(t, err)

	assert.Equal(t, 1, added, "only d is new")
	assert.Equal(t, []string{"a", "b", "c", "d"}, itemIDs(st))
	assert.Equal(t, "b updated", st.Items[1].Title)
	assert.Equal(t, 3, st.NearbyPage)
}

func TestApply_NearbyExhaustionSignals(t *testing.T) {
	st := NewState()
	req, _ := st.Plan(here)
	_, _ = st.Apply(req, &models.ListingPage{Items: listings("a"), HasMore: false})
	assert.False(t, st.HasMoreNearby)
	assert.Equal(t, ModeNearby, st.Mode, "switch happens on the next plan")

	st = NewState()
	req, _ = st.Plan(here)
	_, _ = st.Apply(req, &models.ListingPage{HasMore: true})
	assert.False(t, st.HasMoreNearby, "an empty page ends nearby mode")
}

func TestFail_LeavesCursorsForRetry(t *testing.T) {
	st := NewState()
	req, _ := st.Plan(here)
	_, _ = st.Apply(req, &models.ListingPage{Items: listings("a"), HasMore: true})

	req, _ = st.Plan(here)
	require.Equal(t, 2, req.Page)
	require.NoError(t, st.Fail(req, errors.New("upstream down")))

	assert.False(t, st.Loading)
	assert.Equal(t, "upstream down", st.Error)
	assert.Equal(t, 2, st.NearbyPage)
	assert.True(t, st.HasMoreNearby)

	retry, err := st.Plan(here)
	require.NoError(t, err)
	assert.Equal(t, req.Page, retry.Page)
	assert.Empty(t, st.Error)
}

func TestReset(t *testing.T) {
	st := NewState()
	req, _ := st.Plan(nil)
	_, _ = st.Apply(req, &models.ListingPage{Items: listings("a"), HasMore: false})

	st.Reset()

	assert.Equal(t, ModeNearby, st.Mode)
	assert.Equal(t, 1, st.NearbyPage)
	assert.Equal(t, 1, st.AllPage)
	assert.True(t, st.HasMoreNearby)
	assert.True(t, st.HasMoreAll)
	assert.Empty(t, st.Items)
	assert.Equal(t, int64(1), st.Generation)
}

func TestApply_StaleAfterReset(t *testing.T) {
	st := NewState()
	req, _ := st.Plan(here)
	st.Reset()

	_, err := st.Apply(req, &models.ListingPage{Items: listings("a"), HasMore: true})
	assert.ErrorIs(t, err, ErrStaleResult)
	assert.Empty(t, st.Items)
	assert.ErrorIs(t, st.Fail(req, errors.New("x")), ErrStaleResult)
}

func TestClone_IsIndependent(t *testing.T) {
	st := NewState()
	st.Items = listings("a")
	c := st.Clone()
	c.Items[0].Title = "changed"
	assert.Equal(t, "listing a", st.Items[0].Title)
}
