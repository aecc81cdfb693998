package geocoding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waygrid/wayfinder/pkg/common"
)

type stubUpstream struct {
	searchCalls  int
	reverseCalls int
	searchResult *GeocodeResult
	searchErr    error
}

func (s *stubUpstream) Search(_ context.Context, _ string) (*GeocodeResult, error) {
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResult, nil
}

func (s *stubUpstream) Reverse(_ context.Context, _, _ float64) (*ReverseResult, error) {
	s.reverseCalls++
	return &ReverseResult{Address: "Somewhere"}, nil
}

func (s *stubUpstream) Details(_ context.Context, placeID int64) (*PlaceDetails, error) {
	return &PlaceDetails{PlaceID: placeID}, nil
}

func newStubService(up upstream) *Service {
	return &Service{upstream: up}
}

func TestGeocode_TrimsAndResolves(t *testing.T) {
	up := &stubUpstream{searchResult: &GeocodeResult{Latitude: 38.9, Longitude: -77.0}}
	svc := newStubService(up)

	result, err := svc.Geocode(context.Background(), "  White House  ")

	require.NoError(t, err)
	assert.Equal(t, 38.9, result.Latitude)
	assert.Equal(t, 1, up.searchCalls)
}

func TestGeocode_EmptyAddress(t *testing.T) {
	svc := newStubService(&stubUpstream{})

	_, err := svc.Geocode(context.Background(), "   ")

	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestReverseGeocode_RejectsOutOfRange(t *testing.T) {
	svc := newStubService(&stubUpstream{})

	_, err := svc.ReverseGeocode(context.Background(), 95, 0)

	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestBatch_ReportsPerAddressOutcomes(t *testing.T) {
	up := &stubUpstream{searchErr: common.NewNotFoundError("location not found", nil)}
	svc := newStubService(up)

	resp, err := svc.Batch(context.Background(), []string{"nowhere 1", "nowhere 2"})

	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "nowhere 1", resp.Results[0].Address)
	assert.NotEmpty(t, resp.Results[0].Error)
	assert.Nil(t, resp.Results[0].Result)
}

func TestBatch_DeduplicatesRepeatedAddresses(t *testing.T) {
	up := &stubUpstream{searchResult: &GeocodeResult{Latitude: 1}}
	svc := newStubService(up)

	resp, err := svc.Batch(context.Background(), []string{"Main St", "main st", " MAIN ST "})

	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 1, up.searchCalls)
	for _, entry := range resp.Results {
		assert.NotNil(t, entry.Result)
	}
}

func TestBatch_Limits(t *testing.T) {
	svc := newStubService(&stubUpstream{})

	_, err := svc.Batch(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrValidation)

	addresses := make([]string, 101)
	for i := range addresses {
		addresses[i] = "address"
	}
	_, err = svc.Batch(context.Background(), addresses)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestDetails_RejectsNonPositiveID(t *testing.T) {
	svc := newStubService(&stubUpstream{})

	_, err := svc.Details(context.Background(), 0)

	assert.ErrorIs(t, err, common.ErrValidation)
}
