//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"venuegraph/internal/audit"
	"venuegraph/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "match_audit")
	s.Require().NoError(err)
}

func (s *PostgresAuditSuite) TestAppendAndListByVenue() {
	ctx := context.Background()
	venueID := uuid.New()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := audit.Event{
		Timestamp:  base,
		VenueID:    venueID,
		SourceName: "google_places",
		RecordName: "Green Lady Lounge",
		MatchType:  "none",
		Confidence: 0,
		Created:    true,
	}
	second := audit.Event{
		Timestamp:  base.Add(time.Minute),
		VenueID:    venueID,
		SourceName: "yelp",
		RecordName: "green lady lounge",
		MatchType:  "exact_name",
		Confidence: 1.0,
	}
	other := audit.Event{
		Timestamp:  base,
		VenueID:    uuid.New(),
		SourceName: "yelp",
		RecordName: "The Brick",
		MatchType:  "none",
		Created:    true,
	}
	for _, e := range []audit.Event{first, second, other} {
		s.Require().NoError(s.store.Append(ctx, e))
	}

	got, err := s.store.ListByVenue(ctx, venueID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("google_places", got[0].SourceName)
	s.True(got[0].Created)
	s.Equal("exact_name", got[1].MatchType)
	s.InDelta(1.0, got[1].Confidence, 1e-9)
	s.Equal(base, got[0].Timestamp)
}

func (s *PostgresAuditSuite) TestListByVenueEmpty() {
	got, err := s.store.ListByVenue(context.Background(), uuid.New())
	s.Require().NoError(err)
	s.Empty(got)
}
