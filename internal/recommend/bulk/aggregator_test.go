// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package bulk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

type stubQuerier struct {
	mu      sync.Mutex
	queries []recommend.Query
	err     error
}

func (s *stubQuerier) Query(_ context.Context, q recommend.Query) (*recommend.Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	res := &recommend.Result{
		TargetType:  q.TargetType,
		Pagination:  recommend.NewPagination(1, 10, 0),
		ReasonCode:  string(q.SortBy),
		GeneratedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	switch q.SortBy {
	case recommend.SortRecommended:
		res.IsPersonalized = q.ActorID != ""
		res.Items = []recommend.RecommendationItem{{ItemID: "p1", Score: 0.9, ReasonCode: recommend.ReasonCollaborative}}
		res.Pagination = recommend.NewPagination(1, 10, 1)
	case recommend.SortHot:
		res.Items = []recommend.RecommendationItem{{ItemID: "p2", Score: 4, ReasonCode: recommend.ReasonTrending}}
		res.Pagination = recommend.NewPagination(1, 10, 1)
	}
	return res, nil
}

func TestAggregate(t *testing.T) {
	q := &stubQuerier{}
	a := NewAggregator(q)

	resp, err := a.Aggregate(context.Background(), Request{
		ActorID:    "u1",
		TargetType: recommend.TargetFlashSale,
		Limit:      10,
		Filters:    recommend.Filters{ExcludeIDs: []string{"x"}},
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if len(q.queries) != 4 {
		t.Fatalf("queries = %d, want 4", len(q.queries))
	}
	sorts := make(map[recommend.SortBy]bool)
	for _, qq := range q.queries {
		sorts[qq.SortBy] = true
		if qq.ActorID != "u1" || qq.TargetType != recommend.TargetFlashSale || qq.Page != 1 || qq.Limit != 10 {
			t.Errorf("slice query = %+v", qq)
		}
		if len(qq.Filters.ExcludeIDs) != 1 {
			t.Errorf("filters not forwarded: %+v", qq.Filters)
		}
	}
	for _, s := range []recommend.SortBy{recommend.SortRecommended, recommend.SortHot, recommend.SortEndingSoon, recommend.SortNewest} {
		if !sorts[s] {
			t.Errorf("no query for sort %q", s)
		}
	}

	tests := []struct {
		name         string
		slice        Slice
		hasData      bool
		personalized bool
		reason       string
	}{
		{SliceRecommended, resp.Recommended, true, true, "recommended"},
		{SliceHot, resp.Hot, true, false, "hot"},
		{SliceEndingSoon, resp.EndingSoon, false, false, "ending_soon"},
		{SliceNewest, resp.Newest, false, false, "newest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.slice.Metadata
			if m.HasData != tt.hasData || m.IsRecommendationBased != tt.personalized || m.ReasonCode != tt.reason {
				t.Errorf("metadata = %+v", m)
			}
			if m.Timestamp.IsZero() {
				t.Error("timestamp not set")
			}
			if tt.slice.Items == nil {
				t.Error("items should be an empty list, not nil")
			}
		})
	}
}

func TestAggregate_Validation(t *testing.T) {
	q := &stubQuerier{}
	a := NewAggregator(q)

	tests := []struct {
		name string
		req  Request
	}{
		{"missing target type", Request{ActorID: "u1"}},
		{"unknown actor type", Request{ActorID: "u1", ActorType: "bot", TargetType: recommend.TargetProduct}},
		{"negative limit", Request{TargetType: recommend.TargetProduct, Limit: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Aggregate(context.Background(), tt.req)
			if !recommend.IsValidationError(err) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
	if len(q.queries) != 0 {
		t.Errorf("invalid requests reached the serving layer %d times", len(q.queries))
	}
}

func TestAggregate_PropagatesQueryError(t *testing.T) {
	want := recommend.NewValidationError("limit", "limit must be at most %d", 100)
	a := NewAggregator(&stubQuerier{err: want})

	_, err := a.Aggregate(context.Background(), Request{TargetType: recommend.TargetProduct, Limit: 500})
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}
