// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package serving

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/analytics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/cache"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/algorithms"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/events"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/training"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedSource struct {
	snap *model.ModelSnapshot
}

func (s fixedSource) Current() *model.ModelSnapshot { return s.snap }

type stubCatalog struct {
	items map[recommend.TargetType][]recommend.Item
	err   error
	calls atomic.Int32
}

func (c *stubCatalog) Items(_ context.Context, t recommend.TargetType) ([]recommend.Item, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.items[t], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	served []analytics.Served
}

func (n *recordingNotifier) RecommendationServed(_ context.Context, s analytics.Served) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.served = append(n.served, s)
}

// products returns p01..p12, p01 the oldest. Odd products are laptops.
func products() []recommend.Item {
	items := make([]recommend.Item, 0, 12)
	for i := 1; i <= 12; i++ {
		it := recommend.Item{
			ID:        fmt.Sprintf("p%02d", i),
			Type:      recommend.TargetProduct,
			OwnerID:   "s1",
			CreatedAt: now.Add(-time.Duration(13-i) * time.Hour),
		}
		if i%2 == 1 {
			it.Name = "Thin laptop model " + it.ID
			it.CategoryPath = []string{"electronics", "laptop"}
			it.Hashtags = []string{"#tech"}
		} else {
			it.Name = "Linen dress style " + it.ID
			it.CategoryPath = []string{"fashion", "dress"}
			it.OwnerID = "s2"
		}
		items = append(items, it)
	}
	return items
}

func newCatalog(items ...recommend.Item) *stubCatalog {
	c := &stubCatalog{items: make(map[recommend.TargetType][]recommend.Item)}
	for _, it := range items {
		c.items[it.Type] = append(c.items[it.Type], it)
	}
	return c
}

func isLaptop(id string) bool {
	var n int
	_, err := fmt.Sscanf(id, "p%d", &n)
	return err == nil && n%2 == 1
}

func key(id string) string { return recommend.ItemKey(recommend.TargetProduct, id) }

// collabModel builds a two-factor model where actor "user:a" prefers laptops
// and popularity ties in groups of three.
func collabModel() *model.LatentFactorModel {
	m := &model.LatentFactorModel{
		Version:         1,
		Factors:         2,
		MinInteractions: 3,
		ActorIndex:      map[string]int{"user:a": 0},
		ItemIndex:       make(map[string]int),
		ActorFactors: [][]float64{
			{1, 0},
		},
		Profiles: map[string]*model.ActorProfile{
			"user:a":   {Confidence: 20, Recent: []string{key("p01")}, Owned: []string{key("p01")}},
			"user:new": {Confidence: 1},
		},
		Popularity: make(map[string]float64),
		Velocity:   make(map[string]float64),
	}
	for i := 1; i <= 12; i++ {
		k := key(fmt.Sprintf("p%02d", i))
		m.ItemIndex[k] = i - 1
		if i%2 == 1 {
			m.ItemFactors = append(m.ItemFactors, []float64{1, 0})
		} else {
			m.ItemFactors = append(m.ItemFactors, []float64{0, 1})
		}
		m.Popularity[k] = float64(i%3 + 1)
		m.Velocity[k] = float64(i)
	}
	return m
}

func contentModel(items []recommend.Item) *model.ContentVectorModel {
	docs := make([]algorithms.Document, 0, len(items))
	for i := range items {
		it := &items[i]
		terms := append(algorithms.TokenizeMin(it.Name+" "+it.Description, 2),
			algorithms.MetadataTerms(it.CategoryPath, it.Hashtags)...)
		docs = append(docs, algorithms.Document{Key: it.Key(), Terms: terms})
	}
	tf := algorithms.BuildTFIDF(docs, 64)
	return &model.ContentVectorModel{Version: 1, Vocabulary: tf.Vocabulary, Vectors: tf.Vectors, Documents: tf.Documents}
}

func testConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Limits.RequestTimeout = 5 * time.Second
	return cfg
}

func newEngine(snap *model.ModelSnapshot, catalog Catalog) *Engine {
	e := NewEngine(fixedSource{snap}, catalog, testConfig(), zerolog.Nop())
	e.SetClock(func() time.Time { return now })
	return e
}

func ids(res *recommend.Result) []string {
	out := make([]string, len(res.Items))
	for i := range res.Items {
		out[i] = res.Items[i].ItemID
	}
	return out
}

func fullSnapshot() *model.ModelSnapshot {
	return &model.ModelSnapshot{Version: 3, Collaborative: collabModel(), Content: contentModel(products())}
}

func TestQuery_ColdStartUsesTrainedThreshold(t *testing.T) {
	tests := []struct {
		name         string
		trained      float64
		live         float64
		actor        string
		personalized bool
	}{
		{"trained threshold admits despite stricter config", 3, 50, "a", true},
		{"trained threshold rejects despite looser config", 30, 0, "a", false},
		{"new actor below trained threshold", 3, 0, "new", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf := collabModel()
			cf.MinInteractions = tt.trained
			cfg := testConfig()
			cfg.MinInteractions = tt.live

			e := NewEngine(fixedSource{&model.ModelSnapshot{Version: 1, Collaborative: cf}}, newCatalog(products()...), cfg, zerolog.Nop())
			e.SetClock(func() time.Time { return now })
			res, err := e.Query(context.Background(), recommend.Query{ActorID: tt.actor, TargetType: recommend.TargetProduct})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if res.IsPersonalized != tt.personalized {
				t.Errorf("IsPersonalized = %v (reason %s), want %v", res.IsPersonalized, res.ReasonCode, tt.personalized)
			}
		})
	}
}

func TestQuery_Validation(t *testing.T) {
	e := newEngine(fullSnapshot(), newCatalog(products()...))

	tests := []struct {
		name  string
		query recommend.Query
		field string
	}{
		{"missing target type", recommend.Query{}, "TargetType"},
		{"unknown target type", recommend.Query{TargetType: "coupon"}, "TargetType"},
		{"limit above maximum", recommend.Query{TargetType: recommend.TargetProduct, Limit: 101}, "limit"},
		{"negative page", recommend.Query{TargetType: recommend.TargetProduct, Page: -1}, "Page"},
		{"similar without seed", recommend.Query{TargetType: recommend.TargetProduct, SortBy: recommend.SortSimilar}, "similarTo"},
		{"actor id with separator", recommend.Query{TargetType: recommend.TargetProduct, ActorID: "a:b"}, "ActorID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Query(context.Background(), tt.query)
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			var verr *recommend.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if !strings.EqualFold(verr.Field, tt.field) {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestQuery_PaginationIsDeterministic(t *testing.T) {
	e := newEngine(fullSnapshot(), newCatalog(products()...))
	ctx := context.Background()

	for _, sortBy := range []recommend.SortBy{recommend.SortPopular, recommend.SortRecommended, recommend.SortNewest} {
		t.Run(string(sortBy), func(t *testing.T) {
			q := recommend.Query{ActorID: "a", TargetType: recommend.TargetProduct, SortBy: sortBy, Limit: 100}
			full, err := e.Query(ctx, q)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			want := ids(full)

			var got []string
			seen := make(map[string]bool)
			for page := 1; ; page++ {
				q.Page, q.Limit = page, 5
				res, err := e.Query(ctx, q)
				if err != nil {
					t.Fatalf("Query(page %d) error = %v", page, err)
				}
				for _, id := range ids(res) {
					if seen[id] {
						t.Fatalf("item %s returned on more than one page", id)
					}
					seen[id] = true
				}
				got = append(got, ids(res)...)
				if res.Pagination.TotalCount != len(want) {
					t.Errorf("TotalCount = %d, want %d", res.Pagination.TotalCount, len(want))
				}
				if !res.Pagination.HasNext {
					break
				}
			}
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("paged = %v\nfull  = %v", got, want)
			}
		})
	}
}

func TestQuery_PageBeyondEnd(t *testing.T) {
	e := newEngine(fullSnapshot(), newCatalog(products()...))
	res, err := e.Query(context.Background(), recommend.Query{TargetType: recommend.TargetProduct, Page: 50, Limit: 10})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(res.Items) != 0 || res.Pagination.HasNext || res.Pagination.TotalCount != 12 {
		t.Errorf("page 50 = %d items, pagination %+v", len(res.Items), res.Pagination)
	}
}

func TestQuery_Personalized(t *testing.T) {
	e := newEngine(fullSnapshot(), newCatalog(products()...))
	res, err := e.Query(context.Background(), recommend.Query{ActorID: "a", TargetType: recommend.TargetProduct, Limit: 5})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !res.IsPersonalized || res.ReasonCode != recommend.ReasonPersonalized {
		t.Fatalf("personalized = %v, reason = %q", res.IsPersonalized, res.ReasonCode)
	}
	if res.ModelVersion != 3 {
		t.Errorf("ModelVersion = %d, want 3", res.ModelVersion)
	}
	// p01 is owned; the other five laptops lead.
	for _, id := range ids(res) {
		if id == "p01" {
			t.Fatal("owned item p01 was recommended")
		}
		if !isLaptop(id) {
			t.Errorf("top page contains non-laptop %s: %v", id, ids(res))
		}
	}
	for i := 1; i < len(res.Items); i++ {
		if res.Items[i].Score > res.Items[i-1].Score {
			t.Errorf("scores not descending at %d: %v", i, res.Items)
		}
	}
	meta := res.Metadata()
	if !meta.HasData || !meta.IsRecommendationBased || meta.ReasonCode != recommend.ReasonPersonalized {
		t.Errorf("Metadata() = %+v", meta)
	}
}

func TestQuery_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		snap     *model.ModelSnapshot
		query    recommend.Query
		reason   string
		firstIDs []string
	}{
		{
			name:   "anonymous actor",
			snap:   fullSnapshot(),
			query:  recommend.Query{TargetType: recommend.TargetProduct},
			reason: recommend.ReasonInsufficientHistory,
			// Popularity 3 for p02, p05, p08, p11; ties by ID.
			firstIDs: []string{"p02", "p05", "p08", "p11"},
		},
		{
			name:     "unknown actor",
			snap:     fullSnapshot(),
			query:    recommend.Query{ActorID: "ghost", TargetType: recommend.TargetProduct},
			reason:   recommend.ReasonInsufficientHistory,
			firstIDs: []string{"p02", "p05"},
		},
		{
			name:     "actor below threshold",
			snap:     fullSnapshot(),
			query:    recommend.Query{ActorID: "new", TargetType: recommend.TargetProduct},
			reason:   recommend.ReasonInsufficientHistory,
			firstIDs: []string{"p02"},
		},
		{
			name:     "no model published",
			snap:     &model.ModelSnapshot{},
			query:    recommend.Query{ActorID: "a", TargetType: recommend.TargetProduct},
			reason:   recommend.ReasonModelUnavailable,
			firstIDs: []string{"p12", "p11"},
		},
		{
			name:     "anonymous without models ranks by freshness",
			snap:     &model.ModelSnapshot{},
			query:    recommend.Query{TargetType: recommend.TargetProduct},
			reason:   recommend.ReasonInsufficientHistory,
			firstIDs: []string{"p12", "p11", "p10"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(tt.snap, newCatalog(products()...))
			res, err := e.Query(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if res.IsPersonalized {
				t.Error("fallback must not be personalized")
			}
			if res.ReasonCode != tt.reason {
				t.Errorf("ReasonCode = %q, want %q", res.ReasonCode, tt.reason)
			}
			if len(res.Items) == 0 {
				t.Fatal("fallback returned no items")
			}
			got := ids(res)
			if strings.Join(got[:len(tt.firstIDs)], ",") != strings.Join(tt.firstIDs, ",") {
				t.Errorf("leading items = %v, want prefix %v", got, tt.firstIDs)
			}
		})
	}
}

func TestQuery_ExclusionsApplyBeforePaging(t *testing.T) {
	items := products()
	items[1].Hidden = true                      // p02
	items[2].ExpiresAt = now.Add(-time.Minute)  // p03
	items[3].StartsAt = now.Add(time.Hour)      // p04
	e := newEngine(fullSnapshot(), newCatalog(items...))

	q := recommend.Query{
		ActorID:    "a",
		TargetType: recommend.TargetProduct,
		Limit:      3,
		Filters:    recommend.Filters{ExcludeIDs: []string{"p05", "p06"}},
	}
	excluded := map[string]bool{"p01": true, "p02": true, "p03": true, "p04": true, "p05": true, "p06": true}

	var seen int
	for page := 1; page <= 3; page++ {
		q.Page = page
		res, err := e.Query(context.Background(), q)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if res.Pagination.TotalCount != 6 {
			t.Errorf("TotalCount = %d, want 6", res.Pagination.TotalCount)
		}
		if page < 3 && len(res.Items) != 3 {
			t.Errorf("page %d has %d items, want 3", page, len(res.Items))
		}
		for _, id := range ids(res) {
			if excluded[id] {
				t.Errorf("excluded item %s on page %d", id, page)
			}
			seen++
		}
	}
	if seen != 6 {
		t.Errorf("saw %d items across pages, want 6", seen)
	}
}

func TestQuery_OwnedExcludedBelowThreshold(t *testing.T) {
	snap := fullSnapshot()
	snap.Collaborative.Profiles["user:new"].Owned = []string{key("p02")}
	e := newEngine(snap, newCatalog(products()...))

	res, err := e.Query(context.Background(), recommend.Query{ActorID: "new", TargetType: recommend.TargetProduct, Limit: 100})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	for _, id := range ids(res) {
		if id == "p02" {
			t.Fatal("owned item returned to an actor below the history threshold")
		}
	}
}

func TestQuery_Filters(t *testing.T) {
	shops := []recommend.Item{
		{ID: "s1", Type: recommend.TargetShop, Name: "Laptop corner"},
		{ID: "s2", Type: recommend.TargetShop, Name: "Dress studio"},
		{ID: "s3", Type: recommend.TargetShop, Name: "Tech outlet"},
	}
	e := newEngine(fullSnapshot(), newCatalog(append(products(), shops...)...))

	tests := []struct {
		name  string
		query recommend.Query
		want  int
		check func(string) bool
	}{
		{
			name:  "category prefix",
			query: recommend.Query{TargetType: recommend.TargetProduct, Filters: recommend.Filters{CategoryPrefix: "Electronics/LAPTOP"}},
			want:  6,
			check: isLaptop,
		},
		{
			name:  "hashtag",
			query: recommend.Query{TargetType: recommend.TargetProduct, Filters: recommend.Filters{Hashtag: "tech"}},
			want:  6,
		},
		{
			name:  "owner",
			query: recommend.Query{TargetType: recommend.TargetProduct, Filters: recommend.Filters{OwnerID: "s2"}},
			want:  6,
		},
		{
			name:  "shop never sees its own listings",
			query: recommend.Query{ActorID: "s1", ActorType: recommend.ActorShop, TargetType: recommend.TargetProduct},
			want:  6,
		},
		{
			name:  "shop never sees itself",
			query: recommend.Query{ActorID: "s1", ActorType: recommend.ActorShop, TargetType: recommend.TargetShop},
			want:  2,
			check: func(id string) bool { return id != "s1" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.query.Limit = 100
			res, err := e.Query(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if res.Pagination.TotalCount != tt.want {
				t.Errorf("TotalCount = %d, want %d (%v)", res.Pagination.TotalCount, tt.want, ids(res))
			}
			if tt.check != nil {
				for _, id := range ids(res) {
					if !tt.check(id) {
						t.Errorf("unexpected item %s", id)
					}
				}
			}
		})
	}
}

func TestQuery_Similar(t *testing.T) {
	e := newEngine(fullSnapshot(), newCatalog(products()...))

	res, err := e.Query(context.Background(), recommend.Query{TargetType: recommend.TargetProduct, SimilarTo: "p03", Limit: 5})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if res.ReasonCode != recommend.ReasonSimilarItems || res.IsPersonalized {
		t.Fatalf("reason = %q, personalized = %v", res.ReasonCode, res.IsPersonalized)
	}
	for _, id := range ids(res) {
		if id == "p03" {
			t.Error("seed item returned as similar to itself")
		}
		if !isLaptop(id) {
			t.Errorf("dress %s ranked among the top laptops: %v", id, ids(res))
		}
	}

	res, err = e.Query(context.Background(), recommend.Query{TargetType: recommend.TargetProduct, SimilarTo: "unknown"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if res.ReasonCode != recommend.ReasonItemUnknown || len(res.Items) == 0 {
		t.Errorf("unknown seed: reason = %q, %d items", res.ReasonCode, len(res.Items))
	}
}

func TestQuery_HotAndEndingSoon(t *testing.T) {
	sales := []recommend.Item{
		{ID: "f1", Type: recommend.TargetFlashSale, ExpiresAt: now.Add(3 * time.Hour)},
		{ID: "f2", Type: recommend.TargetFlashSale},
		{ID: "f3", Type: recommend.TargetFlashSale, ExpiresAt: now.Add(time.Hour)},
		{ID: "f4", Type: recommend.TargetFlashSale, ExpiresAt: now.Add(-time.Hour)},
		{ID: "f5", Type: recommend.TargetFlashSale, ExpiresAt: now.Add(48 * time.Hour)},
	}
	e := newEngine(fullSnapshot(), newCatalog(append(products(), sales...)...))

	res, err := e.Query(context.Background(), recommend.Query{TargetType: recommend.TargetFlashSale, SortBy: recommend.SortEndingSoon})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := strings.Join(ids(res), ","); got != "f3,f1,f5,f2" {
		t.Errorf("ending soon order = %s, want f3,f1,f5,f2", got)
	}
	if res.Items[0].Score <= res.Items[1].Score || res.Items[2].Score != 0 {
		t.Errorf("urgency scores = %v", res.Items)
	}

	res, err = e.Query(context.Background(), recommend.Query{TargetType: recommend.TargetProduct, SortBy: recommend.SortHot, Limit: 3})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := strings.Join(ids(res), ","); got != "p12,p11,p10" {
		t.Errorf("hot order = %s, want p12,p11,p10", got)
	}
	if res.ReasonCode != recommend.ReasonTrending {
		t.Errorf("ReasonCode = %q", res.ReasonCode)
	}
}

func TestQuery_ScoringTimeoutFallsBack(t *testing.T) {
	c := cache.NewMemoryResultCache(100, time.Minute)
	e := newEngine(fullSnapshot(), newCatalog(products()...))
	e.SetCache(c)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	q := recommend.Query{ActorID: "a", TargetType: recommend.TargetProduct}

	res, err := e.Query(ctx, q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if res.ReasonCode != recommend.ReasonScoringTimeout || res.IsPersonalized {
		t.Fatalf("reason = %q, personalized = %v", res.ReasonCode, res.IsPersonalized)
	}
	if len(res.Items) == 0 {
		t.Fatal("timeout fallback returned no items")
	}

	// The fallback is not cached.
	res, err = e.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if res.ReasonCode != recommend.ReasonPersonalized {
		t.Errorf("ReasonCode after timeout = %q, want personalized", res.ReasonCode)
	}
}

func TestQuery_CatalogUnavailable(t *testing.T) {
	catalog := newCatalog()
	catalog.err = errors.New("connection refused")
	e := newEngine(fullSnapshot(), catalog)

	res, err := e.Query(context.Background(), recommend.Query{ActorID: "a", TargetType: recommend.TargetProduct})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if res.ReasonCode != recommend.ReasonCatalogUnavailable || len(res.Items) != 0 || res.Pagination.TotalCount != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Metadata().HasData {
		t.Error("HasData should be false")
	}
}

func TestQuery_CacheKeyedByModelVersion(t *testing.T) {
	catalog := newCatalog(products()...)
	registry := model.NewRegistry()
	registry.PublishCollaborative(collabModel())

	e := NewEngine(registry, catalog, testConfig(), zerolog.Nop())
	e.SetClock(func() time.Time { return now })
	e.SetCache(cache.NewMemoryResultCache(100, time.Minute))

	q := recommend.Query{ActorID: "a", TargetType: recommend.TargetProduct, Limit: 4}
	first, err := e.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	second, err := e.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if catalog.calls.Load() != 1 {
		t.Errorf("catalog calls = %d, want 1 (second query cached)", catalog.calls.Load())
	}
	if strings.Join(ids(first), ",") != strings.Join(ids(second), ",") || second.ModelVersion != first.ModelVersion {
		t.Errorf("cached result differs: %v vs %v", ids(first), ids(second))
	}

	registry.PublishContent(contentModel(products()))
	third, err := e.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if catalog.calls.Load() != 2 {
		t.Errorf("catalog calls = %d, want 2 after publish", catalog.calls.Load())
	}
	if third.ModelVersion == first.ModelVersion {
		t.Errorf("ModelVersion = %d, want a newer snapshot", third.ModelVersion)
	}
}

func TestQuery_ConsistentSnapshotUnderPublish(t *testing.T) {
	registry := model.NewRegistry()
	e := NewEngine(registry, newCatalog(products()...), testConfig(), zerolog.Nop())
	e.SetClock(func() time.Time { return now })

	// Snapshot version n carries velocity n for every item.
	const publishes = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 1; n <= publishes; n++ {
			m := collabModel()
			for k := range m.Velocity {
				m.Velocity[k] = float64(n)
			}
			registry.PublishCollaborative(m)
		}
	}()

	q := recommend.Query{TargetType: recommend.TargetProduct, SortBy: recommend.SortHot, Limit: 12}
	for {
		res, err := e.Query(context.Background(), q)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		for _, it := range res.Items {
			if it.Score != float64(res.ModelVersion) {
				t.Fatalf("score %v from a snapshot other than version %d", it.Score, res.ModelVersion)
			}
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestQuery_NotifiesServed(t *testing.T) {
	n := &recordingNotifier{}
	e := newEngine(fullSnapshot(), newCatalog(products()...))
	e.SetNotifier(n)

	res, err := e.Query(context.Background(), recommend.Query{ActorID: "a", TargetType: recommend.TargetProduct, Limit: 3, Page: 2})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(n.served) != 1 {
		t.Fatalf("served notifications = %d, want 1", len(n.served))
	}
	s := n.served[0]
	if s.ActorID != "a" || s.ActorType != "user" || s.Page != 2 || s.ModelVersion != 3 || !s.Personalized {
		t.Errorf("served = %+v", s)
	}
	if strings.Join(s.ItemIDs, ",") != strings.Join(ids(res), ",") {
		t.Errorf("ItemIDs = %v, want %v", s.ItemIDs, ids(res))
	}
}

// TestQuery_LaptopShopper trains real models on a small marketplace: a
// crowd of laptop buyers, a smaller crowd browsing dresses, and user A who
// bought two laptops and viewed a third.
func TestQuery_LaptopShopper(t *testing.T) {
	var catalogItems []recommend.Item
	for i := 1; i <= 5; i++ {
		catalogItems = append(catalogItems,
			recommend.Item{
				ID: fmt.Sprintf("l%d", i), Type: recommend.TargetProduct,
				Name: fmt.Sprintf("Laptop %d notebook computer", i), CategoryPath: []string{"electronics", "laptop"},
				CreatedAt: now.Add(-30 * 24 * time.Hour),
			},
			recommend.Item{
				ID: fmt.Sprintf("d%d", i), Type: recommend.TargetProduct,
				Name: fmt.Sprintf("Dress %d summer cotton", i), CategoryPath: []string{"fashion", "dress"},
				CreatedAt: now.Add(-30 * 24 * time.Hour),
			})
	}
	catalog := newCatalog(catalogItems...)

	log := events.NewMemoryLog(5 * time.Minute)
	var batch []recommend.InteractionEvent
	at := now.Add(-72 * time.Hour)
	add := func(actor, item string, et recommend.EventType) {
		at = at.Add(7 * time.Minute)
		batch = append(batch, recommend.InteractionEvent{
			ID: fmt.Sprintf("e%d", len(batch)), ActorID: actor, ActorType: recommend.ActorUser,
			TargetID: item, TargetType: recommend.TargetProduct, EventType: et, Weight: et.Weight(), OccurredAt: at,
		})
	}
	for c := 0; c < 8; c++ {
		actor := fmt.Sprintf("tech%d", c)
		add(actor, fmt.Sprintf("l%d", c%5+1), recommend.EventPurchase)
		add(actor, fmt.Sprintf("l%d", (c+1)%5+1), recommend.EventPurchase)
		add(actor, fmt.Sprintf("l%d", (c+2)%5+1), recommend.EventView)
		add(actor, fmt.Sprintf("l%d", (c+3)%5+1), recommend.EventView)
	}
	for c := 0; c < 3; c++ {
		actor := fmt.Sprintf("style%d", c)
		for i := 1; i <= 5; i++ {
			add(actor, fmt.Sprintf("d%d", i), recommend.EventView)
		}
	}
	add("A", "l1", recommend.EventPurchase)
	add("A", "l2", recommend.EventPurchase)
	add("A", "l3", recommend.EventView)
	if _, err := log.Append(context.Background(), batch); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	cfg := testConfig()
	cfg.ALS.Factors = 4
	cfg.ALS.Iterations = 10
	cfg.ALS.TimeBudget = 0
	cfg.ALS.HoldoutFraction = 0

	registry := model.NewRegistry()
	coord := training.NewCoordinator(training.CoordinatorConfig{
		Registry:      registry,
		Collaborative: training.NewCollaborativeTrainer(log, cfg, zerolog.Nop()),
		Content:       training.NewContentTrainer(catalog, cfg, zerolog.Nop()),
		Config:        cfg,
	}, zerolog.Nop())
	coord.SetClock(func() time.Time { return now })
	if got := coord.TriggerCollaborativeTraining(context.Background()); got != training.OutcomePublished {
		t.Fatalf("collaborative outcome = %q", got)
	}
	if got := coord.TriggerContentTraining(context.Background()); got != training.OutcomePublished {
		t.Fatalf("content outcome = %q", got)
	}

	e := NewEngine(registry, catalog, cfg, zerolog.Nop())
	e.SetClock(func() time.Time { return now })

	res, err := e.Query(context.Background(), recommend.Query{ActorID: "A", TargetType: recommend.TargetProduct, Limit: 10})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !res.IsPersonalized {
		t.Fatalf("A should get personalized results, reason = %q", res.ReasonCode)
	}
	got := ids(res)
	if len(got) != 8 {
		t.Fatalf("got %v, want 8 items (l1 and l2 are owned)", got)
	}
	for i, id := range got[:3] {
		if !strings.HasPrefix(id, "l") {
			t.Errorf("position %d is %s, want a laptop: %v", i, id, got)
		}
	}

	res, err = e.Query(context.Background(), recommend.Query{ActorID: "B", TargetType: recommend.TargetProduct})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if res.IsPersonalized || res.ReasonCode != recommend.ReasonInsufficientHistory || len(res.Items) == 0 {
		t.Errorf("B: personalized = %v, reason = %q, %d items", res.IsPersonalized, res.ReasonCode, len(res.Items))
	}
}

func TestCacheKey(t *testing.T) {
	a := &recommend.Query{TargetType: recommend.TargetProduct, Page: 1, Limit: 20}
	b := &recommend.Query{TargetType: recommend.TargetProduct, Page: 2, Limit: 20}

	if cacheKey(1, a, now) == cacheKey(1, b, now) {
		t.Error("different pages share a cache key")
	}
	if cacheKey(1, a, now) == cacheKey(2, a, now) {
		t.Error("different model versions share a cache key")
	}
	if cacheKey(1, a, now) != cacheKey(1, a, now.Add(10*time.Minute)) {
		t.Error("recommended page key changed with time")
	}

	urgent := []*recommend.Query{
		{TargetType: recommend.TargetProduct, SortBy: recommend.SortEndingSoon, Page: 1, Limit: 20},
		{TargetType: recommend.TargetFlashSale, Page: 1, Limit: 20},
	}
	for _, q := range urgent {
		if cacheKey(1, q, now) != cacheKey(1, q, now.Add(30*time.Second)) {
			t.Errorf("%s/%s: key changed inside one bucket", q.TargetType, q.SortBy)
		}
		if cacheKey(1, q, now) == cacheKey(1, q, now.Add(time.Minute)) {
			t.Errorf("%s/%s: key survived the next bucket", q.TargetType, q.SortBy)
		}
	}
}

func TestQuery_CachedPageDropsExpiredItem(t *testing.T) {
	items := products()
	items[11].ExpiresAt = now.Add(30 * time.Second) // p12, the newest
	clock := now
	e := newEngine(&model.ModelSnapshot{}, newCatalog(items...))
	e.SetClock(func() time.Time { return clock })
	e.SetCache(cache.NewMemoryResultCache(100, time.Hour))

	q := recommend.Query{TargetType: recommend.TargetProduct, Limit: 3}
	res, err := e.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := strings.Join(ids(res), ","); got != "p12,p11,p10" {
		t.Fatalf("first page = %s, want p12,p11,p10", got)
	}

	clock = now.Add(45 * time.Second)
	res, err = e.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := strings.Join(ids(res), ","); got != "p11,p10,p09" {
		t.Errorf("page after expiry = %s, want p11,p10,p09", got)
	}
	if res.Pagination.TotalCount != 11 {
		t.Errorf("TotalCount = %d, want 11", res.Pagination.TotalCount)
	}
}

func TestNextVisibilityChange(t *testing.T) {
	items := []recommend.Item{
		{ID: "a"},
		{ID: "b", ExpiresAt: now.Add(-time.Minute)},
		{ID: "c", ExpiresAt: now.Add(time.Hour)},
		{ID: "d", StartsAt: now.Add(10 * time.Minute)},
	}
	if got := nextVisibilityChange(items, now); !got.Equal(now.Add(10 * time.Minute)) {
		t.Errorf("nextVisibilityChange() = %v, want now+10m", got)
	}
	if got := nextVisibilityChange(items[:2], now); !got.IsZero() {
		t.Errorf("nextVisibilityChange() without future changes = %v, want zero", got)
	}
}
