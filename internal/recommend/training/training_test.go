// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/analytics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/metrics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/events"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.MinInteractions = 1
	cfg.ALS.Factors = 4
	cfg.ALS.Iterations = 8
	cfg.ALS.TimeBudget = 0
	cfg.ALS.Workers = 2
	cfg.Training.MaxDuration = 10 * time.Second
	return cfg
}

// seedLog writes two taste clusters: even users view and buy products
// p0..p5, odd users products p6..p11.
func seedLog(t *testing.T) *events.MemoryLog {
	t.Helper()
	log := events.NewMemoryLog(5 * time.Minute)
	var batch []recommend.InteractionEvent
	at := now.Add(-48 * time.Hour)
	for u := 0; u < 20; u++ {
		offset := 0
		if u%2 == 1 {
			offset = 6
		}
		for i := 0; i < 6; i++ {
			et := recommend.EventView
			if i == u%6 {
				et = recommend.EventPurchase
			}
			batch = append(batch, recommend.InteractionEvent{
				ID:         fmt.Sprintf("e-%d-%d", u, i),
				ActorID:    fmt.Sprintf("u%d", u),
				ActorType:  recommend.ActorUser,
				TargetID:   fmt.Sprintf("p%d", offset+i),
				TargetType: recommend.TargetProduct,
				EventType:  et,
				Weight:     et.Weight(),
				OccurredAt: at,
			})
			at = at.Add(10 * time.Minute)
		}
	}
	if _, err := log.Append(context.Background(), batch); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	return log
}

type stubCatalog struct {
	items map[recommend.TargetType][]recommend.Item
	err   error
}

func (c *stubCatalog) Items(_ context.Context, t recommend.TargetType) ([]recommend.Item, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.items[t], nil
}

func testCatalog() *stubCatalog {
	return &stubCatalog{items: map[recommend.TargetType][]recommend.Item{
		recommend.TargetProduct: {
			{ID: "p1", Type: recommend.TargetProduct, Name: "Gaming laptop 16GB", CategoryPath: []string{"electronics", "laptop"}},
			{ID: "p2", Type: recommend.TargetProduct, Name: "Ultrabook laptop", CategoryPath: []string{"electronics", "laptop"}},
			{ID: "p3", Type: recommend.TargetProduct, Name: "Cotton summer dress", CategoryPath: []string{"fashion", "dress"}},
		},
		recommend.TargetPost: {
			{ID: "s1", Type: recommend.TargetPost, Name: "Unboxing my new laptop", Hashtags: []string{"laptop"}},
		},
	}}
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []analytics.TrainingReport
	failed    []analytics.TrainingReport
}

func (n *recordingNotifier) TrainingCompleted(_ context.Context, r analytics.TrainingReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, r)
}

func (n *recordingNotifier) TrainingFailed(_ context.Context, r analytics.TrainingReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, r)
}

type recordingSaver struct {
	mu      sync.Mutex
	collab  []int64
	content []int64
}

func (s *recordingSaver) SaveCollaborative(_ context.Context, m *model.LatentFactorModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collab = append(s.collab, m.Version)
	return nil
}

func (s *recordingSaver) SaveContent(_ context.Context, m *model.ContentVectorModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = append(s.content, m.Version)
	return nil
}

type fixture struct {
	coord    *Coordinator
	registry *model.Registry
	notifier *recordingNotifier
	saver    *recordingSaver
}

func newFixture(source events.WindowReader, catalog ItemLister, cfg *recommend.Config) *fixture {
	f := &fixture{
		registry: model.NewRegistry(),
		notifier: &recordingNotifier{},
		saver:    &recordingSaver{},
	}
	f.coord = NewCoordinator(CoordinatorConfig{
		Registry:      f.registry,
		Collaborative: NewCollaborativeTrainer(source, cfg, zerolog.Nop()),
		Content:       NewContentTrainer(catalog, cfg, zerolog.Nop()),
		Saver:         f.saver,
		Notifier:      f.notifier,
		Config:        cfg,
	}, zerolog.Nop())
	f.coord.SetClock(func() time.Time { return now })
	return f
}

func TestCoordinator_CollaborativePublishes(t *testing.T) {
	f := newFixture(seedLog(t), testCatalog(), testConfig())

	if got := f.coord.TriggerCollaborativeTraining(context.Background()); got != OutcomePublished {
		t.Fatalf("outcome = %q, want published", got)
	}

	m := f.registry.Current().Collaborative
	if m == nil {
		t.Fatal("no collaborative model published")
	}
	if m.Version != 1 {
		t.Errorf("Version = %d, want 1", m.Version)
	}
	if len(m.ActorIndex) != 20 || len(m.ItemIndex) != 12 {
		t.Errorf("model covers %d actors, %d items", len(m.ActorIndex), len(m.ItemIndex))
	}
	if !m.HasHeldOut {
		t.Error("held-out error should be computed")
	}
	if m.MinInteractions != 1 {
		t.Errorf("MinInteractions = %v, want the trained threshold 1", m.MinInteractions)
	}

	p := m.Profile(recommend.ActorKey(recommend.ActorUser, "u0"))
	if p == nil {
		t.Fatal("missing profile for u0")
	}
	if !p.Owns(recommend.ItemKey(recommend.TargetProduct, "p0")) {
		t.Errorf("u0 should own p0, owned = %v", p.Owned)
	}
	if p.Recent[0] != recommend.ItemKey(recommend.TargetProduct, "p5") {
		t.Errorf("most recent item = %q, want product:p5", p.Recent[0])
	}
	if len(m.Popularity) == 0 {
		t.Error("popularity should be computed")
	}

	st := f.coord.Status().Collaborative
	if st.LastOutcome != OutcomePublished || st.Version != 1 || st.Running {
		t.Errorf("status = %+v", st)
	}
	if len(f.saver.collab) != 1 || len(f.notifier.completed) != 1 {
		t.Errorf("saved %v, notified %d", f.saver.collab, len(f.notifier.completed))
	}

	if got := f.coord.TriggerCollaborativeTraining(context.Background()); got != OutcomePublished {
		t.Fatalf("second outcome = %q", got)
	}
	if v := f.registry.Current().Collaborative.Version; v != 2 {
		t.Errorf("second Version = %d, want 2", v)
	}
}

func TestCoordinator_DataSourceFailureKeepsLiveModel(t *testing.T) {
	log := seedLog(t)
	f := newFixture(log, testCatalog(), testConfig())

	if got := f.coord.TriggerCollaborativeTraining(context.Background()); got != OutcomePublished {
		t.Fatalf("outcome = %q", got)
	}
	live := f.registry.Current().Collaborative

	log.SetReadError(errors.New("disk on fire"))
	if got := f.coord.TriggerCollaborativeTraining(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome = %q, want failed", got)
	}
	if f.registry.Current().Collaborative != live {
		t.Error("live model replaced after failed run")
	}

	st := f.coord.Status().Collaborative
	if st.LastReason != string(recommend.FailureDataSource) {
		t.Errorf("LastReason = %q, want data_source", st.LastReason)
	}
	if len(f.notifier.failed) != 1 || f.notifier.failed[0].Reason != "data_source" {
		t.Errorf("failed reports = %+v", f.notifier.failed)
	}
}

func TestCoordinator_RegressionGuard(t *testing.T) {
	f := newFixture(seedLog(t), testCatalog(), testConfig())

	live := &model.LatentFactorModel{
		Version:      7,
		Factors:      4,
		ActorIndex:   map[string]int{},
		ItemIndex:    map[string]int{},
		HeldOutError: 1e-12,
		HasHeldOut:   true,
	}
	f.registry.PublishCollaborative(live)

	if got := f.coord.TriggerCollaborativeTraining(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome = %q, want failed", got)
	}
	if f.registry.Current().Collaborative != live {
		t.Error("regressed model was published")
	}
	if st := f.coord.Status().Collaborative; st.LastReason != string(recommend.FailureRegression) {
		t.Errorf("LastReason = %q, want regression", st.LastReason)
	}
}

// blockingReader blocks ReadWindow until released or ctx is done.
type blockingReader struct {
	entered chan struct{}
	release chan struct{}
	inner   events.WindowReader
}

func newBlockingReader(inner events.WindowReader) *blockingReader {
	return &blockingReader{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		inner:   inner,
	}
}

func (r *blockingReader) ReadWindow(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error) {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	select {
	case <-r.release:
		return r.inner.ReadWindow(ctx, since)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCoordinator_MaxDurationAborts(t *testing.T) {
	cfg := testConfig()
	cfg.Training.MaxDuration = 20 * time.Millisecond
	f := newFixture(newBlockingReader(seedLog(t)), testCatalog(), cfg)

	if got := f.coord.TriggerCollaborativeTraining(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome = %q, want failed", got)
	}
	if st := f.coord.Status().Collaborative; st.LastReason != string(recommend.FailureTimeout) {
		t.Errorf("LastReason = %q, want timeout", st.LastReason)
	}
	if f.registry.Current().Collaborative != nil {
		t.Error("aborted run published a model")
	}
}

func TestCoordinator_ConcurrentTriggerSkipped(t *testing.T) {
	reader := newBlockingReader(seedLog(t))
	f := newFixture(reader, testCatalog(), testConfig())

	if !f.coord.StartCollaborativeTraining(context.Background()) {
		t.Fatal("first start should run")
	}
	select {
	case <-reader.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("training did not start")
	}

	if !f.coord.Status().Collaborative.Running {
		t.Error("status should report running")
	}
	if got := f.coord.TriggerCollaborativeTraining(context.Background()); got != OutcomeSkipped {
		t.Errorf("concurrent trigger = %q, want skipped", got)
	}
	if f.coord.StartCollaborativeTraining(context.Background()) {
		t.Error("concurrent start should report false")
	}

	// The other model type is independent.
	if got := f.coord.TriggerContentTraining(context.Background()); got != OutcomePublished {
		t.Errorf("content trigger = %q, want published", got)
	}

	close(reader.release)
	deadline := time.Now().Add(5 * time.Second)
	for f.coord.Status().Collaborative.Running && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if st := f.coord.Status().Collaborative; st.Running || st.LastOutcome != OutcomePublished {
		t.Errorf("status after release = %+v", st)
	}
}

func TestCoordinator_ContentPublishes(t *testing.T) {
	f := newFixture(seedLog(t), testCatalog(), testConfig())

	if got := f.coord.TriggerContentTraining(context.Background()); got != OutcomePublished {
		t.Fatalf("outcome = %q", got)
	}
	m := f.registry.Current().Content
	if m == nil || len(m.Vectors) != 4 {
		t.Fatalf("content model = %+v", m)
	}

	laptop := recommend.ItemKey(recommend.TargetProduct, "p1")
	ultrabook := recommend.ItemKey(recommend.TargetProduct, "p2")
	dress := recommend.ItemKey(recommend.TargetProduct, "p3")
	if m.Similarity(laptop, ultrabook) <= m.Similarity(laptop, dress) {
		t.Errorf("laptops should be more similar to each other than to a dress: %f vs %f",
			m.Similarity(laptop, ultrabook), m.Similarity(laptop, dress))
	}
	if len(f.saver.content) != 1 {
		t.Errorf("content saves = %v", f.saver.content)
	}

	if len(m.IDF) != len(m.Vocabulary) {
		t.Errorf("IDF has %d terms, vocabulary %d", len(m.IDF), len(m.Vocabulary))
	}
	// laptop is in three of four documents, cotton in one.
	if m.IDF["cotton"] <= m.IDF["laptop"] || m.IDF["laptop"] <= 0 {
		t.Errorf("IDF cotton = %f, laptop = %f", m.IDF["cotton"], m.IDF["laptop"])
	}
}

func TestRecordSnapshotMetrics(t *testing.T) {
	f := newFixture(seedLog(t), testCatalog(), testConfig())
	f.registry.OnPublish(RecordSnapshotMetrics)

	if got := f.coord.TriggerContentTraining(context.Background()); got != OutcomePublished {
		t.Fatalf("outcome = %q", got)
	}
	m := f.registry.Current().Content
	if got := testutil.ToFloat64(metrics.ModelVersion.WithLabelValues(model.TypeContent)); got != float64(m.Version) {
		t.Errorf("content version gauge = %v, want %d", got, m.Version)
	}
	if got := testutil.ToFloat64(metrics.ModelEntities.WithLabelValues(model.TypeContent, "items")); got != float64(len(m.Vectors)) {
		t.Errorf("content items gauge = %v, want %d", got, len(m.Vectors))
	}
}

func TestCoordinator_ContentCatalogFailure(t *testing.T) {
	catalog := testCatalog()
	catalog.err = errors.New("catalog down")
	f := newFixture(seedLog(t), catalog, testConfig())

	if got := f.coord.TriggerContentTraining(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome = %q, want failed", got)
	}
	if f.registry.Current().Content != nil {
		t.Error("failed content run published a model")
	}
	if st := f.coord.Status().Content; st.LastReason != string(recommend.FailureDataSource) {
		t.Errorf("LastReason = %q", st.LastReason)
	}
}

func TestBuildProfiles(t *testing.T) {
	mk := func(item string, et recommend.EventType, minutes int) recommend.InteractionEvent {
		return recommend.InteractionEvent{
			ActorID: "u1", ActorType: recommend.ActorUser,
			TargetID: item, TargetType: recommend.TargetProduct,
			EventType: et, Weight: et.Weight(),
			OccurredAt: now.Add(time.Duration(minutes) * time.Minute),
		}
	}
	evts := []recommend.InteractionEvent{
		mk("a", recommend.EventView, 1),
		mk("b", recommend.EventPurchase, 2),
		mk("a", recommend.EventLike, 3),
		mk("c", recommend.EventView, 4),
	}

	p := buildProfiles(evts, 2)[recommend.ActorKey(recommend.ActorUser, "u1")]
	want := []string{"product:c", "product:a"}
	if len(p.Recent) != 2 || p.Recent[0] != want[0] || p.Recent[1] != want[1] {
		t.Errorf("Recent = %v, want %v", p.Recent, want)
	}
	if len(p.Owned) != 1 || p.Owned[0] != "product:b" {
		t.Errorf("Owned = %v", p.Owned)
	}
	var total float64
	for i := range evts {
		total += evts[i].Weight
	}
	if p.Confidence != total {
		t.Errorf("Confidence = %f, want %f", p.Confidence, total)
	}
}

func TestRunner_SingleFlight(t *testing.T) {
	var r Runner
	release, ok := r.TryAcquire()
	if !ok || !r.Running() {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := r.TryAcquire(); ok {
		t.Error("second acquire should fail while running")
	}
	release()
	if r.Running() {
		t.Error("Running() after release")
	}
	if _, ok := r.TryAcquire(); !ok {
		t.Error("acquire after release should succeed")
	}
}
