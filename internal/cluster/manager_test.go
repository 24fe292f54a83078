package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/parcelboard/mapcluster/internal/geom"
)

func randomFeatures(n int, seed int64) []Feature {
	rng := rand.New(rand.NewSource(seed))
	statuses := []string{"active", "pending", "sold"}
	features := make([]Feature, n)
	for i := range features {
		features[i] = Feature{
			ID: fmt.Sprintf("f-%d", i),
			X:  rng.Float64() * 1000,
			Y:  rng.Float64() * 1000,
			Attributes: map[string]interface{}{
				"price":  100000 + rng.Float64()*500000,
				"status": statuses[rng.Intn(len(statuses))],
			},
		}
	}
	return features
}

func TestManager_EmptyInput(t *testing.T) {
	res, err := NewManager().Cluster(nil, DefaultConfig(), testView())
	if err != nil {
		t.Fatalf("empty input must not error, got %v", err)
	}
	if len(res.Clusters) != 0 || len(res.Unclustered) != 0 || len(res.Skipped) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestManager_InvalidConfigFailsFast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Radius = -1

	_, err := NewManager().Cluster(randomFeatures(10, 1), cfg, testView())
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *InvalidConfigError, got %v", err)
	}
}

func TestManager_Determinism(t *testing.T) {
	features := randomFeatures(800, 3)
	cfg := DefaultConfig()
	cfg.Strategy = StrategyAdaptive

	mgr := NewManager()
	res1, err := mgr.Cluster(features, cfg, testView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res2, err := mgr.Cluster(features, cfg, testView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(res1, res2); diff != "" {
		t.Errorf("results differ between identical runs (-run1 +run2):\n%s", diff)
	}
}

func TestManager_Completeness(t *testing.T) {
	features := randomFeatures(500, 5)
	// Sprinkle in malformed coordinates.
	features[17].X = math.NaN()
	features[101].Y = math.Inf(1)

	for _, strat := range []Strategy{StrategyGrid, StrategyDistance, StrategyDensity, StrategyAdaptive} {
		t.Run(string(strat), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strategy = strat

			res, err := NewManager().Cluster(features, cfg, testView())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			seen := make(map[string]int)
			for _, c := range res.Clusters {
				if c.Count != len(c.Features) {
					t.Errorf("cluster %s: Count %d != len(Features) %d", c.ID, c.Count, len(c.Features))
				}
				for _, f := range c.Features {
					seen[f.ID]++
				}
			}
			for _, f := range res.Unclustered {
				seen[f.ID]++
			}
			for _, f := range res.Skipped {
				seen[f.ID]++
			}

			if len(seen) != len(features) {
				t.Errorf("expected %d distinct features in output, got %d", len(features), len(seen))
			}
			for id, n := range seen {
				if n != 1 {
					t.Errorf("feature %s appears %d times", id, n)
				}
			}
		})
	}
}

func TestManager_ThresholdRespected(t *testing.T) {
	features := randomFeatures(400, 9)
	cfg := DefaultConfig()
	cfg.Strategy = StrategyDistance
	cfg.MinPoints = 3

	res, err := NewManager().Cluster(features, cfg, testView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range res.Clusters {
		if c.Count < cfg.MinPoints {
			t.Errorf("cluster %s has count %d below MinPoints %d", c.ID, c.Count, cfg.MinPoints)
		}
	}
}

func TestManager_ZoomEscapeValve(t *testing.T) {
	features := randomFeatures(50, 2)
	features[3].X = math.NaN()

	cfg := DefaultConfig()
	cfg.MaxZoom = 14

	view := testView()
	view.Zoom = 14 // at threshold counts as disabled

	res, err := NewManager().Cluster(features, cfg, view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 0 {
		t.Errorf("expected no clusters at max zoom, got %d", len(res.Clusters))
	}
	if len(res.Unclustered) != len(features)-len(res.Skipped) {
		t.Errorf("expected %d passthrough features, got %d",
			len(features)-len(res.Skipped), len(res.Unclustered))
	}
	if len(res.Skipped) != 1 {
		t.Errorf("expected 1 skipped feature, got %d", len(res.Skipped))
	}
}

func TestManager_MalformedFeaturesSkippedNotFatal(t *testing.T) {
	features := []Feature{
		{ID: "good-1", X: 100, Y: 100},
		{ID: "bad", X: math.NaN(), Y: 100},
		{ID: "good-2", X: 103, Y: 100},
	}
	cfg := DefaultConfig()
	cfg.Strategy = StrategyDistance
	cfg.MinPoints = 2

	res, err := NewManager().Cluster(features, cfg, testView())
	if err != nil {
		t.Fatalf("one dirty record must not abort the batch: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].ID != "bad" {
		t.Errorf("expected bad feature skipped, got %v", res.Skipped)
	}
	if len(res.Clusters) != 1 || res.Clusters[0].Count != 2 {
		t.Errorf("expected remaining features to cluster normally, got %+v", res.Clusters)
	}
}

func TestManager_ClusterOrdering(t *testing.T) {
	// A 4-point group and a 2-point group: biggest first.
	features := []Feature{
		feat("a1", 100, 100), feat("a2", 101, 100), feat("a3", 102, 100), feat("a4", 103, 100),
		feat("b1", 800, 800), feat("b2", 801, 800),
	}
	cfg := DefaultConfig()
	cfg.Strategy = StrategyDistance
	cfg.Radius = 10
	cfg.MinPoints = 2

	res, err := NewManager().Cluster(features, cfg, testView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(res.Clusters))
	}
	if res.Clusters[0].Count != 4 || res.Clusters[1].Count != 2 {
		t.Errorf("clusters not sorted by count desc: %d, %d",
			res.Clusters[0].Count, res.Clusters[1].Count)
	}
}

func TestManager_MemberOrderPreservesInputOrder(t *testing.T) {
	features := []Feature{
		feat("first", 100, 100),
		feat("second", 101, 100),
		feat("third", 102, 100),
	}
	cfg := DefaultConfig()
	cfg.Strategy = StrategyDistance
	cfg.Radius = 10
	cfg.MinPoints = 2

	res, err := NewManager().Cluster(features, cfg, testView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(res.Clusters))
	}
	want := []string{"first", "second", "third"}
	for i, f := range res.Clusters[0].Features {
		if f.ID != want[i] {
			t.Errorf("member %d: got %s, want %s", i, f.ID, want[i])
		}
	}
}

func TestManager_StableClusterIDs(t *testing.T) {
	features := randomFeatures(300, 21)
	cfg := DefaultConfig()
	cfg.Strategy = StrategyDistance

	mgr := NewManager()
	res1, _ := mgr.Cluster(features, cfg, testView())
	res2, _ := mgr.Cluster(features, cfg, testView())

	if len(res1.Clusters) == 0 {
		t.Fatal("expected at least one cluster")
	}
	for i := range res1.Clusters {
		if res1.Clusters[i].ID != res2.Clusters[i].ID {
			t.Errorf("cluster %d: ID changed between runs: %s vs %s",
				i, res1.Clusters[i].ID, res2.Clusters[i].ID)
		}
	}
}

func TestManager_StatSoundness(t *testing.T) {
	features := randomFeatures(600, 13)
	cfg := DefaultConfig()
	cfg.Strategy = StrategyDistance

	res, err := NewManager().Cluster(features, cfg, testView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range res.Clusters {
		stats, ok := c.Attributes["price"]
		if !ok || stats.Numeric == nil {
			t.Fatalf("cluster %s missing price stats", c.ID)
		}
		n := stats.Numeric
		if n.Min > n.Mean || n.Mean > n.Max {
			t.Errorf("cluster %s: min %f, mean %f, max %f out of order", c.ID, n.Min, n.Mean, n.Max)
		}
		// Min and max must come from actual member values.
		var foundMin, foundMax bool
		for _, f := range c.Features {
			if v, ok := f.Attributes["price"].(float64); ok {
				if v == n.Min {
					foundMin = true
				}
				if v == n.Max {
					foundMax = true
				}
			}
		}
		if !foundMin || !foundMax {
			t.Errorf("cluster %s: min/max not drawn from member values", c.ID)
		}
	}
}

func TestManager_DegenerateExtent(t *testing.T) {
	// A single-point viewport before the first pan must not fail.
	features := []Feature{
		feat("a", 5, 5),
		feat("b", 6, 5),
	}
	cfg := DefaultConfig()
	cfg.Strategy = StrategyDistance
	cfg.Radius = 10
	cfg.MinPoints = 2

	view := View{Zoom: 10, Extent: geom.BBox{MinX: 5, MinY: 5, MaxX: 5, MaxY: 5}}
	res, err := NewManager().Cluster(features, cfg, view)
	if err != nil {
		t.Fatalf("degenerate extent must fall back, not fail: %v", err)
	}
	if len(res.Clusters) != 1 || res.Clusters[0].Count != 2 {
		t.Errorf("expected one cluster of 2, got %+v", res.Clusters)
	}
}
