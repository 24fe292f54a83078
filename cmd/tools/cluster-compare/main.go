// Package main provides a strategy comparison tool for the clustering
// engine. It runs every clustering strategy over the same input set and
// reports per-strategy statistics, optionally persisting runs to
// SQLite and rendering an ECharts scatter of the resulting clusters.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/parcelboard/mapcluster/internal/cluster"
	"github.com/parcelboard/mapcluster/internal/config"
	"github.com/parcelboard/mapcluster/internal/geom"
	"github.com/parcelboard/mapcluster/internal/security"
	storage "github.com/parcelboard/mapcluster/internal/storage/sqlite"
	"github.com/parcelboard/mapcluster/internal/version"
)

// Options holds configuration for the comparison run.
type Options struct {
	InputFile  string
	Dataset    string
	Points     int
	Hotspots   int
	Seed       int64
	Zoom       float64
	ConfigFile string
	DBPath     string
	HTMLPath   string
	OutputJSON string
	Verbose    bool
	Version    bool

	// Direct overrides for the tuning config; NaN/zero means unset.
	Radius           float64
	MinPoints        int
	GridSize         float64
	DensityThreshold float64
	MaxZoom          float64
}

// StrategyStats holds per-strategy results.
type StrategyStats struct {
	Name             string  `json:"name"`
	Resolved         string  `json:"resolved,omitempty"` // what adaptive dispatched to
	ClusterCount     int     `json:"cluster_count"`
	UnclusteredCount int     `json:"unclustered_count"`
	SkippedCount     int     `json:"skipped_count"`
	LargestCluster   int     `json:"largest_cluster"`
	ProcessingUs     int64   `json:"processing_us"`
	MeanClusterSize  float64 `json:"mean_cluster_size"`
}

// ComparisonResult is the top-level JSON report.
type ComparisonResult struct {
	Dataset      string                   `json:"dataset"`
	FeatureCount int                      `json:"feature_count"`
	Zoom         float64                  `json:"zoom"`
	Config       cluster.Config           `json:"config"`
	PerStrategy  map[string]StrategyStats `json:"per_strategy"`
	GeneratedAt  time.Time                `json:"generated_at"`
}

func main() {
	opts := parseFlags()
	if opts.Version {
		fmt.Printf("cluster-compare %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	for _, path := range []string{opts.DBPath, opts.HTMLPath, opts.OutputJSON} {
		if path == "" {
			continue
		}
		if err := security.ValidateExportPath(path); err != nil {
			log.Fatalf("output path: %v", err)
		}
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	features, err := loadFeatures(opts)
	if err != nil {
		log.Fatalf("load features: %v", err)
	}
	if len(features) == 0 {
		log.Fatal("no input features")
	}

	pts := make([]geom.Point, 0, len(features))
	for _, f := range features {
		if p := f.Point(); finite(p) {
			pts = append(pts, p)
		}
	}
	extent, err := geom.BoundingBoxOf(pts)
	if err != nil {
		log.Fatalf("extent: %v", err)
	}
	view := cluster.View{Zoom: opts.Zoom, Extent: extent}

	result := ComparisonResult{
		Dataset:      opts.Dataset,
		FeatureCount: len(features),
		Zoom:         opts.Zoom,
		Config:       cfg,
		PerStrategy:  make(map[string]StrategyStats),
		GeneratedAt:  time.Now(),
	}

	mgr := cluster.NewManager()
	strategies := []cluster.Strategy{
		cluster.StrategyGrid,
		cluster.StrategyDistance,
		cluster.StrategyDensity,
		cluster.StrategyAdaptive,
	}

	results := make(map[string]cluster.Result, len(strategies))
	for _, strat := range strategies {
		runCfg := cfg
		runCfg.Strategy = strat

		start := time.Now()
		res, err := mgr.Cluster(features, runCfg, view)
		if err != nil {
			log.Fatalf("strategy %s: %v", strat, err)
		}
		elapsed := time.Since(start)

		results[string(strat)] = res
		result.PerStrategy[string(strat)] = summarize(strat, res, elapsed)

		if opts.Verbose {
			log.Printf("%s: %d clusters, %d unclustered, %d skipped in %v",
				strat, len(res.Clusters), len(res.Unclustered), len(res.Skipped), elapsed)
		}
	}

	if opts.DBPath != "" {
		if err := persistRuns(opts, cfg, result); err != nil {
			log.Fatalf("persist runs: %v", err)
		}
	}

	if opts.HTMLPath != "" {
		htmlPath := resolveOutputPath(opts.HTMLPath, opts.Dataset, ".html")
		if err := renderCharts(htmlPath, opts.Dataset, results); err != nil {
			log.Fatalf("render charts: %v", err)
		}
		if opts.Verbose {
			log.Printf("wrote chart to %s", htmlPath)
		}
	}

	outPath := opts.OutputJSON
	if outPath != "" {
		outPath = resolveOutputPath(outPath, opts.Dataset, ".json")
	}
	if err := writeReport(outPath, result); err != nil {
		log.Fatalf("write report: %v", err)
	}
}

// resolveOutputPath turns a directory target into a file path named
// after the dataset. File targets pass through unchanged.
func resolveOutputPath(path, dataset, ext string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, security.SanitizeFilename(dataset)+ext)
	}
	return path
}

func parseFlags() Options {
	var opts Options
	flag.StringVar(&opts.InputFile, "input", "", "GeoJSON FeatureCollection to cluster (omit to generate synthetic points)")
	flag.StringVar(&opts.Dataset, "dataset", "synthetic", "Dataset label for reports and persistence")
	flag.IntVar(&opts.Points, "points", 5000, "Synthetic point count when no input file is given")
	flag.IntVar(&opts.Hotspots, "hotspots", 4, "Synthetic gaussian hotspot count")
	flag.Int64Var(&opts.Seed, "seed", 1, "Synthetic generator seed")
	flag.Float64Var(&opts.Zoom, "zoom", 10, "Viewport zoom level")
	flag.StringVar(&opts.ConfigFile, "config", "", "Tuning config JSON (defaults merged underneath)")
	flag.StringVar(&opts.DBPath, "db", "", "SQLite path to persist comparison runs")
	flag.StringVar(&opts.HTMLPath, "html", "", "Write an ECharts scatter of clusters to this HTML file")
	flag.StringVar(&opts.OutputJSON, "out", "", "Write the JSON report here instead of stdout")
	flag.BoolVar(&opts.Verbose, "v", false, "Verbose logging")
	flag.BoolVar(&opts.Version, "version", false, "Print version and exit")

	flag.Float64Var(&opts.Radius, "radius", 0, "Override merge radius (0 = from config)")
	flag.IntVar(&opts.MinPoints, "min-points", 0, "Override min cluster size (0 = from config)")
	flag.Float64Var(&opts.GridSize, "grid-size", 0, "Override grid cell size (0 = from config)")
	flag.Float64Var(&opts.DensityThreshold, "density-threshold", 0, "Override density threshold (0 = from config)")
	flag.Float64Var(&opts.MaxZoom, "max-zoom", 0, "Override clustering max zoom (0 = from config)")
	flag.Parse()
	return opts
}

// buildConfig layers flag overrides on top of the tuning file (if any)
// on top of package defaults, then validates once.
func buildConfig(opts Options) (cluster.Config, error) {
	tuning := config.EmptyTuningConfig()
	if opts.ConfigFile != "" {
		loaded, err := config.LoadTuningConfig(opts.ConfigFile)
		if err != nil {
			return cluster.Config{}, err
		}
		tuning.Merge(loaded)
	}

	cfg := tuning.ClusterConfig()
	if opts.Radius > 0 {
		cfg.Radius = opts.Radius
	}
	if opts.MinPoints > 0 {
		cfg.MinPoints = opts.MinPoints
	}
	if opts.GridSize > 0 {
		cfg.GridSize = opts.GridSize
	}
	if opts.DensityThreshold > 0 {
		cfg.DensityThreshold = opts.DensityThreshold
	}
	if opts.MaxZoom > 0 {
		cfg.MaxZoom = opts.MaxZoom
	}

	return cfg, cfg.Validate()
}

func loadFeatures(opts Options) ([]cluster.Feature, error) {
	if opts.InputFile == "" {
		return generateFeatures(opts), nil
	}
	data, err := os.ReadFile(opts.InputFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", opts.InputFile, err)
	}
	fc, err := cluster.ParseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return cluster.FeaturesFromGeoJSON(fc), nil
}

// generateFeatures builds a seeded synthetic point set: a uniform
// background plus gaussian hotspots, with listing-style attributes so
// the aggregator has something to chew on.
func generateFeatures(opts Options) []cluster.Feature {
	rng := rand.New(rand.NewSource(opts.Seed))
	const span = 10000.0
	statuses := []string{"active", "pending", "sold"}

	hotspotX := make([]float64, opts.Hotspots)
	hotspotY := make([]float64, opts.Hotspots)
	for i := range hotspotX {
		hotspotX[i] = rng.Float64() * span
		hotspotY[i] = rng.Float64() * span
	}

	features := make([]cluster.Feature, opts.Points)
	for i := range features {
		var x, y float64
		// Two thirds of the points concentrate around hotspots.
		if opts.Hotspots > 0 && rng.Float64() < 0.66 {
			h := rng.Intn(opts.Hotspots)
			x = hotspotX[h] + rng.NormFloat64()*120
			y = hotspotY[h] + rng.NormFloat64()*120
		} else {
			x = rng.Float64() * span
			y = rng.Float64() * span
		}
		features[i] = cluster.Feature{
			ID: fmt.Sprintf("listing-%06d", i),
			X:  x,
			Y:  y,
			Attributes: map[string]interface{}{
				"price":  200000 + rng.Float64()*800000,
				"beds":   1 + rng.Intn(5),
				"status": statuses[rng.Intn(len(statuses))],
			},
		}
	}
	return features
}

func summarize(strat cluster.Strategy, res cluster.Result, elapsed time.Duration) StrategyStats {
	stats := StrategyStats{
		Name:             string(strat),
		ClusterCount:     len(res.Clusters),
		UnclusteredCount: len(res.Unclustered),
		SkippedCount:     len(res.Skipped),
		ProcessingUs:     elapsed.Microseconds(),
	}
	if strat == cluster.StrategyAdaptive {
		stats.Resolved = string(res.Strategy)
	}
	var totalMembers int
	for _, c := range res.Clusters {
		totalMembers += c.Count
		if c.Count > stats.LargestCluster {
			stats.LargestCluster = c.Count
		}
	}
	if len(res.Clusters) > 0 {
		stats.MeanClusterSize = float64(totalMembers) / float64(len(res.Clusters))
	}
	return stats
}

func persistRuns(opts Options, cfg cluster.Config, result ComparisonResult) error {
	db, err := storage.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	params, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	store := storage.NewComparisonStore(db)
	for _, stats := range result.PerStrategy {
		run := &storage.ComparisonRun{
			Dataset:          opts.Dataset,
			Strategy:         stats.Name,
			FeatureCount:     result.FeatureCount,
			ClusterCount:     stats.ClusterCount,
			UnclusteredCount: stats.UnclusteredCount,
			SkippedCount:     stats.SkippedCount,
			WallTimeMs:       stats.ProcessingUs / 1000,
			ParamsJSON:       params,
		}
		if err := store.Insert(run); err != nil {
			return err
		}
	}
	return nil
}

func writeReport(path string, result ComparisonResult) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(out))
		return nil
	}
	return os.WriteFile(path, append(out, '\n'), 0644)
}

func finite(p geom.Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
