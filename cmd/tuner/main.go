package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ieee0824/ctcdecode"
	"github.com/ieee0824/ctcdecode/decoder"
	"github.com/ieee0824/ctcdecode/internal/config"
	"github.com/ieee0824/ctcdecode/lexicon"
)

type testCase struct {
	emissions *decoder.Emissions
	expected  string
}

type paramSet struct {
	LMWeight  float64
	WordScore float64
	SilScore  float64
}

type result struct {
	params  paramSet
	wer     float64
	correct int
	total   int
}

func main() {
	cfgPath := flag.String("config", "", "path to YAML configuration (model paths and base decoder settings)")
	manifests := flag.String("manifest", "", "comma-separated manifest.tsv paths (emissions<TAB>reference)")
	lmWeightsStr := flag.String("lm-weights", "0.5,1,1.5,2,3", "comma-separated LM weights")
	wordScoresStr := flag.String("word-scores", "-1,0,1,2", "comma-separated word scores")
	silScoresStr := flag.String("sil-scores", "-1,0", "comma-separated silence scores")
	logits := flag.Bool("logits", false, "emissions are raw logits; apply log-softmax per frame")
	workers := flag.Int("workers", 0, "parallel workers (default: NumCPU)")
	top := flag.Int("top", 0, "print only the best N combinations (0=all)")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tuner -config CONFIG -manifest M1,M2,...")
		fmt.Fprintln(os.Stderr, "  Grid search decoder weights against test manifests, ranked by WER.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *cfgPath == "" || *manifests == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *workers <= 0 {
		*workers = runtime.NumCPU()
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Per-batch logs would drown the table; keep warnings only.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: max(slog.LevelWarn, cfg.LogLevel.Level())}))

	grid := buildGrid(parseFloats(*lmWeightsStr), parseFloats(*wordScoresStr), parseFloats(*silScoresStr))
	fmt.Fprintf(os.Stderr, "Grid: %d combos\n", len(grid))

	fmt.Fprintln(os.Stderr, "Loading models...")
	base, err := ctcdecode.NewRecognizer(cfg.Model.Vocabulary, cfg.Model.LanguageModel, cfg.Model.Lexicon,
		ctcdecode.WithDecoderConfig(cfg.Decoder),
		ctcdecode.WithUnkLogProb(cfg.Model.UnkLogProb),
		ctcdecode.WithSubwords(cfg.Model.Subwords),
		ctcdecode.WithFrameDuration(cfg.Model.FrameDuration),
		ctcdecode.WithWorkers(1),
		ctcdecode.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var tests []testCase
	for _, mpath := range strings.Split(*manifests, ",") {
		mpath = strings.TrimSpace(mpath)
		if mpath == "" {
			continue
		}
		loaded, err := loadManifest(mpath, *logits)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tests = append(tests, loaded...)
	}
	fmt.Fprintf(os.Stderr, "Loaded %d test utterances\n", len(tests))
	if len(tests) == 0 {
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Running %d combinations on %d workers...\n", len(grid), *workers)
	results, err := search(context.Background(), base, grid, tests, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *top > 0 && *top < len(results) {
		results = results[:*top]
	}
	printResults(os.Stdout, results)
}

func buildGrid(lmWeights, wordScores, silScores []float64) []paramSet {
	var grid []paramSet
	for _, lw := range lmWeights {
		for _, ws := range wordScores {
			for _, ss := range silScores {
				grid = append(grid, paramSet{LMWeight: lw, WordScore: ws, SilScore: ss})
			}
		}
	}
	return grid
}

// search evaluates every parameter set and returns the results sorted by
// WER ascending, then by LMWeight ascending for ties.
func search(ctx context.Context, base *ctcdecode.Recognizer, grid []paramSet, tests []testCase, workers int) ([]result, error) {
	batch := make([]*decoder.Emissions, len(tests))
	refs := make([]string, len(tests))
	for i, tc := range tests {
		batch[i] = tc.emissions
		refs[i] = tc.expected
	}

	results := make([]result, len(grid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for gi, ps := range grid {
		g.Go(func() error {
			cfg := base.DecCfg
			cfg.LMWeight = ps.LMWeight
			cfg.WordScore = ps.WordScore
			cfg.SilScore = ps.SilScore
			rec, err := base.WithConfig(cfg)
			if err != nil {
				return fmt.Errorf("params %+v: %w", ps, err)
			}
			out, err := rec.Recognize(gctx, batch)
			if err != nil {
				return err
			}
			hyps := make([]string, len(out))
			correct := 0
			for i, r := range out {
				hyps[i] = r.Text
				if r.Text == refs[i] {
					correct++
				}
			}
			results[gi] = result{
				params:  ps,
				wer:     lexicon.WordErrorRate(refs, hyps),
				correct: correct,
				total:   len(tests),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].wer != results[j].wer {
			return results[i].wer < results[j].wer
		}
		return results[i].params.LMWeight < results[j].params.LMWeight
	})
	return results, nil
}

func printResults(w io.Writer, results []result) {
	fmt.Fprintf(w, "%-10s %-10s %-10s %8s %8s %6s\n",
		"LMWeight", "WordScore", "SilScore", "WER", "Correct", "Total")
	fmt.Fprintln(w, strings.Repeat("-", 58))
	for _, r := range results {
		fmt.Fprintf(w, "%-10.2f %-10.2f %-10.2f %7.2f%% %8d %6d\n",
			r.params.LMWeight, r.params.WordScore, r.params.SilScore,
			r.wer*100, r.correct, r.total)
	}
}

// loadManifest reads "emissions<TAB>reference" lines. Relative emission
// paths are resolved against the manifest's directory.
func loadManifest(path string, logits bool) ([]testCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var cases []testCase
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		emPath := parts[0]
		if !filepath.IsAbs(emPath) {
			emPath = filepath.Join(dir, emPath)
		}
		em, err := decoder.ReadEmissionsFile(emPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", emPath, err)
			continue
		}
		if logits {
			em.LogSoftmax()
		}
		cases = append(cases, testCase{emissions: em, expected: strings.TrimSpace(parts[1])})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return cases, nil
}

func parseFloats(s string) []float64 {
	var vals []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid float %q: %v\n", part, err)
			continue
		}
		vals = append(vals, v)
	}
	return vals
}
