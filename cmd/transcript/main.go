package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ieee0824/ctcdecode"
	"github.com/ieee0824/ctcdecode/decoder"
	"github.com/ieee0824/ctcdecode/internal/config"
	"github.com/ieee0824/ctcdecode/internal/observe"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML configuration")
	vocabPath := flag.String("vocab", "", "path to token list (overrides config)")
	lmPath := flag.String("lm", "", "path to language model in ARPA format (overrides config)")
	lexPath := flag.String("lexicon", "", "path to lexicon (overrides config)")
	logits := flag.Bool("logits", false, "inputs are raw logits; apply log-softmax per frame")
	nbest := flag.Int("nbest", 0, "print this many hypotheses per input (overrides config)")
	verbose := flag.Bool("v", false, "print per-word time intervals")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: transcript [-config FILE] [-vocab V -lm LM -lexicon LEX] EMISSIONS...")
		fmt.Fprintln(os.Stderr, "  Decodes emission matrices (one frame per line, one score per token).")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	override(&cfg.Model.Vocabulary, *vocabPath)
	override(&cfg.Model.LanguageModel, *lmPath)
	override(&cfg.Model.Lexicon, *lexPath)
	if *nbest > 0 {
		cfg.Decoder.NBest = *nbest
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel.Level()}))
	slog.SetDefault(logger)

	rec, err := ctcdecode.NewRecognizer(cfg.Model.Vocabulary, cfg.Model.LanguageModel, cfg.Model.Lexicon,
		ctcdecode.WithDecoderConfig(cfg.Decoder),
		ctcdecode.WithUnkLogProb(cfg.Model.UnkLogProb),
		ctcdecode.WithSubwords(cfg.Model.Subwords),
		ctcdecode.WithFrameDuration(cfg.Model.FrameDuration),
		ctcdecode.WithWorkers(cfg.Workers),
		ctcdecode.WithLogger(logger),
		ctcdecode.WithMetrics(observe.DefaultMetrics()),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	batch := make([]*decoder.Emissions, flag.NArg())
	for i, path := range flag.Args() {
		em, err := decoder.ReadEmissionsFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			os.Exit(1)
		}
		if *logits {
			em.LogSoftmax()
		}
		batch[i] = em
	}

	if cfg.Decoder.NBest > 1 {
		for i, em := range batch {
			results, err := rec.NBest(em)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", flag.Arg(i), err)
				os.Exit(1)
			}
			for rank, r := range results {
				fmt.Printf("%s\t%d\t%.4f\t%s\n", flag.Arg(i), rank+1, r.LogScore, r.Text)
			}
		}
		return
	}

	results, err := rec.Recognize(context.Background(), batch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for i, r := range results {
		if flag.NArg() > 1 {
			fmt.Printf("%s\t%s\n", flag.Arg(i), r.Text)
		} else {
			fmt.Println(r.Text)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Score: %.4f\n", r.LogScore)
			for _, w := range r.Words {
				fmt.Fprintf(os.Stderr, "  [%.2f-%.2f] %s\n", w.Start, w.End, w.Text)
			}
		}
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
