// Package main runs headless bot games against the engine and prints a
// summary. It exits non-zero when any game ends in an inconsistent state.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mentesana/memoria/internal/autoplay"
	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/platform/logger"
)

func main() {
	games := flag.Int("games", 100, "number of games to play")
	difficulty := flag.String("difficulty", string(deck.DifficultyEasy), "easy, medium or hard")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	strategy := flag.String("strategy", string(autoplay.StrategyMemory), "perfect, memory or random")
	verbose := flag.Bool("v", false, "log every game")
	flag.Parse()

	d, ok := deck.ParseDifficulty(*difficulty)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown difficulty %q\n", *difficulty)
		os.Exit(2)
	}
	s, err := autoplay.ParseStrategy(*strategy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	appLogger := logger.NewLogger()
	appLogger.SetDebug(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := d.Settings()
	fmt.Printf("Playing %s %s games (%s, %d pairs) with the %s strategy, seed %d\n",
		humanize.Comma(int64(*games)), settings.Label, settings.Shape, settings.Pairs, s, *seed)

	started := time.Now()
	runs := autoplay.NewRunner(d, s, *seed, appLogger).Play(ctx, *games)
	sum := autoplay.Summarize(runs)

	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Printf("   Games:        %s\n", humanize.Comma(int64(sum.Games)))
	fmt.Printf("   Passed:       %s\n", humanize.Comma(int64(sum.Passed)))
	fmt.Printf("   Failed:       %s\n", humanize.Comma(int64(sum.Failed)))
	fmt.Printf("   Flips:        %s\n", humanize.Comma(int64(sum.TotalFlips)))
	if sum.Passed > 0 {
		fmt.Printf("   Moves:        best %d, worst %d, average %s\n",
			sum.BestMoves, sum.WorstMoves, humanize.FormatFloat("#,###.##", sum.AverageMoves))
		fmt.Printf("   Average time: %s\n", sum.AverageTime.Round(time.Second))
	}
	fmt.Printf("   Wall clock:   %s\n", time.Since(started).Round(time.Millisecond))
	fmt.Println(line)

	for i, r := range runs {
		if !r.Passed {
			fmt.Printf("   %s game (%s) failed: %s\n", humanize.Ordinal(i+1), r.GameID, r.Reason)
		}
	}
	if sum.Failed > 0 {
		os.Exit(1)
	}
}
