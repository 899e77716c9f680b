package autoplay

import "time"

// Summary aggregates a batch of runs.
type Summary struct {
	Games        int
	Passed       int
	Failed       int
	TotalFlips   int
	BestMoves    int
	WorstMoves   int
	AverageMoves float64
	AverageTime  time.Duration
}

// Summarize aggregates the passed runs; failed runs only count as failures.
func Summarize(runs []GameRun) Summary {
	s := Summary{Games: len(runs)}
	var moves int
	var total time.Duration
	for _, r := range runs {
		s.TotalFlips += r.Flips
		if !r.Passed {
			s.Failed++
			continue
		}
		s.Passed++
		moves += r.Moves
		total += r.Duration
		if s.BestMoves == 0 || r.Moves < s.BestMoves {
			s.BestMoves = r.Moves
		}
		if r.Moves > s.WorstMoves {
			s.WorstMoves = r.Moves
		}
	}
	if s.Passed > 0 {
		s.AverageMoves = float64(moves) / float64(s.Passed)
		s.AverageTime = total / time.Duration(s.Passed)
	}
	return s
}
