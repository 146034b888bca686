package cricket

import (
	"fmt"
	"math"
)

const (
	BallsPerOver = 6
	MaxWickets   = 10
)

// FormatOvers renders a legal ball count in cricket notation: 14 balls is
// "2.2", not 2.33.
func FormatOvers(legalBalls int) string {
	return fmt.Sprintf("%d.%d", legalBalls/BallsPerOver, legalBalls%BallsPerOver)
}

// RunRate is runs per six legal balls, zero before the first legal ball.
func RunRate(runs, legalBalls int) float64 {
	if legalBalls <= 0 {
		return 0
	}
	return round2(float64(runs) / float64(legalBalls) * BallsPerOver)
}

// RequiredRunRate is zero once the target is reached or no balls remain.
func RequiredRunRate(target, runs, legalBalls, maxLegalBalls int) float64 {
	remainingRuns := target - runs
	remainingBalls := maxLegalBalls - legalBalls
	if remainingRuns <= 0 || remainingBalls <= 0 {
		return 0
	}
	return round2(float64(remainingRuns) / float64(remainingBalls) * BallsPerOver)
}

// StrikeRate is runs per hundred balls faced.
func StrikeRate(runs, balls int) float64 {
	if balls <= 0 {
		return 0
	}
	return round2(float64(runs) / float64(balls) * 100)
}

// Economy is runs conceded per over bowled.
func Economy(conceded, balls int) float64 {
	return RunRate(conceded, balls)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
