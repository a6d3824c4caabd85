package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-sprint/internal/domain"
)

// minStability keeps stability strictly positive.
const minStability = 0.1

// This file contains the pure functions behind the memory model.
// None of them perform I/O or read the clock.

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, domain.MinDifficulty), domain.MaxDifficulty)
}

// initialStability returns the stability assigned by a first review.
func initialStability(p *Params, rating int) float64 {
	return math.Max(p.Weights[rating-1], minStability)
}

// initialDifficulty returns the difficulty assigned by a first review.
func initialDifficulty(p *Params, rating int) float64 {
	return clampDifficulty(p.Weights[4] - float64(rating-3)*p.Weights[5])
}

// retrievability estimates recall probability after elapsedDays for a
// memory of the given stability.
func retrievability(elapsedDays, stability float64) float64 {
	if stability < minStability {
		stability = minStability
	}
	return 1 / (1 + elapsedDays/(9*stability))
}

// nextDifficulty moves difficulty by rating and reverts it slightly toward
// the default.
func nextDifficulty(p *Params, d float64, rating int) float64 {
	next := d - p.Weights[6]*float64(rating-3)
	reverted := p.Weights[7]*initialDifficulty(p, 3) + (1-p.Weights[7])*next
	return clampDifficulty(reverted)
}

// stabilityAfterRecall never returns less than the input stability.
func stabilityAfterRecall(p *Params, d, s, r float64, rating int) float64 {
	modifier := 1.0
	switch rating {
	case 2:
		modifier = p.Weights[15]
	case 4:
		modifier = p.Weights[16]
	}
	growth := math.Exp(p.Weights[8]) *
		(11 - d) *
		math.Pow(s, -p.Weights[9]) *
		(math.Exp(p.Weights[10]*(1-r)) - 1) *
		modifier
	return math.Max(s*(1+growth), s)
}

// stabilityAfterLapse never returns more than the input stability.
func stabilityAfterLapse(p *Params, d, s, r float64) float64 {
	next := p.Weights[11] *
		math.Pow(d, -p.Weights[12]) *
		(math.Pow(s+1, p.Weights[13]) - 1) *
		math.Exp(p.Weights[14]*(1-r))
	return math.Max(math.Min(next, s), minStability)
}

// intervalDays converts stability into whole days at the requested
// retention, clamped to [1, MaximumIntervalDays].
func intervalDays(p *Params, stability float64) int {
	raw := 9 * stability * (1/p.RequestRetention - 1)
	days := int(math.Round(raw))
	if days < 1 {
		days = 1
	}
	if days > p.MaximumIntervalDays {
		days = p.MaximumIntervalDays
	}
	return days
}

// calculateNext computes the memory state following grade at the given time.
// The input state is not modified.
func calculateNext(
	state domain.MemoryState,
	grade domain.Grade,
	at time.Time,
	p *Params,
) (domain.MemoryState, time.Time) {
	rating := grade.Rating()
	failed := grade == domain.GradeAgain

	next := state
	next.Reps++
	reviewed := at
	next.LastReviewedAt = &reviewed

	elapsed := 0.0
	if state.LastReviewedAt != nil && at.After(*state.LastReviewedAt) {
		elapsed = at.Sub(*state.LastReviewedAt).Hours() / 24
	}
	next.ElapsedDays = int(elapsed)

	if failed {
		next.Lapses++
	}

	if state.State == domain.StateNew {
		next.Stability = initialStability(p, rating)
		next.Difficulty = initialDifficulty(p, rating)
		next.State = domain.StateLearning
		if failed {
			return retry(next, at, p.LearningStepMinutes)
		}
		return schedule(next, at, intervalDays(p, next.Stability))
	}

	stability := math.Max(state.Stability, minStability)
	difficulty := state.Difficulty
	if difficulty == 0 {
		difficulty = initialDifficulty(p, 3)
	}
	r := retrievability(elapsed, stability)
	next.Difficulty = nextDifficulty(p, difficulty, rating)

	if failed {
		next.Stability = stabilityAfterLapse(p, difficulty, stability, r)
		switch state.State {
		case domain.StateLearning:
			return retry(next, at, p.LearningStepMinutes)
		default:
			next.State = domain.StateRelearning
			return retry(next, at, p.RelearningStepMinutes)
		}
	}

	next.Stability = stabilityAfterRecall(p, difficulty, stability, r, rating)
	days := intervalDays(p, next.Stability)

	// Good and easy on a review item never shorten its interval.
	if state.State == domain.StateReview && rating >= 3 && days < state.ScheduledDays {
		days = min(state.ScheduledDays, p.MaximumIntervalDays)
	}

	next.State = domain.StateReview
	return schedule(next, at, days)
}

func retry(next domain.MemoryState, at time.Time, minutes int) (domain.MemoryState, time.Time) {
	next.ScheduledDays = 0
	return next, at.Add(time.Duration(minutes) * time.Minute)
}

func schedule(next domain.MemoryState, at time.Time, days int) (domain.MemoryState, time.Time) {
	next.ScheduledDays = days
	return next, at.AddDate(0, 0, days)
}
