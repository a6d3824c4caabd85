package domain

// Grade is the learner's self-assessment of a single review.
type Grade string

// Possible grade values
const (
	GradeAgain Grade = "again"
	GradeHard  Grade = "hard"
	GradeGood  Grade = "good"
	GradeEasy  Grade = "easy"
)

// Valid reports whether g is one of the four known grades.
func (g Grade) Valid() bool {
	switch g {
	case GradeAgain, GradeHard, GradeGood, GradeEasy:
		return true
	default:
		return false
	}
}

// Rating maps the grade onto the 1..4 scale used by the memory model.
// It returns 0 for an invalid grade.
func (g Grade) Rating() int {
	switch g {
	case GradeAgain:
		return 1
	case GradeHard:
		return 2
	case GradeGood:
		return 3
	case GradeEasy:
		return 4
	default:
		return 0
	}
}

// Result maps the grade onto a session item result. Hard counts as a pass;
// the raw grade is kept alongside the result.
func (g Grade) Result() ItemResult {
	if g == GradeAgain {
		return ResultFail
	}
	return ResultPass
}

// ParseGrade validates a raw grade value.
func ParseGrade(s string) (Grade, error) {
	g := Grade(s)
	if !g.Valid() {
		return "", ErrInvalidGrade
	}
	return g, nil
}
