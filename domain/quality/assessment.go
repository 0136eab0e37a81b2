package quality

// Grade is the coarse bucket derived from the overall score
type Grade string

const (
	GradeExcellent Grade = "Excellent"
	GradeGood      Grade = "Good"
	GradeFair      Grade = "Fair"
	GradePoor      Grade = "Poor"
)

// GradeFor maps an overall score onto a grade
func GradeFor(score float64) Grade {
	switch {
	case score >= 0.9:
		return GradeExcellent
	case score >= 0.8:
		return GradeGood
	case score >= 0.7:
		return GradeFair
	default:
		return GradePoor
	}
}

// Assessment holds the five quality dimensions and their aggregate
type Assessment struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Validity     float64 `json:"validity"`
	Uniqueness   float64 `json:"uniqueness"`
	OverallScore float64 `json:"overall_score"`
	Grade        Grade   `json:"grade"`
}

// NewAssessment computes the overall score and grade from the five dimensions
func NewAssessment(completeness, accuracy, consistency, validity, uniqueness float64) Assessment {
	a := Assessment{
		Completeness: completeness,
		Accuracy:     accuracy,
		Consistency:  consistency,
		Validity:     validity,
		Uniqueness:   uniqueness,
	}
	a.OverallScore = (completeness + accuracy + consistency + validity + uniqueness) / 5
	a.Grade = GradeFor(a.OverallScore)
	return a
}

// Dimensions returns the sub-scores keyed by name in a fixed order
func (a Assessment) Dimensions() []Dimension {
	return []Dimension{
		{"completeness", a.Completeness},
		{"accuracy", a.Accuracy},
		{"consistency", a.Consistency},
		{"validity", a.Validity},
		{"uniqueness", a.Uniqueness},
	}
}

// Dimension is one named sub-score
type Dimension struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Improvement is the change of each dimension between two assessments
type Improvement struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Validity     float64 `json:"validity"`
	Uniqueness   float64 `json:"uniqueness"`
	OverallScore float64 `json:"overall_score"`
}

// Compare returns after minus before for every dimension
func Compare(before, after Assessment) Improvement {
	return Improvement{
		Completeness: after.Completeness - before.Completeness,
		Accuracy:     after.Accuracy - before.Accuracy,
		Consistency:  after.Consistency - before.Consistency,
		Validity:     after.Validity - before.Validity,
		Uniqueness:   after.Uniqueness - before.Uniqueness,
		OverallScore: after.OverallScore - before.OverallScore,
	}
}
