package profiling

import (
	"errors"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	gstat "gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Profile status values
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
	StatusConstant         = "constant"
)

// minShapeSample is the smallest sample for which skewness, kurtosis and the
// normality test are reported
const minShapeSample = 4

// ErrNoData is returned when a column has no numeric values
var ErrNoData = errors.New("no numeric values")

// Distribution is the shape summary of one numeric sample
type Distribution struct {
	Count       int
	Mean        float64
	StdDev      float64
	Min         float64
	Max         float64
	Median      float64
	Q1          float64
	Q3          float64
	Outliers    int
	Skewness    float64
	Kurtosis    float64 // excess
	NormalityP  float64
	LooksNormal bool
	Status      string
}

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct {
	// Alpha is the significance level of the normality test
	Alpha float64
}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{Alpha: 0.05}
}

// AnalyzeDistribution computes summary statistics, IQR outliers and a
// Jarque-Bera normality test. Every returned float is finite.
func (da *DistributionAnalyzer) AnalyzeDistribution(data []float64) (Distribution, error) {
	d := Distribution{Count: len(data), NormalityP: 1}
	if len(data) == 0 {
		return d, ErrNoData
	}

	var err error
	if d.Mean, err = stats.Mean(data); err != nil {
		return d, err
	}
	if d.Min, err = stats.Min(data); err != nil {
		return d, err
	}
	if d.Max, err = stats.Max(data); err != nil {
		return d, err
	}
	if d.Median, err = stats.Median(data); err != nil {
		return d, err
	}
	if len(data) > 1 {
		if d.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return d, err
		}
	}

	d.Q1, d.Q3 = quartiles(data)
	d.Outliers = detectOutliers(data, d.Q1, d.Q3)

	switch {
	case len(data) < minShapeSample:
		d.Status = StatusInsufficientData
	case d.StdDev == 0:
		d.Status = StatusConstant
	default:
		d.Status = StatusOK
		d.Skewness = finite(gstat.Skew(data, nil))
		d.Kurtosis = finite(gstat.ExKurtosis(data, nil))
		d.NormalityP = jarqueBeraP(len(data), d.Skewness, d.Kurtosis)
		d.LooksNormal = d.NormalityP > da.Alpha
	}
	return d, nil
}

// quartiles interpolates Q1 and Q3 on a sorted copy; defined for any n >= 1
func quartiles(data []float64) (float64, float64) {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return gstat.Quantile(0.25, gstat.LinInterp, sorted, nil),
		gstat.Quantile(0.75, gstat.LinInterp, sorted, nil)
}

// jarqueBeraP is the upper tail of chi-squared(2) at n/6 (S^2 + K^2/4)
func jarqueBeraP(n int, skew, exKurt float64) float64 {
	jb := float64(n) / 6 * (skew*skew + exKurt*exKurt/4)
	chi := distuv.ChiSquared{K: 2}
	return finite(chi.Survival(jb))
}

// detectOutliers counts values outside the 1.5 IQR fences
func detectOutliers(data []float64, q1, q3 float64) int {
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	n := 0
	for _, x := range data {
		if x < lower || x > upper {
			n++
		}
	}
	return n
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
