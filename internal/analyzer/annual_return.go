package analyzer

import (
	"math"
	"strconv"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// AnnualReturn computes the return of the account value for each calendar year.
// The first year is measured from the first bar's value.
type AnnualReturn struct {
	years     []int
	yearEnd   map[int]float64
	baseValue float64
	hasBase   bool
}

func NewAnnualReturn() *AnnualReturn {
	return &AnnualReturn{
		years:   nil,
		yearEnd: make(map[int]float64),
	}
}

func (a *AnnualReturn) Name() string {
	return NameAnnualReturn
}

func (a *AnnualReturn) OnBarClosed(snapshot types.Snapshot) {
	if !a.hasBase {
		a.baseValue = snapshot.Value
		a.hasBase = true
	}

	year := snapshot.Time.Year()
	if _, seen := a.yearEnd[year]; !seen {
		a.years = append(a.years, year)
	}

	a.yearEnd[year] = snapshot.Value
}

func (a *AnnualReturn) OnTradeClosed(types.Trade) {}

func (a *AnnualReturn) OnFinish() types.AnalysisResult {
	metrics := make(map[string]float64, len(a.years))
	start := a.baseValue

	for _, year := range a.years {
		end := a.yearEnd[year]

		if start == 0 {
			metrics[strconv.Itoa(year)] = math.NaN()
		} else {
			metrics[strconv.Itoa(year)] = end/start - 1
		}

		start = end
	}

	return types.AnalysisResult{
		Analyzer: a.Name(),
		Metrics:  metrics,
	}
}
