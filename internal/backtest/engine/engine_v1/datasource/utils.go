package datasource

import "fmt"

const (
	tradingDaysPerYear    = 252
	tradingMinutesPerDay  = 390
	tradingWeeksPerYear   = 52
	calendarMonthsPerYear = 12
)

func getIntervalMinutes(interval Interval) (int, error) {
	var intervalMinutes int

	switch interval {
	case Interval1m:
		intervalMinutes = 1
	case Interval5m:
		intervalMinutes = 5
	case Interval15m:
		intervalMinutes = 15
	case Interval30m:
		intervalMinutes = 30
	case Interval1h:
		intervalMinutes = 60
	case Interval4h:
		intervalMinutes = 240
	default:
		return 0, fmt.Errorf("unsupported intraday interval: %s", interval)
	}

	return intervalMinutes, nil
}

// AnnualizationFactor returns how many bars of the interval make up a trading year.
// Intraday intervals assume a 390 minute session.
func AnnualizationFactor(interval Interval) (float64, error) {
	switch interval {
	case Interval1d, "":
		return tradingDaysPerYear, nil
	case Interval1w:
		return tradingWeeksPerYear, nil
	case Interval1M:
		return calendarMonthsPerYear, nil
	}

	minutes, err := getIntervalMinutes(interval)
	if err != nil {
		return 0, err
	}

	return float64(tradingDaysPerYear*tradingMinutesPerDay) / float64(minutes), nil
}
