package mocks

//go:generate mockgen -destination=./mock_indicator.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/indicator Indicator
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_log.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/log Log
