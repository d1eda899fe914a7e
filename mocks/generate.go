package mocks

//go:generate mockgen -destination=./mock_fill_source.go -package=mocks github.com/rxtech-lab/turtle-trading/internal/engine FillSource
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/turtle-trading/internal/storage Store
//go:generate mockgen -destination=./mock_sink.go -package=mocks github.com/rxtech-lab/turtle-trading/internal/events Sink
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/turtle-trading/pkg/marketdata/provider Provider
