package main

import (
	"blocklist/internal/config"
	"blocklist/pkg/enricher"
	"blocklist/pkg/enricher/geoip"
	"blocklist/pkg/enricher/ipwhois"
	"blocklist/pkg/logger"
	"context"
	"net/http"

	"go.uber.org/zap"
)

// getEnricher creates the configured enrichment client and returns it along
// with a cleanup function releasing its resources.
func getEnricher(ctx context.Context, cfg *config.Config) (enricher.Client, func(), error) {
	switch cfg.Enrichment.Provider {
	case config.ProviderGeoIP:
		reader, err := geoip.Open(cfg.Enrichment.GeoIP.CountryDB, cfg.Enrichment.GeoIP.ASNDB)
		if err != nil {
			return nil, nil, err
		}

		return reader, func() {
			logger.Info(ctx, "closing geoip databases...")
			if err := reader.Close(); err != nil {
				logger.Warn(ctx, "could not close geoip databases", zap.Error(err))
			}
		}, nil
	case config.ProviderNone:
		return enricher.Nop{}, func() {}, nil
	default:
		httpClient := &http.Client{Timeout: cfg.Enrichment.Timeout}

		return ipwhois.New(httpClient, cfg.Enrichment.BaseURL), func() {
			httpClient.CloseIdleConnections()
		}, nil
	}
}
