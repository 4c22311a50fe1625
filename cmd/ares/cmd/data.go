package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rudirid/ares-master-control-program-sub000/backtest"
	"github.com/rudirid/ares-master-control-program-sub000/config"
	"github.com/rudirid/ares-master-control-program-sub000/journal"
	"github.com/rudirid/ares-master-control-program-sub000/market"
)

func loadInputs(cfg *config.Config, log zerolog.Logger) ([]market.NewsEvent, *market.PriceStore, error) {
	loc, err := cfg.Simulation.Location()
	if err != nil {
		return nil, nil, err
	}
	events, err := backtest.ReadEvents(cfg.Data.Events, loc, log)
	if err != nil {
		return nil, nil, fmt.Errorf("load events: %w", err)
	}
	prices, err := loadPrices(cfg)
	if err != nil {
		return nil, nil, err
	}
	return events, prices, nil
}

func loadPrices(cfg *config.Config) (*market.PriceStore, error) {
	prices, err := backtest.LoadPrices(cfg.Data.Prices)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	return prices, nil
}

func eventLocation(cfg *config.Config) *time.Location {
	loc, err := cfg.Simulation.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}

// openJournal returns nil when journaling is off.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case config.JournalCSV:
		j, err := journal.NewCSV(cfg.Journal.Dir)
		if err != nil {
			return nil, err
		}
		return j, nil
	case config.JournalSQLite:
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	default:
		return nil, nil
	}
}
