package service

import (
	"context"
	"time"

	"github.com/medflow/medflow-supply/internal/supply/domain"
	"github.com/medflow/medflow-supply/internal/supply/expiry"
	"github.com/medflow/medflow-supply/internal/supply/repository"
	"github.com/medflow/medflow-supply/pkg/logger"
)

// LotStore lists the lots of the tenant in context.
type LotStore interface {
	List(ctx context.Context) ([]repository.LotRow, error)
}

// AlertFeed is the must-attend lots of a tenant at one instant.
type AlertFeed struct {
	At           time.Time            `json:"at"`
	WindowMonths int                  `json:"window_months"`
	Alerts       []expiry.Alert       `json:"alerts"`
	Counts       map[expiry.State]int `json:"counts"`
}

// LotLight is the traffic light of one dated lot.
type LotLight struct {
	Lot   domain.Lot   `json:"lot"`
	Light expiry.Light `json:"light"`
}

// LotService classifies the tenant's lots by expiration.
type LotService struct {
	lots          LotStore
	defaultWindow int
	loc           *time.Location
	now           func() time.Time
	logger        *logger.Logger
}

// NewLotService creates a lot service. Dates are read and evaluated in loc.
func NewLotService(lots LotStore, defaultWindow int, loc *time.Location, log *logger.Logger) *LotService {
	if loc == nil {
		loc = time.UTC
	}
	return &LotService{
		lots:          lots,
		defaultWindow: defaultWindow,
		loc:           loc,
		now:           time.Now,
		logger:        log,
	}
}

// Now is the current instant in the service location.
func (s *LotService) Now() time.Time {
	return s.now().In(s.loc)
}

// Location is the location lot dates are read in.
func (s *LotService) Location() *time.Location {
	return s.loc
}

// Alerts returns the must-attend lots ordered by return deadline.
func (s *LotService) Alerts(ctx context.Context, at time.Time) (*AlertFeed, error) {
	lots, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	alerts := expiry.Feed(lots, at, s.defaultWindow)
	return &AlertFeed{
		At:           at,
		WindowMonths: s.defaultWindow,
		Alerts:       alerts,
		Counts:       expiry.CountByState(alerts),
	}, nil
}

// TrafficLights returns the traffic light of every lot with a usable date.
func (s *LotService) TrafficLights(ctx context.Context, at time.Time) ([]LotLight, error) {
	lots, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	lights := make([]LotLight, 0, len(lots))
	for _, lot := range lots {
		if lot.ExpirationDate == nil {
			continue
		}
		lights = append(lights, LotLight{Lot: lot, Light: expiry.TrafficLight(*lot.ExpirationDate, at)})
	}
	return lights, nil
}

func (s *LotService) load(ctx context.Context) ([]domain.Lot, error) {
	rows, err := s.lots.List(ctx)
	if err != nil {
		return nil, err
	}

	lots := make([]domain.Lot, 0, len(rows))
	for _, row := range rows {
		lot, ok := row.ToDomain(s.loc)
		if !ok {
			s.logger.Debug().
				Str("lot_id", row.ID).
				Str("expiration_date", *row.ExpirationRaw).
				Msg("unparseable expiration date, lot skipped")
		}
		lots = append(lots, lot)
	}
	return lots, nil
}
