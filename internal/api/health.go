package api

import (
	"context"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type HealthChecker interface {
	HealthCheck() echo.HandlerFunc
}

type healthChecker struct {
	health *health.Health
}

func NewHealthChecker(version string, checks ...health.Config) (HealthChecker, error) {
	h, err := health.New(health.WithComponent(health.Component{Name: "teambuilder", Version: version}))
	if err != nil {
		return nil, errors.Wrap(err, "init health")
	}

	for _, check := range checks {
		if err = h.Register(check); err != nil {
			return nil, errors.Wrapf(err, "register health check %s", check.Name)
		}
	}

	return &healthChecker{
		health: h,
	}, nil
}

func (h *healthChecker) HealthCheck() echo.HandlerFunc {
	return echo.WrapHandler(h.health.Handler())
}

// PingCheck reports a dependency unhealthy when ping fails. Optional checks
// only degrade the status.
func PingCheck(name string, optional bool, ping func(ctx context.Context) error) health.Config {
	return health.Config{
		Name:      name,
		Timeout:   2 * time.Second,
		SkipOnErr: optional,
		Check:     ping,
	}
}
