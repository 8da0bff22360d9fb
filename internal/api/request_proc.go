package api

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/service"
)

func ProcessRequest[T any](e echo.Context, req *T, steps ...func(echo.Context, *T) error) error {
	for _, step := range steps {
		if err := step(e, req); err != nil {
			return err
		}
	}
	return nil
}

// decodeRequest binds, validates and then runs any extra steps over req.
func decodeRequest[T any](e echo.Context, req *T, steps ...func(echo.Context, *T) error) *service.Error {
	all := append([]func(echo.Context, *T) error{bindStep[T], validateStep[T]}, steps...)
	if err := ProcessRequest(e, req, all...); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, err.Error())
	}
	return nil
}

func bindStep[T any](e echo.Context, req *T) error {
	if err := e.Bind(req); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func validateStep[T any](e echo.Context, req *T) error {
	if err := e.Validate(req); err != nil {
		return errors.Wrap(err, "request validation failed")
	}
	return nil
}

type emailRequest interface {
	emailField() *string
}

// normalizeEmailStep lowercases the email carried by req.
func normalizeEmailStep[T any](_ echo.Context, req *T) error {
	r, ok := any(req).(emailRequest)
	if !ok {
		return nil
	}
	p := r.emailField()
	*p = model.NormalizeEmail(*p)
	return nil
}
