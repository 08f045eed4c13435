package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core/completion"
)

type emailApi struct {
	svc      *completion.Service
	validate *validator.Validate
}

func registerEmailAPI(g *echo.Group, deps *Deps) {
	api := emailApi{svc: deps.CompletionSvc, validate: deps.Validate}

	g.POST("/emails/completion", api.sendCompletion)
}

func (api *emailApi) sendCompletion(ctx echo.Context) error {
	var data completion.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to completion.Request")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Send(ctx.Request().Context(), data); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Email sent successfully", nil)
}
