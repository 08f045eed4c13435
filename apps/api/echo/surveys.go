package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/survey"
)

var errSurveyNotObject = errors.New("survey data must be a JSON object")

type surveyApi struct {
	svc *survey.Service
}

func registerSurveyAPI(g *echo.Group, deps *Deps) {
	api := surveyApi{svc: deps.SurveySvc}

	g.POST("/surveys", api.submit)
	g.GET("/surveys", api.query)
}

// Handlers

func (api *surveyApi) submit(ctx echo.Context) error {
	var payload map[string]interface{}
	if err := json.NewDecoder(ctx.Request().Body).Decode(&payload); err != nil {
		// arrays, scalars and malformed bodies
		return core.NewValidationError(errSurveyNotObject)
	}

	s, err := api.svc.Submit(ctx.Request().Context(), payload)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Survey submitted successfully", echo.Map{"id": s.ID()})
}

func (api *surveyApi) query(ctx echo.Context) error {
	subs, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, strconv.Itoa(len(subs))+" surveys", echo.Map{"surveys": subs})
}
