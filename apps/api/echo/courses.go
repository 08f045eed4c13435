package echoapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/course"
)

var errCourseNotFoundInCtx = errors.New("course object not found in echo.Context")

type (
	courseApi struct {
		svc      *course.Service
		validate *validator.Validate
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func registerCourseAPI(g *echo.Group, deps *Deps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.DELETE("", api.destroyMultiple)
	cg.GET("/export", api.export)
	cg.POST("/import", api.importCourses)

	// detail endpoints
	dg := cg.Group("/:id", courseObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/share", api.share)

	g.GET("/share/:token", api.resolveShare)
}

// courseObjectMiddleware loads the course of the :id param into the context, or answers 404.
func courseObjectMiddleware(svc *course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return err
				}
				return errors.Wrap(err, "finding course by ID")
			}
			ctx.Set("object", c)
			return next(ctx)
		}
	}
}

func contextCourse(ctx echo.Context) (course.Course, error) {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return course.Course{}, errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}
	return c, nil
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return respond(ctx, http.StatusCreated, "course created", echo.Map{"course": c})
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, filter); err != nil {
		return respond(ctx, http.StatusOK, "0 courses", echo.Map{"courses": []course.Course{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return respond(ctx, http.StatusOK, strconv.Itoa(len(courses))+" courses", echo.Map{"courses": courses})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "ok", echo.Map{"course": c})
}

func (api *courseApi) update(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(c, api.validate); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return respond(ctx, http.StatusOK, "course updated", echo.Map{"course": c})
}

func (api *courseApi) destroy(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return respond(ctx, http.StatusOK, "course deleted", nil)
}

func (api *courseApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return respond(ctx, http.StatusOK, strconv.Itoa(len(query.IDs))+" courses deleted", nil)
}

func (api *courseApi) share(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	c, err = api.svc.Share(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "sharing course")
	}
	return respond(ctx, http.StatusOK, "share link created", echo.Map{"course": c, "shareUrl": c.ShareURL})
}

func (api *courseApi) resolveShare(ctx echo.Context) error {
	c, err := api.svc.ResolveShare(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "ok", echo.Map{"course": c})
}

// export answers the raw course list, as stored by the browser.
func (api *courseApi) export(ctx echo.Context) error {
	courses, err := api.svc.Export(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "exporting courses")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="courses.json"`)
	return ctx.JSON(http.StatusOK, courses)
}

// importCourses accepts a raw course list or {"courses": [...]}.
func (api *courseApi) importCourses(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading courses")
	}

	var courses []course.Course
	if err = json.Unmarshal(body, &courses); err != nil {
		var wrapped struct {
			Courses []course.Course `json:"courses"`
		}
		if err = json.Unmarshal(body, &wrapped); err != nil || wrapped.Courses == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "courses", Error: "expected a list of courses"})
		}
		courses = wrapped.Courses
	}

	imported, err := api.svc.Import(ctx.Request().Context(), courses)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, strconv.Itoa(len(imported))+" courses imported", echo.Map{"courses": imported})
}
