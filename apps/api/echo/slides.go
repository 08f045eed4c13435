package echoapi

import (
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/render"
	"github.com/aiworkshop/slides/core/slide"
)

const maxAssetSize = 10 << 20

type (
	slideApi struct {
		svc      *slide.Service
		renderer *render.Renderer
		hub      *Hub
		title    string
	}

	SaveSlideRequest struct {
		Content string `json:"content"`
	}

	PreviewRequest struct {
		Markdown string `json:"markdown"`
	}

	AssetRequest struct {
		Name string `json:"name"`
		Data string `json:"data"` // base64, optionally as a data:image/...;base64, URL
	}

	ImportMarpRequest struct {
		Deck      string `json:"deck"`
		Overwrite bool   `json:"overwrite"`
	}
)

func registerSlideAPI(g *echo.Group, deps *Deps) {
	api := slideApi{
		svc:      deps.SlideSvc,
		renderer: deps.Renderer,
		hub:      deps.Hub,
		title:    deps.Conf.AppName,
	}

	sg := g.Group("/slides")
	sg.GET("", api.index)
	sg.GET("/sidebar", api.sidebar)
	sg.GET("/toc", api.toc)
	sg.POST("/update", api.update)
	sg.POST("/preview", api.preview)
	sg.POST("/assets", api.uploadAsset)

	// names may contain a sub directory (part2/02-00.md)
	sg.GET("/*", api.retrieve) // also <name>/preview
	sg.PUT("/*", api.save)
	sg.DELETE("/*", api.destroy)

	g.GET("/export/marp", api.exportMarp)
	g.GET("/export/html", api.exportHTML)
	g.POST("/import/marp", api.importMarp)
}

// Handlers

func slideName(ctx echo.Context) string {
	name := ctx.Param("*")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}

func (api *slideApi) scan(ctx echo.Context) ([]slide.Slide, error) {
	slides, err := api.svc.Scan(ctx.Request().Context())
	if err != nil {
		return nil, errors.Wrap(err, "scanning slides")
	}
	return slides, nil
}

func (api *slideApi) index(ctx echo.Context) error {
	slides, err := api.scan(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, strconv.Itoa(len(slides))+" slides", echo.Map{"slides": slide.BuildIndex(slides)})
}

func (api *slideApi) sidebar(ctx echo.Context) error {
	slides, err := api.scan(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "ok", echo.Map{"sidebar": slide.BuildSidebar(slides)})
}

func (api *slideApi) toc(ctx echo.Context) error {
	slides, err := api.scan(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "ok", echo.Map{"toc": slide.BuildTOC(slides)})
}

func (api *slideApi) retrieve(ctx echo.Context) error {
	name := slideName(ctx)
	if strings.HasSuffix(name, "/preview") {
		return api.previewSlide(ctx, strings.TrimSuffix(name, "/preview"))
	}
	doc, err := api.svc.Get(name)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "ok", echo.Map{"slide": doc})
}

func (api *slideApi) save(ctx echo.Context) error {
	var data SaveSlideRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveSlideRequest")
	}
	if strings.TrimSpace(data.Content) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "content", Error: "this field is required"})
	}

	doc, err := api.svc.Save(slideName(ctx), data.Content)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "slide saved", echo.Map{"slide": doc})
}

func (api *slideApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(slideName(ctx)); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "slide deleted", nil)
}

func (api *slideApi) update(ctx echo.Context) error {
	m, err := api.svc.Update(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "updating slide artifacts")
	}
	if api.hub != nil {
		api.hub.BroadcastManifest(m)
	}
	return respond(ctx, http.StatusOK, "slide data updated", echo.Map{"manifest": m})
}

func (api *slideApi) preview(ctx echo.Context) error {
	var data PreviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PreviewRequest")
	}
	html, err := api.renderer.HTML(data.Markdown)
	if err != nil {
		return errors.Wrap(err, "rendering preview")
	}
	return respond(ctx, http.StatusOK, "ok", echo.Map{"html": html})
}

func (api *slideApi) previewSlide(ctx echo.Context, name string) error {
	doc, err := api.svc.Get(name)
	if err != nil {
		return err
	}
	html, err := api.renderer.HTML(doc.Content)
	if err != nil {
		return errors.Wrap(err, "rendering preview")
	}
	return respond(ctx, http.StatusOK, "ok", echo.Map{"html": html, "slide": doc.Slide})
}

// uploadAsset accepts a multipart "file" field or a JSON AssetRequest.
func (api *slideApi) uploadAsset(ctx echo.Context) error {
	var (
		rel string
		err error
	)
	if mt, _, _ := mime.ParseMediaType(ctx.Request().Header.Get(echo.HeaderContentType)); mt == echo.MIMEMultipartForm {
		fh, ferr := ctx.FormFile("file")
		if ferr != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
		}
		if fh.Size > maxAssetSize {
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is too large"})
		}
		f, ferr := fh.Open()
		if ferr != nil {
			return errors.Wrap(ferr, "opening uploaded file")
		}
		defer f.Close()
		content, ferr := io.ReadAll(io.LimitReader(f, maxAssetSize))
		if ferr != nil {
			return errors.Wrap(ferr, "reading uploaded file")
		}
		name := ctx.FormValue("name")
		if name == "" {
			name = path.Base(fh.Filename)
		}
		rel, err = api.svc.SaveAsset(name, content)
	} else {
		var data AssetRequest
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to AssetRequest")
		}
		rel, err = api.svc.SaveDataURL(data.Name, data.Data)
	}
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, "asset saved", echo.Map{"path": rel})
}

func (api *slideApi) exportMarp(ctx echo.Context) error {
	deck, err := api.svc.Deck(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "merging marp deck")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="slides.marp.md"`)
	return ctx.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(deck))
}

func (api *slideApi) exportHTML(ctx echo.Context) error {
	slides, err := api.scan(ctx)
	if err != nil {
		return err
	}
	doc, err := api.renderer.Document(api.title, slides)
	if err != nil {
		return errors.Wrap(err, "rendering html deck")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="slides.html"`)
	return ctx.HTMLBlob(http.StatusOK, []byte(doc))
}

// importMarp accepts a JSON ImportMarpRequest or the raw deck as the request body.
func (api *slideApi) importMarp(ctx echo.Context) error {
	var data ImportMarpRequest
	if mt, _, _ := mime.ParseMediaType(ctx.Request().Header.Get(echo.HeaderContentType)); mt == echo.MIMEApplicationJSON {
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to ImportMarpRequest")
		}
	} else {
		body, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			return errors.Wrap(err, "reading deck")
		}
		data.Deck = string(body)
		data.Overwrite, _ = strconv.ParseBool(ctx.QueryParam("overwrite"))
	}
	if strings.TrimSpace(data.Deck) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "deck", Error: "this field is required"})
	}

	files, err := slide.Split(data.Deck)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "deck", Error: err.Error()})
	}
	written, err := api.svc.Import(files, data.Overwrite)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, strconv.Itoa(len(written))+" slides imported", echo.Map{"files": written})
}
