// Package render turns slide markdown into sanitized HTML, standalone HTML decks and terminal output.
package render

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/aiworkshop/slides/core/slide"
)

var (
	youtubeEmbedRegex = regexp.MustCompile(`^https://www\.youtube-nocookie\.com/embed/[A-Za-z0-9_-]{11}$`)
	classValueRegex   = regexp.MustCompile(`^[\w\- ]+$`)

	embedFormat = `<div class="video"><iframe src="https://www.youtube-nocookie.com/embed/%s" width="560" height="315" title="YouTube video" frameborder="0" allowfullscreen></iframe></div>`
)

type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// raw HTML is allowed through goldmark and cleaned up by the policy
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		policy: newPolicy(),
	}
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	p.AllowElements("section", "div", "figure", "figcaption", "iframe")
	p.AllowAttrs("class").Matching(classValueRegex).OnElements("section", "div", "span", "code", "pre")
	p.AllowAttrs("src").Matching(youtubeEmbedRegex).OnElements("iframe")
	p.AllowAttrs("width", "height").Matching(bluemonday.Integer).OnElements("iframe")
	p.AllowAttrs("title", "frameborder", "allowfullscreen").OnElements("iframe")
	return p
}

// Prepare drops front matter and `@type` tags and expands `@youtube` directives into embeds.
func Prepare(markdown string) string {
	_, body := slide.SplitFrontMatter(markdown)
	return slide.MapLines(body, func(line string) (string, bool) {
		if _, ok := slide.TypeTag(line); ok {
			return "", false
		}
		if id, ok := slide.YouTubeDirective(line); ok {
			return "\n" + fmt.Sprintf(embedFormat, id) + "\n", true
		}
		return line, true
	})
}

// HTML renders slide markdown into sanitized HTML.
func (r *Renderer) HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(Prepare(markdown)), &buf); err != nil {
		return "", errors.Wrap(err, "converting markdown")
	}
	return r.policy.Sanitize(buf.String()), nil
}

// Sanitize cleans HTML with the preview policy.
func (r *Renderer) Sanitize(s string) string {
	return r.policy.Sanitize(s)
}

type documentSlide struct {
	Kind    string
	Path    string
	Content htmltmpl.HTML
}

type documentData struct {
	Title  string
	Slides []documentSlide
}

var documentTmpl = htmltmpl.Must(htmltmpl.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { margin: 0; font-family: system-ui, sans-serif; background: #f3f4f6; }
section.slide { box-sizing: border-box; width: 960px; min-height: 540px; margin: 24px auto; padding: 48px 64px; background: #fff; box-shadow: 0 1px 4px rgba(0,0,0,.15); page-break-after: always; }
section.slide.cover, section.slide.chapter { display: flex; flex-direction: column; justify-content: center; }
section.slide img { max-width: 100%; height: auto; }
@media print { body { background: #fff; } section.slide { margin: 0; box-shadow: none; } }
</style>
</head>
<body>
{{- range .Slides}}
<section class="slide {{.Kind}}" data-path="{{.Path}}">
{{.Content}}
</section>
{{- end}}
</body>
</html>
`))

// Document renders the slides into a standalone HTML deck, one <section> per slide.
func (r *Renderer) Document(title string, slides []slide.Slide) (string, error) {
	data := documentData{Title: title, Slides: make([]documentSlide, 0, len(slides))}
	for _, s := range slide.BuildIndex(slides) {
		content, err := r.HTML(s.Content)
		if err != nil {
			return "", errors.Wrapf(err, "rendering %s", s.Path)
		}
		data.Slides = append(data.Slides, documentSlide{
			Kind:    s.Kind,
			Path:    s.Path,
			Content: htmltmpl.HTML(content), // already sanitized
		})
	}

	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "executing document template")
	}
	return buf.String(), nil
}

// Terminal renders slide markdown for a terminal. style is a glamour standard style name ("dark", "light", "notty"...).
func Terminal(markdown string, width int, style string) (string, error) {
	if style == "" {
		style = "notty"
	}
	if width <= 0 {
		width = 80
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", errors.Wrap(err, "creating terminal renderer")
	}
	out, err := tr.Render(strings.TrimSpace(Prepare(markdown)))
	if err != nil {
		return "", errors.Wrap(err, "rendering markdown")
	}
	return out, nil
}
