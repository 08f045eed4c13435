package slide

import (
	"time"

	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
)

// Kinds set with an `@type` tag or a front matter `type` key.
const (
	KindCover    = "cover"
	KindChapter  = "chapter"
	KindContent  = "content"
	KindExercise = "exercise"
	KindQuiz     = "quiz"
	KindVideo    = "video"
	KindSummary  = "summary"
)

// Artifact file names, relative to the output directory.
const (
	IndexFile   = "slides.json"
	SidebarFile = "sidebar.json"
	TOCFile     = "toc.json"
)

var (
	Kinds = []string{KindCover, KindChapter, KindContent, KindExercise, KindQuiz, KindVideo, KindSummary}

	// errors
	ErrNotFound     = core.NewNotFoundError("slide not found")
	ErrInvalidName  = errors.New("slide names must look like CC-SS[-slug].md")
	ErrInvalidAsset = errors.New("unsupported asset")
)

// Slide is the metadata record derived from one markdown file.
type Slide struct {
	Chapter int      `json:"chapter"`
	Section int      `json:"section"`
	Title   string   `json:"title"`
	Path    string   `json:"path"` // slash-separated, relative to the slide directory
	Kind    string   `json:"kind"`
	Images  []string `json:"images,omitempty"`
	Videos  []string `json:"videos,omitempty"`

	Content     string                 `json:"-"` // raw file content
	Body        string                 `json:"-"` // content without front matter
	FrontMatter map[string]interface{} `json:"-"`
}

// Document is a slide with its source, as served to the editor.
type Document struct {
	Slide
	Content string `json:"content"`
}

type SidebarSlide struct {
	Section int    `json:"section"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Kind    string `json:"kind"`
}

type SidebarChapter struct {
	Chapter int            `json:"chapter"`
	Title   string         `json:"title"`
	Slides  []SidebarSlide `json:"slides"`
}

type TOCEntry struct {
	Number string `json:"number"` // "C" or "C.S"
	Title  string `json:"title"`
	Path   string `json:"path"`
	Level  int    `json:"level"`
}

// Manifest summarizes an update run.
type Manifest struct {
	Slides      int       `json:"slides"`
	Chapters    int       `json:"chapters"`
	Written     []string  `json:"written"`
	Unchanged   []string  `json:"unchanged"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Drift is a stale artifact found by Check.
type Drift struct {
	Artifact string `json:"artifact"`
	Diff     string `json:"diff"`
}

// File is a named markdown source, as produced by Split.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
