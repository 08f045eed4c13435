package slide

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	separatorRegex = regexp.MustCompile(`^---\s*$`)
	classRegex     = regexp.MustCompile(`^\s*<!--\s*_?class\s*:\s*([A-Za-z][\w-]*)\s*-->\s*$`)
)

type MarpOptions struct {
	Theme    string
	Paginate bool
	Size     string // eg. 16:9
	Header   string
	Footer   string
}

type marpFrontMatter struct {
	Marp     bool   `yaml:"marp"`
	Theme    string `yaml:"theme,omitempty"`
	Paginate bool   `yaml:"paginate,omitempty"`
	Size     string `yaml:"size,omitempty"`
	Header   string `yaml:"header,omitempty"`
	Footer   string `yaml:"footer,omitempty"`
}

// Merge concatenates slides into a single Marp deck.
// Per-slide front matter is dropped, `@type` tags become `_class` directives
// and `@youtube` directives become plain links.
func Merge(slides []Slide, opts MarpOptions) (string, error) {
	fm, err := yaml.Marshal(marpFrontMatter{
		Marp:     true,
		Theme:    opts.Theme,
		Paginate: opts.Paginate,
		Size:     opts.Size,
		Header:   opts.Header,
		Footer:   opts.Footer,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshalling marp front matter")
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n")

	for i, s := range BuildIndex(slides) {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString("\n")
		b.WriteString(marpBody(s))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func marpBody(s Slide) string {
	body := MapLines(s.Body, func(line string) (string, bool) {
		if kind, ok := TypeTag(line); ok {
			return classDirective(kind), true
		}
		if m := youtubeRegex.FindStringSubmatch(line); m != nil {
			if id, ok := YouTubeID(m[1]); ok {
				return fmt.Sprintf("[YouTube video](https://www.youtube.com/watch?v=%s)", id), true
			}
			return line, true
		}
		if separatorRegex.MatchString(line) {
			// a thematic break would split the slide in Marp
			return "***", true
		}
		return line, true
	})
	if kind, _ := s.FrontMatter["type"].(string); kind != "" {
		body = classDirective(kind) + "\n" + body
	}
	return strings.Trim(body, "\n")
}

func classDirective(kind string) string {
	return "<!-- _class: " + strings.ToLower(strings.TrimSpace(kind)) + " -->"
}

// Split cuts a Marp deck back into slide files.
// A slide whose first heading is level 1 starts a new chapter at section 0;
// any other slide becomes the next section of the current chapter.
func Split(deck string) ([]File, error) {
	_, body := SplitFrontMatter(deck)

	chunks := make([]string, 0)
	var cur []string
	inFence := false
	fence := ""
	flush := func() {
		chunk := strings.Trim(strings.Join(cur, "\n"), "\n")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(body, "\n") {
		if f, ok := fenceMarker(line); ok {
			if !inFence {
				inFence, fence = true, f
			} else if strings.HasPrefix(strings.TrimSpace(line), fence) {
				inFence = false
			}
		} else if !inFence && separatorRegex.MatchString(line) {
			flush()
			continue
		}
		if !inFence {
			if m := classRegex.FindStringSubmatch(line); m != nil {
				line = "@type: " + strings.ToLower(m[1])
			}
		}
		cur = append(cur, line)
	}
	if inFence {
		return nil, errors.New("unterminated code fence in deck")
	}
	flush()

	files := make([]File, 0, len(chunks))
	chapter, section := 0, 0
	for _, chunk := range chunks {
		level, title := firstHeading(chunk)
		if level == 1 || chapter == 0 {
			chapter++
			section = 0
		} else {
			section++
		}
		if chapter > 999 || section > 999 {
			return nil, errors.New("deck has too many slides")
		}

		name := fmt.Sprintf("%02d-%02d", chapter, section)
		if slug := Slugify(title, 40); slug != "" {
			name += "-" + slug
		}
		files = append(files, File{Name: name + ".md", Content: chunk + "\n"})
	}
	return files, nil
}

func firstHeading(chunk string) (int, string) {
	inFence := false
	for _, line := range strings.Split(chunk, "\n") {
		if _, ok := fenceMarker(line); ok {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingRegex.FindStringSubmatch(line); m != nil {
			return len(m[1]), cleanInline(m[2])
		}
	}
	return 0, ""
}
