package slide

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

var (
	nameRegex      = regexp.MustCompile(`^(\d{1,3})[-_](\d{1,3})(?:[-_]([A-Za-z0-9][A-Za-z0-9_-]*))?\.md$`)
	headingRegex   = regexp.MustCompile(`^(#{1,3})\s+(.+?)\s*#*\s*$`)
	typeTagRegex   = regexp.MustCompile(`^\s*(?:<!--\s*)?@type(?:\s*:\s*|\s+)([A-Za-z][\w-]*)\s*(?:-->)?\s*$`)
	youtubeRegex   = regexp.MustCompile(`^\s*@youtube(?:\s*:\s*|\s+)(\S+)\s*$`)
	imageRegex     = regexp.MustCompile(`!\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)
	htmlImageRegex = regexp.MustCompile(`<img\s[^>]*src\s*=\s*["']([^"']+)["']`)
	linkRegex      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	youtubeIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ParseName extracts the chapter and section numbers (and optional slug) from a slide file name.
func ParseName(name string) (chapter, section int, slug string, ok bool) {
	m := nameRegex.FindStringSubmatch(path.Base(name))
	if m == nil {
		return 0, 0, "", false
	}
	chapter, _ = strconv.Atoi(m[1])
	section, _ = strconv.Atoi(m[2])
	return chapter, section, m[3], true
}

// IsSlideName reports whether name follows the CC-SS[-slug].md convention.
func IsSlideName(name string) bool {
	_, _, _, ok := ParseName(name)
	return ok
}

// Parse derives the metadata record of the slide at relPath from its content.
// relPath must follow the naming convention; ok is false otherwise.
func Parse(relPath, content string) (Slide, bool) {
	chapter, section, slug, ok := ParseName(relPath)
	if !ok {
		return Slide{}, false
	}

	fm, body := SplitFrontMatter(content)
	s := Slide{
		Chapter:     chapter,
		Section:     section,
		Path:        relPath,
		Content:     content,
		Body:        body,
		FrontMatter: fm,
	}

	var tagKind string
	inFence := false
	fence := ""
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if f, ok := fenceMarker(line); ok {
			if !inFence {
				inFence, fence = true, f
			} else if strings.HasPrefix(strings.TrimSpace(line), fence) {
				inFence = false
			}
			continue
		}
		if inFence {
			continue
		}

		if s.Title == "" {
			if m := headingRegex.FindStringSubmatch(line); m != nil {
				s.Title = cleanInline(m[2])
				continue
			}
			if m := typeTagRegex.FindStringSubmatch(line); m != nil && tagKind == "" {
				tagKind = strings.ToLower(m[1])
				continue
			}
		}
		if m := youtubeRegex.FindStringSubmatch(line); m != nil {
			if id, ok := YouTubeID(m[1]); ok {
				s.Videos = appendUnique(s.Videos, id)
			}
			continue
		}
		for _, m := range imageRegex.FindAllStringSubmatch(line, -1) {
			s.Images = appendUnique(s.Images, m[1])
		}
		for _, m := range htmlImageRegex.FindAllStringSubmatch(line, -1) {
			s.Images = appendUnique(s.Images, m[1])
		}
	}

	if title, ok := fm["title"].(string); ok && strings.TrimSpace(title) != "" {
		s.Title = strings.TrimSpace(title)
	}
	if s.Title == "" && slug != "" {
		s.Title = Humanize(slug)
	}
	if s.Title == "" {
		s.Title = fmt.Sprintf("Chapter %d.%d", chapter, section)
	}

	switch kind, _ := fm["type"].(string); {
	case strings.TrimSpace(kind) != "":
		s.Kind = strings.ToLower(strings.TrimSpace(kind))
	case tagKind != "":
		s.Kind = tagKind
	case section == 0:
		s.Kind = KindChapter
	default:
		s.Kind = KindContent
	}
	return s, true
}

// SplitFrontMatter separates a leading YAML front matter block from the body.
// Content that does not start with a YAML mapping between `---` lines is returned untouched.
func SplitFrontMatter(content string) (map[string]interface{}, string) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return nil, normalized
	}
	rest := normalized[len("---\n"):]

	end, next := -1, -1
	offset := 0
	for _, line := range strings.SplitAfter(rest, "\n") {
		trimmed := strings.TrimRight(line, "\n")
		if trimmed == "---" || trimmed == "..." {
			end, next = offset, offset+len(line)
			break
		}
		offset += len(line)
	}
	if end < 0 {
		return nil, normalized
	}

	fm := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil || len(fm) == 0 {
		return nil, normalized
	}
	return fm, strings.TrimLeft(rest[next:], "\n")
}

// YouTubeID extracts a video id from a bare id or a youtube.com / youtu.be URL.
func YouTubeID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if youtubeIDRegex.MatchString(ref) {
		return ref, true
	}
	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	}
	id = strings.SplitN(id, "/", 2)[0]
	if youtubeIDRegex.MatchString(id) {
		return id, true
	}
	return "", false
}

// Humanize turns a file slug into a title: "what-is_ai" -> "What is ai".
func Humanize(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	if len(words) == 0 {
		return ""
	}
	s := strings.Join(words, " ")
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Slugify turns a title into a file slug: "What is AI?" -> "what-is-ai".
func Slugify(title string, maxLen int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	return slug
}

func cleanInline(s string) string {
	s = linkRegex.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("*", "", "`", "").Replace(s)
	return strings.TrimSpace(stripUnderscores(s))
}

// stripUnderscores drops `_` emphasis delimiters but keeps underscores inside words (snake_case).
func stripUnderscores(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	rs := []rune(s)
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	var b strings.Builder
	for i := 0; i < len(rs); i++ {
		if rs[i] != '_' {
			b.WriteRune(rs[i])
			continue
		}
		j := i
		for j < len(rs) && rs[j] == '_' {
			j++
		}
		if i > 0 && isWord(rs[i-1]) && j < len(rs) && isWord(rs[j]) {
			b.WriteString(string(rs[i:j]))
		}
		i = j - 1
	}
	return b.String()
}

func fenceMarker(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```", true
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~", true
	}
	return "", false
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

// MapLines applies fn to every line of body that is outside a fenced code block.
// Lines for which fn returns keep=false are dropped.
func MapLines(body string, fn func(line string) (out string, keep bool)) string {
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	fence := ""
	for _, line := range lines {
		if f, ok := fenceMarker(line); ok {
			if !inFence {
				inFence, fence = true, f
			} else if strings.HasPrefix(strings.TrimSpace(line), fence) {
				inFence = false
			}
			out = append(out, line)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		if l, keep := fn(line); keep {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// TypeTag returns the kind named by an `@type` line.
func TypeTag(line string) (string, bool) {
	if m := typeTagRegex.FindStringSubmatch(line); m != nil {
		return strings.ToLower(m[1]), true
	}
	return "", false
}

// YouTubeDirective returns the video id of an `@youtube` line.
func YouTubeDirective(line string) (string, bool) {
	if m := youtubeRegex.FindStringSubmatch(line); m != nil {
		return YouTubeID(m[1])
	}
	return "", false
}
