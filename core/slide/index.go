package slide

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Sort orders slides by chapter, section then path.
func Sort(slides []Slide) {
	sort.SliceStable(slides, func(i, j int) bool {
		a, b := slides[i], slides[j]
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		return a.Path < b.Path
	})
}

// BuildIndex returns a sorted copy of the slide records.
func BuildIndex(slides []Slide) []Slide {
	index := make([]Slide, len(slides))
	copy(index, slides)
	Sort(index)
	return index
}

// BuildSidebar groups the slides per chapter.
// A chapter is titled after its section 0 slide, or "Chapter N" when there is none.
func BuildSidebar(slides []Slide) []SidebarChapter {
	chapters := make([]SidebarChapter, 0)
	titled := false
	for _, s := range BuildIndex(slides) {
		if n := len(chapters); n == 0 || chapters[n-1].Chapter != s.Chapter {
			chapters = append(chapters, SidebarChapter{
				Chapter: s.Chapter,
				Title:   fmt.Sprintf("Chapter %d", s.Chapter),
				Slides:  make([]SidebarSlide, 0),
			})
			titled = false
		}
		ch := &chapters[len(chapters)-1]
		if s.Section == 0 && !titled {
			ch.Title = s.Title
			titled = true
		}
		ch.Slides = append(ch.Slides, SidebarSlide{
			Section: s.Section,
			Title:   s.Title,
			Path:    s.Path,
			Kind:    s.Kind,
		})
	}
	return chapters
}

// BuildTOC flattens the sidebar into numbered entries:
// one level 1 entry per chapter followed by level 2 entries for its non-zero sections.
func BuildTOC(slides []Slide) []TOCEntry {
	toc := make([]TOCEntry, 0)
	for _, ch := range BuildSidebar(slides) {
		entry := TOCEntry{
			Number: strconv.Itoa(ch.Chapter),
			Title:  ch.Title,
			Path:   ch.Slides[0].Path,
			Level:  1,
		}
		toc = append(toc, entry)
		for _, s := range ch.Slides {
			if s.Section == 0 {
				continue
			}
			toc = append(toc, TOCEntry{
				Number: fmt.Sprintf("%d.%d", ch.Chapter, s.Section),
				Title:  s.Title,
				Path:   s.Path,
				Level:  2,
			})
		}
	}
	return toc
}

// BuildArtifacts renders every generated artifact, keyed by file name.
func BuildArtifacts(slides []Slide) (map[string][]byte, error) {
	index := BuildIndex(slides)
	artifacts := make(map[string][]byte, 3)
	for name, v := range map[string]interface{}{
		IndexFile:   index,
		SidebarFile: BuildSidebar(index),
		TOCFile:     BuildTOC(index),
	} {
		data, err := marshalArtifact(v)
		if err != nil {
			return nil, errors.Wrapf(err, "marshalling %s", name)
		}
		artifacts[name] = data
	}
	return artifacts, nil
}

// ArtifactNames lists the artifacts in a stable order.
func ArtifactNames() []string {
	return []string{IndexFile, SidebarFile, TOCFile}
}

func marshalArtifact(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
