package slide

import (
	"bytes"
	"context"
	"encoding/base64"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"github.com/aiworkshop/slides/core"
)

const AssetsDir = "assets"

var (
	assetExts      = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true}
	assetNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	dataURLRegex   = regexp.MustCompile(`^data:image/([a-z+]+);base64,`)

	nowFunc = time.Now // mockable
)

type Options struct {
	Dir       string // slide sources
	OutputDir string // generated artifacts
	Marp      MarpOptions
}

type Service struct {
	opts   Options
	logger core.Logger
	mu     sync.Mutex // serializes writes to the slide dir and the artifacts
}

func NewService(opts Options, logger core.Logger) *Service {
	return &Service{opts: opts, logger: logger}
}

func (svc *Service) Dir() string       { return svc.opts.Dir }
func (svc *Service) OutputDir() string { return svc.opts.OutputDir }

// resolve validates a slide name relative to the slide dir and returns its cleaned form and OS path.
func (svc *Service) resolve(name string) (string, string, error) {
	name = path.Clean(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || strings.HasPrefix(name, "/") || strings.HasPrefix(name, "../") || name == ".." {
		return "", "", invalidName()
	}
	if !IsSlideName(name) {
		return "", "", invalidName()
	}
	return name, filepath.Join(svc.opts.Dir, filepath.FromSlash(name)), nil
}

func invalidName() error {
	return core.NewValidationError(ErrInvalidName, core.FieldError{Field: "name", Error: ErrInvalidName.Error()})
}

// listFiles walks the slide dir and returns the slash-separated relative paths of slide files.
func (svc *Service) listFiles() ([]string, error) {
	var names []string
	err := filepath.WalkDir(svc.opts.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != svc.opts.Dir && (d.Name() == AssetsDir || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSlideName(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(svc.opts.Dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "walking slide directory")
	}
	return names, nil
}

// Scan reads and parses every slide of the slide directory, sorted by chapter and section.
func (svc *Service) Scan(ctx context.Context) ([]Slide, error) {
	names, err := svc.listFiles()
	if err != nil {
		return nil, err
	}

	slides := make([]Slide, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(svc.opts.Dir, filepath.FromSlash(name)))
			if err != nil {
				return errors.Wrapf(err, "reading %s", name)
			}
			slides[i], _ = Parse(name, string(data))
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	Sort(slides)
	return slides, nil
}

func (svc *Service) Get(name string) (Document, error) {
	name, fp, err := svc.resolve(name)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, ErrNotFound
		}
		return Document{}, errors.Wrapf(err, "reading %s", name)
	}
	s, _ := Parse(name, string(data))
	return Document{Slide: s, Content: s.Content}, nil
}

// Save creates or replaces a slide.
func (svc *Service) Save(name, content string) (Document, error) {
	name, fp, err := svc.resolve(name)
	if err != nil {
		return Document{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err = core.WriteFileAtomic(fp, []byte(content), 0o644); err != nil {
		return Document{}, errors.Wrapf(err, "writing %s", name)
	}
	s, _ := Parse(name, content)
	svc.logger.Info("slide saved", map[string]interface{}{"path": name})
	return Document{Slide: s, Content: content}, nil
}

func (svc *Service) Delete(name string) error {
	name, fp, err := svc.resolve(name)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err = os.Remove(fp); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "removing %s", name)
	}
	svc.logger.Info("slide deleted", map[string]interface{}{"path": name})
	return nil
}

// Import writes split deck files into the slide dir.
// Existing slides are only replaced when overwrite is set.
func (svc *Service) Import(files []File, overwrite bool) ([]string, error) {
	resolved := make([]string, 0, len(files))
	var conflicts []core.FieldError
	for _, f := range files {
		name, fp, err := svc.resolve(f.Name)
		if err != nil {
			return nil, err
		}
		if !overwrite {
			if _, err = os.Stat(fp); err == nil {
				conflicts = append(conflicts, core.FieldError{Field: name, Error: "slide already exists"})
			}
		}
		resolved = append(resolved, fp)
	}
	if len(conflicts) > 0 {
		return nil, core.NewValidationError(errors.New("slides already exist"), conflicts...)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	written := make([]string, 0, len(files))
	for i, f := range files {
		if err := core.WriteFileAtomic(resolved[i], []byte(f.Content), 0o644); err != nil {
			return written, errors.Wrapf(err, "writing %s", f.Name)
		}
		written = append(written, f.Name)
	}
	svc.logger.Info("slides imported", map[string]interface{}{"count": len(written)})
	return written, nil
}

// SaveAsset stores an image under the assets dir and returns its slide-relative path.
func (svc *Service) SaveAsset(name string, data []byte) (string, error) {
	name = strings.TrimSpace(name)
	ext := strings.ToLower(filepath.Ext(name))
	if !assetNameRegex.MatchString(name) || !assetExts[ext] {
		return "", core.NewValidationError(ErrInvalidAsset, core.FieldError{Field: "name", Error: "unsupported image name or extension"})
	}
	if len(data) == 0 {
		return "", core.NewValidationError(ErrInvalidAsset, core.FieldError{Field: "data", Error: "image is empty"})
	}

	rel := path.Join(AssetsDir, name)
	if err := core.WriteFileAtomic(filepath.Join(svc.opts.Dir, filepath.FromSlash(rel)), data, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", rel)
	}
	return rel, nil
}

// SaveDataURL decodes a base64 payload, with or without a data:image/...;base64, prefix, and saves it.
func (svc *Service) SaveDataURL(name, payload string) (string, error) {
	if loc := dataURLRegex.FindStringIndex(payload); loc != nil {
		payload = payload[loc[1]:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", core.NewValidationError(ErrInvalidAsset, core.FieldError{Field: "data", Error: "invalid base64 content"})
	}
	return svc.SaveAsset(name, data)
}

// Update re-scans the slide dir and rewrites the artifacts whose content changed.
func (svc *Service) Update(ctx context.Context) (Manifest, error) {
	slides, err := svc.Scan(ctx)
	if err != nil {
		return Manifest{}, errors.Wrap(err, "scanning slides")
	}
	artifacts, err := BuildArtifacts(slides)
	if err != nil {
		return Manifest{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	m := Manifest{
		Slides:      len(slides),
		Chapters:    len(BuildSidebar(slides)),
		Written:     make([]string, 0, len(artifacts)),
		Unchanged:   make([]string, 0, len(artifacts)),
		GeneratedAt: nowFunc().UTC(),
	}
	for _, name := range ArtifactNames() {
		fp := filepath.Join(svc.opts.OutputDir, name)
		if current, err := os.ReadFile(fp); err == nil && bytes.Equal(current, artifacts[name]) {
			m.Unchanged = append(m.Unchanged, name)
			continue
		}
		if err = core.WriteFileAtomic(fp, artifacts[name], 0o644); err != nil {
			return Manifest{}, errors.Wrapf(err, "writing %s", name)
		}
		m.Written = append(m.Written, name)
	}

	svc.logger.Info("slide artifacts updated", map[string]interface{}{
		"slides":  m.Slides,
		"written": strings.Join(m.Written, ","),
	})
	return m, nil
}

// Check regenerates the artifacts in memory and reports the ones that are stale on disk.
func (svc *Service) Check(ctx context.Context) ([]Drift, error) {
	slides, err := svc.Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "scanning slides")
	}
	artifacts, err := BuildArtifacts(slides)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, name := range ArtifactNames() {
		current, err := os.ReadFile(filepath.Join(svc.opts.OutputDir, name))
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		if bytes.Equal(current, artifacts[name]) {
			continue
		}
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(current)),
			B:        difflib.SplitLines(string(artifacts[name])),
			FromFile: name + " (on disk)",
			ToFile:   name + " (generated)",
			Context:  2,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "diffing %s", name)
		}
		drifts = append(drifts, Drift{Artifact: name, Diff: diff})
	}
	return drifts, nil
}

// Deck merges all slides into a Marp deck.
func (svc *Service) Deck(ctx context.Context) (string, error) {
	slides, err := svc.Scan(ctx)
	if err != nil {
		return "", errors.Wrap(err, "scanning slides")
	}
	return Merge(slides, svc.opts.Marp)
}
