package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/aiworkshop/slides/core/render"
	"github.com/aiworkshop/slides/core/slide"
	logsvc "github.com/aiworkshop/slides/services/logger"
	"github.com/aiworkshop/slides/storage/database"
	"github.com/aiworkshop/slides/tests"
)

var testSlides = map[string]string{
	"01-00-introduction.md": "# Introduction\n\nWelcome.\n",
	"01-01-what-is-ai.md":   "## What is AI?\n\n@youtube dQw4w9WgXcQ\n",
	"02-00.md":              "---\ntype: chapter\ntitle: Prompting\n---\n\n# Prompt basics\n",
	"02-01-exercise.md":     "@type: exercise\n## Write a prompt\n\n```\n---\n```\n",
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conf := testutil.NewConfig(t)
	logger := logsvc.NewNopLogger()
	testutil.WriteSlides(t, conf.Path(conf.Slides.Dir), testSlides)

	out := new(bytes.Buffer)
	return &commandLine{
		conf: conf,
		slideSvc: slide.NewService(slide.Options{
			Dir:       conf.Path(conf.Slides.Dir),
			OutputDir: conf.Path(conf.Slides.OutputDir),
			Marp:      slide.MarpOptions{Theme: conf.Slides.MarpTheme, Paginate: conf.Slides.Paginate},
		}, logger),
		renderer: render.NewRenderer(),
		logger:   logger,
		openDB: func() (*sqlx.DB, error) {
			return database.Open(conf)
		},
		out: out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"slidectl"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out.String(), want) {
					t.Errorf("cli.run() output = %q, want it to contain %q", out.String(), want)
				}
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: []string{"Usage:", "generate"}},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
		{name: "unexpected args", args: []string{"list", "lol"}, wantErrStr: "unknown command"},
	})
}

func Test_commandLine_generate(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "check before generate", args: []string{"generate", "--check"}, wantErr: errStale, wantOut: []string{"slides.json (generated)", "3 artifact(s) out of date"}},
		{name: "generate", args: []string{"generate"}, wantOut: []string{"wrote     slides.json", "wrote     sidebar.json", "wrote     toc.json", "4 slides in 2 chapters"}},
		{name: "generate again", args: []string{"generate"}, wantOut: []string{"unchanged slides.json", "unchanged toc.json"}},
		{name: "check after generate", args: []string{"generate", "--check"}, wantOut: []string{"slide data is up to date"}},
	})

	testutil.WriteSlides(t, cli.slideSvc.Dir(), map[string]string{"02-02-recap.md": "# Recap\n"})
	runCLITests(t, cli, out, []cliTest{
		{name: "check after edit", args: []string{"generate", "--check"}, wantErr: errStale, wantOut: []string{"02-02-recap.md"}},
	})
}

func Test_commandLine_list(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "list", args: []string{"list"}, wantOut: []string{
			"NUMBER",
			"chapter",
			"What is AI?",
			"Prompting",
			"exercise",
			"02-01-exercise.md",
		}},
	})
}

func Test_commandLine_marp(t *testing.T) {
	cli, out := setup(t)
	tmp := t.TempDir()
	deck := filepath.Join(tmp, "deck.marp.md")

	runCLITests(t, cli, out, []cliTest{
		{name: "merge to stdout", args: []string{"merge-marp"}, wantOut: []string{"marp: true", "<!-- _class: exercise -->", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}},
		{name: "merge to file", args: []string{"merge-marp", "-o", deck}, wantOut: []string{"wrote " + deck}},
		{name: "split: no args", args: []string{"split-marp"}, wantErrStr: "accepts 1 arg(s)"},
		{name: "split: missing deck", args: []string{"split-marp", filepath.Join(tmp, "nope.md")}, wantErrStr: "no such file"},
		{name: "split to dir", args: []string{"split-marp", deck, "-o", filepath.Join(tmp, "split")}, wantOut: []string{"wrote 01-00-introduction.md", "wrote 02-00-prompt-basics.md"}},
		{name: "split: existing slides", args: []string{"split-marp", deck, "-o", filepath.Join(tmp, "split")}, wantErrStr: "slides already exist", wantOut: []string{"use --force"}},
		{name: "split: force", args: []string{"split-marp", deck, "-o", filepath.Join(tmp, "split"), "--force"}, wantOut: []string{"wrote 02-01-write-a-prompt.md"}},
	})

	data, err := os.ReadFile(filepath.Join(tmp, "split", "02-01-write-a-prompt.md"))
	if err != nil {
		t.Fatalf("reading split slide: %v", err)
	}
	if !strings.HasPrefix(string(data), "@type: exercise\n") {
		t.Errorf("split slide = %q, want it to start with the exercise tag", data)
	}
}

func Test_commandLine_exportHTML(t *testing.T) {
	cli, out := setup(t)
	file := filepath.Join(t.TempDir(), "slides.html")

	runCLITests(t, cli, out, []cliTest{
		{name: "stdout", args: []string{"export-html"}, wantOut: []string{"<!DOCTYPE html>", `data-path="01-01-what-is-ai.md"`, "youtube-nocookie.com/embed/dQw4w9WgXcQ"}},
		{name: "file", args: []string{"export-html", "-o", file}, wantOut: []string{"wrote " + file}},
	})

	if _, err := os.Stat(file); err != nil {
		t.Errorf("export-html did not write %s: %v", file, err)
	}
}

func Test_commandLine_preview(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no args", args: []string{"preview"}, wantErrStr: "accepts 1 arg(s)"},
		{name: "invalid name", args: []string{"preview", "../etc/passwd"}, wantErrStr: slide.ErrInvalidName.Error()},
		{name: "not found", args: []string{"preview", "09-09.md"}, wantErr: slide.ErrNotFound},
		{name: "preview", args: []string{"preview", "01-00-introduction.md"}, wantOut: []string{"Introduction", "Welcome."}},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
	})
}

func Test_commandLine_migrate_memoryEngine(t *testing.T) {
	cli, out := setup(t)
	cli.conf.Database.Engine = database.EngineMemory

	called := false
	defer func(f func(context.Context, *sqlx.DB, string, ...string) error) { migrateFunc = f }(migrateFunc)
	migrateFunc = func(context.Context, *sqlx.DB, string, ...string) error {
		called = true
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "up", args: []string{"migrate", "up"}, wantErr: database.ErrMemoryEngine},
	})
	if called {
		t.Error("migrate ran against the memory engine")
	}
}
