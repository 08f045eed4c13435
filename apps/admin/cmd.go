package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/render"
	"github.com/aiworkshop/slides/core/slide"
)

var (
	errHelp  = errors.New("help provided")
	errStale = errors.New("generated slide data is out of date")
)

type commandLine struct {
	conf     *core.Config
	slideSvc *slide.Service
	renderer *render.Renderer
	logger   core.Logger
	openDB   func() (*sqlx.DB, error)
	out      io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slidectl",
		Short:         "Manage the workshop slides and their generated data",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.generateCmd(),
		cli.listCmd(),
		cli.mergeMarpCmd(),
		cli.splitMarpCmd(),
		cli.exportHTMLCmd(),
		cli.previewCmd(),
		cli.migrateCmd(),
	)
	return root
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.ExecuteContext(context.Background())
}

func (cli *commandLine) generateCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate the slide index, sidebar and table of contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if check {
				return cli.check(cmd.Context())
			}
			m, err := cli.slideSvc.Update(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range m.Written {
				fmt.Fprintf(cli.out, "wrote     %s\n", name)
			}
			for _, name := range m.Unchanged {
				fmt.Fprintf(cli.out, "unchanged %s\n", name)
			}
			fmt.Fprintf(cli.out, "%d slides in %d chapters\n", m.Slides, m.Chapters)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "report stale artifacts without writing them")
	return cmd
}

func (cli *commandLine) check(ctx context.Context) error {
	drifts, err := cli.slideSvc.Check(ctx)
	if err != nil {
		return err
	}
	if len(drifts) == 0 {
		fmt.Fprintln(cli.out, "slide data is up to date")
		return nil
	}
	for _, d := range drifts {
		fmt.Fprint(cli.out, d.Diff)
	}
	fmt.Fprintf(cli.out, "%d artifact(s) out of date, run `slidectl generate`\n", len(drifts))
	return errStale
}

func (cli *commandLine) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the slides in presentation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slides, err := cli.slideSvc.Scan(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NUMBER\tKIND\tTITLE\tPATH")
			for _, s := range slides {
				fmt.Fprintf(w, "%d.%d\t%s\t%s\t%s\n", s.Chapter, s.Section, s.Kind, s.Title, s.Path)
			}
			return w.Flush()
		},
	}
}

// output writes data to file, or to the command output when file is empty.
func (cli *commandLine) output(file string, data []byte) error {
	if file == "" {
		_, err := cli.out.Write(data)
		return err
	}
	if err := core.WriteFileAtomic(file, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "wrote %s\n", file)
	return nil
}

func (cli *commandLine) mergeMarpCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "merge-marp",
		Short: "Merge every slide into a single Marp deck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := cli.slideSvc.Deck(cmd.Context())
			if err != nil {
				return err
			}
			return cli.output(file, []byte(deck))
		},
	}
	cmd.Flags().StringVarP(&file, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (cli *commandLine) splitMarpCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "split-marp DECK",
		Short: "Split a Marp deck into slide files (DECK may be - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			files, err := slide.Split(string(data))
			if err != nil {
				return err
			}

			svc := cli.slideSvc
			if dir != "" {
				svc = slide.NewService(slide.Options{Dir: dir}, cli.logger)
			}
			written, err := svc.Import(files, force)
			if err != nil {
				var verr *core.ValidationError
				if errors.As(err, &verr) {
					for _, fe := range verr.Fields {
						fmt.Fprintf(cli.out, "%s: %s\n", fe.Field, fe.Error)
					}
					fmt.Fprintln(cli.out, "use --force to overwrite existing slides")
				}
				return err
			}
			for _, name := range written {
				fmt.Fprintf(cli.out, "wrote %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", "", "output directory (default: the slide directory)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing slides")
	return cmd
}

func (cli *commandLine) exportHTMLCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export-html",
		Short: "Export every slide into a standalone HTML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slides, err := cli.slideSvc.Scan(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := cli.renderer.Document(cli.conf.AppName, slides)
			if err != nil {
				return err
			}
			return cli.output(file, []byte(doc))
		},
	}
	cmd.Flags().StringVarP(&file, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (cli *commandLine) previewCmd() *cobra.Command {
	var (
		width int
		style string
	)
	cmd := &cobra.Command{
		Use:   "preview NAME",
		Short: "Render a slide in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := cli.slideSvc.Get(args[0])
			if err != nil {
				return err
			}
			out, err := render.Terminal(doc.Content, width, style)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cli.out, out)
			return err
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 80, "word wrap width")
	cmd.Flags().StringVar(&style, "style", "notty", "glamour style (dark, light, notty...)")
	return cmd
}
