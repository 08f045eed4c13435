package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/render"
	"github.com/aiworkshop/slides/core/slide"
	logsvc "github.com/aiworkshop/slides/services/logger"
	"github.com/aiworkshop/slides/storage/database"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(false)

	cli := commandLine{
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
		out: os.Stdout,
	}
	err = cli.run(os.Args)
	logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
