package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	phototagger "github.com/rattadan/AI-Photo-tagger"
	"github.com/rattadan/AI-Photo-tagger/describer"
	"github.com/schollz/progressbar/v3"
)

var dbPath = flag.String("db", "", "Optional path to an annotation log database")

func usage() {
	fmt.Printf("Usage: %s [flags] <folder>\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

func run(ctx context.Context, root string) error {
	pt := phototagger.Init(phototagger.InitOptions{
		HttpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	})

	if !pt.IsHealthy() {
		return fmt.Errorf("server is not responding")
	}

	var db *phototagger.DB
	if *dbPath != "" {
		var err error
		if db, err = phototagger.NewDB(ctx, *dbPath); err != nil {
			return err
		}
		defer db.Close()
	}

	images, err := phototagger.FindImages(root)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d images on disk\nUsing describer %s model %s\n", len(images), pt.Name(), pt.Model())

	bar := progressbar.NewOptions(
		len(images),
		progressbar.OptionSetDescription("Annotating"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)

	a := phototagger.NewAnnotator(pt.Describer, db)

	var annotated, skipped, failed int
	for _, path := range images {
		switch err := a.ProcessFile(ctx, path); {
		case err == nil:
			annotated++
		case errors.Is(err, describer.ErrNoText):
			skipped++
		default:
			log.Print(err)
			failed++
		}

		bar.Add(1)
	}
	bar.Finish()

	fmt.Printf("%d annotated, %d without captions, %d failed\n", annotated, skipped, failed)

	return nil
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	root := flag.Arg(0)
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		fmt.Printf("%s is not a valid directory\n", root)
		os.Exit(1)
	}

	if err := run(context.Background(), root); err != nil {
		log.Fatal(err)
	}
}
