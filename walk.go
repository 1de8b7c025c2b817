package phototagger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karrick/godirwalk"

	"github.com/rattadan/AI-Photo-tagger/describer"
)

// Extensions of files the walker will annotate, lower case.
var supportedExtensions = []string{".jpg", ".jpeg", ".png"}

// IsSupportedImage reports whether path has a supported image extension.
// The comparison is case-insensitive.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range supportedExtensions {
		if ext == s {
			return true
		}
	}

	return false
}

// FindImages recursively enumerates the annotatable images under root.
// Dot-directories are not descended into.
func FindImages(root string) ([]string, error) {
	var images []string

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if path != root && strings.HasPrefix(de.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}

			if IsSupportedImage(path) {
				images = append(images, path)
			}

			return nil
		},
		Unsorted: true,
	})

	return images, err
}

// Annotator drives per-file annotation: two model requests followed by a
// format specific metadata write.
type Annotator struct {
	d  describer.Describer
	db *DB // optional annotation log, may be nil
}

func NewAnnotator(d describer.Describer, db *DB) *Annotator {
	return &Annotator{d: d, db: db}
}

// Stats summarizes a folder run.
type Stats struct {
	Found     int
	Annotated int
	Skipped   int // no caption produced
	Failed    int // read or write errors
}

// ProcessFile annotates a single image in place. A caption and keywords
// are requested unconditionally, independent of each other's outcome. If
// no caption was produced the file is left untouched, keywords included,
// and ProcessFile returns describer.ErrNoText. Keywords are optional: a
// caption without keywords still gets written.
func (a *Annotator) ProcessFile(ctx context.Context, path string) error {
	imgdata, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	caption, err := a.d.Caption(ctx, imgdata)
	if err != nil {
		log.Printf("no caption for %s: %v", path, err)
	}
	keywords, kerr := a.d.Keywords(ctx, imgdata)
	if kerr != nil {
		log.Printf("no keywords for %s: %v", path, kerr)
	}

	if err != nil || caption == "" {
		return fmt.Errorf("%s: %w", path, describer.ErrNoText)
	}

	var werr error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		werr = WriteJPEGMetadata(path, caption, keywords)
	case ".png":
		werr = WritePNGMetadata(path, caption, keywords)
	}
	if werr != nil {
		return fmt.Errorf("write metadata for %s: %w", path, werr)
	}

	log.Printf("caption %s: %s", path, caption)
	if keywords != "" {
		log.Printf("keywords %s: %s", path, keywords)
	}

	if a.db != nil {
		if _, err := a.db.RecordAnnotation(ctx, path, caption, keywords, a.d.Model(), time.Now()); err != nil {
			log.Printf("annotation log: %v", err)
		}
	}

	return nil
}

// ProcessFolder annotates every supported image under root, one file at a
// time. A failure on one file never halts the walk.
func (a *Annotator) ProcessFolder(ctx context.Context, root string) (Stats, error) {
	images, err := FindImages(root)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Found: len(images)}
	for _, path := range images {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		switch err := a.ProcessFile(ctx, path); {
		case err == nil:
			stats.Annotated++
		case errors.Is(err, describer.ErrNoText):
			stats.Skipped++
		default:
			log.Print(err)
			stats.Failed++
		}
	}

	return stats, nil
}
