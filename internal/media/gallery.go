package media

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
)

const (
	promptsFile  = "prompts.txt"
	errorsFile   = "errors.txt"
	galleryFile  = "gallery.html"
	defaultTheme = "Story"
)

const (
	promptEntryFormat = "Image %d:\n%s\nURL: %s\n\n"
	errorEntryFormat  = "Failed to download image %d:\nURL: %s\nError: %s\n\n"
)

var galleryTemplate = template.Must(template.New(galleryFile).Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Theme}} - Image Gallery</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 1200px; margin: 0 auto; padding: 20px; }
        .theme { margin-bottom: 20px; color: #666; }
        .image-container { margin-bottom: 30px; }
        img { max-width: 100%; height: auto; border-radius: 8px; }
        .prompt { margin-top: 10px; padding: 10px; background: #f5f5f5; border-radius: 4px; }
    </style>
</head>
<body>
    <h1>Generated Images</h1>
    <div class="theme">Theme: {{.Theme}}</div>
{{- range .Images}}
    <div class="image-container">
        <img src="{{.Filename}}" alt="Generated image {{.Number}}">
        <div class="prompt">
            <strong>Prompt {{.Number}}:</strong><br>
            {{.Prompt}}
        </div>
    </div>
{{- end}}
</body>
</html>
`))

// ImageRecord is one generated image to persist.
type ImageRecord struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// ImageBatchResult summarises a persisted batch.
type ImageBatchResult struct {
	Directory   string
	TotalImages int
	Saved       int
	Failed      int
}

type galleryEntry struct {
	Number   int
	Filename string
	Prompt   string
}

// ImageFilename returns the zero-padded file name of the 1-based image n.
func ImageFilename(n int) string {
	return fmt.Sprintf("image-%03d.webp", n)
}

// PersistImageBatch downloads every image into dir. Successful downloads get
// an entry in prompts.txt; failures go to errors.txt and never stop the batch.
// gallery.html lists every input slot, including ones whose download failed.
func PersistImageBatch(
	ctx context.Context,
	fetcher core.Fetcher,
	images []ImageRecord,
	theme, dir string,
	log *logger.Logger,
) (*ImageBatchResult, error) {
	if len(images) == 0 {
		return nil, core.NewValidationError("images", "No images to download")
	}

	if strings.TrimSpace(theme) == "" {
		theme = defaultTheme
	}

	result := &ImageBatchResult{Directory: dir, TotalImages: len(images)}
	entries := make([]galleryEntry, 0, len(images))

	for i, image := range images {
		number := i + 1
		filename := ImageFilename(number)
		entries = append(entries, galleryEntry{Number: number, Filename: filename, Prompt: image.Prompt})

		log.Info("Downloading image %d/%d from %s", number, len(images), image.URL)

		err := DownloadToFile(ctx, fetcher, image.URL, filepath.Join(dir, filename))
		if err != nil {
			log.Error("Error downloading image %d: %v", number, err)
			result.Failed++

			appendErr := appendFile(filepath.Join(dir, errorsFile), fmt.Sprintf(errorEntryFormat, number, image.URL, err))
			if appendErr != nil {
				return nil, appendErr
			}

			continue
		}

		result.Saved++

		appendErr := appendFile(filepath.Join(dir, promptsFile), fmt.Sprintf(promptEntryFormat, number, image.Prompt, image.URL))
		if appendErr != nil {
			return nil, appendErr
		}
	}

	err := writeGallery(filepath.Join(dir, galleryFile), theme, entries)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func writeGallery(path, theme string, entries []galleryEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create gallery: %w", err)
	}
	defer file.Close()

	err = galleryTemplate.Execute(file, struct {
		Theme  string
		Images []galleryEntry
	}{Theme: theme, Images: entries})
	if err != nil {
		return fmt.Errorf("failed to render gallery: %w", err)
	}

	return nil
}

func appendFile(path, text string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	_, err = file.WriteString(text)
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}

	return nil
}
