package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/hrintel/internal/model"
	"github.com/ppiankov/hrintel/internal/source"
)

// loadInput reads a document from a file argument or, when fromURL is set, the web
func loadInput(ctx context.Context, a *app, args []string, fromURL string) (model.Document, string, error) {
	switch {
	case fromURL != "" && len(args) > 0:
		return model.Document{}, "", fmt.Errorf("pass either a file or --url, not both")
	case fromURL != "":
		doc, err := a.fetcher.Fetch(ctx, fromURL)
		if err != nil {
			return model.Document{}, "", fmt.Errorf("fetch %s: %w", fromURL, err)
		}
		return doc, fromURL, nil
	case len(args) == 1:
		doc, err := source.LoadFile(args[0])
		if err != nil {
			return model.Document{}, "", err
		}
		return doc, args[0], nil
	default:
		return model.Document{}, "", fmt.Errorf("a file argument or --url is required")
	}
}
