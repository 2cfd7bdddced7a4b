// Package source turns files and URLs into documents for analysis.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/hrintel/internal/model"
)

// ErrUnsupported is returned for file types LoadFile cannot read
var ErrUnsupported = errors.New("unsupported file type")

// maxFileBytes caps what LoadFile reads into memory
const maxFileBytes = 20 << 20

var fileTypes = map[string]string{
	".txt":      "text",
	".text":     "text",
	".md":       "markdown",
	".markdown": "markdown",
	".csv":      "csv",
	".html":     "html",
	".htm":      "html",
}

// LoadFile reads a local document. Plain text formats are returned as is,
// HTML is reduced to its visible text.
func LoadFile(path string) (model.Document, error) {
	docType, ok := fileTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return model.Document{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > maxFileBytes {
		return model.Document{}, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read file: %w", err)
	}

	doc := model.Document{
		Title: titleFromName(filepath.Base(path)),
		Type:  docType,
	}

	if docType == "html" {
		text, title, err := HTMLText(bytes.NewReader(data))
		if err != nil {
			return model.Document{}, fmt.Errorf("parse html: %w", err)
		}
		if title != "" {
			doc.Title = title
		}
		doc.Content = text
		return doc, nil
	}

	doc.Content = strings.ToValidUTF8(string(data), "\uFFFD")
	return doc, nil
}

// titleFromName turns a file name or URL slug into a readable title
func titleFromName(name string) string {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
