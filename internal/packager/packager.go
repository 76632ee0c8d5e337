package packager

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
	"github.com/MimeLyc/structured-doc-translator/internal/document"
)

const (
	ArchiveContentType = "application/zip"
	defaultBaseName    = "translated"
)

// LanguageDocument is the serialized document of one target language.
type LanguageDocument struct {
	Language string
	Body     []byte
}

// Output is the payload handed back to the caller.
type Output struct {
	FileName    string
	ContentType string
	Body        []byte
	Archive     bool
	Files       []string
}

// BaseName derives the output base name from an uploaded file name.
func BaseName(fileName string) string {
	name := filepath.Base(strings.TrimSpace(fileName))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return defaultBaseName
	}
	return name
}

// FileName returns base-lang.ext.
func FileName(baseName, lang string, format document.Format) string {
	return fmt.Sprintf("%s-%s.%s", baseName, lang, format.Extension())
}

// ArchiveName returns the name of the multi-language archive.
func ArchiveName(baseName string) string {
	return baseName + "-translated.zip"
}

// OutputName returns the name Package will give its output for langs.
func OutputName(baseName string, format document.Format, langs []string) string {
	if len(langs) == 1 {
		return FileName(baseName, langs[0], format)
	}
	return ArchiveName(baseName)
}

// Package returns the single document directly when one language was
// requested and a zip archive with one file per language otherwise.
func Package(baseName string, format document.Format, docs []LanguageDocument) (*Output, error) {
	if len(docs) == 0 {
		return nil, apperr.New(apperr.KindValidation, "no translated documents to package")
	}
	if baseName == "" {
		baseName = defaultBaseName
	}

	if len(docs) == 1 {
		name := FileName(baseName, docs[0].Language, format)
		return &Output{
			FileName:    name,
			ContentType: format.ContentType(),
			Body:        docs[0].Body,
			Files:       []string{name},
		}, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := make([]string, 0, len(docs))
	now := time.Now()
	for _, d := range docs {
		name := FileName(baseName, d.Language, format)
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindInternal, "failed to create archive entry").WithContext("file", name)
		}
		if _, err := w.Write(d.Body); err != nil {
			return nil, apperr.Wrap(err, apperr.KindInternal, "failed to write archive entry").WithContext("file", name)
		}
		names = append(names, name)
	}
	if err := zw.Close(); err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "failed to finish archive")
	}

	return &Output{
		FileName:    ArchiveName(baseName),
		ContentType: ArchiveContentType,
		Body:        buf.Bytes(),
		Archive:     true,
		Files:       names,
	}, nil
}
