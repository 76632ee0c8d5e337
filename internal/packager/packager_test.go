package packager

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackage_SingleLanguage(t *testing.T) {
	t.Parallel()

	out, err := Package("movie", document.FormatSRT, []LanguageDocument{
		{Language: "de", Body: []byte("1\n00:00:01,000 --> 00:00:02,000\nHallo\n")},
	})
	require.NoError(t, err)

	assert.False(t, out.Archive)
	assert.Equal(t, "movie-de.srt", out.FileName)
	assert.Equal(t, "text/plain; charset=utf-8", out.ContentType)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nHallo\n", string(out.Body))
}

func TestPackage_MultipleLanguagesBuildsArchive(t *testing.T) {
	t.Parallel()

	out, err := Package("strings", document.FormatJSON, []LanguageDocument{
		{Language: "fr", Body: []byte(`{"a": "Bonjour"}`)},
		{Language: "ja", Body: []byte(`{"a": "こんにちは"}`)},
	})
	require.NoError(t, err)

	assert.True(t, out.Archive)
	assert.Equal(t, "strings-translated.zip", out.FileName)
	assert.Equal(t, ArchiveContentType, out.ContentType)
	assert.Equal(t, []string{"strings-fr.json", "strings-ja.json"}, out.Files)

	zr, err := zip.NewReader(bytes.NewReader(out.Body), int64(len(out.Body)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[f.Name] = string(data)
	}
	assert.Equal(t, `{"a": "Bonjour"}`, contents["strings-fr.json"])
	assert.Equal(t, `{"a": "こんにちは"}`, contents["strings-ja.json"])
}

func TestPackage_Empty(t *testing.T) {
	t.Parallel()

	_, err := Package("x", document.FormatText, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestBaseName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "movie.en", BaseName("movie.en.srt"))
	assert.Equal(t, "notes", BaseName("/tmp/uploads/notes.txt"))
	assert.Equal(t, "translated", BaseName(""))
	assert.Equal(t, "translated", BaseName(".srt"))
}

func TestOutputName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "movie-de.vtt", OutputName("movie", document.FormatVTT, []string{"de"}))
	assert.Equal(t, "movie-translated.zip", OutputName("movie", document.FormatVTT, []string{"de", "fr"}))
}
