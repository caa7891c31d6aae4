package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/dyluth/credscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) ([]Page, []error) {
	t.Helper()
	var pages []Page
	var errs []error
	for page, err := range r.Pages() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pages = append(pages, page)
	}
	return pages, errs
}

func TestPages_YieldsImagesInOrder(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteArchive(t, dir, "vol1.cbz",
		testutil.Entry{Name: "ComicInfo.xml", Data: []byte("<ComicInfo/>")},
		testutil.Entry{Name: "001.jpg", Data: testutil.Page(mediatype.JPEG, "one")},
		testutil.Entry{Name: "sub/", Data: nil},
		testutil.Entry{Name: "sub/002.png", Data: testutil.Page(mediatype.PNG, "two")},
		testutil.Entry{Name: "003.GIF", Data: testutil.Page(mediatype.GIF, "three")},
	)

	r, err := Open(path, Options{})
	require.NoError(t, err)
	defer r.Close()

	pages, errs := readAll(t, r)
	require.Empty(t, errs)
	require.Len(t, pages, 3)

	assert.Equal(t, "001.jpg", pages[0].Name)
	assert.Equal(t, mediatype.JPEG, pages[0].ContentType)
	assert.Equal(t, "one", testutil.PageText(pages[0].Data))

	assert.Equal(t, "sub/002.png", pages[1].Name)
	assert.Equal(t, mediatype.PNG, pages[1].ContentType)

	assert.Equal(t, "003.GIF", pages[2].Name)
	assert.Equal(t, mediatype.GIF, pages[2].ContentType)
}

func TestPages_NoImages(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteArchive(t, dir, "empty.cbz",
		testutil.Entry{Name: "readme.txt", Data: []byte("nothing here")},
	)

	r, err := Open(path, Options{})
	require.NoError(t, err)
	defer r.Close()

	pages, errs := readAll(t, r)
	assert.Empty(t, pages)
	assert.Empty(t, errs)
}

func TestOpen_CorruptArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.cbz")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0644))

	r, err := Open(path, Options{})
	require.Error(t, err)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrArchiveRead)
}

func TestOpen_MissingArchive(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "gone.cbz"), Options{})
	assert.ErrorIs(t, err, ErrArchiveRead)
}

func TestPages_TooLargeIsPageLevel(t *testing.T) {
	dir := t.TempDir()
	big := testutil.Page(mediatype.PNG, "this page is far too long for the limit")
	path := testutil.WriteArchive(t, dir, "big.cbz",
		testutil.Entry{Name: "001.png", Data: big},
		testutil.Entry{Name: "002.png", Data: testutil.Page(mediatype.PNG, "ok")},
	)

	r, err := Open(path, Options{MaxPageBytes: 16})
	require.NoError(t, err)
	defer r.Close()

	pages, errs := readAll(t, r)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrPageTooLarge)

	var pageErr *PageError
	require.True(t, errors.As(errs[0], &pageErr))
	assert.Equal(t, "001.png", pageErr.Name)

	require.Len(t, pages, 1)
	assert.Equal(t, "002.png", pages[0].Name)
}

func TestPages_ContentSniffing(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteArchive(t, dir, "noext.cbz",
		testutil.Entry{Name: "page-one", Data: testutil.Page(mediatype.PNG, "x")},
		testutil.Entry{Name: "notes", Data: []byte("plain text")},
	)

	t.Run("disabled", func(t *testing.T) {
		r, err := Open(path, Options{})
		require.NoError(t, err)
		defer r.Close()
		pages, _ := readAll(t, r)
		assert.Empty(t, pages)
	})

	t.Run("enabled", func(t *testing.T) {
		r, err := Open(path, Options{Sniffer: mediatype.Sniffer{Content: true}})
		require.NoError(t, err)
		defer r.Close()
		pages, errs := readAll(t, r)
		require.Empty(t, errs)
		require.Len(t, pages, 1)
		assert.Equal(t, mediatype.PNG, pages[0].ContentType)
	})
}

func TestPages_StopEarly(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteArchive(t, dir, "vol.cbz",
		testutil.Entry{Name: "1.png", Data: testutil.Page(mediatype.PNG, "a")},
		testutil.Entry{Name: "2.png", Data: testutil.Page(mediatype.PNG, "b")},
	)

	r, err := Open(path, Options{})
	require.NoError(t, err)
	defer r.Close()

	n := 0
	for range r.Pages() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
