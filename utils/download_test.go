package utils

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestUtils_ShouldDownloadImage(t *testing.T) {
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	f, err := DownloadImage(srv.URL + "/sample.png")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	img, _, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestUtils_ShouldRejectNonImageDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>not an image</body></html>"))
	}))
	defer srv.Close()

	_, err := DownloadImage(srv.URL)
	assert.Error(t, err)
}

func TestUtils_ShouldRejectFailedDownload(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := DownloadImage(srv.URL)
	assert.Error(t, err)
}

func TestUtils_ShouldBeValidUrl(t *testing.T) {
	assert.True(t, IsValidUrl("https://github.com/esimov/facemesh/"))
	assert.False(t, IsValidUrl("testdata/sample.jpg"))
	assert.False(t, IsValidUrl("-"))
}

func TestUtils_ShouldDetectValidFileType(t *testing.T) {
	ftype, err := DetectContentType(bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ftype)
}
