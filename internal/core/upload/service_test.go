package upload

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newLocalService(t *testing.T) (*Service, string) {
	dir := t.TempDir()
	p, err := NewLocalProvider(dir, "http://localhost:3007/")
	require.NoError(t, err)
	return NewService(p), dir
}

func TestSaveImageLocal(t *testing.T) {
	svc, dir := newLocalService(t)

	res, err := svc.SaveImage(context.Background(), pngBytes, "image/png", "results")
	require.NoError(t, err)

	assert.Regexp(t, `^results/\d+_[0-9a-f]{8}\.png$`, res.PublicID)
	assert.Equal(t, "http://localhost:3007/uploads/"+res.PublicID, res.URL)
	assert.Equal(t, "image", res.ResourceType)
	assert.Equal(t, int64(len(pngBytes)), res.Size)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(res.PublicID)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	require.NoError(t, svc.Delete(context.Background(), res.PublicID))
	assert.Error(t, svc.Delete(context.Background(), res.PublicID))
}

func TestValidateImage(t *testing.T) {
	svc, _ := newLocalService(t)

	assert.NoError(t, svc.ValidateImage(pngBytes, "image/png"))
	assert.ErrorIs(t, svc.ValidateImage(pngBytes, "image/gif"), ErrTypeNotAllowed)
	assert.ErrorIs(t, svc.ValidateImage([]byte("<html>"), "image/png"), ErrTypeNotAllowed)
	assert.ErrorIs(t, svc.ValidateImage(make([]byte, 10*1024*1024+1), "image/png"), ErrFileTooLarge)
}

func TestLocalProviderRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(dir, "")
	require.NoError(t, err)

	_, err = p.Upload(context.Background(), nil, "../../etc/passwd", "image/png", &UploadOptions{Folder: "x"})
	assert.ErrorIs(t, err, ErrInvalidPublicID)
	assert.ErrorIs(t, p.Delete(context.Background(), "../outside.png"), ErrInvalidPublicID)
}

func TestLocalProviderNoOverwrite(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(dir, "")
	require.NoError(t, err)

	opts := &UploadOptions{Folder: "a", PublicID: "fixed"}
	_, err = p.Upload(context.Background(), bytesReader(pngBytes), "room.png", "image/png", opts)
	require.NoError(t, err)
	_, err = p.Upload(context.Background(), bytesReader(pngBytes), "room.png", "image/png", opts)
	assert.Error(t, err)

	opts.Overwrite = true
	_, err = p.Upload(context.Background(), bytesReader(pngBytes), "room.png", "image/png", opts)
	assert.NoError(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, ".png", ExtensionFor("image/png"))
	assert.Equal(t, ".bin", ExtensionFor("application/pdf"))
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
