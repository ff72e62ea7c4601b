package uploadshandler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
	"ems/internal/platform/imagehost"
	"ems/internal/transport/http/middleware"
)

type stubUploader struct {
	err      error
	got      []byte
	filename string
}

func (s *stubUploader) Upload(_ context.Context, filename string, data []byte) (string, error) {
	s.got, s.filename = data, filename
	if s.err != nil {
		return "", s.err
	}
	return "https://img.example.com/" + filename, nil
}

func (s *stubUploader) MaxBytes() int64 { return 1024 }

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1"}))
}

func serve(u Uploader, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(u, nil).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUploadReturnsHostedURL(t *testing.T) {
	u := &stubUploader{}
	rec := serve(u, multipartRequest(t, "image", "face.png", []byte("png-bytes")))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "https://img.example.com/face.png")
	require.Equal(t, []byte("png-bytes"), u.got)
}

func TestUploadErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{err: imagehost.ErrNotImage, want: http.StatusUnsupportedMediaType, code: "image_unsupported"},
		{err: imagehost.ErrTooLarge, want: http.StatusRequestEntityTooLarge, code: "image_too_large"},
		{err: imagehost.ErrNotConfigured, want: http.StatusServiceUnavailable, code: "upload_unavailable"},
		{err: fmt.Errorf("%w: status 500", imagehost.ErrUpload), want: http.StatusBadGateway, code: "upload_failed"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			rec := serve(&stubUploader{err: tc.err}, multipartRequest(t, "image", "a.png", []byte("x")))
			require.Equal(t, tc.want, rec.Code)
			require.Contains(t, rec.Body.String(), tc.code)
		})
	}
}

func TestUploadRequiresImageField(t *testing.T) {
	rec := serve(&stubUploader{}, multipartRequest(t, "file", "a.png", []byte("x")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "image_required")
}

func TestUploadRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/uploads/images", nil)
	rec := serve(&stubUploader{}, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
