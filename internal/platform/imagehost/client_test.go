package imagehost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestUploadPostsMultipartWithKey(t *testing.T) {
	var gotKey, gotName string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		file, header, err := r.FormFile("image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotName = header.Filename
		gotBody, _ = io.ReadAll(file)
		_, _ = w.Write([]byte(`{"success":true,"data":{"url":"https://img.example/abc.png"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/1/upload", "secret", 1024, nil, nil)
	url, err := c.Upload(context.Background(), "../avatar.png", pngBytes)
	require.NoError(t, err)
	require.Equal(t, "https://img.example/abc.png", url)
	require.Equal(t, "secret", gotKey)
	require.Equal(t, "avatar.png", gotName)
	require.Equal(t, pngBytes, gotBody)
}

func TestUploadRejectsBeforePosting(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", 16, nil, nil)
	_, err := c.Upload(context.Background(), "a.png", pngBytes)
	require.ErrorIs(t, err, ErrTooLarge)

	c = New(srv.URL, "secret", 1024, nil, nil)
	_, err = c.Upload(context.Background(), "notes.txt", []byte("just some text"))
	require.ErrorIs(t, err, ErrNotImage)

	_, err = New("", "", 1024, nil, nil).Upload(context.Background(), "a.png", pngBytes)
	require.ErrorIs(t, err, ErrNotConfigured)

	require.False(t, called)
}

func TestUploadHostFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusBadGateway, body: `oops`},
		{name: "success false", status: http.StatusOK, body: `{"success":false,"error":{"message":"Invalid API v1 key."}}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "missing url", status: http.StatusOK, body: `{"success":true,"data":{}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "k", 1024, nil, nil).Upload(context.Background(), "a.png", pngBytes)
			require.ErrorIs(t, err, ErrUpload)
		})
	}
}

func TestUploadTransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/1/upload"
	srv.Close()

	c := New(endpoint, "topsecret-key", 1024, nil, nil)
	_, err := c.Upload(context.Background(), "avatar.png", pngBytes)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "topsecret-key")
	require.Contains(t, err.Error(), endpoint)
}

func TestSanitizeName(t *testing.T) {
	require.Equal(t, "photo.jpg", sanitizeName(`C:\Users\me\photo.jpg`, ".jpg"))
	require.Equal(t, "upload.png", sanitizeName("", ".png"))
	require.Equal(t, "upload.png", sanitizeName("dir/..", ".png"))
}
