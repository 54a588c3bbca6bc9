package pinning

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestAuthentication_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/data/testAuthentication", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))
		w.Write([]byte(`{"message":"Congratulations! You are communicating with the Pinata API!"}`))
	}))
	defer srv.Close()

	c := NewPinataClient("key", "secret", WithBaseURL(srv.URL))
	assert.True(t, c.TestAuthentication(context.Background()))
}

func TestTestAuthentication_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewPinataClient("bad", "bad", WithBaseURL(srv.URL))
	assert.False(t, c.TestAuthentication(context.Background()))
}

func TestTestAuthentication_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewPinataClient("key", "secret", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	assert.False(t, c.TestAuthentication(context.Background()))
}

func TestTestAuthentication_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewPinataClient("key", "secret", WithBaseURL(url))
	assert.False(t, c.TestAuthentication(context.Background()))
}

func TestPinFile_ReturnsHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "paper.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.7", string(content))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"IpfsHash":"Qm123"}`))
	}))
	defer srv.Close()

	c := NewPinataClient("key", "secret", WithBaseURL(srv.URL))
	resp, err := c.PinFile(context.Background(), "paper.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "Qm123", resp.IpfsHash)
}

func TestPinFile_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewPinataClient("key", "secret", WithBaseURL(srv.URL))
	resp, err := c.PinFile(context.Background(), "paper.pdf", []byte("x"))
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "500")
}

func TestGatewayURL(t *testing.T) {
	c := NewPinataClient("k", "s", WithGatewayURL("https://ipfs.example/ipfs"))
	assert.Equal(t, "https://ipfs.example/ipfs/Qm123", c.GatewayURL("Qm123"))
}
