package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	pinataAPI     = "https://api.pinata.cloud"
	pinataGateway = "https://gateway.pinata.cloud/ipfs/"
)

// PinataClient client for the Pinata pinning API
type PinataClient struct {
	baseURL    string
	gatewayURL string
	apiKey     string
	secretKey  string
	client     *http.Client
	logger     *zap.Logger
}

// Option configures a PinataClient.
type Option func(*PinataClient)

// WithBaseURL points the client at another API root (tests, self-hosted proxies).
func WithBaseURL(u string) Option {
	return func(c *PinataClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithGatewayURL sets the public gateway prefix used to build content links.
func WithGatewayURL(u string) Option {
	return func(c *PinataClient) {
		if u != "" {
			if !strings.HasSuffix(u, "/") {
				u += "/"
			}
			c.gatewayURL = u
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *PinataClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *PinataClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *PinataClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewPinataClient creates a new Pinata client authenticated with the API key pair
func NewPinataClient(apiKey, secretKey string, opts ...Option) *PinataClient {
	c := &PinataClient{
		baseURL:    pinataAPI,
		gatewayURL: pinataGateway,
		apiKey:     apiKey,
		secretKey:  secretKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PinResponse response from pinFileToIPFS
type PinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// TestAuthentication reports whether the API accepts our credentials.
// Any transport error or non-200 status is reported as false.
func (c *PinataClient) TestAuthentication(ctx context.Context) bool {
	url := fmt.Sprintf("%s/data/testAuthentication", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Warn("Pinata connection test failed", zap.Error(err))
		return false
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Pinata connection test failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Pinata connection test failed", zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// PinFile uploads data as a single file and returns its content identifier.
func (c *PinataClient) PinFile(ctx context.Context, name string, data []byte) (*PinResponse, error) {
	if name == "" {
		name = "file"
	}

	body, contentType, err := multipartBody("file", name, data)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}

	url := fmt.Sprintf("%s/pinning/pinFileToIPFS", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(msg) == 0 {
			return nil, fmt.Errorf("pin failed: %s", resp.Status)
		}
		return nil, fmt.Errorf("pin failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var pinResp PinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinResp); err != nil {
		return nil, fmt.Errorf("failed to decode pin response: %w", err)
	}
	if pinResp.IpfsHash == "" {
		return nil, fmt.Errorf("pin response has empty IpfsHash")
	}

	c.logger.Info("File pinned", zap.String("name", name), zap.String("cid", pinResp.IpfsHash), zap.Int64("size", pinResp.PinSize))
	return &pinResp, nil
}

// GatewayURL returns the public link to cid.
func (c *PinataClient) GatewayURL(cid string) string {
	return c.gatewayURL + cid
}

func (c *PinataClient) authorize(req *http.Request) {
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.secretKey)
}

func multipartBody(field, name string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
