package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/backend"
)

// Result is the backend's reply to an upload.
type Result struct {
	FileURL  string `json:"file_url"`
	Filename string `json:"filename"`
}

// Client forwards validated files to the backend as multipart form data.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an upload client. timeout bounds one whole upload.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("upload"),
	}
}

// Upload validates the file and streams it to the backend in the "file" field.
// size is the declared length of r; r is never read past the kind's limit.
func (c *Client) Upload(ctx context.Context, kind Kind, filename, contentType string, size int64, r io.Reader) (*Result, error) {
	if err := Validate(kind, filename, contentType, size); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeFile(mw, filename, contentType, &capReader{r: r, left: MaxBytes(kind)}))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rules[kind].path, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("upload %s: read response: %w", filename, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &backend.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		backend.Envelope
		Result
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("upload %s: unmarshal response: %w", filename, err)
	}
	if !out.Success {
		return nil, &backend.BackendError{Message: out.Error}
	}
	c.logger.Info("uploaded", zap.String("kind", string(kind)), zap.String("file_url", out.FileURL))
	return &out.Result, nil
}

func writeFile(mw *multipart.Writer, filename, contentType string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// capReader fails with ErrTooLarge once more than left bytes have been read.
type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
