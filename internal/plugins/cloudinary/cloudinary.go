package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shjroemon/social-network-be/internal/config"
	"github.com/shjroemon/social-network-be/internal/core/contracts"
)

// CloudinaryClient uploads local temp files to the Cloudinary image
// API using signed uploads.
type CloudinaryClient struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	http      *http.Client
}

func NewCloudinaryClient(cfg config.CloudinaryConfig) *CloudinaryClient {
	return &CloudinaryClient{
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		folder:    cfg.Folder,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *CloudinaryClient) UploadImage(ctx context.Context, tempFilePath string) (*contracts.UploadResult, error) {
	file, err := os.Open(tempFilePath)
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}
	defer file.Close()

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := c.sign("folder=" + c.folder + "&timestamp=" + timestamp)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		part, err := mw.CreateFormFile("file", filepath.Base(tempFilePath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		_ = mw.WriteField("api_key", c.apiKey)
		_ = mw.WriteField("timestamp", timestamp)
		_ = mw.WriteField("folder", c.folder)
		_ = mw.WriteField("signature", signature)
		pw.CloseWithError(mw.Close())
	}()

	apiURL := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("cloudinary upload: status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
		PublicID  string `json:"public_id"`
		Bytes     int64  `json:"bytes"`
		Format    string `json:"format"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("cloudinary response: %w", err)
	}
	return &contracts.UploadResult{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Bytes:    result.Bytes,
		Format:   result.Format,
	}, nil
}

func (c *CloudinaryClient) sign(params string) string {
	h := sha1.Sum([]byte(params + c.apiSecret))
	return hex.EncodeToString(h[:])
}
