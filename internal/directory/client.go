// Package directory предоставляет клиент справочной службы пользователей.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// ErrNotFound возвращается, если справочная служба не знает владельца.
// Ошибки транспорта возвращаются как есть после исчерпания повторов.
var ErrNotFound = errors.New("owner not found in directory")

// Client инкапсулирует HTTP-взаимодействие со справочной службой.
// Сетевые сбои и ответы 5xx повторяются ограниченное число раз,
// "не найдено" не повторяется никогда.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент справочной службы по указанному адресу.
// retryMax ограничивает число повторов на сетевые сбои.
func NewClient(baseURL string, retryMax int) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}
}

// Resolve запрашивает запись пользователя по идентификатору владельца.
func (c *Client) Resolve(ctx context.Context, ownerID string) (*model.UserRecord, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("directory client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/api/users/%s", base, ownerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var record model.UserRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if record.OwnerID == "" {
		record.OwnerID = ownerID
	}

	return &record, nil
}
