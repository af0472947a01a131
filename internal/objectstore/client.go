package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default configuration values.
const (
	defaultTimeout    = 5 * time.Minute
	defaultRetryCount = 3
)

// Container — контейнер в листинге аккаунта.
type Container struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Object — объект в листинге контейнера.
type Object struct {
	Name         string `json:"name"`
	Hash         string `json:"hash"`
	Bytes        int64  `json:"bytes"`
	ContentType  string `json:"content_type"`
	LastModified string `json:"last_modified"`
}

// extractResult — ответ на загрузку архива с extract-archive.
type extractResult struct {
	NumberFilesCreated int        `json:"Number Files Created"`
	ResponseStatus     string     `json:"Response Status"`
	ResponseBody       string     `json:"Response Body"`
	Errors             [][]string `json:"Errors"`
}

// Client — клиент объектного хранилища со Swift-совместимым API.
//
// URL указывает на аккаунт (например, http://host:8080/v1/AUTH_tripleo),
// контейнеры и объекты адресуются относительно него.
type Client struct {
	http   *resty.Client
	logger *slog.Logger

	// download — запросы по tempurl: подпись в URL, без токена и повторов.
	download *resty.Client
}

// Config — конфигурация Client.
type Config struct {
	// URL — endpoint аккаунта.
	URL string

	// Token — токен аутентификации (X-Auth-Token).
	Token string

	// Timeout — таймаут одного запроса (default: 5m, загрузка архивов бывает долгой).
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// NewClient создаёт клиент хранилища.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rc := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition)

	if cfg.Token != "" {
		rc.SetHeader("X-Auth-Token", cfg.Token)
	}

	return &Client{
		http:     rc,
		logger:   logger,
		download: resty.New().SetTimeout(timeout),
	}
}

// retryCondition повторяет только идемпотентные запросы без тела.
func retryCondition(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil {
		return false
	}
	switch r.Request.Method {
	case resty.MethodGet, resty.MethodDelete, resty.MethodHead:
	default:
		return false
	}
	if err != nil {
		return true
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

// GetAccount возвращает список контейнеров.
func (c *Client) GetAccount(ctx context.Context) ([]Container, error) {
	var containers []Container
	if err := c.list(ctx, "/", &containers); err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	return containers, nil
}

// GetContainer возвращает список объектов контейнера.
func (c *Client) GetContainer(ctx context.Context, container string) ([]Object, error) {
	var objects []Object
	if err := c.list(ctx, "/"+url.PathEscape(container), &objects); err != nil {
		return nil, fmt.Errorf("list container %s: %w", container, err)
	}
	return objects, nil
}

// PutObject загружает объект.
func (c *Client) PutObject(ctx context.Context, container, name string, body io.Reader) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(body).
		Put(objectPath(container, name))
	if err := c.check(resp, err); err != nil {
		return fmt.Errorf("put object %s/%s: %w", container, name, err)
	}
	return nil
}

// DeleteObject удаляет объект. Отсутствующий объект не считается ошибкой.
func (c *Client) DeleteObject(ctx context.Context, container, name string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(objectPath(container, name))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if err := c.check(resp, err); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", container, name, err)
	}
	return nil
}

// ExtractArchive загружает tar.gz, который хранилище распаковывает в контейнер.
func (c *Client) ExtractArchive(ctx context.Context, container string, archive io.Reader) error {
	var result extractResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("extract-archive", "tar.gz").
		SetHeader("Content-Type", "application/gzip").
		ForceContentType("application/json").
		SetBody(archive).
		SetResult(&result).
		Put("/" + url.PathEscape(container))
	if err := c.check(resp, err); err != nil {
		return fmt.Errorf("extract archive into %s: %w", container, err)
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("extract archive into %s: %w: %d files failed, first: %v",
			container, ErrExtractArchive, len(result.Errors), result.Errors[0])
	}

	c.logger.Debug("archive extracted",
		"container", container,
		"files", result.NumberFilesCreated,
	)
	return nil
}

// Download скачивает объект по абсолютному URL (например, tempurl) в w.
//
// URL может указывать на другой хост, поэтому X-Auth-Token не отправляется.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	resp, err := c.download.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		data, _ := io.ReadAll(io.LimitReader(body, 4096))
		return 0, &APIError{StatusCode: resp.StatusCode(), Message: string(data)}
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", rawURL, err)
	}
	return n, nil
}

// list выполняет листинг в JSON-формате.
func (c *Client) list(ctx context.Context, path string, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("format", "json").
		ForceContentType("application/json").
		SetResult(result).
		Get(path)
	return c.check(resp, err)
}

// check переводит ответ в ошибку пакета.
func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug("object store request completed",
		"method", resp.Request.Method,
		"url", resp.Request.URL,
		"status", resp.StatusCode(),
	)

	if !resp.IsError() {
		return nil
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}
}

func objectPath(container, name string) string {
	return "/" + url.PathEscape(container) + "/" + escapeObjectName(name)
}

// escapeObjectName экранирует имя объекта, сохраняя "/" между сегментами.
func escapeObjectName(name string) string {
	return (&url.URL{Path: name}).EscapedPath()
}
