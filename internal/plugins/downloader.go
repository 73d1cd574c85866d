package plugins

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	fetchTimeout     = 30 * time.Second
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

var (
	ErrDownloaderNotConfigured = errors.New("downloader api is not configured")
	ErrNothingFound            = errors.New("no downloadable media found")
)

// Remote is a fetched media file.
type Remote struct {
	Data     []byte
	Mimetype string
	FileName string
}

// resolveResponse is the downloader API reply for GET /api/{platform}?url=.
type resolveResponse struct {
	Success bool     `json:"success"`
	URLs    []string `json:"urls"`
	Message string   `json:"message"`
}

// Downloader resolves share links into direct media URLs through an external
// HTTP API and fetches the media.
type Downloader struct {
	api   *resty.Client
	fetch *resty.Client
}

func NewDownloader(apiURL string) *Downloader {
	d := &Downloader{
		fetch: resty.New().
			SetTimeout(fetchTimeout).
			SetHeader("User-Agent", browserUserAgent),
	}
	if apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/"); apiURL != "" {
		d.api = resty.New().
			SetBaseURL(apiURL).
			SetTimeout(fetchTimeout).
			SetHeader("Accept", "application/json")
	}
	return d
}

// Resolve asks the downloader API for the direct media URLs behind link.
func (d *Downloader) Resolve(ctx context.Context, platform, link string) ([]string, error) {
	if d == nil || d.api == nil {
		return nil, ErrDownloaderNotConfigured
	}

	var out resolveResponse
	resp, err := d.api.R().
		SetContext(ctx).
		SetQueryParam("url", link).
		SetResult(&out).
		Get("/api/" + platform)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s link", platform)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNothingFound
	}
	if resp.IsError() {
		return nil, errors.Errorf("downloader api error: %s", resp.Status())
	}

	urls := make([]string, 0, len(out.URLs))
	for _, u := range out.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if !out.Success || len(urls) == 0 {
		return nil, ErrNothingFound
	}
	return urls, nil
}

// Fetch downloads link into memory.
func (d *Downloader) Fetch(ctx context.Context, link string) (Remote, error) {
	resp, err := d.fetch.R().SetContext(ctx).Get(link)
	if err != nil {
		return Remote{}, errors.Wrapf(err, "fetch %s", link)
	}
	if resp.IsError() {
		return Remote{}, errors.Errorf("fetch %s: %s", link, resp.Status())
	}

	data := resp.Body()
	if len(data) == 0 {
		return Remote{}, errors.Errorf("fetch %s: empty body", link)
	}

	mimetype := resp.Header().Get("Content-Type")
	if mimetype == "" || strings.HasPrefix(mimetype, "application/octet-stream") {
		mimetype = http.DetectContentType(data)
	}
	return Remote{Data: data, Mimetype: mimetype, FileName: fileNameOf(link)}, nil
}

func fileNameOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "download"
	}
	if name := path.Base(u.Path); name != "." && name != "/" && name != "" {
		return name
	}
	return "download"
}
