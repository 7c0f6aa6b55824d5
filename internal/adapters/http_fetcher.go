package adapters

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"apkfetch/internal/ports"
	"apkfetch/internal/types"
)

// BrowserUserAgent is sent with every request; the catalogs reject clients
// that do not look like a desktop browser.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const defaultFetchTimeout = 60 * time.Second
const maxFetchRedirects = 10

type HTTPFetcherAdapter struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewHTTPFetcherAdapter builds a fetcher. requestsPerSecond <= 0 disables
// throttling.
func NewHTTPFetcherAdapter(timeoutSec int, requestsPerSecond float64) HTTPFetcherAdapter {
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return HTTPFetcherAdapter{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxFetchRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		Limiter: limiter,
	}
}

func (a HTTPFetcherAdapter) Fetch(ctx context.Context, target string, headers map[string]string) (types.FetchResult, error) {
	resp, err := a.do(ctx, target, headers)
	if err != nil {
		return types.FetchResult{}, err
	}
	defer resp.Body.Close()
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return types.FetchResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read response body: " + err.Error()).
			WithCause(err)
	}
	return types.FetchResult{
		URL:    target,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   string(body),
	}, nil
}

func (a HTTPFetcherAdapter) Open(ctx context.Context, target string, headers map[string]string) (types.BinaryResponse, error) {
	resp, err := a.do(ctx, target, headers)
	if err != nil {
		return types.BinaryResponse{}, err
	}
	return types.BinaryResponse{
		URL:    target,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   resp.Body,
	}, nil
}

func (a HTTPFetcherAdapter) do(ctx context.Context, target string, headers map[string]string) (*http.Response, error) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("url must be absolute: " + target)
	}
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request canceled: " + err.Error()).
				WithCause(err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create request").
			WithCause(err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		req.Header.Set(key, value)
	}
	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

var _ ports.PageFetcherPort = HTTPFetcherAdapter{}
