package adapters

import (
	"context"
	"io"
	"net/http"
	"time"

	"apkfetch/internal/ports"
	"apkfetch/internal/types"
)

const defaultFetchRetryDelay = 200 * time.Millisecond
const maxFetchRetryDelay = 2 * time.Second

// RetryingFetcher retries transport errors and 429/5xx responses with
// exponential backoff. Retries counts additional attempts; zero passes every
// call straight through.
type RetryingFetcher struct {
	Next       ports.PageFetcherPort
	Retries    int
	RetryDelay time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
}

func NewRetryingFetcher(next ports.PageFetcherPort, retries int, retryDelayMs int) RetryingFetcher {
	delay := time.Duration(retryDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = defaultFetchRetryDelay
	}
	if retries < 0 {
		retries = 0
	}
	return RetryingFetcher{
		Next:       next,
		Retries:    retries,
		RetryDelay: delay,
		Sleep:      sleepContext,
	}
}

func (f RetryingFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (types.FetchResult, error) {
	var result types.FetchResult
	var err error
	for attempt := 0; ; attempt++ {
		result, err = f.Next.Fetch(ctx, url, headers)
		if !f.shouldRetry(ctx, attempt, result.Status, err) {
			return result, err
		}
		if sleepErr := f.wait(ctx, attempt); sleepErr != nil {
			return result, err
		}
	}
}

func (f RetryingFetcher) Open(ctx context.Context, url string, headers map[string]string) (types.BinaryResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := f.Next.Open(ctx, url, headers)
		if !f.shouldRetry(ctx, attempt, resp.Status, err) {
			return resp, err
		}
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if sleepErr := f.wait(ctx, attempt); sleepErr != nil {
			return types.BinaryResponse{}, sleepErr
		}
	}
}

func (f RetryingFetcher) shouldRetry(ctx context.Context, attempt int, status int, err error) bool {
	if attempt >= f.Retries || ctx.Err() != nil {
		return false
	}
	if err != nil {
		return true
	}
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

func (f RetryingFetcher) wait(ctx context.Context, attempt int) error {
	delay := fetchRetryDelay(f.RetryDelay, attempt)
	if f.Sleep == nil {
		return sleepContext(ctx, delay)
	}
	return f.Sleep(ctx, delay)
}

func fetchRetryDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt && delay < maxFetchRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxFetchRetryDelay {
		delay = maxFetchRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.PageFetcherPort = RetryingFetcher{}
