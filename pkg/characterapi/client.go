package characterapi

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/Peripli/character-gallery/pkg/httputils"
	"github.com/Peripli/character-gallery/pkg/paging"
	"github.com/Peripli/service-manager/pkg/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
)

// Client loads pages of characters from the character API
type Client interface {
	paging.Loader[Character]

	// FirstPage is the cursor of the first listing page
	FirstPage() paging.Cursor
}

type characterClient struct {
	settings   *Settings
	origin     *url.URL
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

var _ Client = &characterClient{}

// NewClient builds a new character API Client from the provided settings
func NewClient(settings *Settings) (Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	origin, err := url.Parse(settings.URL)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing API URL")
	}

	var transport http.RoundTripper = NewSkipSSLTransport(settings.SkipSSLValidation)
	transport = &RetryableTransport{
		Transport:          transport,
		MaxRetryCount:      settings.MaxRetries,
		TimeBetweenRetries: settings.RetryInterval,
	}
	transport = UserAgentTransport{
		UserAgent: settings.UserAgent,
		Rt:        transport,
	}

	client := &characterClient{
		settings: settings,
		origin:   origin,
		httpClient: &http.Client{
			Timeout:   settings.RequestTimeout,
			Transport: transport,
		},
	}

	if settings.BreakerMaxFailures > 0 {
		maxFailures := uint32(settings.BreakerMaxFailures)
		client.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "character-api",
			MaxRequests: 1,
			Timeout:     settings.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logrus.Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
			},
			IsSuccessful: healthyOutcome,
		})
	}

	return client, nil
}

// healthyOutcome tells the breaker which results say nothing bad about the API. Callers that went
// away and requests the API rejected as invalid must not open the circuit for everyone else.
func healthyOutcome(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.StatusCode >= 400 && fetchErr.StatusCode < 500
}

func (c *characterClient) FirstPage() paging.Cursor {
	return paging.Cursor(c.settings.URL)
}

// Load fetches the page the cursor points to. Any failure is reported as a *FetchError.
func (c *characterClient) Load(ctx context.Context, cursor paging.Cursor) (*paging.Page[Character], error) {
	if !cursor.HasNext() {
		return nil, paging.ErrNoMorePages
	}
	if err := c.checkCursor(cursor); err != nil {
		return nil, fetchError(cursor.String(), 0, err)
	}

	if c.breaker == nil {
		return c.load(ctx, cursor)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.load(ctx, cursor)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fetchError(cursor.String(), 0, err)
		}
		return nil, err
	}
	return result.(*paging.Page[Character]), nil
}

func (c *characterClient) load(ctx context.Context, cursor paging.Cursor) (*paging.Page[Character], error) {
	log.C(ctx).Debugf("Getting characters page from %s", cursor)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, cursor.String(), nil)
	if err != nil {
		return nil, fetchError(cursor.String(), 0, err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fetchError(cursor.String(), 0, errors.Wrap(err, "error getting characters from API"))
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fetchError(cursor.String(), response.StatusCode, httputils.HandleResponseError(response))
	}

	body, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return nil, fetchError(cursor.String(), response.StatusCode, errors.Wrap(err, "error reading response body"))
	}

	list, err := decodeCharacters(body)
	if err != nil {
		return nil, fetchError(cursor.String(), response.StatusCode, err)
	}

	return packPage(list), nil
}

// checkCursor only lets cursors through that address the configured API host
func (c *characterClient) checkCursor(cursor paging.Cursor) error {
	u, err := url.Parse(cursor.String())
	if err != nil {
		return errors.Wrap(err, "invalid cursor")
	}
	if !strings.EqualFold(u.Scheme, c.origin.Scheme) || !strings.EqualFold(u.Host, c.origin.Host) {
		return errors.Errorf("cursor %s does not address %s://%s", cursor, c.origin.Scheme, c.origin.Host)
	}
	return nil
}

func decodeCharacters(body []byte) (*Characters, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}
	info := gjson.GetBytes(body, "info")
	if !info.IsObject() {
		return nil, errors.New("response has no info object")
	}
	if next := info.Get("next"); next.Exists() && next.Type != gjson.Null && next.Type != gjson.String {
		return nil, errors.New("response info.next is neither a string nor null")
	}
	if !gjson.GetBytes(body, "results").IsArray() {
		return nil, errors.New("response has no results array")
	}

	list := &Characters{}
	if err := json.Unmarshal(body, list); err != nil {
		return nil, errors.Wrap(err, "error decoding characters page")
	}
	return list, nil
}

func packPage(list *Characters) *paging.Page[Character] {
	page := &paging.Page[Character]{
		Next:  paging.NoMorePages,
		Items: list.Results,
		Total: list.Info.Count,
		Pages: list.Info.Pages,
	}
	if page.Items == nil {
		page.Items = []Character{}
	}
	if list.Info.Next != nil {
		page.Next = paging.Cursor(*list.Info.Next)
	}
	return page
}
