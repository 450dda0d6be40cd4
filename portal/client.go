package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/erraggy/wmtools"
	"github.com/erraggy/wmtools/internal/httputil"
	"github.com/erraggy/wmtools/internal/tracing"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
)

// DefaultTimeout bounds each portal request.
const DefaultTimeout = 30 * time.Second

// Client talks to a portal's REST content API.
type Client struct {
	// BaseURL is the portal root, for example https://www.arcgis.com.
	BaseURL string
	// Token is sent with every request when set.
	Token string
	// HTTPClient performs the requests; its Timeout is set from the client
	// timeout when the client builds it.
	HTTPClient *http.Client
	// SkipMetadata disables the per-layer service and item lookups.
	SkipMetadata bool
	Logger       webmap.Logger

	mu     sync.Mutex
	owners map[string]string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the portal token.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.Token = token }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l webmap.Logger) ClientOption {
	return func(c *Client) { c.Logger = webmap.OrNop(l) }
}

// WithoutMetadata skips fetching layer service metadata.
func WithoutMetadata() ClientOption {
	return func(c *Client) { c.SkipMetadata = true }
}

// NewClient returns a client for the portal at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &wmerrors.ConfigError{Option: "portal.url", Value: baseURL, Message: "must be an absolute URL", Cause: err}
	}
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Logger:     webmap.NopLogger{},
		owners:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// itemInfo is the subset of an item description the client uses.
type itemInfo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Owner   string `json:"owner"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
}

// Fetch loads a web map item, its data and, unless disabled, the metadata
// of each layer that references a feature service.
func (c *Client) Fetch(ctx context.Context, id string) (*webmap.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "portal.Fetch", tracing.AttrWebMapID.String(id))
	doc, err := c.fetch(ctx, id)
	tracing.EndSpanWithError(span, err)
	return doc, err
}

func (c *Client) fetch(ctx context.Context, id string) (*webmap.Document, error) {
	if id == "" {
		return nil, &wmerrors.ValidationError{Field: "id", Message: "web map id must not be empty"}
	}
	var item itemInfo
	if err := c.get(ctx, c.itemURL(id), nil, &item); err != nil {
		return nil, c.wrapNotFound(err, "webmap", id)
	}
	if item.Type != "" && item.Type != "Web Map" {
		return nil, &wmerrors.ValidationError{Field: "id", Value: id, Message: fmt.Sprintf("item is a %q, not a web map", item.Type)}
	}
	c.rememberOwner(id, item.Owner)

	var raw map[string]any
	if err := c.get(ctx, c.itemURL(id)+"/data", nil, &raw); err != nil {
		return nil, c.wrapNotFound(err, "webmap", id)
	}

	opts := []webmap.Option{
		webmap.WithDocumentID(id),
		webmap.WithTitle(item.Title),
		webmap.WithLogger(c.Logger),
	}
	if !c.SkipMetadata {
		opts = append(opts, webmap.WithMetadata(c.layerMetadata(ctx, raw)))
	}
	return webmap.FromMap(raw, opts...)
}

// Persist writes the document back as the item's data.
func (c *Client) Persist(ctx context.Context, doc *webmap.Document) error {
	if doc == nil {
		return &wmerrors.ValidationError{Field: "doc", Message: "document is nil"}
	}
	ctx, span := tracing.StartSpan(ctx, "portal.Persist", tracing.AttrWebMapID.String(doc.ID))
	err := c.persist(ctx, doc)
	tracing.EndSpanWithError(span, err)
	return err
}

func (c *Client) persist(ctx context.Context, doc *webmap.Document) error {
	owner, err := c.owner(ctx, doc.ID)
	if err != nil {
		return &wmerrors.PersistError{DocumentID: doc.ID, Cause: err}
	}
	text, err := doc.MarshalJSON()
	if err != nil {
		return &wmerrors.PersistError{DocumentID: doc.ID, Cause: err}
	}
	form := url.Values{"text": {string(text)}}
	endpoint := fmt.Sprintf("%s/sharing/rest/content/users/%s/items/%s/update",
		c.BaseURL, url.PathEscape(owner), url.PathEscape(doc.ID))

	var res struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := c.post(ctx, endpoint, form, &res); err != nil {
		return &wmerrors.PersistError{DocumentID: doc.ID, Cause: err}
	}
	if !res.Success {
		return &wmerrors.PersistError{DocumentID: doc.ID, Cause: errors.New("portal reported the update as unsuccessful")}
	}
	c.logger().Info("updated web map item", "id", doc.ID, "owner", owner)
	return nil
}

// SaveCopy adds a new web map item owned by the original's owner and returns
// its ID. The copy's title is the original title plus titleSuffix.
func (c *Client) SaveCopy(ctx context.Context, doc *webmap.Document, titleSuffix string) (string, error) {
	if doc == nil {
		return "", &wmerrors.ValidationError{Field: "doc", Message: "document is nil"}
	}
	if titleSuffix == "" {
		return "", &wmerrors.ValidationError{Field: "titleSuffix", Message: "suffix must not be empty"}
	}
	ctx, span := tracing.StartSpan(ctx, "portal.SaveCopy", tracing.AttrWebMapID.String(doc.ID))
	id, err := c.saveCopy(ctx, doc, titleSuffix)
	tracing.EndSpanWithError(span, err)
	return id, err
}

func (c *Client) saveCopy(ctx context.Context, doc *webmap.Document, titleSuffix string) (string, error) {
	owner, err := c.owner(ctx, doc.ID)
	if err != nil {
		return "", &wmerrors.PersistError{DocumentID: doc.ID, Cause: err}
	}
	text, err := doc.MarshalJSON()
	if err != nil {
		return "", &wmerrors.PersistError{DocumentID: doc.ID, Cause: err}
	}
	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	form := url.Values{
		"type":  {"Web Map"},
		"title": {title + titleSuffix},
		"text":  {string(text)},
	}
	endpoint := fmt.Sprintf("%s/sharing/rest/content/users/%s/addItem", c.BaseURL, url.PathEscape(owner))

	var res struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := c.post(ctx, endpoint, form, &res); err != nil {
		return "", &wmerrors.PersistError{DocumentID: doc.ID, Cause: err}
	}
	if !res.Success || res.ID == "" {
		return "", &wmerrors.PersistError{DocumentID: doc.ID, Cause: errors.New("portal did not return the new item id")}
	}
	c.rememberOwner(res.ID, owner)
	c.logger().Info("added web map copy", "id", doc.ID, "copy_id", res.ID, "title", title+titleSuffix)
	return res.ID, nil
}

func (c *Client) itemURL(id string) string {
	return c.BaseURL + "/sharing/rest/content/items/" + url.PathEscape(id)
}

func (c *Client) logger() webmap.Logger {
	return webmap.OrNop(c.Logger)
}

func (c *Client) rememberOwner(id, owner string) {
	if owner == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owners == nil {
		c.owners = make(map[string]string)
	}
	c.owners[id] = owner
}

// owner returns the item owner, looking the item up when it was not fetched
// through this client.
func (c *Client) owner(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	owner, ok := c.owners[id]
	c.mu.Unlock()
	if ok {
		return owner, nil
	}
	var item itemInfo
	if err := c.get(ctx, c.itemURL(id), nil, &item); err != nil {
		return "", c.wrapNotFound(err, "webmap", id)
	}
	if item.Owner == "" {
		return "", fmt.Errorf("portal: item %s has no owner", id)
	}
	c.rememberOwner(id, item.Owner)
	return item.Owner, nil
}

func (c *Client) wrapNotFound(err error, kind, id string) error {
	var pe *httputil.PortalError
	var se *httputil.StatusError
	if (errors.As(err, &pe) && pe.NotFound()) || (errors.As(err, &se) && se.StatusCode == http.StatusNotFound) {
		return &wmerrors.NotFoundError{Kind: kind, ID: id, Cause: err}
	}
	return fmt.Errorf("portal: fetching %s %s: %w", kind, id, err)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, v any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("f", "json")
	if c.Token != "" {
		query.Set("token", c.Token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("portal: building request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values, v any) error {
	form.Set("f", "json")
	if c.Token != "" {
		form.Set("token", c.Token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("portal: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	req.Header.Set("User-Agent", wmtools.UserAgent())
	req.Header.Set("Accept", "application/json")
	tracing.InjectHeaders(req.Context(), req.Header)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	c.logger().Debug("portal request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).String())
	return httputil.DecodeResponse(resp, v)
}

// parseEpochMillis converts a portal timestamp to UTC time; zero means unset.
func parseEpochMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// layerIndex returns the trailing layer number of a feature service layer
// URL, or "" when the URL points at the service itself.
func layerIndex(layerURL string) string {
	u := strings.TrimRight(layerURL, "/")
	i := strings.LastIndex(u, "/")
	if i < 0 {
		return ""
	}
	if _, err := strconv.Atoi(u[i+1:]); err != nil {
		return ""
	}
	return u[i+1:]
}
