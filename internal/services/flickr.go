// Flickr implementation of [Service]
//
// REST method reference: https://www.flickr.com/services/api/
package services

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dcheno/flickrup/internal/shared"
	"github.com/dghubble/oauth1"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const (
	flickrRestURL   = "https://api.flickr.com/services/rest/"
	flickrUploadURL = "https://up.flickr.com/services/upload/"

	flickrRequestTokenURL = "https://www.flickr.com/services/oauth/request_token"
	flickrAuthorizeURL    = "https://www.flickr.com/services/oauth/authorize"
	flickrAccessTokenURL  = "https://www.flickr.com/services/oauth/access_token"

	// Flickr allows 3600 requests per hour per key.
	flickrRequestsPerSecond = 1.0
)

// errAlreadyInSet is the flickr.photosets.addPhoto code for a duplicate member.
const errAlreadyInSet = 3

// APIError is an application-level failure reported by the Flickr API
// (stat="fail"). Distinct from transport errors, which may be retried on
// idempotent calls; API errors never are.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flickr API error %d: %s", e.Code, e.Message)
}

// content unwraps Flickr's {"_content": "..."} string fields.
type content struct {
	Content string `json:"_content"`
}

// FlickrService implements the Service interface against the Flickr REST API.
// Requests are signed with OAuth 1.0a and paced under the API's hourly cap.
type FlickrService struct {
	config     *oauth1.Config
	token      *oauth1.Token
	httpClient *http.Client
	limiter    *rate.Limiter

	// endpoint overrides for tests
	restURL   string
	uploadURL string
}

// NewFlickrService creates a Flickr service from configured credentials.
// The OAuth token may be empty; only the auth login flow works without it.
func NewFlickrService(creds shared.FlickrConfig) (*FlickrService, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("%w: api_key and api_secret are required", shared.ErrMissingCredentials)
	}

	config := &oauth1.Config{
		ConsumerKey:    creds.APIKey,
		ConsumerSecret: creds.APISecret,
		CallbackURL:    "oob",
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: flickrRequestTokenURL,
			AuthorizeURL:    flickrAuthorizeURL,
			AccessTokenURL:  flickrAccessTokenURL,
		},
	}

	s := &FlickrService{
		config:    config,
		limiter:   rate.NewLimiter(rate.Limit(flickrRequestsPerSecond), 3),
		restURL:   flickrRestURL,
		uploadURL: flickrUploadURL,
	}

	if creds.OAuthToken != "" && creds.OAuthTokenSecret != "" {
		s.token = oauth1.NewToken(creds.OAuthToken, creds.OAuthTokenSecret)
		s.httpClient = config.Client(oauth1.NoContext, s.token)
	}

	return s, nil
}

func (s *FlickrService) Name() string {
	return "Flickr"
}

// AuthorizationURL starts the out-of-band OAuth flow: returns the URL the
// user must open plus the request token pair needed by ExchangeVerifier.
func (s *FlickrService) AuthorizationURL() (string, string, string, error) {
	requestToken, requestSecret, err := s.config.RequestToken()
	if err != nil {
		return "", "", "", fmt.Errorf("%w: request token: %v", shared.ErrAuthFailed, err)
	}

	authURL, err := s.config.AuthorizationURL(requestToken)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: authorization URL: %v", shared.ErrAuthFailed, err)
	}

	// Uploading needs write permission.
	q := authURL.Query()
	q.Set("perms", "write")
	authURL.RawQuery = q.Encode()

	return authURL.String(), requestToken, requestSecret, nil
}

// ExchangeVerifier completes the OAuth flow with the verifier code the user
// copied from the browser, returning the access token pair to persist.
func (s *FlickrService) ExchangeVerifier(requestToken, requestSecret, verifier string) (string, string, error) {
	accessToken, accessSecret, err := s.config.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return "", "", fmt.Errorf("%w: access token exchange: %v", shared.ErrAuthFailed, err)
	}

	s.token = oauth1.NewToken(accessToken, accessSecret)
	s.httpClient = s.config.Client(oauth1.NoContext, s.token)

	return accessToken, accessSecret, nil
}

// Authenticate verifies the stored token with flickr.test.login.
func (s *FlickrService) Authenticate(ctx context.Context) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: run 'flickrup auth login' first", shared.ErrNotAuthenticated)
	}

	var resp struct {
		User struct {
			ID       string  `json:"id"`
			Username content `json:"username"`
		} `json:"user"`
	}

	if err := s.call(ctx, http.MethodGet, "flickr.test.login", nil, &resp); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return nil
}

// ListSets retrieves all photosets for the authenticated user, walking pages.
func (s *FlickrService) ListSets(ctx context.Context) ([]Photoset, error) {
	var all []Photoset

	for page := 1; ; page++ {
		var resp struct {
			Photosets struct {
				Page     int `json:"page"`
				Pages    int `json:"pages"`
				Photoset []struct {
					ID          string  `json:"id"`
					Title       content `json:"title"`
					Description content `json:"description"`
				} `json:"photoset"`
			} `json:"photosets"`
		}

		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {"500"},
		}
		if err := s.callWithRetry(ctx, "flickr.photosets.getList", params, &resp); err != nil {
			return nil, err
		}

		for _, ps := range resp.Photosets.Photoset {
			all = append(all, Photoset{
				ID:          ps.ID,
				Title:       ps.Title.Content,
				Description: ps.Description.Content,
			})
		}

		if page >= resp.Photosets.Pages {
			break
		}
	}

	return all, nil
}

// CreateSet creates a new photoset with the given primary photo.
func (s *FlickrService) CreateSet(ctx context.Context, title, primaryPhotoID string) (*Photoset, error) {
	var resp struct {
		Photoset struct {
			ID string `json:"id"`
		} `json:"photoset"`
	}

	params := url.Values{
		"title":            {title},
		"primary_photo_id": {primaryPhotoID},
	}
	if err := s.call(ctx, http.MethodPost, "flickr.photosets.create", params, &resp); err != nil {
		return nil, err
	}

	return &Photoset{ID: resp.Photoset.ID, Title: title}, nil
}

// ListSetPhotos retrieves the full membership of a photoset, walking pages.
func (s *FlickrService) ListSetPhotos(ctx context.Context, setID string) ([]Photo, error) {
	var all []Photo

	for page := 1; ; page++ {
		var resp struct {
			Photoset struct {
				Page  int `json:"page"`
				Pages int `json:"pages"`
				Photo []struct {
					ID    string `json:"id"`
					Title string `json:"title"`
				} `json:"photo"`
			} `json:"photoset"`
		}

		params := url.Values{
			"photoset_id": {setID},
			"page":        {strconv.Itoa(page)},
			"per_page":    {"500"},
		}
		if err := s.callWithRetry(ctx, "flickr.photosets.getPhotos", params, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp.Photoset.Photo {
			all = append(all, Photo{ID: p.ID, Title: p.Title})
		}

		if page >= resp.Photoset.Pages {
			break
		}
	}

	return all, nil
}

// AddToSet adds a photo to a photoset. The "already in set" API error is
// treated as success so concurrent adds stay idempotent.
func (s *FlickrService) AddToSet(ctx context.Context, setID, photoID string) error {
	params := url.Values{
		"photoset_id": {setID},
		"photo_id":    {photoID},
	}

	err := s.call(ctx, http.MethodPost, "flickr.photosets.addPhoto", params, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == errAlreadyInSet {
		return nil
	}
	return err
}

// uploadResponse is the XML envelope returned by the upload endpoint.
type uploadResponse struct {
	XMLName xml.Name `xml:"rsp"`
	Stat    string   `xml:"stat,attr"`
	PhotoID string   `xml:"photoid"`
	Err     struct {
		Code int    `xml:"code,attr"`
		Msg  string `xml:"msg,attr"`
	} `xml:"err"`
}

// Upload sends one file as a signed multipart POST and returns the new photo ID.
func (s *FlickrService) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if s.httpClient == nil {
		return "", fmt.Errorf("%w: run 'flickrup auth login' first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	f, err := os.Open(req.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	defer f.Close()

	body := &strings.Builder{}
	writer := multipart.NewWriter(body)

	isPublic := "0"
	if req.Public {
		isPublic = "1"
	}
	fields := map[string]string{
		"title":     req.Title,
		"tags":      req.Tags,
		"is_public": isPublic,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
		}
	}

	part, err := writer.CreateFormFile("photo", filepath.Base(req.Path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, strings.NewReader(body.String()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", shared.ErrUploadFailed, httpResp.StatusCode)
	}

	var parsed uploadResponse
	if err := xml.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", shared.ErrUploadFailed, err)
	}

	if parsed.Stat != "ok" {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, &APIError{Code: parsed.Err.Code, Message: parsed.Err.Msg})
	}
	if parsed.PhotoID == "" {
		return "", fmt.Errorf("%w: response missing photo id", shared.ErrUploadFailed)
	}

	return parsed.PhotoID, nil
}

// statEnvelope is the common REST response envelope.
type statEnvelope struct {
	Stat    string `json:"stat"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call performs a signed, rate-limited REST request for the given method and
// decodes the JSON response into result (which may be nil).
func (s *FlickrService) call(ctx context.Context, httpMethod, apiMethod string, params url.Values, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: run 'flickrup auth login' first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	values := url.Values{
		"method":         {apiMethod},
		"format":         {"json"},
		"nojsoncallback": {"1"},
	}
	for k, vs := range params {
		for _, v := range vs {
			values.Add(k, v)
		}
	}

	var req *http.Request
	var err error
	if httpMethod == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, s.restURL, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, s.restURL+"?"+values.Encode(), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var envelope statEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	if envelope.Stat != "ok" {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, &APIError{Code: envelope.Code, Message: envelope.Message})
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// callWithRetry wraps call with capped exponential backoff for idempotent
// reads. Application-level failures (stat="fail") are not retried; transport
// and server errors are.
func (s *FlickrService) callWithRetry(ctx context.Context, apiMethod string, params url.Values, result any) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(250*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.call(ctx, http.MethodGet, apiMethod, params, result)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return err
		}
		return retry.RetryableError(err)
	})
}
