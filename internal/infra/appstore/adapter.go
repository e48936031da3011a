// Package appstore implements the platform adapter for App Store Connect
// customer review responses.
package appstore

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

const (
	baseURL = "https://api.appstoreconnect.apple.com"

	// maxFetch caps the reviews collected in one fetch to avoid runaway
	// pagination on a large backlog.
	maxFetch = 200

	tokenTTL = 20 * time.Minute
)

// Adapter talks to the App Store Connect REST API
type Adapter struct {
	keyID      string
	issuerID   string
	keyFile    string
	hc         *http.Client
	privateKey *ecdsa.PrivateKey
}

// New creates an App Store Connect adapter. The signing key is loaded lazily
// on first use.
func New(keyID, issuerID, keyFile string) *Adapter {
	return &Adapter{
		keyID:    keyID,
		issuerID: issuerID,
		keyFile:  keyFile,
		hc:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the platform name
func (a *Adapter) Name() string {
	return domain.PlatformAppStore.Label()
}

func (a *Adapter) signingKey() (*ecdsa.PrivateKey, error) {
	if a.privateKey != nil {
		return a.privateKey, nil
	}
	raw, err := os.ReadFile(a.keyFile)
	if err != nil {
		return nil, fmt.Errorf("read private key %s: %w", a.keyFile, err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	a.privateKey = key
	return key, nil
}

// token mints a short-lived ES256 JWT for the App Store Connect API
func (a *Adapter) token() (string, error) {
	key, err := a.signingKey()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": a.issuerID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
		"aud": "appstoreconnect-v1",
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tok.Header["kid"] = a.keyID

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Adapter) request(ctx context.Context, method, url string, body []byte, out interface{}) error {
	token, err := a.token()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.hc.Do(req)
	if err != nil {
		return fmt.Errorf("app store connect request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("app store connect API error %d: %s", resp.StatusCode, payload)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode app store connect response: %w", err)
		}
	}
	return nil
}

type ascReview struct {
	ID         string `json:"id"`
	Attributes struct {
		Rating           int    `json:"rating"`
		Title            string `json:"title"`
		Body             string `json:"body"`
		ReviewerNickname string `json:"reviewerNickname"`
		CreatedDate      string `json:"createdDate"`
		Territory        string `json:"territory"`
	} `json:"attributes"`
}

type ascReviewsResponse struct {
	Data  []ascReview `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// FetchUnrespondedReviews fetches reviews without a published developer
// response. The filter is server-side via exists[publishedResponse]=false.
func (a *Adapter) FetchUnrespondedReviews(ctx context.Context, appID, appName string) ([]domain.NormalizedReview, error) {
	var unresponded []domain.NormalizedReview

	url := fmt.Sprintf("%s/v1/apps/%s/customerReviews"+
		"?exists[publishedResponse]=false"+
		"&sort=-createdDate"+
		"&limit=50"+
		"&fields[customerReviews]=rating,title,body,reviewerNickname,createdDate,territory",
		baseURL, appID)

	for url != "" {
		var resp ascReviewsResponse
		if err := a.request(ctx, http.MethodGet, url, nil, &resp); err != nil {
			return nil, err
		}
		unresponded = appendPage(unresponded, resp.Data, appID, appName)
		if len(unresponded) >= maxFetch {
			break
		}
		url = resp.Links.Next
	}

	log.Info().Str("app", appID).Int("count", len(unresponded)).
		Msg("fetched unresponded app store reviews")
	return unresponded, nil
}

// ReplyToReview publishes a developer response, truncated to the 5970
// character store limit. Review IDs are globally unique in ASC, so the app ID
// is not part of the request.
func (a *Adapter) ReplyToReview(ctx context.Context, _ string, reviewID, text string) error {
	trimmed := domain.TruncateReply(domain.PlatformAppStore, text)

	body, err := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{
			"type": "customerReviewResponses",
			"attributes": map[string]interface{}{
				"responseBody": trimmed,
			},
			"relationships": map[string]interface{}{
				"review": map[string]interface{}{
					"data": map[string]interface{}{
						"type": "customerReviews",
						"id":   reviewID,
					},
				},
			},
		},
	})
	if err != nil {
		return err
	}

	if err := a.request(ctx, http.MethodPost, baseURL+"/v1/customerReviewResponses", body, nil); err != nil {
		return err
	}

	log.Info().Str("review", reviewID).Msg("replied to app store review")
	return nil
}

// appendPage normalizes one page of reviews onto dst, never growing it past
// maxFetch.
func appendPage(dst []domain.NormalizedReview, page []ascReview, appID, appName string) []domain.NormalizedReview {
	for _, review := range page {
		if len(dst) >= maxFetch {
			break
		}
		dst = append(dst, normalize(review, appID, appName))
	}
	return dst
}

func normalize(review ascReview, appID, appName string) domain.NormalizedReview {
	attrs := review.Attributes
	fullText := attrs.Body
	if attrs.Title != "" {
		fullText = attrs.Title + "\n" + attrs.Body
	}

	author := attrs.ReviewerNickname
	if author == "" {
		author = "Anonymous"
	}
	territory := attrs.Territory
	if territory == "" {
		territory = "USA"
	}

	return domain.NormalizedReview{
		ReviewID:     review.ID,
		Platform:     domain.PlatformAppStore,
		AppID:        appID,
		AppName:      appName,
		AuthorName:   author,
		StarRating:   attrs.Rating,
		OriginalText: fullText,
		// ASC does not report the review language
		ReviewerLanguage: "auto",
		Territory:        territory,
	}
}
