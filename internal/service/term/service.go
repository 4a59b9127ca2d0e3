// Package term resolves medical-term lookups: Sinhala→English translation
// followed by an illustrative image search.
package term

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/medilink-lk/medibridge/backend/internal/config"
)

var ErrTranslationUnavailable = errors.New("translation service unavailable")

// Service implements ports.Translator and ports.ImageFinder over the
// Google Translate v2 and Wikipedia pageimages REST contracts.
type Service struct {
	translateKey string
	translateURL string
	lookupURL    string
	thumbnailPix int
	httpClient   *http.Client
}

// NewService builds the lookup service from configuration.
func NewService(translate config.TranslateConfig, lookup config.LookupConfig) *Service {
	pix := lookup.ThumbnailPix
	if pix <= 0 {
		pix = 300
	}
	return &Service{
		translateKey: translate.APIKey,
		translateURL: translate.BaseURL,
		lookupURL:    lookup.BaseURL,
		thumbnailPix: pix,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate converts a single Sinhala word into English.
func (s *Service) Translate(ctx context.Context, word string) (string, error) {
	params := url.Values{}
	params.Set("q", word)
	params.Set("source", "si")
	params.Set("target", "en")
	params.Set("key", s.translateKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.translateURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrTranslationUnavailable, resp.StatusCode)
	}

	var payload translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode translation response: %w", err)
	}
	if len(payload.Data.Translations) == 0 {
		return "", fmt.Errorf("%w: no translations returned", ErrTranslationUnavailable)
	}
	return payload.Data.Translations[0].TranslatedText, nil
}

type pageImagesResponse struct {
	Query struct {
		Pages map[string]struct {
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// FindImage returns a thumbnail URL for an English term, or "" when the
// encyclopedia has no image for it.
func (s *Service) FindImage(ctx context.Context, englishTerm string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("origin", "*")
	params.Set("prop", "pageimages")
	params.Set("titles", englishTerm)
	params.Set("pithumbsize", strconv.Itoa(s.thumbnailPix))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.lookupURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image lookup failed: status %d", resp.StatusCode)
	}

	var payload pageImagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode image response: %w", err)
	}

	for _, page := range payload.Query.Pages {
		if page.Thumbnail != nil {
			return page.Thumbnail.Source, nil
		}
	}
	return "", nil
}
