package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"foodcart/internal/interfaces"
	"foodcart/internal/metrics"
	"foodcart/models"
)

const DefaultBaseURL = "https://geocode-maps.yandex.ru/1.x"

var (
	// ErrGeocodeFailed любой сбой провайдера: сеть, статус, тело ответа
	ErrGeocodeFailed = errors.New("geocode failed")
	// ErrNotFound провайдер ответил, но ничего не нашёл
	ErrNotFound = errors.New("geocode: address not found")
)

var _ interfaces.Geocoder = (*Client)(nil)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type yandexResponse struct {
	Response *struct {
		GeoObjectCollection *struct {
			FeatureMember []struct {
				GeoObject *struct {
					Point *struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

// Fetch координаты самого релевантного результата для адреса
func (c *Client) Fetch(ctx context.Context, address string) (models.Coordinates, error) {
	coords, err := c.fetch(ctx, address)
	switch {
	case err == nil:
		metrics.GeocodeRequests.WithLabelValues("success").Inc()
	case errors.Is(err, ErrNotFound):
		metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
	default:
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
	}
	return coords, err
}

func (c *Client) fetch(ctx context.Context, address string) (models.Coordinates, error) {
	params := url.Values{}
	params.Set("geocode", address)
	params.Set("apikey", c.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: build request: %v", ErrGeocodeFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Coordinates{}, fmt.Errorf("%w: status %d: %s", ErrGeocodeFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result yandexResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: decode response: %v", ErrGeocodeFailed, err)
	}
	if result.Response == nil || result.Response.GeoObjectCollection == nil ||
		result.Response.GeoObjectCollection.FeatureMember == nil {
		return models.Coordinates{}, fmt.Errorf("%w: unexpected response shape", ErrGeocodeFailed)
	}

	found := result.Response.GeoObjectCollection.FeatureMember
	if len(found) == 0 {
		return models.Coordinates{}, ErrNotFound
	}

	mostRelevant := found[0]
	if mostRelevant.GeoObject == nil || mostRelevant.GeoObject.Point == nil {
		return models.Coordinates{}, fmt.Errorf("%w: result has no point", ErrGeocodeFailed)
	}
	return parsePos(mostRelevant.GeoObject.Point.Pos)
}

// parsePos разбирает строку "долгота широта"
func parsePos(pos string) (models.Coordinates, error) {
	parts := strings.Fields(pos)
	if len(parts) != 2 {
		return models.Coordinates{}, fmt.Errorf("%w: malformed pos %q", ErrGeocodeFailed, pos)
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: malformed longitude %q", ErrGeocodeFailed, parts[0])
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: malformed latitude %q", ErrGeocodeFailed, parts[1])
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.Coordinates{}, fmt.Errorf("%w: coordinates out of range %q", ErrGeocodeFailed, pos)
	}
	return models.Coordinates{Lat: lat, Lon: lon}, nil
}
