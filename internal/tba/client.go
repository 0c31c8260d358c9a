package tba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/telemetry"
)

const authHeader = "X-TBA-Auth-Key"

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *telemetry.Metrics
}

type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "tba request failed"
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, msg, e.StatusCode)
}

// A zero timeout leaves requests unbounded.
func NewClient(baseURL string, apiKey string, timeout time.Duration, metrics *telemetry.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

func (c *Client) DistrictTeamKeys(ctx context.Context, district string) ([]string, error) {
	raw, err := c.request(ctx, "district_team_keys", "/district/"+district+"/teams/keys")
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("decode district %s team keys: %w", district, err)
	}
	return keys, nil
}

// Team reports found=false when the record has no team_number.
func (c *Client) Team(ctx context.Context, number string) (domain.Team, bool, error) {
	raw, err := c.request(ctx, "team", "/team/frc"+number)
	if err != nil {
		return domain.Team{}, false, err
	}
	var payload struct {
		TeamNumber *int   `json:"team_number"`
		Nickname   string `json:"nickname"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Team{}, false, fmt.Errorf("decode team frc%s: %w", number, err)
	}
	if payload.TeamNumber == nil || *payload.TeamNumber == 0 {
		return domain.Team{}, false, nil
	}
	return domain.Team{Number: *payload.TeamNumber, Nickname: payload.Nickname}, true, nil
}

func (c *Client) CheckConnectivity(ctx context.Context) error {
	_, err := c.request(ctx, "status", "/status")
	return err
}

func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func (c *Client) request(ctx context.Context, endpoint string, path string) ([]byte, error) {
	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(authHeader, c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveTBARequest(endpoint, "error", started)
		return nil, err
	}
	defer res.Body.Close()
	c.metrics.ObserveTBARequest(endpoint, strconv.Itoa(res.StatusCode), started)

	raw, readErr := io.ReadAll(res.Body)
	if readErr != nil {
		return nil, readErr
	}
	if res.StatusCode >= 400 {
		return nil, &StatusError{Endpoint: endpoint, StatusCode: res.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
