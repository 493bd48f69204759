package upstream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"pq-sarfi/internal/domain"
)

// registryResponse asset registry API response envelope
type registryResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// meterRecord meter as returned by the asset registry
type meterRecord struct {
	MeterID      string `json:"meter_id"`
	OC           string `json:"oc"`
	Location     string `json:"location"`
	SubstationID string `json:"substation_id"`
	VoltageLevel string `json:"voltage_level"`
}

// RegistryClient asset registry API client
type RegistryClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewRegistryClient creates a registry client
func NewRegistryClient(baseURL, apiKey string, logger *zap.Logger) *RegistryClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &RegistryClient{
		httpClient: client,
		logger:     logger,
	}
}

// ListMeters fetches the full PQ meter inventory from the asset registry
func (c *RegistryClient) ListMeters() ([]*domain.PQMeter, error) {
	var response registryResponse
	resp, err := c.httpClient.R().
		SetResult(&response).
		Get("/api/v1/pq-meters")

	if err != nil {
		c.logger.Error("Registry API call failed",
			zap.Error(err),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("failed to call registry API: %w", err)
	}

	if response.Status != 0 {
		c.logger.Error("Registry API returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("registry API error: %s (status: %d)", response.Msg, response.Status)
	}

	var records []meterRecord
	if err := json.Unmarshal(response.Data, &records); err != nil {
		c.logger.Error("Failed to unmarshal registry API response", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal meters: %w", err)
	}

	meters := make([]*domain.PQMeter, 0, len(records))
	for _, r := range records {
		meters = append(meters, &domain.PQMeter{
			MeterID:      r.MeterID,
			OC:           r.OC,
			Location:     r.Location,
			SubstationID: r.SubstationID,
			VoltageLevel: r.VoltageLevel,
		})
	}

	c.logger.Info("Successfully retrieved meters from registry API",
		zap.Int("meter_count", len(meters)),
	)

	return meters, nil
}
