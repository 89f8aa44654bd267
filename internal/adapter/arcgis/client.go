// Package arcgis implements pipeline.Extractor against an ArcGIS Online
// feature service. Each survey layer is pulled with a paged query and
// decoded into a table; esriFieldTypeDate attributes arrive as epoch
// milliseconds and are decoded to naive UTC timestamps, which is the table
// engine's contract for unlocalized values.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pacificflyway/goose-resight-etl/internal/pipeline"
	"github.com/pacificflyway/goose-resight-etl/internal/table"
)

// Layers holds the layer indexes of the three survey tables within the
// feature service.
type Layers struct {
	Events int
	Points int
	Bands  int
}

// Client queries an ArcGIS Online feature service.
type Client struct {
	baseURL    string
	token      string
	layers     Layers
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feature-service client. Pass an empty token for
// services with public sharing.
func NewClient(baseURL, token string, layers Layers, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		layers:  layers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ExtractTables pulls all three survey layers. Any failure aborts the whole
// extraction.
func (c *Client) ExtractTables(ctx context.Context) (pipeline.Tables, error) {
	events, err := c.queryLayer(ctx, c.layers.Events)
	if err != nil {
		return pipeline.Tables{}, fmt.Errorf("query events layer %d: %w", c.layers.Events, err)
	}
	points, err := c.queryLayer(ctx, c.layers.Points)
	if err != nil {
		return pipeline.Tables{}, fmt.Errorf("query points layer %d: %w", c.layers.Points, err)
	}
	bands, err := c.queryLayer(ctx, c.layers.Bands)
	if err != nil {
		return pipeline.Tables{}, fmt.Errorf("query bands layer %d: %w", c.layers.Bands, err)
	}
	return pipeline.Tables{Events: events, Points: points, Bands: bands}, nil
}

// queryLayer pages through a layer until the service stops reporting an
// exceeded transfer limit. Column order comes from the layer's field
// metadata, so an empty layer still yields a fully-typed table.
func (c *Client) queryLayer(ctx context.Context, layer int) (*table.Table, error) {
	var (
		out      *table.Table
		dateCols map[string]bool
		offset   int
	)
	for {
		page, err := c.queryPage(ctx, layer, offset)
		if err != nil {
			return nil, err
		}
		if out == nil {
			cols := make([]string, len(page.Fields))
			var dateNames []string
			dateCols = make(map[string]bool)
			for i, f := range page.Fields {
				cols[i] = f.Name
				if f.Type == "esriFieldTypeDate" {
					dateCols[f.Name] = true
					dateNames = append(dateNames, f.Name)
				}
			}
			out = table.New(cols...)
			// Declare date columns from the field metadata so an empty layer
			// still carries its timestamp columns through the pipeline.
			out.MarkTimestamps(dateNames...)
		}
		for _, feat := range page.Features {
			out.Append(decodeAttributes(feat.Attributes, dateCols))
		}
		offset += len(page.Features)
		if !page.ExceededTransferLimit || len(page.Features) == 0 {
			break
		}
	}
	c.logger.Debug("queried layer", "layer", layer, "rows", out.Len())
	return out, nil
}

func (c *Client) queryPage(ctx context.Context, layer, offset int) (*queryResponse, error) {
	params := url.Values{
		"where":          {"1=1"},
		"outFields":      {"*"},
		"returnGeometry": {"false"},
		"f":              {"json"},
		"resultOffset":   {strconv.Itoa(offset)},
	}
	if c.token != "" {
		params.Set("token", c.token)
	}
	u := fmt.Sprintf("%s/%d/query?%s", c.baseURL, layer, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feature service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feature service status %d", resp.StatusCode)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// ArcGIS reports application errors inside a 200 response.
	if qr.Error != nil {
		return nil, fmt.Errorf("feature service error %d: %s", qr.Error.Code, qr.Error.Message)
	}
	return &qr, nil
}

// decodeAttributes converts a feature's attribute map to a table row,
// turning epoch-millisecond date fields into naive UTC timestamps.
func decodeAttributes(attrs map[string]any, dateCols map[string]bool) table.Row {
	row := make(table.Row, len(attrs))
	for k, v := range attrs {
		if v == nil {
			row[k] = nil
			continue
		}
		if dateCols[k] {
			if ms, ok := v.(float64); ok {
				row[k] = time.UnixMilli(int64(ms)).UTC()
				continue
			}
		}
		row[k] = v
	}
	return row
}

// Feature service response types.

type queryResponse struct {
	Fields                []fieldDef   `json:"fields"`
	Features              []featureRec `json:"features"`
	ExceededTransferLimit bool         `json:"exceededTransferLimit"`
	Error                 *apiError    `json:"error"`
}

type fieldDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type featureRec struct {
	Attributes map[string]any `json:"attributes"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
