package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/gridpulse/gridpulse/pkg/types"
)

const carbonTimeFormat = "2006-01-02T15:04Z"

type carbonBlock struct {
	From      string `json:"from"`
	Intensity struct {
		Forecast *int   `json:"forecast"`
		Actual   *int   `json:"actual"`
		Index    string `json:"index"`
	} `json:"intensity"`
}

type carbonRegionBlock struct {
	ShortName string        `json:"shortname"`
	Data      []carbonBlock `json:"data"`
}

func (c *Client) carbonHeader() http.Header {
	if c.carbonAPIKey == "" {
		return nil
	}
	return http.Header{"X-Api-Key": {c.carbonAPIKey}}
}

func (c *Client) getCarbon(ctx context.Context, path string, out any) error {
	res, err := c.get(ctx, c.fastClient, upstreamCarbon, c.carbonURL+path, c.carbonHeader())
	if err != nil {
		return err
	}
	if err := checkStatus(upstreamCarbon, res, c.carbonAPIKey != ""); err != nil {
		return err
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return &UnexpectedDataError{Source: upstreamCarbon, Reason: fmt.Sprintf("undecodable response: %v", err)}
	}
	return nil
}

// GetCarbonIntensity returns the most recent measured national carbon
// intensity in gCO2eq/kWh, the 48h national forecast, and when a region is
// configured the regional figures. The forecast calls degrade to an empty
// series on failure; only the measured national figure (and the regional
// current figure, when configured) can fail the category.
func (c *Client) GetCarbonIntensity(ctx context.Context, now time.Time) (*types.CarbonIntensity, error) {
	from := now.UTC().Format(carbonTimeFormat)

	var past struct {
		Data []carbonBlock `json:"data"`
	}
	if err := c.getCarbon(ctx, "/intensity/"+from+"/pt24h", &past); err != nil {
		return nil, err
	}
	if len(past.Data) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamCarbon, Reason: "no intensity data in the last 24 hours"}
	}

	// walk backwards to the newest slot that has a measured value
	intensity := &types.CarbonIntensity{CurrentValue: -1}
	for i := len(past.Data) - 1; i >= 0; i-- {
		if actual := past.Data[i].Intensity.Actual; actual != nil {
			intensity.CurrentValue = *actual
			break
		}
	}
	if intensity.CurrentValue < 0 {
		return nil, &UnexpectedDataError{Source: upstreamCarbon, Reason: "no measured intensity in the last 24 hours"}
	}

	intensity.Forecast = c.carbonForecast(ctx, "/intensity/"+from+"/fw48h")

	if c.carbonRegionID > 0 {
		region, err := c.getCarbonRegion(ctx, now)
		if err != nil {
			return nil, err
		}
		intensity.Region = region
	}

	log.Ctx(ctx).DebugContext(ctx, "got carbon intensity",
		slog.Int("current", intensity.CurrentValue),
		slog.Int("forecastPoints", len(intensity.Forecast)),
	)
	return intensity, nil
}

// carbonForecast fetches a forecast series, degrading to nil on any failure.
func (c *Client) carbonForecast(ctx context.Context, path string) []types.CarbonIntensityPoint {
	var env struct {
		Data []carbonBlock `json:"data"`
	}
	if err := c.getCarbon(ctx, path, &env); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get carbon intensity forecast",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return nil
	}
	return carbonPoints(ctx, env.Data)
}

func carbonPoints(ctx context.Context, blocks []carbonBlock) []types.CarbonIntensityPoint {
	var points []types.CarbonIntensityPoint
	for _, block := range blocks {
		if block.Intensity.Forecast == nil {
			continue
		}
		ts, err := parseTimestamp(block.From)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse carbon intensity time", slog.String("value", block.From), slog.Any("error", err))
			continue
		}
		points = append(points, types.CarbonIntensityPoint{
			StartTime: ts,
			Intensity: *block.Intensity.Forecast,
			Index:     block.Intensity.Index,
		})
	}
	return points
}

func (c *Client) getCarbonRegion(ctx context.Context, now time.Time) (*types.RegionalCarbonIntensity, error) {
	regionID := strconv.Itoa(c.carbonRegionID)

	var current struct {
		Data []carbonRegionBlock `json:"data"`
	}
	if err := c.getCarbon(ctx, "/regional/regionid/"+regionID, &current); err != nil {
		return nil, err
	}
	if len(current.Data) == 0 || len(current.Data[0].Data) == 0 || current.Data[0].Data[0].Intensity.Forecast == nil {
		return nil, &UnexpectedDataError{Source: upstreamCarbon, Reason: "no regional intensity data for region " + regionID}
	}

	region := &types.RegionalCarbonIntensity{
		RegionName:   current.Data[0].ShortName,
		CurrentValue: *current.Data[0].Data[0].Intensity.Forecast,
	}

	// the regional forecast is secondary: a failure leaves the forecast empty
	// rather than losing the whole category
	var forecast struct {
		Data carbonRegionBlock `json:"data"`
	}
	from := now.UTC().Format(carbonTimeFormat)
	if err := c.getCarbon(ctx, "/regional/intensity/"+from+"/fw48h/regionid/"+regionID, &forecast); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get regional carbon intensity forecast",
			slog.String("regionID", regionID),
			slog.Any("error", err),
		)
		return region, nil
	}
	region.Forecast = carbonPoints(ctx, forecast.Data.Data)
	return region, nil
}
