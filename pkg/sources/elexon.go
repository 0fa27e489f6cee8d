package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/gridpulse/gridpulse/pkg/types"
)

const elexonTimeFormat = "2006-01-02T15:04:05Z"

// elexonData is the envelope every BMRS dataset shares.
type elexonData[T any] struct {
	Data []T `json:"data"`
}

func getElexon[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	u := c.elexonURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	res, err := c.get(ctx, c.fastClient, upstreamElexon, u, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(upstreamElexon, res, false); err != nil {
		return nil, err
	}
	var env elexonData[T]
	if err := json.Unmarshal(res.body, &env); err != nil {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: fmt.Sprintf("undecodable response: %v", err)}
	}
	return env.Data, nil
}

type elexonPriceItem struct {
	Price float64 `json:"price"`
}

// GetCurrentPrice returns the most recent APX market index price in GBP/MWh,
// rounded to 2 decimals.
func (c *Client) GetCurrentPrice(ctx context.Context, now time.Time) (float64, error) {
	params := url.Values{}
	params.Set("from", now.UTC().AddDate(0, 0, -1).Format("2006-01-02"))
	params.Set("to", now.UTC().Format("2006-01-02"))
	params.Set("settlementPeriodFrom", "1")
	params.Set("settlementPeriodTo", "50")
	params.Set("dataProviders", "APXMIDP")
	params.Set("format", "json")

	items, err := getElexon[elexonPriceItem](ctx, c, "/balancing/pricing/market-index", params)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, &UnexpectedDataError{Source: upstreamElexon, Reason: "no market index prices in the last day"}
	}
	price := math.Round(items[0].Price*100) / 100
	log.Ctx(ctx).DebugContext(ctx, "got current price", slog.Float64("price", price))
	return price, nil
}

type elexonFrequencyItem struct {
	MeasurementTime string  `json:"measurementTime"`
	Frequency       float64 `json:"frequency"`
}

// GetCurrentFrequency returns the latest measured grid frequency in Hz.
func (c *Client) GetCurrentFrequency(ctx context.Context, now time.Time) (float64, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("from", now.UTC().Add(-5*time.Minute).Format(elexonTimeFormat))
	params.Set("to", now.UTC().Add(time.Minute).Format(elexonTimeFormat))

	items, err := getElexon[elexonFrequencyItem](ctx, c, "/system/frequency", params)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, &UnexpectedDataError{Source: upstreamElexon, Reason: "no frequency measurements in the last 5 minutes"}
	}
	freq := items[len(items)-1].Frequency
	log.Ctx(ctx).DebugContext(ctx, "got current frequency", slog.Float64("frequency", freq))
	return freq, nil
}

type elexonFuelItem struct {
	StartTime   string  `json:"startTime"`
	PublishTime string  `json:"publishTime"`
	FuelType    string  `json:"fuelType"`
	Generation  float64 `json:"generation"`
}

// GetGeneration returns the per-fuel generation breakdown from the most
// recent FUELINST instant. Wind here is transmission-metered only; the
// embedded figures and the derived totals are filled in by the caller.
func (c *Client) GetGeneration(ctx context.Context, now time.Time) (*types.Generation, error) {
	params := url.Values{}
	params.Set("publishDateTimeFrom", now.UTC().Add(-10*time.Minute).Format(elexonTimeFormat))
	params.Set("publishDateTimeTo", now.UTC().Format(elexonTimeFormat))
	params.Set("format", "json")

	items, err := getElexon[elexonFuelItem](ctx, c, "/datasets/FUELINST", params)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "no FUELINST records in the last 10 minutes"}
	}

	// only the newest instant counts, earlier instants in the window are stale
	var latest, published time.Time
	for _, item := range items {
		st, err := parseTimestamp(item.StartTime)
		if err != nil {
			continue
		}
		if st.After(latest) {
			latest = st
			// a malformed publish time falls back to the instant itself
			published, err = parseTimestamp(item.PublishTime)
			if err != nil {
				published = st
			}
		}
	}
	if latest.IsZero() {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "no parseable FUELINST start times"}
	}

	gen := &types.Generation{GridCollectionTime: published}
	for _, item := range items {
		st, err := parseTimestamp(item.StartTime)
		if err != nil || !st.Equal(latest) {
			continue
		}
		mw := int(math.Round(item.Generation))
		switch item.FuelType {
		case "CCGT", "OCGT":
			gen.GasMWH += mw
		case "OIL":
			gen.OilMWH += mw
		case "COAL":
			gen.CoalMWH += mw
		case "BIOMASS":
			gen.BiomassMWH += mw
		case "NUCLEAR":
			gen.NuclearMWH += mw
		case "WIND":
			gen.NationalWindMWH += mw
		case "PS":
			gen.PumpedStorageMWH += mw
		case "NPSHYD":
			gen.HydroMWH += mw
		case "OTHER":
			gen.OtherMWH += mw
		case "INTFR", "INTELEC", "INTIFA2":
			gen.FranceMWH += mw
		case "INTIRL", "INTEW", "INTGRNL":
			gen.IrelandMWH += mw
		case "INTNED":
			gen.NetherlandsMWH += mw
		case "INTNEM":
			gen.BelgiumMWH += mw
		case "INTNSL":
			gen.NorwayMWH += mw
		case "INTVKL":
			gen.DenmarkMW += mw
		}
	}
	gen.WindMWH = gen.NationalWindMWH

	// a feed hiccup occasionally reports everything as zero; treat that as
	// bad data rather than publishing an empty grid
	if gen.GasMWH == 0 && gen.CoalMWH == 0 && gen.BiomassMWH == 0 &&
		gen.NuclearMWH == 0 && gen.HydroMWH == 0 {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "all primary fuels reported zero"}
	}

	log.Ctx(ctx).DebugContext(ctx, "got generation",
		slog.Time("collectionTime", latest),
		slog.Int("gasMW", gen.GasMWH),
		slog.Int("windMW", gen.NationalWindMWH),
	)
	return gen, nil
}

type elexonForecastItem struct {
	StartTime  string  `json:"startTime"`
	Generation float64 `json:"generation"`
}

// GetWindForecast returns the hourly transmission wind forecast. The feed is
// published daily at 03:30 anchored to a 20:00 window start, so the window is
// snapped back a day before 03:30. earliest selects the first publication of
// the window instead of the latest revision.
func (c *Client) GetWindForecast(ctx context.Context, now time.Time, earliest bool) (*types.GenerationForecast, error) {
	anchor := now.UTC()
	if anchor.Hour() < 3 || (anchor.Hour() == 3 && anchor.Minute() < 30) {
		anchor = anchor.AddDate(0, 0, -1)
	}
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, -1)
	end := day.AddDate(0, 0, 2).Add(20 * time.Hour)

	path := "/forecast/generation/wind/latest"
	if earliest {
		path = "/forecast/generation/wind/earliest"
	}
	params := url.Values{}
	params.Set("from", start.Format(elexonTimeFormat))
	params.Set("to", end.Format(elexonTimeFormat))
	params.Set("format", "json")

	items, err := getElexon[elexonForecastItem](ctx, c, path, params)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "empty wind forecast"}
	}

	currentHour := now.UTC().Truncate(time.Hour)
	forecast := &types.GenerationForecast{}
	for _, item := range items {
		st, err := parseTimestamp(item.StartTime)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse wind forecast time", slog.String("value", item.StartTime), slog.Any("error", err))
			continue
		}
		mw := int(math.Round(item.Generation))
		forecast.Forecast = append(forecast.Forecast, types.ForecastPoint{StartTime: st, Generation: mw})
		if st.Equal(currentHour) {
			forecast.CurrentValue = mw
		}
	}
	sort.Slice(forecast.Forecast, func(i, j int) bool {
		return forecast.Forecast[i].StartTime.Before(forecast.Forecast[j].StartTime)
	})

	// a forecast that misses the current hour, or claims zero wind for it, is
	// a truncated publication
	if forecast.CurrentValue <= 0 {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "wind forecast missing current hour"}
	}
	return forecast, nil
}

type elexonWindPeakItem struct {
	SettlementDate string  `json:"settlementDate"`
	StartTime      string  `json:"startTime"`
	Generation     float64 `json:"generation"`
}

// GetWindPeaks returns the forecast peak wind generation for today and
// tomorrow. Items are matched by settlement date, falling back to positional
// order when the feed's dates don't line up.
func (c *Client) GetWindPeaks(ctx context.Context, now time.Time) (*types.WindData, error) {
	items, err := getElexon[elexonWindPeakItem](ctx, c, "/forecast/generation/wind/peak", url.Values{"format": {"json"}})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "empty wind peak forecast"}
	}

	day, _ := settlementPeriod(now)
	today := day.Format("2006-01-02")
	tomorrow := day.AddDate(0, 0, 1).Format("2006-01-02")

	var todayItem, tomorrowItem *elexonWindPeakItem
	for i := range items {
		switch items[i].SettlementDate {
		case today:
			todayItem = &items[i]
		case tomorrow:
			tomorrowItem = &items[i]
		}
	}
	if todayItem == nil && tomorrowItem == nil {
		if len(items) < 2 {
			return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "wind peak forecast covers neither today nor tomorrow"}
		}
		todayItem, tomorrowItem = &items[0], &items[1]
	}

	wd := &types.WindData{}
	if todayItem != nil {
		wd.TodayPeak = todayItem.Generation
		if t, err := parseTimestamp(todayItem.StartTime); err == nil {
			wd.TodayPeakTime = t
		}
	}
	if tomorrowItem != nil {
		wd.TomorrowPeak = tomorrowItem.Generation
		if t, err := parseTimestamp(tomorrowItem.StartTime); err == nil {
			wd.TomorrowPeakTime = t
		}
	}
	return wd, nil
}

type elexonWindSolarItem struct {
	BusinessType     string  `json:"businessType"`
	SettlementDate   string  `json:"settlementDate"`
	SettlementPeriod int     `json:"settlementPeriod"`
	Quantity         float64 `json:"quantity"`
}

// GetSolarForecast returns the half-hourly day-ahead embedded solar forecast,
// deduplicated on (settlementDate, settlementPeriod).
func (c *Client) GetSolarForecast(ctx context.Context, now time.Time) (*types.GenerationForecast, error) {
	params := url.Values{}
	params.Set("from", now.UTC().AddDate(0, 0, -1).Format("2006-01-02"))
	params.Set("to", now.UTC().AddDate(0, 0, 2).Format("2006-01-02"))
	params.Set("processType", "all")
	params.Set("settlementPeriodFrom", "1")
	params.Set("settlementPeriodTo", "50")
	params.Set("format", "json")

	items, err := getElexon[elexonWindSolarItem](ctx, c, "/forecast/generation/wind-and-solar/day-ahead", params)
	if err != nil {
		return nil, err
	}

	// the feed repeats settlement periods across publications, the first
	// record for a period wins
	type slot struct {
		date   string
		period int
	}
	seen := make(map[slot]struct{})
	var points []types.ForecastPoint
	for _, item := range items {
		if item.BusinessType != "Solar generation" {
			continue
		}
		key := slot{item.SettlementDate, item.SettlementPeriod}
		if _, ok := seen[key]; ok {
			continue
		}
		date, err := parseTimestamp(item.SettlementDate)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse solar settlement date", slog.String("value", item.SettlementDate), slog.Any("error", err))
			continue
		}
		seen[key] = struct{}{}
		points = append(points, types.ForecastPoint{
			StartTime:  settlementPeriodStart(date, item.SettlementPeriod),
			Generation: int(math.Round(item.Quantity)),
		})
	}
	if len(points) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "no solar generation records"}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].StartTime.Before(points[j].StartTime) })

	forecast := &types.GenerationForecast{Forecast: points}
	current := nearestHalfHour(now)
	for _, p := range points {
		if p.StartTime.Equal(current) {
			forecast.CurrentValue = p.Generation
			break
		}
	}
	return forecast, nil
}

type elexonDemandItem struct {
	StartTime                string  `json:"startTime"`
	TransmissionSystemDemand float64 `json:"transmissionSystemDemand"`
	NationalDemand           float64 `json:"nationalDemand"`
}

// GetDemandDayAhead returns the half-hourly day-ahead demand forecast.
func (c *Client) GetDemandDayAhead(ctx context.Context, now time.Time) (*types.DemandDayAheadForecast, error) {
	params := url.Values{}
	params.Set("from", now.UTC().Format(elexonTimeFormat))
	params.Set("to", now.UTC().AddDate(0, 0, 2).Format(elexonTimeFormat))
	params.Set("boundary", "N")
	params.Set("format", "json")

	items, err := getElexon[elexonDemandItem](ctx, c, "/forecast/demand/day-ahead/latest", params)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamElexon, Reason: "empty day-ahead demand forecast"}
	}

	forecast := &types.DemandDayAheadForecast{}
	current := nearestHalfHour(now)
	for _, item := range items {
		st, err := parseTimestamp(item.StartTime)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse demand forecast time", slog.String("value", item.StartTime), slog.Any("error", err))
			continue
		}
		p := types.DemandDayAheadPoint{
			StartTime:          st,
			TransmissionDemand: int(math.Round(item.TransmissionSystemDemand)),
			NationalDemand:     int(math.Round(item.NationalDemand)),
		}
		forecast.Forecast = append(forecast.Forecast, p)
		if st.Equal(current) {
			forecast.CurrentValue = p.NationalDemand
		}
	}
	sort.Slice(forecast.Forecast, func(i, j int) bool {
		return forecast.Forecast[i].StartTime.Before(forecast.Forecast[j].StartTime)
	})
	return forecast, nil
}
