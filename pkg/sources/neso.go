package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/gridpulse/gridpulse/pkg/types"
)

// NESO datastore resource IDs
const (
	nesoLongTermWindResource = "93c3048e-1dab-4057-a2a9-417540583929"
	nesoEmbeddedResource     = "db6c038f-98af-4570-ab60-24d71ebd0ae5"
	nesoDFSResource          = "f5605e2b-b677-424c-8df7-d0ce4ee03cef"
	nesoDemandResource       = "7c0411cd-2714-4bb5-a408-adb065edf34d"
	nesoMarginResource       = "e4dd9a7e-a1e5-4529-913a-6ed8a64c9b06"

	nesoDemandUpdateCSVPath = "/dataset/7a12172a-939c-404c-b581-a6128b74f588/resource/177f6fa4-ae49-4182-81ea-0c6b35f26ca6/download/demanddataupdate.csv"
)

// flexNumber tolerates the datastore's habit of returning numeric columns as
// either numbers or strings.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("unparseable number %q", s)
	}
	*f = flexNumber(v)
	return nil
}

type nesoEnvelope[T any] struct {
	Result struct {
		Records []T `json:"records"`
	} `json:"result"`
}

func getNESO[T any](ctx context.Context, c *Client, resourceID string, params url.Values) ([]T, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("resource_id", resourceID)
	u := c.nesoURL + "/api/3/action/datastore_search?" + params.Encode()

	res, err := c.get(ctx, c.slowClient, upstreamNESO, u, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(upstreamNESO, res, false); err != nil {
		return nil, err
	}
	var env nesoEnvelope[T]
	if err := json.Unmarshal(res.body, &env); err != nil {
		return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: fmt.Sprintf("undecodable response: %v", err)}
	}
	return env.Result.Records, nil
}

// EmbeddedGeneration is the estimated distribution-connected generation for
// the current settlement period, taken from the NESO demand data update.
type EmbeddedGeneration struct {
	WindMWH  int
	SolarMWH int
}

// GetEmbeddedGeneration downloads the demand data update CSV and returns the
// embedded wind and solar figures for the settlement period containing now.
func (c *Client) GetEmbeddedGeneration(ctx context.Context, now time.Time) (*EmbeddedGeneration, error) {
	res, err := c.get(ctx, c.slowClient, upstreamNESO, c.nesoURL+nesoDemandUpdateCSVPath, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(upstreamNESO, res, false); err != nil {
		return nil, err
	}

	day, period := settlementPeriod(now)

	reader := csv.NewReader(bytes.NewReader(res.body))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "demand data update CSV has no header"}
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"SETTLEMENT_DATE", "SETTLEMENT_PERIOD", "EMBEDDED_WIND_GENERATION", "EMBEDDED_SOLAR_GENERATION"} {
		if _, ok := col[name]; !ok {
			return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "demand data update CSV missing column " + name}
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: fmt.Sprintf("unreadable demand data update CSV: %v", err)}
		}
		rowDate, err := parseTimestamp(row[col["SETTLEMENT_DATE"]])
		if err != nil {
			continue
		}
		rowPeriod, err := strconv.Atoi(strings.TrimSpace(row[col["SETTLEMENT_PERIOD"]]))
		if err != nil {
			continue
		}
		if !rowDate.Equal(day) || rowPeriod != period {
			continue
		}
		wind, err := strconv.Atoi(strings.TrimSpace(row[col["EMBEDDED_WIND_GENERATION"]]))
		if err != nil {
			return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "unparseable embedded wind generation"}
		}
		solar, err := strconv.Atoi(strings.TrimSpace(row[col["EMBEDDED_SOLAR_GENERATION"]]))
		if err != nil {
			return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "unparseable embedded solar generation"}
		}
		log.Ctx(ctx).DebugContext(ctx, "got embedded generation",
			slog.Int("period", period),
			slog.Int("windMW", wind),
			slog.Int("solarMW", solar),
		)
		return &EmbeddedGeneration{WindMWH: wind, SolarMWH: solar}, nil
	}
	return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: fmt.Sprintf("no demand data update row for settlement period %d", period)}
}

// evenHour reports whether t sits exactly on an even-numbered hour; the
// fourteen-day series are thinned to those points.
func evenHour(t time.Time) bool {
	return t.Minute() == 0 && t.Hour()%2 == 0
}

type nesoWindRecord struct {
	Datetime     string     `json:"Datetime"`
	WindForecast flexNumber `json:"Wind_Forecast"`
}

// GetLongTermWindForecast returns the transmission wind forecast over the
// next three days at native resolution and over fourteen days thinned to even
// hours.
func (c *Client) GetLongTermWindForecast(ctx context.Context, now time.Time) (*types.LongTermForecast, *types.LongTermForecast, error) {
	records, err := getNESO[nesoWindRecord](ctx, c, nesoLongTermWindResource, url.Values{"limit": {"32000"}})
	if err != nil {
		return nil, nil, err
	}

	current := nearestHalfHour(now)
	inThree := current.AddDate(0, 0, 3)
	inFourteen := current.AddDate(0, 0, 14)

	three := &types.LongTermForecast{}
	fourteen := &types.LongTermForecast{}
	for _, record := range records {
		ts, err := parseTimestamp(record.Datetime)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse wind forecast record time", slog.String("value", record.Datetime), slog.Any("error", err))
			continue
		}
		if ts.Before(current) {
			continue
		}
		p := types.ForecastPoint{StartTime: ts, Generation: int(record.WindForecast)}
		if !ts.After(inThree) {
			three.Forecast = append(three.Forecast, p)
		}
		if !ts.After(inFourteen) && evenHour(ts) {
			fourteen.Forecast = append(fourteen.Forecast, p)
		}
	}
	if len(three.Forecast) == 0 || len(fourteen.Forecast) == 0 {
		return nil, nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "long term wind forecast is empty"}
	}
	return three, fourteen, nil
}

type nesoEmbeddedRecord struct {
	DateGMT       string     `json:"DATE_GMT"`
	TimeGMT       string     `json:"TIME_GMT"`
	SolarForecast flexNumber `json:"EMBEDDED_SOLAR_FORECAST"`
	WindForecast  flexNumber `json:"EMBEDDED_WIND_FORECAST"`
}

// EmbeddedForecast bundles the three and fourteen day embedded wind and solar
// series, which all come from one dataset.
type EmbeddedForecast struct {
	ThreeDaySolar    *types.GenerationForecast
	FourteenDaySolar *types.GenerationForecast
	ThreeDayWind     *types.GenerationForecast
	FourteenDayWind  *types.GenerationForecast
}

// GetEmbeddedForecast returns the embedded (distribution-connected) wind and
// solar forecast in three and fourteen day horizons.
func (c *Client) GetEmbeddedForecast(ctx context.Context, now time.Time) (*EmbeddedForecast, error) {
	records, err := getNESO[nesoEmbeddedRecord](ctx, c, nesoEmbeddedResource, url.Values{"limit": {"32000"}})
	if err != nil {
		return nil, err
	}

	current := nearestHalfHour(now)
	inThree := current.AddDate(0, 0, 3)
	inFourteen := current.AddDate(0, 0, 14)

	out := &EmbeddedForecast{
		ThreeDaySolar:    &types.GenerationForecast{},
		FourteenDaySolar: &types.GenerationForecast{},
		ThreeDayWind:     &types.GenerationForecast{},
		FourteenDayWind:  &types.GenerationForecast{},
	}
	var currentSolar, currentWind int
	for _, record := range records {
		ts, err := parseDateClock(record.DateGMT, record.TimeGMT)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse embedded forecast record time",
				slog.String("date", record.DateGMT),
				slog.String("clock", record.TimeGMT),
				slog.Any("error", err),
			)
			continue
		}
		solar := types.ForecastPoint{StartTime: ts, Generation: int(record.SolarForecast)}
		wind := types.ForecastPoint{StartTime: ts, Generation: int(record.WindForecast)}
		if ts.Equal(current) {
			currentSolar = solar.Generation
			currentWind = wind.Generation
		}
		if ts.Before(current) {
			continue
		}
		if !ts.After(inThree) {
			out.ThreeDaySolar.Forecast = append(out.ThreeDaySolar.Forecast, solar)
			out.ThreeDayWind.Forecast = append(out.ThreeDayWind.Forecast, wind)
		}
		if !ts.After(inFourteen) && evenHour(ts) {
			out.FourteenDaySolar.Forecast = append(out.FourteenDaySolar.Forecast, solar)
			out.FourteenDayWind.Forecast = append(out.FourteenDayWind.Forecast, wind)
		}
	}
	if len(out.ThreeDaySolar.Forecast) == 0 || len(out.ThreeDayWind.Forecast) == 0 ||
		len(out.FourteenDaySolar.Forecast) == 0 || len(out.FourteenDayWind.Forecast) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "embedded wind and solar forecast is empty"}
	}
	out.ThreeDaySolar.CurrentValue = currentSolar
	out.FourteenDaySolar.CurrentValue = currentSolar
	out.ThreeDayWind.CurrentValue = currentWind
	out.FourteenDayWind.CurrentValue = currentWind
	return out, nil
}

type nesoDFSRecord struct {
	DeliveryDate     string     `json:"Delivery Date"`
	From             string     `json:"From"`
	To               string     `json:"To"`
	RequiredMW       flexNumber `json:"Service Requirement MW"`
	RequirementType  string     `json:"Service Requirement Type"`
	DespatchType     string     `json:"Dispatch Type"`
	ParticipantsBids string     `json:"Participant Bids Eligible"`
}

// GetDFSRequirements returns the ten most recent demand flexibility service
// requirement windows, newest first.
func (c *Client) GetDFSRequirements(ctx context.Context) (*types.DFSRequirements, error) {
	params := url.Values{}
	params.Set("sort", "Delivery Date desc,From desc")
	params.Set("limit", "10")
	records, err := getNESO[nesoDFSRecord](ctx, c, nesoDFSResource, params)
	if err != nil {
		return nil, err
	}

	reqs := &types.DFSRequirements{}
	for _, record := range records {
		start, err := parseDateClock(record.DeliveryDate, record.From)
		if err != nil {
			return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: fmt.Sprintf("unparseable DFS window start: %v", err)}
		}
		end, err := parseDateClock(record.DeliveryDate, record.To)
		if err != nil {
			return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: fmt.Sprintf("unparseable DFS window end: %v", err)}
		}
		reqs.Requirements = append(reqs.Requirements, types.DFSRequirement{
			StartTime:            start,
			EndTime:              end,
			RequiredMW:           float64(record.RequiredMW),
			RequirementType:      record.RequirementType,
			DespatchType:         record.DespatchType,
			ParticipantsEligible: strings.Split(record.ParticipantsBids, ","),
		})
	}
	return reqs, nil
}

type nesoDemandRecord struct {
	GDatetime      string     `json:"GDATETIME"`
	NationalDemand flexNumber `json:"NATIONALDEMAND"`
}

// GetDemandForecast returns the national demand forecast in three and
// fourteen day horizons. The dataset starts tomorrow, so points for the rest
// of today are spliced in from the day-ahead forecast.
func (c *Client) GetDemandForecast(ctx context.Context, now time.Time, dayAhead *types.DemandDayAheadForecast) (*types.DemandForecast, *types.DemandForecast, error) {
	records, err := getNESO[nesoDemandRecord](ctx, c, nesoDemandResource, url.Values{"limit": {"1000"}})
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "demand forecast is empty"}
	}

	firstRecord, err := parseTimestamp(records[0].GDatetime)
	if err != nil {
		return nil, nil, &UnexpectedDataError{Source: upstreamNESO, Reason: fmt.Sprintf("unparseable demand forecast start: %v", err)}
	}

	current := nearestHalfHour(now)
	inThree := current.AddDate(0, 0, 3)
	inFourteen := current.AddDate(0, 0, 14)

	three := &types.DemandForecast{}
	fourteen := &types.DemandForecast{}

	// the day-ahead series covers the gap before the dataset's first record
	if dayAhead != nil {
		for _, item := range dayAhead.Forecast {
			if !item.StartTime.Before(firstRecord) {
				continue
			}
			p := types.DemandPoint{StartTime: item.StartTime, NationalDemand: item.NationalDemand}
			three.Forecast = append(three.Forecast, p)
			if evenHour(item.StartTime) {
				fourteen.Forecast = append(fourteen.Forecast, p)
			}
		}
	}

	for _, record := range records {
		ts, err := parseTimestamp(record.GDatetime)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse demand forecast record time", slog.String("value", record.GDatetime), slog.Any("error", err))
			continue
		}
		if ts.Before(current) {
			continue
		}
		p := types.DemandPoint{StartTime: ts, NationalDemand: int(record.NationalDemand)}
		if !ts.After(inThree) {
			three.Forecast = append(three.Forecast, p)
		}
		if !ts.After(inFourteen) && evenHour(ts) {
			fourteen.Forecast = append(fourteen.Forecast, p)
		}
	}

	for _, p := range three.Forecast {
		if p.StartTime.Equal(current) {
			three.CurrentValue = p.NationalDemand
			fourteen.CurrentValue = p.NationalDemand
		}
	}
	return three, fourteen, nil
}

type nesoMarginRecord struct {
	ForecastDate string     `json:"FORECAST_DATE"`
	Margin       flexNumber `json:"MARGIN"`
	PublishTime  string     `json:"PUBLISH_TIME"`
}

// GetMarginForecast returns the forecast surplus generation margin. The
// current value is the nearest forecast at or after now.
func (c *Client) GetMarginForecast(ctx context.Context, now time.Time) (*types.MarginForecast, error) {
	records, err := getNESO[nesoMarginRecord](ctx, c, nesoMarginResource, url.Values{"limit": {"1000"}})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "margin forecast is empty"}
	}

	forecast := &types.MarginForecast{}
	for _, record := range records {
		fd, err := parseTimestamp(record.ForecastDate)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse margin forecast date", slog.String("value", record.ForecastDate), slog.Any("error", err))
			continue
		}
		p := types.MarginForecastPoint{
			ForecastDate: fd,
			MarginMW:     int(record.Margin),
		}
		if pt, err := parseTimestamp(record.PublishTime); err == nil {
			p.PublishTime = pt
		}
		forecast.Forecast = append(forecast.Forecast, p)
	}
	if len(forecast.Forecast) == 0 {
		return nil, &UnexpectedDataError{Source: upstreamNESO, Reason: "no parseable margin forecast dates"}
	}
	sort.Slice(forecast.Forecast, func(i, j int) bool {
		return forecast.Forecast[i].ForecastDate.Before(forecast.Forecast[j].ForecastDate)
	})
	for _, p := range forecast.Forecast {
		if !p.ForecastDate.Before(now.UTC()) {
			forecast.CurrentValue = p.MarginMW
			break
		}
	}
	return forecast, nil
}
