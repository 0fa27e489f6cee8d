package types

import (
	"time"
)

// Category identifies one independently refreshed slice of the snapshot.
type Category string

const (
	CategoryGridFrequency     Category = "grid_frequency"
	CategorySellPrice         Category = "sell_price"
	CategoryGridGeneration    Category = "grid_generation"
	CategoryCarbonIntensity   Category = "carbon_intensity"
	CategoryWindForecast      Category = "wind_forecast"
	CategoryWindForecastEarly Category = "wind_forecast_earliest"
	CategorySolarForecast     Category = "solar_forecast"
	CategoryDemandDayAhead    Category = "demand_day_ahead_forecast"
	CategoryDemandForecast    Category = "demand_forecast"
	CategoryLongTermWind      Category = "long_term_wind_forecast"
	CategoryLongTermEmbedded  Category = "long_term_embedded_forecast"
	CategoryDFSRequirements   Category = "dfs_requirements"
	CategoryMarginForecast    Category = "margin_forecast"
	CategorySystemWarnings    Category = "system_warnings"
)

// AllCategories lists every category in the order they refresh within a pass.
var AllCategories = []Category{
	CategorySellPrice,
	CategoryGridFrequency,
	CategoryCarbonIntensity,
	CategorySystemWarnings,
	CategoryGridGeneration,
	CategoryWindForecast,
	CategoryWindForecastEarly,
	CategoryLongTermWind,
	CategorySolarForecast,
	CategoryLongTermEmbedded,
	CategoryDemandDayAhead,
	CategoryDemandForecast,
	CategoryDFSRequirements,
	CategoryMarginForecast,
}

// Generation holds the per-fuel generation breakdown for a single grid
// collection instant, together with the derived totals and percentages.
// All generation figures are MW.
type Generation struct {
	GasMWH           int `json:"gas_mwh"`     // ccgt + ocgt
	OilMWH           int `json:"oil_mwh"`     // oil
	CoalMWH          int `json:"coal_mwh"`    // coal
	BiomassMWH       int `json:"biomass_mwh"` // biomass
	NuclearMWH       int `json:"nuclear_mwh"` // nuclear
	WindMWH          int `json:"wind_mwh"`    // national + embedded wind
	SolarMWH         int `json:"solar_mwh"`   // embedded solar
	NationalWindMWH  int `json:"national_wind_mwh"`
	EmbeddedWindMWH  int `json:"embedded_wind_mwh"`
	PumpedStorageMWH int `json:"pumped_storage_mwh"` // ps
	HydroMWH         int `json:"hydro_mwh"`          // npshyd
	OtherMWH         int `json:"other_mwh"`

	FranceMWH      int `json:"france_mwh"`      // intfr (IFA) + intelec (ElecLink) + intifa2 (IFA2)
	IrelandMWH     int `json:"ireland_mwh"`     // intirl (Moyle) + intew (East-West) + intgrnl (Greenlink)
	NetherlandsMWH int `json:"netherlands_mwh"` // intned (BritNed)
	BelgiumMWH     int `json:"belgium_mwh"`     // intnem (Nemo)
	NorwayMWH      int `json:"norway_mwh"`      // intnsl (North Sea Link)
	DenmarkMW      int `json:"denmark_mw"`      // intvkl (Viking Link)

	TotalGenerationMWH int `json:"total_generation_mwh"`

	FossilFuelPercentage           float64 `json:"fossil_fuel_percentage_generation"`             // gas, oil, coal
	RenewablePercentage            float64 `json:"renewable_percentage_generation"`               // solar, wind, hydro
	LowCarbonPercentage            float64 `json:"low_carbon_percentage_generation"`              // renewable + nuclear
	LowCarbonWithBiomassPercentage float64 `json:"low_carbon_with_biomass_percentage_generation"` // low carbon + biomass
	OtherPercentage                float64 `json:"other_percentage_generation"`                   // nuclear, biomass, other

	GridCollectionTime time.Time `json:"grid_collection_time"`
}

// WindData holds the peak wind generation figures for today and tomorrow.
type WindData struct {
	TodayPeak        float64   `json:"today_peak"`
	TomorrowPeak     float64   `json:"tomorrow_peak"`
	TodayPeakTime    time.Time `json:"today_peak_time"`
	TomorrowPeakTime time.Time `json:"tomorrow_peak_time"`
}

// ForecastPoint is one (start time, generation MW) point of a forecast series.
type ForecastPoint struct {
	StartTime  time.Time `json:"start_time"`
	Generation int       `json:"generation"`
}

// GenerationForecast is an ordered forecast series with the point matching
// "now" pulled out as CurrentValue.
type GenerationForecast struct {
	CurrentValue int             `json:"current_value"`
	Forecast     []ForecastPoint `json:"forecast"`
}

// LongTermForecast is an ordered forecast series without a current value; the
// long-range datasets do not reliably cover the current instant.
type LongTermForecast struct {
	Forecast []ForecastPoint `json:"forecast"`
}

// DemandDayAheadPoint is one point of the day-ahead demand forecast, which
// carries both the transmission-system and national demand figures.
type DemandDayAheadPoint struct {
	StartTime          time.Time `json:"start_time"`
	TransmissionDemand int       `json:"transmission_demand"`
	NationalDemand     int       `json:"national_demand"`
}

// DemandDayAheadForecast is the day-ahead demand series.
type DemandDayAheadForecast struct {
	CurrentValue int                   `json:"current_value"`
	Forecast     []DemandDayAheadPoint `json:"forecast"`
}

// DemandPoint is one point of the longer-range demand forecasts.
type DemandPoint struct {
	StartTime      time.Time `json:"start_time"`
	NationalDemand int       `json:"national_demand"`
}

// DemandForecast is a three or fourteen day demand series.
type DemandForecast struct {
	CurrentValue int           `json:"current_value"`
	Forecast     []DemandPoint `json:"forecast"`
}

// CarbonIntensityPoint is one half-hour slot of the carbon intensity forecast.
type CarbonIntensityPoint struct {
	StartTime time.Time `json:"start_time"`
	Intensity int       `json:"intensity"`
	Index     string    `json:"index,omitempty"`
}

// RegionalCarbonIntensity is the region-scoped carbon intensity variant,
// present only when a region is configured.
type RegionalCarbonIntensity struct {
	RegionName   string                 `json:"region_name"`
	CurrentValue int                    `json:"current_value"`
	Forecast     []CarbonIntensityPoint `json:"forecast"`
}

// CarbonIntensity holds the current national intensity in gCO2eq/kWh plus the
// optional 48h forecast and optional regional variant.
type CarbonIntensity struct {
	CurrentValue int                      `json:"current_value"`
	Forecast     []CarbonIntensityPoint   `json:"forecast"`
	Region       *RegionalCarbonIntensity `json:"region,omitempty"`
}

// DFSRequirement is a single demand flexibility service requirement window.
type DFSRequirement struct {
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	RequiredMW           float64   `json:"required_mw"`
	RequirementType      string    `json:"requirement_type"`
	DespatchType         string    `json:"despatch_type"`
	ParticipantsEligible []string  `json:"participants_eligible"`
}

// DFSRequirements holds the most recent DFS requirement records.
type DFSRequirements struct {
	Requirements []DFSRequirement `json:"requirements"`
}

// MarginForecastPoint is one forecast of spare generation margin.
type MarginForecastPoint struct {
	ForecastDate time.Time `json:"forecast_date"`
	MarginMW     int       `json:"margin_mw"`
	PublishTime  time.Time `json:"publish_time"`
}

// MarginForecast is the margin series with the nearest upcoming forecast
// pulled out as CurrentValue.
type MarginForecast struct {
	CurrentValue int                   `json:"current_value"`
	Forecast     []MarginForecastPoint `json:"forecast"`
}

// SystemWarning is a single published grid warning.
type SystemWarning struct {
	WarningType string    `json:"warning_type"`
	PublishTime time.Time `json:"publish_time"`
	Text        string    `json:"text"`
}

// SystemWarnings holds all recent warnings plus the first unresolved
// margin-stress warning, if any.
type SystemWarnings struct {
	CurrentWarning *SystemWarning  `json:"current_warning"`
	Warnings       []SystemWarning `json:"warnings"`
}

// Snapshot is the single root value produced by one refresh pass. It is
// immutable once constructed and superseded wholesale by the next pass. A nil
// category pointer means no value was ever obtained for that category.
type Snapshot struct {
	SellPrice     *float64 `json:"sell_price"`
	GridFrequency *float64 `json:"grid_frequency"`

	CarbonIntensity *CarbonIntensity `json:"carbon_intensity"`

	GridGeneration    *Generation `json:"grid_generation"`
	WindData          *WindData   `json:"wind_data"`
	TotalDemandMWH    *int        `json:"total_demand_mwh"`
	TotalTransfersMWH *int        `json:"total_transfers_mwh"`

	WindForecast           *GenerationForecast `json:"wind_forecast"`
	WindForecastEarliest   *GenerationForecast `json:"wind_forecast_earliest"`
	NowToThreeWindForecast *LongTermForecast   `json:"now_to_three_wind_forecast"`
	FourteenWindForecast   *LongTermForecast   `json:"fourteen_wind_forecast"`

	SolarForecast *GenerationForecast `json:"solar_forecast"`

	ThreeEmbeddedSolar    *GenerationForecast `json:"three_embedded_solar"`
	FourteenEmbeddedSolar *GenerationForecast `json:"fourteen_embedded_solar"`
	ThreeEmbeddedWind     *GenerationForecast `json:"three_embedded_wind"`
	FourteenEmbeddedWind  *GenerationForecast `json:"fourteen_embedded_wind"`

	GridDemandDayAheadForecast    *DemandDayAheadForecast `json:"grid_demand_day_ahead_forecast"`
	GridDemandThreeDayForecast    *DemandForecast         `json:"grid_demand_three_day_forecast"`
	GridDemandFourteenDayForecast *DemandForecast         `json:"grid_demand_fourteen_day_forecast"`

	DFSRequirements *DFSRequirements `json:"dfs_requirements"`
	MarginForecast  *MarginForecast  `json:"margin_forecast"`
	SystemWarnings  *SystemWarnings  `json:"system_warnings"`
}
