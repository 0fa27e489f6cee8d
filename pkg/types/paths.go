package types

import (
	"errors"
	"sort"
)

var (
	// ErrUnknownPath is returned by Lookup for a path that is not in the
	// accessor table.
	ErrUnknownPath = errors.New("unknown path")

	// ErrUnavailable is returned by Lookup when the path is known but the
	// category it belongs to has never been obtained.
	ErrUnavailable = errors.New("value unavailable")
)

type accessor func(*Snapshot) (any, error)

// The accessor table is enumerated explicitly so the set of bindable paths is
// a compile-time fact rather than whatever string-splitting happens to reach.
var accessors = map[string]accessor{
	"sell_price": func(s *Snapshot) (any, error) {
		if s.SellPrice == nil {
			return nil, ErrUnavailable
		}
		return *s.SellPrice, nil
	},
	"grid_frequency": func(s *Snapshot) (any, error) {
		if s.GridFrequency == nil {
			return nil, ErrUnavailable
		}
		return *s.GridFrequency, nil
	},
	"total_demand_mwh": func(s *Snapshot) (any, error) {
		if s.TotalDemandMWH == nil {
			return nil, ErrUnavailable
		}
		return *s.TotalDemandMWH, nil
	},
	"total_transfers_mwh": func(s *Snapshot) (any, error) {
		if s.TotalTransfersMWH == nil {
			return nil, ErrUnavailable
		}
		return *s.TotalTransfersMWH, nil
	},

	"carbon_intensity":               carbonField(func(c *CarbonIntensity) any { return c }),
	"carbon_intensity.current_value": carbonField(func(c *CarbonIntensity) any { return c.CurrentValue }),
	"carbon_intensity.forecast":      carbonField(func(c *CarbonIntensity) any { return c.Forecast }),
	"carbon_intensity.region": carbonField(func(c *CarbonIntensity) any {
		return c.Region
	}),

	"grid_generation":                    generationField(func(g *Generation) any { return g }),
	"grid_generation.gas_mwh":            generationField(func(g *Generation) any { return g.GasMWH }),
	"grid_generation.oil_mwh":            generationField(func(g *Generation) any { return g.OilMWH }),
	"grid_generation.coal_mwh":           generationField(func(g *Generation) any { return g.CoalMWH }),
	"grid_generation.biomass_mwh":        generationField(func(g *Generation) any { return g.BiomassMWH }),
	"grid_generation.nuclear_mwh":        generationField(func(g *Generation) any { return g.NuclearMWH }),
	"grid_generation.wind_mwh":           generationField(func(g *Generation) any { return g.WindMWH }),
	"grid_generation.national_wind_mwh":  generationField(func(g *Generation) any { return g.NationalWindMWH }),
	"grid_generation.embedded_wind_mwh":  generationField(func(g *Generation) any { return g.EmbeddedWindMWH }),
	"grid_generation.solar_mwh":          generationField(func(g *Generation) any { return g.SolarMWH }),
	"grid_generation.pumped_storage_mwh": generationField(func(g *Generation) any { return g.PumpedStorageMWH }),
	"grid_generation.hydro_mwh":          generationField(func(g *Generation) any { return g.HydroMWH }),
	"grid_generation.other_mwh":          generationField(func(g *Generation) any { return g.OtherMWH }),
	"grid_generation.france_mwh":         generationField(func(g *Generation) any { return g.FranceMWH }),
	"grid_generation.ireland_mwh":        generationField(func(g *Generation) any { return g.IrelandMWH }),
	"grid_generation.netherlands_mwh":    generationField(func(g *Generation) any { return g.NetherlandsMWH }),
	"grid_generation.belgium_mwh":        generationField(func(g *Generation) any { return g.BelgiumMWH }),
	"grid_generation.norway_mwh":         generationField(func(g *Generation) any { return g.NorwayMWH }),
	"grid_generation.denmark_mw":         generationField(func(g *Generation) any { return g.DenmarkMW }),
	"grid_generation.total_generation_mwh": generationField(func(g *Generation) any {
		return g.TotalGenerationMWH
	}),
	"grid_generation.fossil_fuel_percentage_generation": generationField(func(g *Generation) any {
		return g.FossilFuelPercentage
	}),
	"grid_generation.renewable_percentage_generation": generationField(func(g *Generation) any {
		return g.RenewablePercentage
	}),
	"grid_generation.low_carbon_percentage_generation": generationField(func(g *Generation) any {
		return g.LowCarbonPercentage
	}),
	"grid_generation.low_carbon_with_biomass_percentage_generation": generationField(func(g *Generation) any {
		return g.LowCarbonWithBiomassPercentage
	}),
	"grid_generation.other_percentage_generation": generationField(func(g *Generation) any {
		return g.OtherPercentage
	}),
	"grid_generation.grid_collection_time": generationField(func(g *Generation) any {
		return g.GridCollectionTime
	}),

	"wind_data": windDataField(func(w *WindData) any { return w }),
	"wind_data.today_peak": windDataField(func(w *WindData) any {
		return w.TodayPeak
	}),
	"wind_data.tomorrow_peak": windDataField(func(w *WindData) any {
		return w.TomorrowPeak
	}),
	"wind_data.today_peak_time": windDataField(func(w *WindData) any {
		return w.TodayPeakTime
	}),
	"wind_data.tomorrow_peak_time": windDataField(func(w *WindData) any {
		return w.TomorrowPeakTime
	}),

	"wind_forecast": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.WindForecast },
		func(f *GenerationForecast) any { return f }),
	"wind_forecast.current_value": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.WindForecast },
		func(f *GenerationForecast) any { return f.CurrentValue }),
	"wind_forecast_earliest": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.WindForecastEarliest },
		func(f *GenerationForecast) any { return f }),
	"wind_forecast_earliest.current_value": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.WindForecastEarliest },
		func(f *GenerationForecast) any { return f.CurrentValue }),
	"solar_forecast": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.SolarForecast },
		func(f *GenerationForecast) any { return f }),
	"solar_forecast.current_value": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.SolarForecast },
		func(f *GenerationForecast) any { return f.CurrentValue }),
	"three_embedded_solar": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.ThreeEmbeddedSolar },
		func(f *GenerationForecast) any { return f }),
	"fourteen_embedded_solar": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.FourteenEmbeddedSolar },
		func(f *GenerationForecast) any { return f }),
	"three_embedded_wind": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.ThreeEmbeddedWind },
		func(f *GenerationForecast) any { return f }),
	"fourteen_embedded_wind": genForecastField(
		func(s *Snapshot) *GenerationForecast { return s.FourteenEmbeddedWind },
		func(f *GenerationForecast) any { return f }),

	"now_to_three_wind_forecast": func(s *Snapshot) (any, error) {
		if s.NowToThreeWindForecast == nil {
			return nil, ErrUnavailable
		}
		return s.NowToThreeWindForecast, nil
	},
	"fourteen_wind_forecast": func(s *Snapshot) (any, error) {
		if s.FourteenWindForecast == nil {
			return nil, ErrUnavailable
		}
		return s.FourteenWindForecast, nil
	},

	"grid_demand_day_ahead_forecast": func(s *Snapshot) (any, error) {
		if s.GridDemandDayAheadForecast == nil {
			return nil, ErrUnavailable
		}
		return s.GridDemandDayAheadForecast, nil
	},
	"grid_demand_day_ahead_forecast.current_value": func(s *Snapshot) (any, error) {
		if s.GridDemandDayAheadForecast == nil {
			return nil, ErrUnavailable
		}
		return s.GridDemandDayAheadForecast.CurrentValue, nil
	},
	"grid_demand_three_day_forecast": demandForecastField(
		func(s *Snapshot) *DemandForecast { return s.GridDemandThreeDayForecast },
		func(f *DemandForecast) any { return f }),
	"grid_demand_three_day_forecast.current_value": demandForecastField(
		func(s *Snapshot) *DemandForecast { return s.GridDemandThreeDayForecast },
		func(f *DemandForecast) any { return f.CurrentValue }),
	"grid_demand_fourteen_day_forecast": demandForecastField(
		func(s *Snapshot) *DemandForecast { return s.GridDemandFourteenDayForecast },
		func(f *DemandForecast) any { return f }),
	"grid_demand_fourteen_day_forecast.current_value": demandForecastField(
		func(s *Snapshot) *DemandForecast { return s.GridDemandFourteenDayForecast },
		func(f *DemandForecast) any { return f.CurrentValue }),

	"dfs_requirements": func(s *Snapshot) (any, error) {
		if s.DFSRequirements == nil {
			return nil, ErrUnavailable
		}
		return s.DFSRequirements, nil
	},
	"margin_forecast": func(s *Snapshot) (any, error) {
		if s.MarginForecast == nil {
			return nil, ErrUnavailable
		}
		return s.MarginForecast, nil
	},
	"margin_forecast.current_value": func(s *Snapshot) (any, error) {
		if s.MarginForecast == nil {
			return nil, ErrUnavailable
		}
		return s.MarginForecast.CurrentValue, nil
	},
	"system_warnings": func(s *Snapshot) (any, error) {
		if s.SystemWarnings == nil {
			return nil, ErrUnavailable
		}
		return s.SystemWarnings, nil
	},
	"system_warnings.current_warning": func(s *Snapshot) (any, error) {
		if s.SystemWarnings == nil {
			return nil, ErrUnavailable
		}
		// a nil warning is a valid "no active warning" answer
		return s.SystemWarnings.CurrentWarning, nil
	},
}

func generationField(get func(*Generation) any) accessor {
	return func(s *Snapshot) (any, error) {
		if s.GridGeneration == nil {
			return nil, ErrUnavailable
		}
		return get(s.GridGeneration), nil
	}
}

func carbonField(get func(*CarbonIntensity) any) accessor {
	return func(s *Snapshot) (any, error) {
		if s.CarbonIntensity == nil {
			return nil, ErrUnavailable
		}
		return get(s.CarbonIntensity), nil
	}
}

func windDataField(get func(*WindData) any) accessor {
	return func(s *Snapshot) (any, error) {
		if s.WindData == nil {
			return nil, ErrUnavailable
		}
		return get(s.WindData), nil
	}
}

func genForecastField(sel func(*Snapshot) *GenerationForecast, get func(*GenerationForecast) any) accessor {
	return func(s *Snapshot) (any, error) {
		f := sel(s)
		if f == nil {
			return nil, ErrUnavailable
		}
		return get(f), nil
	}
}

func demandForecastField(sel func(*Snapshot) *DemandForecast, get func(*DemandForecast) any) accessor {
	return func(s *Snapshot) (any, error) {
		f := sel(s)
		if f == nil {
			return nil, ErrUnavailable
		}
		return get(f), nil
	}
}

// Lookup resolves a dot path against the snapshot. It returns ErrUnknownPath
// for a path outside the table and ErrUnavailable when the owning category
// has never produced a value.
func (s *Snapshot) Lookup(path string) (any, error) {
	fn, ok := accessors[path]
	if !ok {
		return nil, ErrUnknownPath
	}
	return fn(s)
}

// Paths returns every bindable dot path, sorted.
func Paths() []string {
	out := make([]string, 0, len(accessors))
	for p := range accessors {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
