// seed writes a fabricated snapshot into the firestore emulator so the API
// has data to serve during local development.
package main

import (
	"context"
	"os"
	"time"

	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/gridpulse/gridpulse/pkg/storage"
	"github.com/gridpulse/gridpulse/pkg/types"
)

func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	ctx := context.Background()

	db := storage.NewFirestore("gridpulse-dev", "")
	if err := db.Init(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to init storage", "error", err)
		os.Exit(1)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding mock snapshot")

	now := time.Now().UTC().Truncate(time.Minute)
	price := 85.5
	freq := 49.98
	demand := 31050
	transfers := 3550

	forecast := make([]types.ForecastPoint, 0, 48)
	for i := 0; i < 48; i++ {
		forecast = append(forecast, types.ForecastPoint{
			StartTime:  now.Add(time.Duration(i) * 30 * time.Minute),
			Generation: 6000 + 50*i,
		})
	}

	snap := &types.Snapshot{
		SellPrice:     &price,
		GridFrequency: &freq,
		GridGeneration: &types.Generation{
			GasMWH:                         10000,
			CoalMWH:                        500,
			BiomassMWH:                     1500,
			NuclearMWH:                     4000,
			WindMWH:                        8000,
			NationalWindMWH:                6000,
			EmbeddedWindMWH:                2000,
			SolarMWH:                       3000,
			HydroMWH:                       400,
			OtherMWH:                       100,
			PumpedStorageMWH:               600,
			FranceMWH:                      1000,
			IrelandMWH:                     -250,
			NetherlandsMWH:                 800,
			NorwayMWH:                      1400,
			TotalGenerationMWH:             27500,
			FossilFuelPercentage:           38.18,
			RenewablePercentage:            41.45,
			LowCarbonPercentage:            56.0,
			LowCarbonWithBiomassPercentage: 61.45,
			OtherPercentage:                20.36,
			GridCollectionTime:             now,
		},
		WindData: &types.WindData{
			TodayPeak:        9000,
			TomorrowPeak:     7500,
			TodayPeakTime:    now.Add(6 * time.Hour),
			TomorrowPeakTime: now.Add(30 * time.Hour),
		},
		TotalDemandMWH:    &demand,
		TotalTransfersMWH: &transfers,
		CarbonIntensity: &types.CarbonIntensity{
			CurrentValue: 120,
			Forecast: []types.CarbonIntensityPoint{
				{StartTime: now, Intensity: 120, Index: "moderate"},
				{StartTime: now.Add(30 * time.Minute), Intensity: 110, Index: "moderate"},
			},
		},
		WindForecast:   &types.GenerationForecast{CurrentValue: 6200, Forecast: forecast},
		SolarForecast:  &types.GenerationForecast{CurrentValue: 3100, Forecast: forecast},
		SystemWarnings: &types.SystemWarnings{},
	}

	if err := db.SaveSnapshot(ctx, snap, now); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save snapshot", "error", err)
		os.Exit(1)
	}
	if err := db.Close(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeded snapshot", "updated", now)
}
