package coordinator

import (
	"math"

	"github.com/gridpulse/gridpulse/pkg/sources"
	"github.com/gridpulse/gridpulse/pkg/types"
)

// combineGeneration merges the transmission-metered breakdown with the
// embedded wind and solar estimates and fills in the derived totals and
// percentages. The input is not modified.
func combineGeneration(gen *types.Generation, embedded *sources.EmbeddedGeneration) *types.Generation {
	combined := *gen
	combined.WindMWH += embedded.WindMWH
	combined.EmbeddedWindMWH = embedded.WindMWH
	combined.SolarMWH = embedded.SolarMWH

	// pumped storage and interconnectors are transfers, not generation
	combined.TotalGenerationMWH = combined.GasMWH +
		combined.OilMWH +
		combined.CoalMWH +
		combined.BiomassMWH +
		combined.NuclearMWH +
		combined.WindMWH +
		combined.SolarMWH +
		combined.HydroMWH +
		combined.OtherMWH

	total := combined.TotalGenerationMWH
	combined.FossilFuelPercentage = percentage(combined.GasMWH+combined.OilMWH+combined.CoalMWH, total)
	combined.RenewablePercentage = percentage(combined.SolarMWH+combined.WindMWH+combined.HydroMWH, total)
	combined.LowCarbonPercentage = percentage(combined.SolarMWH+combined.WindMWH+combined.HydroMWH+combined.NuclearMWH, total)
	combined.LowCarbonWithBiomassPercentage = percentage(combined.SolarMWH+combined.WindMWH+combined.HydroMWH+combined.NuclearMWH+combined.BiomassMWH, total)
	combined.OtherPercentage = percentage(combined.NuclearMWH+combined.BiomassMWH+combined.OtherMWH, total)
	return &combined
}

// totalDemand sums everything being generated or imported, including
// transfers.
func totalDemand(g *types.Generation) int {
	return g.GasMWH +
		g.OilMWH +
		g.CoalMWH +
		g.BiomassMWH +
		g.NuclearMWH +
		g.WindMWH +
		g.SolarMWH +
		g.PumpedStorageMWH +
		g.HydroMWH +
		g.OtherMWH +
		g.FranceMWH +
		g.IrelandMWH +
		g.NetherlandsMWH +
		g.BelgiumMWH +
		g.NorwayMWH +
		g.DenmarkMW
}

// totalTransfers sums the interconnectors and pumped storage.
func totalTransfers(g *types.Generation) int {
	return g.FranceMWH +
		g.IrelandMWH +
		g.NetherlandsMWH +
		g.BelgiumMWH +
		g.NorwayMWH +
		g.DenmarkMW +
		g.PumpedStorageMWH
}

// percentage returns sum/total as a percentage rounded to 2 decimals. The
// generation zero-check upstream guarantees a nonzero total.
func percentage(sum, total int) float64 {
	return math.Round(float64(sum)/float64(total)*100*100) / 100
}
