package surveillance

// PerPopulation is the population unit rates are expressed in.
const PerPopulation = 100000

// Rate returns count per 100,000 population.
// The caller guarantees population > 0; canonical records always satisfy it.
func Rate(count, population float64) float64 {
	return count / population * PerPopulation
}
