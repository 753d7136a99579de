// Package capacity assigns funding capacities to generated channels.
package capacity

import (
	"errors"
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
)

// DefaultMean is the mean channel capacity used when none is configured
const DefaultMean = 10.0

// ErrInvalidMean is returned for a non-positive or NaN mean
var ErrInvalidMean = errors.New("capacity mean must be positive")

// Source is the random stream consumed by Provision
type Source interface {
	ExpMean(mean float64) float64
}

// Provision draws one exponentially distributed capacity with the given mean for
// every edge, in edge order. The result is aligned index for index with edges.
func Provision(edges []models.Edge, mean float64, rng Source) ([]float64, error) {
	if !(mean > 0) || math.IsInf(mean, 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidMean, mean)
	}

	capacities := make([]float64, len(edges))
	for i := range edges {
		capacities[i] = rng.ExpMean(mean)
	}
	return capacities, nil
}
