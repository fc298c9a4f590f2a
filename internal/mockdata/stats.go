package mockdata

import "github.com/pitwall/pitwall/pkg/core"

type careerBase struct {
	wins, podiums, poles, championships int
}

var (
	hamiltonBase   = careerBase{wins: 103, podiums: 197, poles: 104, championships: 7}
	verstappenBase = careerBase{wins: 60, podiums: 105, poles: 40, championships: 3}
	otherBase      = careerBase{wins: 5, podiums: 20, poles: 10, championships: 0}
)

// Seed sums the code points of a driver id.
func Seed(driverID string) int {
	seed := 0
	for _, r := range driverID {
		seed += int(r)
	}
	return seed
}

// Stats derives deterministic career numbers from a driver id.
func Stats(driverID string) core.DriverStats {
	seed := Seed(driverID)

	base := otherBase
	switch driverID {
	case "hamilton":
		base = hamiltonBase
	case "verstappen":
		base = verstappenBase
	}

	return core.DriverStats{
		Wins:          seed%30 + base.wins,
		Podiums:       seed%70 + base.podiums*2,
		Poles:         seed%40 + base.poles,
		Championships: seed%3 + base.championships,
		Races:         150 + seed%150,
	}
}
