package regressiondata

import "github.com/BenLubar/memoize"

// Cluster is an antigenic cartography era, named after its reference strain.
type Cluster string

const (
	HK68 Cluster = "HK68"
	EN72 Cluster = "EN72"
	VI75 Cluster = "VI75"
	TX77 Cluster = "TX77"
	BK79 Cluster = "BK79"
	SI87 Cluster = "SI87"
	BE89 Cluster = "BE89"
	BE92 Cluster = "BE92"
	WU95 Cluster = "WU95"
	SY97 Cluster = "SY97"
	FU02 Cluster = "FU02"
)

type clusterBound struct {
	Before  int // exclusive upper bound on the year
	Cluster Cluster
}

// clusterBounds must stay sorted by Before. Years at or past the last bound
// belong to FU02.
var clusterBounds = []clusterBound{
	{1972, HK68},
	{1975, EN72},
	{1977, VI75},
	{1979, TX77},
	{1987, BK79},
	{1989, SI87},
	{1992, BE89},
	{1995, BE92},
	{1997, WU95},
	{2002, SY97},
}

// Clusters lists every cluster in chronological order.
func Clusters() []Cluster {
	out := make([]Cluster, 0, len(clusterBounds)+1)
	for _, b := range clusterBounds {
		out = append(out, b.Cluster)
	}
	return append(out, FU02)
}

// Bucket assigns a year to its cluster. Every year maps to exactly one.
func Bucket(year int) Cluster {
	for _, b := range clusterBounds {
		if year < b.Before {
			return b.Cluster
		}
	}
	return FU02
}

// Rows sharing a year share one lookup.
var memoizedBucket = memoize.Memoize(Bucket)

func bucket(year int) Cluster {
	return memoizedBucket.(func(int) Cluster)(year)
}
