package prometheus

import (
	"time"

	"github.com/prometheus/common/model"
)

// Compact result types. The compact encoding deduplicates label sets into a
// shared ordered list and references them by index; sample pairs keep the
// backend-native [timestamp, "value"] array form, so numeric precision and
// timestamp resolution are untouched. The encoding is lossless: every
// (label set, timestamp, value) triple of the verbose form survives.
const (
	compactVectorType = "compact_vector"
	compactMatrixType = "compact_matrix"
)

// CompactSeries references a shared label set by index and carries its
// sample pairs.
type CompactSeries struct {
	LabelSet int                `json:"labelSet"`
	Samples  []model.SamplePair `json:"samples"`
}

// CompactResult is the compact encoding of a vector or matrix result.
type CompactResult struct {
	LabelSets []model.Metric  `json:"labelSets"`
	Series    []CompactSeries `json:"series"`
}

// compactValue builds the compact encoding for vector and matrix results.
// Scalar and string results are already minimal and pass through unchanged;
// ok reports whether compaction applied.
func compactValue(value model.Value) (result *CompactResult, resultType string, ok bool) {
	switch v := value.(type) {
	case model.Vector:
		return compactVector(v), compactVectorType, true
	case model.Matrix:
		return compactMatrix(v), compactMatrixType, true
	case *model.Scalar, *model.String:
		return nil, "", false
	default:
		return nil, "", false
	}
}

func compactVector(v model.Vector) *CompactResult {
	c := &CompactResult{
		LabelSets: []model.Metric{},
		Series:    make([]CompactSeries, 0, len(v)),
	}
	index := make(map[model.Fingerprint]int, len(v))
	for _, sample := range v {
		c.Series = append(c.Series, CompactSeries{
			LabelSet: c.labelSetIndex(index, sample.Metric),
			Samples:  []model.SamplePair{{Timestamp: sample.Timestamp, Value: sample.Value}},
		})
	}
	return c
}

func compactMatrix(m model.Matrix) *CompactResult {
	c := &CompactResult{
		LabelSets: []model.Metric{},
		Series:    make([]CompactSeries, 0, len(m)),
	}
	index := make(map[model.Fingerprint]int, len(m))
	for _, stream := range m {
		c.Series = append(c.Series, CompactSeries{
			LabelSet: c.labelSetIndex(index, stream.Metric),
			Samples:  stream.Values,
		})
	}
	return c
}

// labelSetIndex returns the shared index for metric, appending it to the
// label-set list on first sight. Identical label sets share one entry.
func (c *CompactResult) labelSetIndex(index map[model.Fingerprint]int, metric model.Metric) int {
	fp := metric.Fingerprint()
	if i, seen := index[fp]; seen {
		return i
	}
	i := len(c.LabelSets)
	c.LabelSets = append(c.LabelSets, metric)
	index[fp] = i
	return i
}

// CompactTarget is the reduced target shape returned when compact=true:
// health, identity, and the last scrape outcome survive; discovered labels
// and URLs are dropped.
type CompactTarget struct {
	Job        string    `json:"job"`
	Instance   string    `json:"instance"`
	Health     string    `json:"health"`
	ScrapePool string    `json:"scrapePool,omitempty"`
	LastScrape time.Time `json:"lastScrape"`
	LastError  string    `json:"lastError,omitempty"`
}

func compactTargets(targets []Target) []CompactTarget {
	out := make([]CompactTarget, len(targets))
	for i, t := range targets {
		out[i] = CompactTarget{
			Job:        t.Job,
			Instance:   t.Instance,
			Health:     t.Health,
			ScrapePool: t.ScrapePool,
			LastScrape: t.LastScrape,
			LastError:  t.LastError,
		}
	}
	return out
}
