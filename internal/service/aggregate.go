package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/patient-feedback-server/internal/domain"
)

// starLabels are the bucket labels for a rating distribution, indexed
// by star value minus one.
var starLabels = [5]string{"1 Star", "2 Star", "3 Star", "4 Star", "5 Star"}

// Report is one computed aggregate view: a set of named series handed
// to the external chart renderer, plus the headline total.
type Report struct {
	Title  string           `json:"title"`
	Total  int64            `json:"total"`
	Kind   domain.ChartKind `json:"kind"`
	Series []domain.Series  `json:"series"`
}

// AggregationService computes count distributions over the full
// record set. Both strategies, the streaming scan and the per-bucket
// count queries, produce identical results; they differ only in
// read cost. Computed reports are held in a short-lived snapshot
// cache so chart page reloads do not rescan the store.
type AggregationService struct {
	store     domain.RecordStore
	snapshots *expirable.LRU[string, *Report]
	log       *logrus.Logger
}

// NewAggregationService creates a new aggregation service with a
// snapshot cache of the given TTL.
func NewAggregationService(store domain.RecordStore, snapshotTTL time.Duration, logger *logrus.Logger) *AggregationService {
	return &AggregationService{
		store:     store,
		snapshots: expirable.NewLRU[string, *Report](8, nil, snapshotTTL),
		log:       logger,
	}
}

// BarReport computes the rating and yes/no distributions with a single
// streaming scan over the store. The headline total is the sum of all
// per-field response totals.
func (s *AggregationService) BarReport(ctx context.Context) (*Report, error) {
	if cached, ok := s.snapshots.Get("bar"); ok {
		return cached, nil
	}

	records, err := s.store.Find(ctx, domain.Filter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	series := make([]domain.Series, 0, len(domain.RatingFields)+2)
	var total int64
	for _, field := range domain.RatingFields {
		var counts [5]int64
		for i := range records {
			if star, ok := records[i].Rating(field); ok && star >= domain.RatingMin && star <= domain.RatingMax {
				counts[star-1]++
			}
		}
		points := make([]domain.Point, 5)
		for i, c := range counts {
			points[i] = domain.Point{Label: starLabels[i], Count: c}
			total += c
		}
		series = append(series, domain.Series{Name: field, Points: points})
	}

	yes, no := tallyBinary(records)
	series = append(series,
		domain.Series{Name: "yes_responses", Points: binaryPoints(yes, "")},
		domain.Series{Name: "no_responses", Points: binaryPoints(no, "")},
	)

	report := &Report{
		Title:  fmt.Sprintf("Bar Graph Analysis (Total Ratings = %d)", total),
		Total:  total,
		Kind:   domain.ChartBar,
		Series: series,
	}
	s.snapshots.Add("bar", report)
	return report, nil
}

// PieReport computes the same distributions via per-bucket count
// queries. The headline total is the mean per-field response count,
// using integer floor division for parity with prior output.
func (s *AggregationService) PieReport(ctx context.Context) (*Report, error) {
	if cached, ok := s.snapshots.Get("pie"); ok {
		return cached, nil
	}

	series := make([]domain.Series, 0, len(domain.RatingFields)+len(domain.BinaryFields))
	var total int64
	for _, field := range domain.RatingFields {
		points := make([]domain.Point, 5)
		for star := domain.RatingMin; star <= domain.RatingMax; star++ {
			n, err := s.store.Count(ctx, domain.Filter{}.Eq(field, star))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
			}
			points[star-1] = domain.Point{Label: starLabels[star-1], Count: n}
			total += n
		}
		series = append(series, domain.Series{Name: field, Points: points})
	}

	for _, field := range domain.BinaryFields {
		yes, no, err := s.countBinary(ctx, field)
		if err != nil {
			return nil, err
		}
		series = append(series, domain.Series{
			Name: field,
			Points: []domain.Point{
				{Label: "Yes", Count: yes},
				{Label: "No", Count: no},
			},
		})
	}

	average := total / int64(len(domain.RatingFields))
	report := &Report{
		Title:  fmt.Sprintf("Pie Chart Analysis (Total Ratings = %d)", average),
		Total:  average,
		Kind:   domain.ChartPie,
		Series: series,
	}
	s.snapshots.Add("pie", report)
	return report, nil
}

// OverallReport computes the ranking view: per star level, and for the
// yes and no answers, per-field counts stable-sorted descending with
// their labels carried along. Ties keep pre-sort field order.
func (s *AggregationService) OverallReport(ctx context.Context) (*Report, error) {
	if cached, ok := s.snapshots.Get("overall"); ok {
		return cached, nil
	}

	series := make([]domain.Series, 0, 7)
	for star := domain.RatingMin; star <= domain.RatingMax; star++ {
		points := make([]domain.Point, 0, len(domain.RatingFields))
		for _, field := range domain.RatingFields {
			n, err := s.store.Count(ctx, domain.Filter{}.Eq(field, star))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
			}
			points = append(points, domain.Point{Label: field, Count: n})
		}
		series = append(series, domain.Series{
			Name:   fmt.Sprintf("%d_star", star),
			Points: rankDescending(points),
		})
	}

	yesPoints := make([]domain.Point, 0, len(domain.BinaryFields))
	noPoints := make([]domain.Point, 0, len(domain.BinaryFields))
	for _, field := range domain.BinaryFields {
		yes, no, err := s.countBinary(ctx, field)
		if err != nil {
			return nil, err
		}
		label := field + " (Yes/No)"
		yesPoints = append(yesPoints, domain.Point{Label: label, Count: yes})
		noPoints = append(noPoints, domain.Point{Label: label, Count: no})
	}
	series = append(series,
		domain.Series{Name: "yes", Points: rankDescending(yesPoints)},
		domain.Series{Name: "no", Points: rankDescending(noPoints)},
	)

	report := &Report{
		Title:  "Overall Bar Graph Analysis",
		Kind:   domain.ChartBar,
		Series: series,
	}
	s.snapshots.Add("overall", report)
	return report, nil
}

// countBinary issues the two count queries for one yes/no field.
// Values outside yes/no are never counted.
func (s *AggregationService) countBinary(ctx context.Context, field string) (yes, no int64, err error) {
	yes, err = s.store.Count(ctx, domain.Filter{}.Eq(field, domain.BinaryYes))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	no, err = s.store.Count(ctx, domain.Filter{}.Eq(field, domain.BinaryNo))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return yes, no, nil
}

// tallyBinary counts yes/no answers per binary field in one pass.
// Any other value is excluded from both counts.
func tallyBinary(records []domain.FeedbackRecord) (yes, no map[string]int64) {
	yes = make(map[string]int64, len(domain.BinaryFields))
	no = make(map[string]int64, len(domain.BinaryFields))
	for i := range records {
		for _, field := range domain.BinaryFields {
			switch v, _ := records[i].Binary(field); v {
			case domain.BinaryYes:
				yes[field]++
			case domain.BinaryNo:
				no[field]++
			}
		}
	}
	return yes, no
}

// binaryPoints orders per-field counts by the canonical field order.
func binaryPoints(counts map[string]int64, labelSuffix string) []domain.Point {
	points := make([]domain.Point, 0, len(domain.BinaryFields))
	for _, field := range domain.BinaryFields {
		points = append(points, domain.Point{Label: field + labelSuffix, Count: counts[field]})
	}
	return points
}

// rankDescending sorts points by count, highest first. The sort is
// stable so tied fields keep their pre-sort order.
func rankDescending(points []domain.Point) []domain.Point {
	out := make([]domain.Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
