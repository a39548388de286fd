package scan

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/risk-analyzer/internal/model"
)

// ScanBulk scores each URL independently, at most maxConcurrent at a time.
// Items keep input order. One URL failing, or panicking, yields an error
// item and never aborts its siblings.
func (s *Service) ScanBulk(ctx context.Context, urls []string) (*model.BulkResult, error) {
	cleaned, err := ValidateBatch(urls, s.maxBulk)
	if err != nil {
		return nil, err
	}

	items := make([]model.BulkItem, len(cleaned))
	g := new(errgroup.Group)
	g.SetLimit(s.maxConcurrent)
	for i, u := range cleaned {
		g.Go(func() error {
			items[i] = s.bulkItem(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var recs []model.ScanRecord
	for _, it := range items {
		if it.Result != nil {
			recs = append(recs, it.Result.Record())
		}
	}
	if s.store != nil && len(recs) > 0 {
		if err := s.store.SaveScans(ctx, recs); err != nil {
			zap.L().Warn("scan: failed to record bulk scans", zap.Int("count", len(recs)), zap.Error(err))
		}
	}

	return &model.BulkResult{Results: items, Summary: Summarize(items)}, nil
}

func (s *Service) bulkItem(ctx context.Context, u string) (item model.BulkItem) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("scan: bulk item panicked", zap.String("url", u), zap.Any("panic", r))
			item = errorItem(u, fmt.Sprintf("scan panicked: %v", r))
		}
	}()

	res, err := s.scanURL(ctx, u)
	if err != nil {
		return errorItem(u, err.Error())
	}
	score := res.OverallScore
	return model.BulkItem{
		Result:       res,
		Label:        res.Label,
		OverallScore: &score,
		ScannedInput: res.ScannedInput,
	}
}

func errorItem(u, reason string) model.BulkItem {
	return model.BulkItem{Label: model.LabelError, ScannedInput: u, Error: reason}
}

// Summarize aggregates the scored items. Error items count toward Total and
// Errors only.
func Summarize(items []model.BulkItem) model.BulkSummary {
	sum := model.BulkSummary{Total: len(items)}
	total := 0
	for _, it := range items {
		if it.OverallScore == nil {
			sum.Errors++
			continue
		}
		score := *it.OverallScore
		sum.Scanned++
		total += score
		sum.HighestRisk = max(sum.HighestRisk, score)
		switch it.Label {
		case model.LabelSafe:
			sum.Distribution.Safe++
		case model.LabelSuspicious:
			sum.Distribution.Suspicious++
		case model.LabelDangerous:
			sum.Distribution.Dangerous++
		}
	}
	if sum.Scanned > 0 {
		sum.AvgScore = int(math.Round(float64(total) / float64(sum.Scanned)))
	}
	return sum
}
