package statssvc

import (
	"context"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/istatsrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	statsrepo "github.com/corray333/backend-labs/takeout/internal/dal/repositories/statistics/postgres"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/statistics"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

const (
	dateLayout   = "2006-01-02"
	maxRangeDays = 366
	topLimit     = 10
)

// StatisticsService aggregates order history for the dashboard and reports.
// It never writes.
type StatisticsService struct {
	statsRepo istatsrepo.IStatisticsRepository
	loc       *time.Location
}

// option is a function that configures the StatisticsService.
type option func(*StatisticsService)

// MustNewStatisticsService creates a new StatisticsService.
func MustNewStatisticsService(opts ...option) *StatisticsService {
	s := &StatisticsService{loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}

	if s.statsRepo == nil {
		panic("statistics service requires a repository")
	}

	return s
}

// WithPostgresClient reads statistics from Postgres.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *StatisticsService) {
		s.statsRepo = statsrepo.NewPostgresStatisticsRepository(pgClient.Pool())
	}
}

// WithStatisticsRepository sets the repository directly.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStatisticsRepository(repo istatsrepo.IStatisticsRepository) option {
	return func(s *StatisticsService) {
		s.statsRepo = repo
	}
}

// WithLocation sets the time zone calendar days are cut in.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocation(loc *time.Location) option {
	return func(s *StatisticsService) {
		s.loc = loc
	}
}

// StatusCounts returns how many orders wait at each staff handled stage.
func (s *StatisticsService) StatusCounts(ctx context.Context) (statistics.StatusCounts, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.StatusCounts")
	defer span.End()

	counts, err := s.statsRepo.CountByStatus(ctx, []order.Status{
		order.StatusToBeConfirmed,
		order.StatusConfirmed,
		order.StatusDeliveryInProgress,
	})
	if err != nil {
		return statistics.StatusCounts{}, err
	}

	return statistics.StatusCounts{
		ToBeConfirmed:      counts[order.StatusToBeConfirmed],
		Confirmed:          counts[order.StatusConfirmed],
		DeliveryInProgress: counts[order.StatusDeliveryInProgress],
	}, nil
}

// Turnover sums completed order amounts per day, both days inclusive.
func (s *StatisticsService) Turnover(ctx context.Context, begin, end time.Time) (statistics.TurnoverReport, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.Turnover")
	defer span.End()

	days, from, to, err := s.days(begin, end)
	if err != nil {
		return statistics.TurnoverReport{}, err
	}

	sums, err := s.statsRepo.SumAmountByDay(ctx, order.StatusCompleted, from, to)
	if err != nil {
		return statistics.TurnoverReport{}, err
	}
	byDay := make(map[string]decimal.Decimal, len(sums))
	for _, da := range sums {
		byDay[s.key(da.Day)] = da.Amount
	}

	report := statistics.TurnoverReport{
		Dates:    days,
		Turnover: make([]decimal.Decimal, len(days)),
	}
	for i, day := range days {
		amount, ok := byDay[day]
		if !ok {
			amount = decimal.Zero
		}
		report.Turnover[i] = amount
	}

	return report, nil
}

// OrderReport counts placed and completed orders per day, both days inclusive.
func (s *StatisticsService) OrderReport(ctx context.Context, begin, end time.Time) (statistics.OrderReport, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.OrderReport")
	defer span.End()

	days, from, to, err := s.days(begin, end)
	if err != nil {
		return statistics.OrderReport{}, err
	}

	all, err := s.statsRepo.CountByDay(ctx, nil, from, to)
	if err != nil {
		return statistics.OrderReport{}, err
	}
	completed := order.StatusCompleted
	valid, err := s.statsRepo.CountByDay(ctx, &completed, from, to)
	if err != nil {
		return statistics.OrderReport{}, err
	}

	allByDay := s.countsByDay(all)
	validByDay := s.countsByDay(valid)

	report := statistics.OrderReport{
		Dates:               days,
		OrderCounts:         make([]int64, len(days)),
		ValidOrderCounts:    make([]int64, len(days)),
		OrderCompletionRate: decimal.Zero,
	}
	for i, day := range days {
		report.OrderCounts[i] = allByDay[day]
		report.ValidOrderCounts[i] = validByDay[day]
		report.TotalOrderCount += allByDay[day]
		report.ValidOrderCount += validByDay[day]
	}
	if report.TotalOrderCount > 0 {
		report.OrderCompletionRate = decimal.NewFromInt(report.ValidOrderCount).
			DivRound(decimal.NewFromInt(report.TotalOrderCount), 4)
	}

	return report, nil
}

// SalesTop10 lists the ten best selling items of completed orders.
func (s *StatisticsService) SalesTop10(ctx context.Context, begin, end time.Time) (statistics.SalesTopReport, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.SalesTop10")
	defer span.End()

	_, from, to, err := s.days(begin, end)
	if err != nil {
		return statistics.SalesTopReport{}, err
	}

	sales, err := s.statsRepo.SalesTop(ctx, from, to, topLimit)
	if err != nil {
		return statistics.SalesTopReport{}, err
	}

	report := statistics.SalesTopReport{
		Names:      make([]string, 0, len(sales)),
		Quantities: make([]int64, 0, len(sales)),
	}
	for _, gs := range sales {
		report.Names = append(report.Names, gs.Name)
		report.Quantities = append(report.Quantities, gs.Quantity)
	}

	return report, nil
}

// days expands [begin, end] into calendar day keys and the half open time
// range covering them.
func (s *StatisticsService) days(begin, end time.Time) ([]string, time.Time, time.Time, error) {
	from := s.midnight(begin)
	last := s.midnight(end)
	if from.After(last) {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("%w: begin %s is after end %s",
			order.ErrValidation, from.Format(dateLayout), last.Format(dateLayout))
	}

	var days []string
	day := from
	for !day.After(last) {
		if len(days) == maxRangeDays {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("%w: range longer than %d days",
				order.ErrValidation, maxRangeDays)
		}
		days = append(days, day.Format(dateLayout))
		day = day.AddDate(0, 0, 1)
	}

	return days, from, day, nil
}

func (s *StatisticsService) midnight(t time.Time) time.Time {
	t = t.In(s.loc)

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func (s *StatisticsService) key(t time.Time) string {
	return t.In(s.loc).Format(dateLayout)
}

func (s *StatisticsService) countsByDay(counts []statistics.DayCount) map[string]int64 {
	byDay := make(map[string]int64, len(counts))
	for _, dc := range counts {
		byDay[s.key(dc.Day)] += dc.Count
	}

	return byDay
}

// ParseDate parses a yyyy-mm-dd day in the service time zone.
func (s *StatisticsService) ParseDate(v string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, v, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", order.ErrValidation, v)
	}

	return t, nil
}
