package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"telecrm/internal/apperr"
	"telecrm/internal/calls"
	"telecrm/internal/devices"
	"telecrm/internal/orders"
	"telecrm/pkg/logger"
)

// DeviceLister lists every registered device, most recently active first.
type DeviceLister interface {
	List(ctx context.Context) ([]devices.Device, error)
}

type Options struct {
	// Location sets the calendar used for "today" and "this month".
	Location *time.Location
	Cache    DashboardCache
	CacheTTL time.Duration
}

// Service computes dashboard statistics from stored call events. It never
// writes call data.
type Service struct {
	calls   calls.Repository
	devices DeviceLister
	orders  orders.Lookup
	loc     *time.Location
	cache   DashboardCache
	ttl     time.Duration
}

func NewService(callRepo calls.Repository, devs DeviceLister, orderLookup orders.Lookup, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		calls:   callRepo,
		devices: devs,
		orders:  orderLookup,
		loc:     loc,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
	}
}

// ComputeDeviceStatus is online iff the device was active strictly less than
// OnlineWindow ago.
func ComputeDeviceStatus(d devices.Device, now time.Time) DeviceStatus {
	if now.Sub(d.LastActive) < OnlineWindow {
		return StatusOnline
	}
	return StatusOffline
}

// FormatDuration renders whole seconds as "1h 2m", "3m 4s" or "5s".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// ComputeWindowStats counts a device's calls with timestamp >= windowStart.
func (s *Service) ComputeWindowStats(ctx context.Context, deviceID string, windowStart time.Time) (WindowStats, error) {
	st, err := s.calls.Stats(ctx, deviceID, &windowStart)
	if err != nil {
		return WindowStats{}, apperr.Server("call stats failed", err)
	}
	return toWindow(st), nil
}

func toWindow(st calls.Stats) WindowStats {
	return WindowStats{
		Total:                st.Total,
		Answered:             st.Answered,
		Missed:               st.Missed,
		TotalDurationSeconds: st.TotalDurationSeconds,
		TotalDuration:        FormatDuration(st.TotalDurationSeconds),
	}
}

// EnrichHistoryEntry turns a call event into a display row. Calls with no
// outcome data borrow it from the most recent legacy order for the same phone.
func (s *Service) EnrichHistoryEntry(ctx context.Context, e calls.CallEvent) HistoryRow {
	row := HistoryRow{
		CallID:        e.CallID,
		PhoneNumber:   e.PhoneNumber,
		CallStatus:    string(e.CallStatus),
		Duration:      e.Duration,
		DurationText:  FormatDuration(e.Duration),
		Timestamp:     e.Timestamp,
		RecordingURL:  e.RecordingURL,
		Remarks:       e.Remarks,
		NeedBranding:  e.NeedBranding,
		ReasonForLoss: e.ReasonForLoss,
		Distributor:   e.Distributor,
	}

	if e.HasOutcomeData() {
		row.CustomerName = orDefault(e.CustomerName, PlaceholderCustomer)
		row.Outcome = PlaceholderOutcome
		if e.Outcome != nil {
			row.Outcome = string(*e.Outcome)
		}
		row.Reminder = e.FollowUpDate
		row.OrderDetails = orDefault(renderQuantities(e.ProductQuantities), PlaceholderOrderDetails)
		return row
	}

	row.CustomerName = PlaceholderCustomer
	row.Outcome = PlaceholderOutcome
	row.OrderDetails = PlaceholderOrderDetails
	if s.orders == nil {
		return row
	}

	o, found, err := s.orders.MostRecentForPhone(ctx, e.PhoneNumber)
	if err != nil {
		logger.From(ctx).Warn("order lookup failed", "call_id", e.CallID, "err", err)
		return row
	}
	if !found {
		return row
	}
	row.CustomerName = orDefault(o.CustomerName, PlaceholderCustomer)
	row.Outcome = orDefault(o.OrderStatus, PlaceholderOutcome)
	row.Reminder = o.FollowUpDate
	row.OrderDetails = orDefault(o.ProductSummary(), PlaceholderOrderDetails)
	return row
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func renderQuantities(pq map[string]int) string {
	if len(pq) == 0 {
		return ""
	}
	names := make([]string, 0, len(pq))
	for n := range pq {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s x %d", n, pq[n]))
	}
	return strings.Join(parts, ", ")
}

// BuildDeviceDashboard assembles status, statistics and recent history for d.
func (s *Service) BuildDeviceDashboard(ctx context.Context, d devices.Device, now time.Time) (DashboardEntry, error) {
	local := now.In(s.loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	startOfMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc)

	all, err := s.calls.Stats(ctx, d.ID, nil)
	if err != nil {
		return DashboardEntry{}, apperr.Server("call stats failed", err)
	}
	today, err := s.ComputeWindowStats(ctx, d.ID, startOfDay)
	if err != nil {
		return DashboardEntry{}, err
	}
	month, err := s.ComputeWindowStats(ctx, d.ID, startOfMonth)
	if err != nil {
		return DashboardEntry{}, err
	}

	avg := 0
	if all.TimedAnswered > 0 {
		avg = all.TimedAnsweredSeconds / all.TimedAnswered
	}

	recent, err := s.calls.Recent(ctx, d.ID, HistoryLimit)
	if err != nil {
		return DashboardEntry{}, apperr.Server("call history failed", err)
	}
	history := make([]HistoryRow, 0, len(recent))
	for _, e := range recent {
		history = append(history, s.EnrichHistoryEntry(ctx, e))
	}

	return DashboardEntry{
		ID:         d.ID,
		Name:       d.Name,
		Telecaller: d.Telecaller,
		Status:     ComputeDeviceStatus(d, now),
		LastActive: d.LastActive,
		CallStats: CallStats{
			TotalCalls:      all.Total,
			Today:           today,
			Month:           month,
			AnsweredCalls:   all.Answered,
			MissedCalls:     all.Missed,
			AvgCallDuration: FormatDuration(avg),
			TodayCalls:      today.Total,
		},
		History: history,
	}, nil
}

// Dashboard builds entries for every device, most recently active first.
// Results may be served from the cache for up to the configured TTL.
func (s *Service) Dashboard(ctx context.Context, now time.Time) ([]DashboardEntry, error) {
	log := logger.From(ctx)
	if s.cache != nil && s.ttl > 0 {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			log.Warn("dashboard cache read failed", "err", err)
		} else if ok {
			return cached, nil
		}
	}

	devs, err := s.devices.List(ctx)
	if err != nil {
		return nil, apperr.Server("device list failed", err)
	}
	out := make([]DashboardEntry, 0, len(devs))
	for _, d := range devs {
		entry, err := s.BuildDeviceDashboard(ctx, d, now)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, out, s.ttl); err != nil {
			log.Warn("dashboard cache write failed", "err", err)
		}
	}
	return out, nil
}
