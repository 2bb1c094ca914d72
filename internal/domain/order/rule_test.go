package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scheduled(id int64, days int, status Status) Rule {
	return Rule{ID: id, Status: status, DaysAfter: days, IsActive: true}
}

func TestTargetStatus(t *testing.T) {
	rules := []Rule{
		scheduled(1, 3, StatusProcessing),
		scheduled(2, 7, StatusShipped),
		scheduled(3, 14, StatusCompleted),
	}
	SortScheduled(rules)

	tests := []struct {
		days   int
		want   Status
		wantOK bool
	}{
		{days: 0},
		{days: 2},
		{days: 3, want: StatusProcessing, wantOK: true},
		{days: 6, want: StatusProcessing, wantOK: true},
		{days: 7, want: StatusShipped, wantOK: true},
		{days: 10, want: StatusShipped, wantOK: true},
		{days: 14, want: StatusCompleted, wantOK: true},
		{days: 400, want: StatusCompleted, wantOK: true},
	}
	for _, tt := range tests {
		got, ok := TargetStatus(rules, tt.days)
		assert.Equal(t, tt.wantOK, ok, "days=%d", tt.days)
		assert.Equal(t, tt.want, got, "days=%d", tt.days)
	}
}

func TestTargetStatus_SkipsInactiveAndImmediate(t *testing.T) {
	rules := []Rule{
		{ID: 1, Status: StatusDelivering, DaysAfter: 5, IsActive: false},
		{ID: 2, Status: StatusSorting, DaysAfter: 4, IsActive: true, Immediate: true},
		{ID: 3, Status: Status("lost"), DaysAfter: 3, IsActive: true},
		scheduled(4, 1, StatusProcessing),
	}
	SortScheduled(rules)

	got, ok := TargetStatus(rules, 10)
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, got)

	_, ok = TargetStatus(nil, 10)
	assert.False(t, ok)
}

func TestSortScheduled_PriorityBreaksTies(t *testing.T) {
	rules := []Rule{
		{ID: 1, Status: StatusShipped, DaysAfter: 7, OrderPriority: 2, IsActive: true},
		{ID: 2, Status: StatusProcessing, DaysAfter: 3, OrderPriority: 1, IsActive: true},
		{ID: 3, Status: StatusCustoms, DaysAfter: 7, OrderPriority: 1, IsActive: true},
	}
	SortScheduled(rules)

	ids := []int64{rules[0].ID, rules[1].ID, rules[2].ID}
	assert.Equal(t, []int64{3, 1, 2}, ids)

	got, _ := TargetStatus(rules, 8)
	assert.Equal(t, StatusCustoms, got)
}

func TestApplyImmediate(t *testing.T) {
	now := time.Date(2025, 7, 22, 18, 45, 0, 0, time.UTC)
	rules := []Rule{
		{ID: 1, Status: StatusShipped, OrderPriority: 3, IsActive: true, Immediate: true},
		{ID: 2, Status: StatusNew, OrderPriority: 1, IsActive: true, Immediate: true},
		{ID: 3, Status: StatusProcessing, OrderPriority: 2, IsActive: true, Immediate: true},
		{ID: 4, Status: StatusCustoms, OrderPriority: 0, IsActive: false, Immediate: true},
	}
	SortImmediate(rules)

	t.Run("first differing rule wins", func(t *testing.T) {
		o := &Order{Status: StatusNew}
		require.True(t, ApplyImmediate(o, rules, now))
		assert.Equal(t, StatusProcessing, o.Status)
		require.NotNil(t, o.LastStatusUpdate)
		assert.Equal(t, now, *o.LastStatusUpdate)
	})

	t.Run("no rules", func(t *testing.T) {
		o := &Order{Status: StatusNew}
		assert.False(t, ApplyImmediate(o, nil, now))
		assert.Equal(t, StatusNew, o.Status)
		assert.Nil(t, o.LastStatusUpdate)
	})

	t.Run("terminal order untouched", func(t *testing.T) {
		o := &Order{Status: StatusCancelled}
		assert.False(t, ApplyImmediate(o, rules, now))
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("scheduled rules ignored", func(t *testing.T) {
		o := &Order{Status: StatusNew}
		assert.False(t, ApplyImmediate(o, []Rule{scheduled(1, 0, StatusShipped)}, now))
	})
}

func TestDaysPassed(t *testing.T) {
	tashkent := time.FixedZone("UZT", 5*60*60)

	tests := []struct {
		name    string
		created time.Time
		now     time.Time
		loc     *time.Location
		want    int
	}{
		{
			name:    "same day",
			created: time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC),
			now:     time.Date(2025, 1, 10, 23, 0, 0, 0, time.UTC),
			want:    0,
		},
		{
			name:    "calendar days not elapsed hours",
			created: time.Date(2025, 1, 10, 23, 59, 0, 0, time.UTC),
			now:     time.Date(2025, 1, 11, 0, 1, 0, 0, time.UTC),
			want:    1,
		},
		{
			name:    "across month and leap day",
			created: time.Date(2024, 2, 25, 12, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC),
			want:    10,
		},
		{
			name:    "dates taken in location",
			created: time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC),
			now:     time.Date(2025, 1, 11, 0, 30, 0, 0, time.UTC),
			loc:     tashkent,
			want:    0,
		},
		{
			name:    "location moves creation to next day",
			created: time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC),
			now:     time.Date(2025, 1, 12, 1, 0, 0, 0, time.UTC),
			loc:     tashkent,
			want:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysPassed(tt.created, tt.now, tt.loc))
		})
	}
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPickupReady.Terminal())
	assert.True(t, StatusCustoms.Valid())
	assert.False(t, Status("ready").Valid())
	assert.Equal(t, DeliveryAir, DeliveryType("rail").Normalize())
	assert.Equal(t, DocumentGTDRB, DocumentType("").Normalize())
	assert.Equal(t, DocumentDTRF, DocumentDTRF.Normalize())
}
