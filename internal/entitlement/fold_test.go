package entitlement

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC)

func TestComputeInterval_TableTests(t *testing.T) {
	tests := []struct {
		name     string
		contribs []Contribution
		want     *Interval
	}{
		{
			name:     "no purchases means no interval",
			contribs: nil,
			want:     nil,
		},
		{
			name: "single one day purchase",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 1, ExtraDays: 1},
			},
			want: &Interval{Start: t0, End: t0.AddDate(0, 0, 1)},
		},
		{
			name: "single one month purchase",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1},
			},
			want: &Interval{Start: t0, End: time.Date(2023, 2, 15, 10, 0, 0, 0, time.UTC)},
		},
		{
			name: "zero duration purchase is skipped",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1},
				{PurchaseID: 2, CreatedAt: t0.Add(time.Minute), Quantity: 1},
			},
			want: &Interval{Start: t0, End: time.Date(2023, 2, 15, 10, 0, 0, 0, time.UTC)},
		},
		{
			name: "only zero duration purchases means no interval",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 1},
				{PurchaseID: 2, CreatedAt: t0.Add(time.Minute), Quantity: 3},
			},
			want: nil,
		},
		{
			name: "second purchase extends open interval additively",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1},
				{PurchaseID: 2, CreatedAt: t0.AddDate(0, 0, 10), Quantity: 1, Months: 1},
			},
			// Второй месяц наращивается от конца первого, не от момента покупки.
			want: &Interval{Start: t0, End: time.Date(2023, 3, 15, 10, 0, 0, 0, time.UTC)},
		},
		{
			name: "lapsed interval opens a new one at purchase time",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1},
				{PurchaseID: 2, CreatedAt: t0.AddDate(0, 6, 0), Quantity: 1, Months: 1},
			},
			want: &Interval{
				Start: t0.AddDate(0, 6, 0),
				End:   time.Date(2023, 8, 15, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "purchase exactly at expiry starts a new interval",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1},
				{PurchaseID: 2, CreatedAt: time.Date(2023, 2, 15, 10, 0, 0, 0, time.UTC), Quantity: 1, Months: 1},
			},
			want: &Interval{
				Start: time.Date(2023, 2, 15, 10, 0, 0, 0, time.UTC),
				End:   time.Date(2023, 3, 15, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "quantity multiplies duration before a single advance",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 3, Months: 1},
			},
			want: &Interval{Start: t0, End: time.Date(2023, 4, 15, 10, 0, 0, 0, time.UTC)},
		},
		{
			name: "days and months combine",
			contribs: []Contribution{
				{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1, ExtraDays: 7},
			},
			want: &Interval{Start: t0, End: time.Date(2023, 2, 22, 10, 0, 0, 0, time.UTC)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeInterval(tt.contribs)
			if err != nil {
				t.Fatalf("ComputeInterval() unexpected error: %v", err)
			}
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("ComputeInterval() = %v, want %v", got, tt.want)
			case !got.Start.Equal(tt.want.Start) || !got.End.Equal(tt.want.End):
				t.Errorf("ComputeInterval() = [%v, %v), want [%v, %v)",
					got.Start, got.End, tt.want.Start, tt.want.End)
			}
		})
	}
}

// Покупки через границу месяцев разной длины: каждая покупка прижимается
// к концу месяца независимо. 31 января + 1 месяц = 28 февраля, следующая
// покупка наращивает уже от 28-го числа.
func TestComputeInterval_MonthBoundary(t *testing.T) {
	jan31 := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)

	got, err := ComputeInterval([]Contribution{
		{PurchaseID: 1, CreatedAt: jan31, Quantity: 1, Months: 1},
		{PurchaseID: 2, CreatedAt: jan31.Add(time.Hour), Quantity: 1, Months: 1},
	})
	if err != nil {
		t.Fatalf("ComputeInterval() unexpected error: %v", err)
	}
	want := time.Date(2023, 3, 28, 0, 0, 0, 0, time.UTC)
	if got == nil || !got.End.Equal(want) {
		t.Errorf("ComputeInterval() end = %v, want %v", got, want)
	}
}

func TestComputeInterval_Idempotent(t *testing.T) {
	contribs := []Contribution{
		{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1, ExtraDays: 3},
		{PurchaseID: 2, CreatedAt: t0.AddDate(0, 0, 5), Quantity: 2, Months: 1},
	}

	first, err := ComputeInterval(contribs)
	if err != nil {
		t.Fatalf("ComputeInterval() unexpected error: %v", err)
	}
	second, err := ComputeInterval(contribs)
	if err != nil {
		t.Fatalf("ComputeInterval() unexpected error: %v", err)
	}
	if !first.Start.Equal(second.Start) || !first.End.Equal(second.End) {
		t.Errorf("repeated ComputeInterval() differs: [%v, %v) vs [%v, %v)",
			first.Start, first.End, second.Start, second.End)
	}
}

func TestComputeInterval_MonotonicExtension(t *testing.T) {
	contribs := []Contribution{
		{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1},
	}
	before, _ := ComputeInterval(contribs)

	contribs = append(contribs, Contribution{
		PurchaseID: 2, CreatedAt: t0.AddDate(0, 0, 20), Quantity: 1, ExtraDays: 1,
	})
	after, err := ComputeInterval(contribs)
	if err != nil {
		t.Fatalf("ComputeInterval() unexpected error: %v", err)
	}
	if after.End.Before(before.End) {
		t.Errorf("appending a purchase reduced expiry: %v -> %v", before.End, after.End)
	}
	if !after.Start.Equal(before.Start) {
		t.Errorf("extension must not move interval start: %v -> %v", before.Start, after.Start)
	}
}

func TestComputeInterval_InvalidQuantity(t *testing.T) {
	_, err := ComputeInterval([]Contribution{
		{PurchaseID: 1, CreatedAt: t0, Quantity: 0, Months: 1},
	})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("ComputeInterval() error = %v, want ErrInvalidDuration", err)
	}
}

func TestCheckAdmission(t *testing.T) {
	member := []Contribution{
		{PurchaseID: 1, CreatedAt: t0, Quantity: 1, Months: 1},
	}

	if err := CheckAdmission(member, t0.AddDate(0, 0, 10)); err != nil {
		t.Errorf("CheckAdmission() with active membership = %v, want nil", err)
	}
	if err := CheckAdmission(nil, t0); !errors.Is(err, ErrMembershipRequired) {
		t.Errorf("CheckAdmission() without membership = %v, want ErrMembershipRequired", err)
	}
	if err := CheckAdmission(member, t0.AddDate(0, 2, 0)); !errors.Is(err, ErrMembershipRequired) {
		t.Errorf("CheckAdmission() after expiry = %v, want ErrMembershipRequired", err)
	}
}

func TestActiveAt(t *testing.T) {
	iv := &Interval{Start: t0, End: t0.AddDate(0, 1, 0)}

	if !ActiveAt(iv, t0.AddDate(0, 0, 15)) {
		t.Error("ActiveAt() inside interval = false, want true")
	}
	if ActiveAt(iv, iv.End) {
		t.Error("ActiveAt() at exact expiry = true, want false (half-open interval)")
	}
	if ActiveAt(nil, t0) {
		t.Error("ActiveAt(nil) = true, want false")
	}
}
