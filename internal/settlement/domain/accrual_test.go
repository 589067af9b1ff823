package domain

import (
	"testing"
	"time"
)

func TestDailyAccrual(t *testing.T) {
	tests := []struct {
		name      string
		principal int64
		rateBp    int64
		want      int64
		wantErr   error
	}{
		{name: "bronze ten percent", principal: 4000, rateBp: 1000, want: 400},
		{name: "or ten percent", principal: 7000, rateBp: 1000, want: 700},
		{name: "diamant ten percent", principal: 15000, rateBp: 1000, want: 1500},
		{name: "round half up", principal: 15, rateBp: 1000, want: 2},
		{name: "round down below half", principal: 14, rateBp: 1000, want: 1},
		{name: "one franc smallest", principal: 1, rateBp: 1000, want: 0},
		{name: "zero principal", principal: 0, rateBp: 1000, wantErr: ErrInvalidPrincipal},
		{name: "negative principal", principal: -4000, rateBp: 1000, wantErr: ErrInvalidPrincipal},
		{name: "zero rate", principal: 4000, rateBp: 0, wantErr: ErrInvalidRate},
		{name: "rate above hundred percent", principal: 4000, rateBp: 10001, wantErr: ErrInvalidRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DailyAccrual(tt.principal, tt.rateBp)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("accrual = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEligiblePassActiveOn(t *testing.T) {
	pass := EligiblePass{
		UserPassID:  1,
		UserID:      1,
		Principal:   4000,
		DailyRateBp: 1000,
		StartDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}

	if !pass.ActiveOn(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatal("pass must accrue on its start date")
	}
	if !pass.ActiveOn(time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)) {
		t.Fatal("pass must accrue on its end date")
	}
	if pass.ActiveOn(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("pass must not accrue past its end date")
	}
	if pass.ActiveOn(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("pass must not accrue before its start date")
	}
}

func TestEligiblePassDaysRemaining(t *testing.T) {
	pass := EligiblePass{
		EndDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	if got := pass.DaysRemaining(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)); got != 1 {
		t.Fatalf("days remaining = %d, want 1", got)
	}
	if got := pass.DaysRemaining(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Fatalf("days remaining after expiry = %d, want 0", got)
	}
}

func TestBuildRunIDStablePerDay(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 1, 0, 0, time.UTC)
	a := BuildRunID(TriggerScheduled, asOf, time.Date(2026, 3, 1, 0, 1, 0, 0, time.UTC))
	b := BuildRunID(TriggerScheduled, asOf, time.Date(2026, 3, 1, 0, 2, 0, 0, time.UTC))
	if a != b {
		t.Fatalf("scheduled run ids differ for same day: %s vs %s", a, b)
	}
	manual1 := BuildRunID(TriggerManual, asOf, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	manual2 := BuildRunID(TriggerManual, asOf, time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC))
	if manual1 == manual2 {
		t.Fatal("manual run ids must differ per trigger time")
	}
}
