package audit

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/database/dbtest"
	"vendorsales-backend/internal/models"
)

func TestWriteLogRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	a := actor.Actor{UserID: 1, Name: "Admin", Role: models.RoleAdmin, RequestID: "req-1"}

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := WriteLog(tx, LogOptions{Actor: a, EntityType: "sale", EntityID: 1, Action: models.AuditActionApprove}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}

	logs, _ := List(db, Filter{})
	if len(logs) != 0 {
		t.Fatalf("expected rolled back entry, got %d", len(logs))
	}
}

func TestWriteLogAndFilter(t *testing.T) {
	db := dbtest.Open(t)
	a := actor.Actor{UserID: 1, Name: "Admin", Role: models.RoleAdmin, RequestID: "req-1", IP: "10.0.0.1"}
	vid := uint(3)

	if err := WriteLog(db, LogOptions{
		Actor: a, VendorID: &vid, EntityType: "sale", EntityID: 7,
		Action: models.AuditActionReject, Description: "rejected",
		Before: map[string]string{"status": "pending"},
		After:  map[string]string{"status": "rejected"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := WriteLog(db, LogOptions{Actor: actor.System, EntityType: "product", EntityID: 2, Action: models.AuditActionAnomaly}); err != nil {
		t.Fatal(err)
	}

	logs, err := List(db, Filter{VendorID: &vid})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 vendor entry got %d", len(logs))
	}
	l := logs[0]
	if l.BeforeData != `{"status":"pending"}` || l.AfterData != `{"status":"rejected"}` {
		t.Fatalf("unexpected snapshots %q %q", l.BeforeData, l.AfterData)
	}
	if l.RequestID != "req-1" || l.IPAddress != "10.0.0.1" || l.UserName != "Admin" {
		t.Fatalf("actor fields not recorded: %+v", l)
	}

	anomalies, _ := List(db, Filter{Action: models.AuditActionAnomaly})
	if len(anomalies) != 1 || anomalies[0].AfterData != "null" || anomalies[0].UserName != "system" {
		t.Fatalf("unexpected anomaly entry %+v", anomalies)
	}
}
