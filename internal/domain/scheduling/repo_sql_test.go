package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/identity"
	"github.com/opdemr/opdemr/internal/platform/db/dbtest"
	"github.com/opdemr/opdemr/pkg/dates"
)

func TestRepoSQL_ListByDateAndDoctor(t *testing.T) {
	d := dbtest.Open(t)
	rec := audit.NewService(audit.NewRepoSQL(d))
	ids := identity.NewService(d, identity.NewPatientRepoSQL(d), identity.NewDoctorRepoSQL(d), rec)
	svc := NewService(d, NewRepoSQL(d), ids, rec)
	ctx := context.Background()

	p := &identity.Patient{FirstName: "Ada"}
	doc1 := &identity.Doctor{Name: "Dr. One", Specialization: "General"}
	doc2 := &identity.Doctor{Name: "Dr. Two", Specialization: "ENT"}
	for _, err := range []error{ids.CreatePatient(ctx, p), ids.CreateDoctor(ctx, doc1), ids.CreateDoctor(ctx, doc2)} {
		if err != nil {
			t.Fatal(err)
		}
	}

	today := dates.Of(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	tomorrow := today.AddDays(1)
	nine, ten := "09:00", "10:00"
	bookings := []*Appointment{
		{PatientID: p.PatientID, DoctorID: doc1.ID, AppointmentDate: today, AppointmentTime: &ten},
		{PatientID: p.PatientID, DoctorID: doc1.ID, AppointmentDate: today, AppointmentTime: &nine},
		{PatientID: p.PatientID, DoctorID: doc2.ID, AppointmentDate: today},
		{PatientID: p.PatientID, DoctorID: doc1.ID, AppointmentDate: tomorrow},
	}
	for _, a := range bookings {
		if err := svc.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, total, err := svc.List(ctx, Filter{Date: &today, DoctorID: doc1.ID}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || *got[0].AppointmentTime != "09:00" {
		t.Fatalf("expected 2 appointments ordered by time, got %d", total)
	}
	if got[0].AppointmentDate.String() != "2025-06-02" {
		t.Errorf("date round trip: got %s", got[0].AppointmentDate)
	}

	if _, err := svc.UpdateStatus(ctx, got[0].ID, StatusCheckedIn); err != nil {
		t.Fatal(err)
	}
	_, total, err = svc.List(ctx, Filter{Status: StatusCheckedIn}, 10, 0)
	if err != nil || total != 1 {
		t.Errorf("expected 1 checked in appointment, got %d (%v)", total, err)
	}

	_, total, _ = svc.List(ctx, Filter{PatientID: p.PatientID}, 10, 0)
	if total != 4 {
		t.Errorf("expected 4 appointments for patient, got %d", total)
	}
}
