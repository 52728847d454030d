package clinical

import (
	"context"
	"testing"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/identity"
	"github.com/opdemr/opdemr/internal/domain/scheduling"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db/dbtest"
	"github.com/opdemr/opdemr/pkg/dates"
)

func TestRepoSQL_PrescriptionWithMedicines(t *testing.T) {
	d := dbtest.Open(t)
	rec := audit.NewService(audit.NewRepoSQL(d))
	ids := identity.NewService(d, identity.NewPatientRepoSQL(d), identity.NewDoctorRepoSQL(d), rec)
	appts := scheduling.NewService(d, scheduling.NewRepoSQL(d), ids, rec)
	svc := NewService(d, NewPrescriptionRepoSQL(d), NewNoteRepoSQL(d), ids, appts, rec)
	ctx := context.Background()

	ada := &identity.Patient{FirstName: "Ada"}
	grace := &identity.Patient{FirstName: "Grace"}
	doc := &identity.Doctor{Name: "Dr. Who", Specialization: "General"}
	for _, err := range []error{ids.CreatePatient(ctx, ada), ids.CreatePatient(ctx, grace), ids.CreateDoctor(ctx, doc)} {
		if err != nil {
			t.Fatal(err)
		}
	}
	visit := &scheduling.Appointment{PatientID: ada.PatientID, DoctorID: doc.ID, AppointmentDate: dates.Today()}
	if err := appts.Create(ctx, visit); err != nil {
		t.Fatal(err)
	}

	follow := dates.Today().AddDays(7)
	p := &Prescription{
		PatientID: ada.PatientID, DoctorID: doc.ID, AppointmentID: &visit.ID, FollowUpDate: &follow,
		Medicines: []*Medicine{{MedicineName: "Paracetamol", DosePattern: strPtr("1-0-1"), DurationDays: intPtr(3)}},
	}
	if err := svc.CreatePrescription(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AddMedicine(ctx, p.ID, &Medicine{MedicineName: "Cetirizine", Quantity: intPtr(10)}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetPrescription(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Medicines) != 2 || *got.Medicines[0].DurationDays != 3 || *got.Medicines[1].Quantity != 10 {
		t.Errorf("unexpected medicines %+v", got.Medicines)
	}
	if got.FollowUpDate == nil || got.FollowUpDate.String() != follow.String() {
		t.Errorf("follow up date round trip: %v", got.FollowUpDate)
	}

	wrong := &Prescription{PatientID: grace.PatientID, DoctorID: doc.ID, AppointmentID: &visit.ID}
	if err := svc.CreatePrescription(ctx, wrong); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected appointment of another patient to be rejected, got %v", err)
	}

	if err := svc.MarkBilled(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	list, total, err := svc.ListPrescriptionsByPatient(ctx, ada.PatientID, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || list[0].Status != StatusBilled || len(list[0].Medicines) != 2 {
		t.Errorf("unexpected list total=%d", total)
	}

	note := &ClinicalNote{PatientID: ada.PatientID, DoctorID: doc.ID, PrescriptionID: &p.ID, Objective: strPtr("T 101F")}
	if err := svc.CreateNote(ctx, note); err != nil {
		t.Fatal(err)
	}
	notes, total, err := svc.ListNotesByPatient(ctx, ada.PatientID, 10, 0)
	if err != nil || total != 1 || *notes[0].Objective != "T 101F" {
		t.Errorf("unexpected notes total=%d err=%v", total, err)
	}
}
