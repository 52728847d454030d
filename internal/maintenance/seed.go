package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/identity"
	"github.com/opdemr/opdemr/internal/domain/scheduling"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
	"github.com/opdemr/opdemr/pkg/dates"
)

type Directory interface {
	CreatePatient(ctx context.Context, p *identity.Patient) error
	CreateDoctor(ctx context.Context, d *identity.Doctor) error
	ListDoctors(ctx context.Context, f identity.DoctorFilter, limit, offset int) ([]*identity.Doctor, int, error)
}

type Scheduler interface {
	Create(ctx context.Context, a *scheduling.Appointment) error
}

type SeedReport struct {
	Patients     int `json:"patients"`
	Doctors      int `json:"doctors"`
	Appointments int `json:"appointments"`
}

// DemoSeeder fills an empty deployment with fake patients and appointments
// through the regular services, so ids, validation and audit rows behave as
// they do for real traffic.
type DemoSeeder struct {
	tx    db.Transactor
	dir   Directory
	appts Scheduler
	faker *gofakeit.Faker
	log   zerolog.Logger
	now   func() time.Time
}

// NewDemoSeeder uses seed for reproducible output; zero picks a random seed.
func NewDemoSeeder(tx db.Transactor, dir Directory, appts Scheduler, seed uint64, log zerolog.Logger) *DemoSeeder {
	return &DemoSeeder{
		tx:    tx,
		dir:   dir,
		appts: appts,
		faker: gofakeit.New(seed),
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var demoSpecializations = []string{"General Medicine", "Paediatrics", "Orthopaedics", "Dermatology", "ENT"}

var demoReasons = []string{"Fever", "Follow-up", "Back pain", "Skin rash", "Cough and cold", "Routine check-up"}

var demoSlots = []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "16:00", "16:30", "17:00"}

// Seed creates n patients, each with one or two appointments over the next
// week. Demo doctors are created only when no active doctor exists.
func (s *DemoSeeder) Seed(ctx context.Context, n int) (*SeedReport, error) {
	if n <= 0 {
		return nil, apperr.Validation("patient count must be positive")
	}
	rep := &SeedReport{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		doctors, _, err := s.dir.ListDoctors(ctx, identity.DoctorFilter{ActiveOnly: true}, 100, 0)
		if err != nil {
			return err
		}
		if len(doctors) == 0 {
			for _, spec := range demoSpecializations {
				d := &identity.Doctor{
					Name:            "Dr. " + s.faker.FirstName() + " " + s.faker.LastName(),
					Specialization:  spec,
					Phone:           strPtr(s.faker.Numerify("98########")),
					ConsultationFee: decimal.NewFromInt(int64(s.faker.IntRange(3, 10) * 100)),
					IsActive:        true,
				}
				if err := s.dir.CreateDoctor(ctx, d); err != nil {
					return err
				}
				doctors = append(doctors, d)
				rep.Doctors++
			}
		}

		today := dates.Of(s.now())
		for i := 0; i < n; i++ {
			p := s.patient()
			if err := s.dir.CreatePatient(ctx, p); err != nil {
				return fmt.Errorf("patient %d: %w", i+1, err)
			}
			rep.Patients++

			visits := s.faker.IntRange(1, 2)
			for j := 0; j < visits; j++ {
				doc := doctors[s.faker.IntN(len(doctors))]
				a := &scheduling.Appointment{
					PatientID:       p.PatientID,
					DoctorID:        doc.ID,
					AppointmentDate: today.AddDays(s.faker.IntRange(0, 6)),
					AppointmentTime: strPtr(s.faker.RandomString(demoSlots)),
					Reason:          strPtr(s.faker.RandomString(demoReasons)),
				}
				if err := s.appts.Create(ctx, a); err != nil {
					return fmt.Errorf("appointment for patient %d: %w", p.PatientID, err)
				}
				rep.Appointments++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("patients", rep.Patients).Int("doctors", rep.Doctors).
		Int("appointments", rep.Appointments).Msg("demo data seeded")
	return rep, nil
}

func (s *DemoSeeder) patient() *identity.Patient {
	f := s.faker
	dob := dates.Of(f.DateRange(s.now().AddDate(-85, 0, 0), s.now().AddDate(-1, 0, 0)))
	gender := f.RandomString([]string{"male", "female"})
	first := f.FirstName()
	last := f.LastName()
	return &identity.Patient{
		FirstName:   first,
		LastName:    last,
		Gender:      &gender,
		DateOfBirth: &dob,
		Phone:       strPtr(f.Numerify("9#########")),
		Email:       strPtr(fmt.Sprintf("%s.%s%d@example.org", first, last, f.IntRange(10, 99))),
		Address:     strPtr(f.Street() + ", " + f.City()),
		BloodGroup:  strPtr(f.RandomString([]string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"})),
	}
}

func strPtr(s string) *string { return &s }
