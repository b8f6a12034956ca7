package referral

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/models"
)

// memStore is an in-memory Store. Mutate serializes per referral id the same
// way the gorm repository does with a row lock.
type memStore struct {
	mu         sync.Mutex
	patients   map[uuid.UUID]models.Patient
	facilities map[uuid.UUID]models.Facility
	referrals  map[uuid.UUID]models.Referral
	events     []models.LifecycleEvent
	locks      map[uuid.UUID]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		patients:   make(map[uuid.UUID]models.Patient),
		facilities: make(map[uuid.UUID]models.Facility),
		referrals:  make(map[uuid.UUID]models.Referral),
		locks:      make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *memStore) GetPatient(_ context.Context, id uuid.UUID) (models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return models.Patient{}, notFoundErr("patient", id)
	}
	return p, nil
}

func (s *memStore) GetFacility(_ context.Context, id uuid.UUID) (models.Facility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facilities[id]
	if !ok {
		return models.Facility{}, notFoundErr("facility", id)
	}
	return f, nil
}

func (s *memStore) GetReferral(_ context.Context, id uuid.UUID) (models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.referrals[id]
	if !ok {
		return models.Referral{}, notFoundErr("referral", id)
	}
	return r, nil
}

func (s *memStore) CreateReferral(_ context.Context, ref models.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referrals[ref.ID] = ref
	return nil
}

func (s *memStore) Mutate(_ context.Context, id uuid.UUID, fn func(*models.Referral) error) (models.Referral, error) {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	ref, ok := s.referrals[id]
	s.mu.Unlock()
	if !ok {
		return models.Referral{}, notFoundErr("referral", id)
	}

	if err := fn(&ref); err != nil {
		return models.Referral{}, err
	}

	s.mu.Lock()
	s.referrals[id] = ref
	s.mu.Unlock()
	return ref, nil
}

func (s *memStore) ListReferrals(_ context.Context, filter Filter) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Referral
	for _, ref := range s.referrals {
		if filter.Status != "" && ref.Status != filter.Status {
			continue
		}
		if filter.FromFacilityID != nil && ref.FromFacilityID != *filter.FromFacilityID {
			continue
		}
		if filter.ToFacilityID != nil && ref.ToFacilityID != *filter.ToFacilityID {
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

func (s *memStore) AppendEvent(_ context.Context, event models.LifecycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []models.LifecycleEvent
}

func (p *capturePublisher) Publish(event models.LifecycleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) all() []models.LifecycleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.LifecycleEvent, len(p.events))
	copy(out, p.events)
	return out
}

type staticResolver struct {
	facility *models.Facility
	err      error
}

func (r *staticResolver) ResolveDestination(_ context.Context, _ models.FacilityCategory) (*models.Facility, error) {
	return r.facility, r.err
}

func fixture() (*memStore, *capturePublisher, *Service, models.Patient, models.Facility, models.Facility) {
	store := newMemStore()
	publisher := &capturePublisher{}

	clinic := models.Facility{ID: uuid.New(), Name: "Clinic", Category: models.FacilityBasicClinic}
	hospital := models.Facility{ID: uuid.New(), Name: "Hospital", Category: models.FacilitySpecializedHospital}
	store.facilities[clinic.ID] = clinic
	store.facilities[hospital.ID] = hospital

	patient := models.Patient{
		ID:           uuid.New(),
		FirstName:    "Mariam",
		LastName:     "Traoré",
		UrgencyLevel: models.UrgencyCritical,
		FacilityID:   clinic.ID,
	}
	store.patients[patient.ID] = patient

	service := NewService(store, &staticResolver{facility: &hospital}, publisher)
	return store, publisher, service, patient, clinic, hospital
}

func TestCreateReferral(t *testing.T) {
	_, publisher, service, patient, clinic, hospital := fixture()
	actor := uuid.New()

	ref, err := service.Create(context.Background(), models.CreateReferralRequest{
		PatientID:    patient.ID,
		ToFacilityID: hospital.ID,
		Reason:       "Suspected myocardial infarction",
	}, actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ref.Status != models.ReferralCreated {
		t.Errorf("status: got %s, want CREATED", ref.Status)
	}
	if ref.FromFacilityID != clinic.ID || ref.ToFacilityID != hospital.ID {
		t.Error("origin or destination not captured from the patient record")
	}
	if ref.Priority != models.UrgencyCritical {
		t.Errorf("priority: got %s, want the patient's urgency", ref.Priority)
	}
	if ref.CreatedBy != actor {
		t.Error("created_by not recorded")
	}
	if ref.SentAt != nil || ref.AcceptedAt != nil || ref.TransferredAt != nil {
		t.Error("stage timestamps must be unset at creation")
	}

	events := publisher.all()
	if len(events) != 1 || events[0].Event != models.EventNewReferral {
		t.Fatalf("expected one new_referral event, got %+v", events)
	}
}

func TestCreateReferralPriorityFallsBackToCritical(t *testing.T) {
	store, _, service, patient, _, hospital := fixture()
	patient.UrgencyLevel = models.UrgencyUnset
	store.patients[patient.ID] = patient

	ref, err := service.Create(context.Background(), models.CreateReferralRequest{
		PatientID:    patient.ID,
		ToFacilityID: hospital.ID,
	}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Priority != models.UrgencyCritical {
		t.Fatalf("unassessed patient referral priority: got %s, want CRITICAL", ref.Priority)
	}
}

func TestCreateReferralValidation(t *testing.T) {
	store, _, service, patient, _, hospital := fixture()

	otherClinic := models.Facility{ID: uuid.New(), Category: models.FacilityBasicClinic}
	store.facilities[otherClinic.ID] = otherClinic

	if _, err := service.Create(context.Background(), models.CreateReferralRequest{
		PatientID:    uuid.New(),
		ToFacilityID: hospital.ID,
	}, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown patient: got %v, want ErrNotFound", err)
	}

	if _, err := service.Create(context.Background(), models.CreateReferralRequest{
		PatientID:    patient.ID,
		ToFacilityID: otherClinic.ID,
	}, uuid.New()); !errors.Is(err, ErrInvalidDestination) {
		t.Errorf("clinic destination: got %v, want ErrInvalidDestination", err)
	}

	hospitalPatient := models.Patient{ID: uuid.New(), FacilityID: hospital.ID}
	store.patients[hospitalPatient.ID] = hospitalPatient
	if _, err := service.Create(context.Background(), models.CreateReferralRequest{
		PatientID:    hospitalPatient.ID,
		ToFacilityID: hospital.ID,
	}, uuid.New()); !errors.Is(err, ErrInvalidOrigin) {
		t.Errorf("same-facility referral: got %v, want ErrInvalidOrigin", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	store, publisher, service, patient, _, hospital := fixture()
	ctx := context.Background()
	doctor := uuid.New()

	ref, err := service.Create(ctx, models.CreateReferralRequest{
		PatientID:    patient.ID,
		ToFacilityID: hospital.ID,
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sent, err := service.Send(ctx, ref.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != models.ReferralSent || sent.SentAt == nil {
		t.Fatalf("send did not record stage: %+v", sent)
	}

	accepted, err := service.Accept(ctx, ref.ID, doctor)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.ReferralAccepted || accepted.AcceptedAt == nil {
		t.Fatalf("accept did not record stage: %+v", accepted)
	}
	if accepted.AcceptedBy == nil || *accepted.AcceptedBy != doctor {
		t.Fatal("accepted_by not recorded")
	}

	transferred, err := service.Transfer(ctx, ref.ID)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transferred.Status != models.ReferralTransferred || transferred.TransferredAt == nil {
		t.Fatalf("transfer did not record stage: %+v", transferred)
	}

	if transferred.SentAt.After(*transferred.AcceptedAt) || transferred.AcceptedAt.After(*transferred.TransferredAt) {
		t.Error("stage timestamps out of order")
	}
	if transferred.CreatedAt.After(*transferred.SentAt) {
		t.Error("created_at must precede sent_at")
	}

	events := publisher.all()
	want := []string{
		models.EventNewReferral,
		models.EventReferralStatusChanged,
		models.EventReferralAccepted,
		models.EventReferralStatusChanged,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for n, name := range want {
		if events[n].Event != name {
			t.Errorf("event %d: got %s, want %s", n, events[n].Event, name)
		}
	}
	if events[2].Data.AcceptedBy == nil || *events[2].Data.AcceptedBy != doctor {
		t.Error("referral_accepted event must carry accepted_by")
	}
	if len(store.events) != len(want) {
		t.Errorf("audit trail has %d events, want %d", len(store.events), len(want))
	}
}

func TestAcceptFromCreatedSkipsSend(t *testing.T) {
	_, _, service, patient, _, hospital := fixture()
	ctx := context.Background()

	ref, err := service.Create(ctx, models.CreateReferralRequest{
		PatientID:    patient.ID,
		ToFacilityID: hospital.ID,
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	accepted, err := service.Accept(ctx, ref.ID, uuid.New())
	if err != nil {
		t.Fatalf("accept from CREATED must be legal: %v", err)
	}
	if accepted.Status != models.ReferralAccepted {
		t.Fatalf("status: got %s, want ACCEPTED", accepted.Status)
	}
	if accepted.SentAt != nil {
		t.Error("sent_at must stay unset when the send stage was skipped")
	}
}

func TestInvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	store, publisher, service, patient, _, hospital := fixture()
	ctx := context.Background()

	ref, err := service.Create(ctx, models.CreateReferralRequest{
		PatientID:    patient.ID,
		ToFacilityID: hospital.ID,
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Transfer straight from CREATED.
	_, err = service.Transfer(ctx, ref.ID)
	var transition *InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transition.Op != "transfer" || transition.Status != models.ReferralCreated {
		t.Errorf("error detail: %+v", transition)
	}

	current, _ := store.GetReferral(ctx, ref.ID)
	if current.Status != models.ReferralCreated || current.TransferredAt != nil {
		t.Fatal("failed transition must not modify the referral")
	}

	// Double send.
	if _, err := service.Send(ctx, ref.ID); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := service.Send(ctx, ref.ID); !errors.As(err, &transition) {
		t.Fatalf("second send: got %v, want InvalidTransitionError", err)
	}

	// Accept after transfer.
	if _, err := service.Accept(ctx, ref.ID, uuid.New()); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := service.Transfer(ctx, ref.ID); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := service.Accept(ctx, ref.ID, uuid.New()); !errors.As(err, &transition) {
		t.Fatalf("accept after transfer: got %v, want InvalidTransitionError", err)
	}

	// One event per committed transition only.
	if got := len(publisher.all()); got != 4 {
		t.Errorf("expected 4 events for 4 committed transitions, got %d", got)
	}
}

func TestConcurrentAcceptExactlyOneWins(t *testing.T) {
	_, publisher, service, patient, _, hospital := fixture()
	ctx := context.Background()

	ref, err := service.Create(ctx, models.CreateReferralRequest{
		PatientID:    patient.ID,
		ToFacilityID: hospital.ID,
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.Send(ctx, ref.ID); err != nil {
		t.Fatalf("send: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for n := 0; n < racers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = service.Accept(ctx, ref.ID, uuid.New())
		}(n)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		var transition *InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Errorf("loser got unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d accepts won, want exactly 1", won)
	}

	accepted := 0
	for _, event := range publisher.all() {
		if event.Event == models.EventReferralAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("%d referral_accepted events, want exactly 1", accepted)
	}
}

func TestMaybeAutoCreate(t *testing.T) {
	_, publisher, service, patient, _, hospital := fixture()

	ref, err := service.MaybeAutoCreate(context.Background(), patient, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref == nil {
		t.Fatal("critical clinic patient must produce a referral")
	}
	if ref.ToFacilityID != hospital.ID {
		t.Error("destination must come from the resolver")
	}
	if ref.Priority != models.UrgencyCritical {
		t.Errorf("priority: got %s, want CRITICAL", ref.Priority)
	}
	if got := publisher.all(); len(got) != 1 || got[0].Event != models.EventNewReferral {
		t.Fatalf("expected one new_referral event, got %+v", got)
	}
}

func TestMaybeAutoCreateSkipsNonCritical(t *testing.T) {
	_, publisher, service, patient, _, _ := fixture()
	patient.UrgencyLevel = models.UrgencyUrgent

	ref, err := service.MaybeAutoCreate(context.Background(), patient, uuid.New())
	if err != nil || ref != nil {
		t.Fatalf("URGENT patient: got (%v, %v), want (nil, nil)", ref, err)
	}
	if len(publisher.all()) != 0 {
		t.Fatal("no event may be emitted without a referral")
	}
}

func TestMaybeAutoCreateSkipsHospitalPatients(t *testing.T) {
	store, publisher, service, _, _, hospital := fixture()
	patient := models.Patient{
		ID:           uuid.New(),
		UrgencyLevel: models.UrgencyCritical,
		FacilityID:   hospital.ID,
	}
	store.patients[patient.ID] = patient

	ref, err := service.MaybeAutoCreate(context.Background(), patient, uuid.New())
	if err != nil || ref != nil {
		t.Fatalf("hospital patient: got (%v, %v), want (nil, nil)", ref, err)
	}
	if len(publisher.all()) != 0 {
		t.Fatal("no event may be emitted without a referral")
	}
}

func TestMaybeAutoCreateNoHospitalIsNoop(t *testing.T) {
	store, publisher, _, patient, _, _ := fixture()
	service := NewService(store, &staticResolver{facility: nil}, publisher)

	ref, err := service.MaybeAutoCreate(context.Background(), patient, uuid.New())
	if err != nil {
		t.Fatalf("missing hospital must not be an error: %v", err)
	}
	if ref != nil {
		t.Fatal("no referral may exist without a destination")
	}
	if len(publisher.all()) != 0 {
		t.Fatal("no event may be emitted without a referral")
	}
}

func TestTimestampsComeFromClock(t *testing.T) {
	_, _, service, patient, _, hospital := fixture()
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	tick := 0
	service.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	ref, err := service.Create(ctx, models.CreateReferralRequest{
		PatientID:    patient.ID,
		ToFacilityID: hospital.ID,
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !ref.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("created_at: got %v", ref.CreatedAt)
	}

	sent, err := service.Send(ctx, ref.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !sent.SentAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("sent_at: got %v", sent.SentAt)
	}
}
