package services

import (
	"context"
	"sync"

	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

// recorder mencatat urutan panggilan ke layanan palsu.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.calls...)
}

type stubResult struct {
	res Result
	err error
}

func okStub() stubResult { return stubResult{res: OK()} }

type fakeCollaborators struct {
	rec *recorder

	treatment stubResult
	queue     stubResult
	payment   stubResult
	remove    stubResult
	save      stubResult

	savedMeds  []models.MedicationOrder
	savedProcs []models.ProcedureOrder
	visit      models.Visit
	loadErr    error
}

func newFakeCollaborators() *fakeCollaborators {
	return &fakeCollaborators{
		rec:       &recorder{},
		treatment: okStub(),
		queue:     okStub(),
		payment:   okStub(),
		remove:    okStub(),
		save:      okStub(),
	}
}

func (f *fakeCollaborators) UpdateTreatment(_ context.Context, _ string, _ models.TreatmentPatch) (Result, error) {
	f.rec.record("treatment")
	return f.treatment.res, f.treatment.err
}

func (f *fakeCollaborators) UpdateQueueStatus(_ context.Context, _ int64, _ models.Status) (Result, error) {
	f.rec.record("queue")
	return f.queue.res, f.queue.err
}

func (f *fakeCollaborators) UpdatePaymentStatus(_ context.Context, _ string, _ models.PaymentStatus) (Result, error) {
	f.rec.record("payment")
	return f.payment.res, f.payment.err
}

func (f *fakeCollaborators) RemoveQueue(_ context.Context, _ int64) (Result, error) {
	f.rec.record("remove")
	return f.remove.res, f.remove.err
}

func (f *fakeCollaborators) SaveLineItems(_ context.Context, _ string, meds []models.MedicationOrder, procs []models.ProcedureOrder) (Result, error) {
	f.rec.record("save")
	if f.save.err == nil && f.save.res.Success {
		f.savedMeds, f.savedProcs = meds, procs
	}
	return f.save.res, f.save.err
}

func (f *fakeCollaborators) OpenVisit(_ context.Context, entry models.QueueEntry) (models.Visit, error) {
	f.rec.record("open")
	if f.loadErr != nil {
		return models.Visit{}, f.loadErr
	}
	v := f.visit
	if v.VNO == "" {
		v.VNO = "VN-" + entry.HNCode
	}
	return v, nil
}

// fakeView adalah daftar antrian minimal untuk VisitService.
type fakeView struct {
	entries  map[int64]models.QueueEntry
	selected int64
}

func newFakeView(entries ...models.QueueEntry) *fakeView {
	v := &fakeView{entries: make(map[int64]models.QueueEntry)}
	for _, e := range entries {
		v.entries[e.QueueID] = e
	}
	return v
}

func (v *fakeView) Entry(id int64) (models.QueueEntry, bool) {
	e, ok := v.entries[id]
	return e, ok
}

func (v *fakeView) Remove(id int64) bool {
	_, ok := v.entries[id]
	delete(v.entries, id)
	return ok
}

func (v *fakeView) UpdateStatus(id int64, status models.Status) bool {
	e, ok := v.entries[id]
	if ok {
		e.Status = status
		v.entries[id] = e
	}
	return ok
}

func (v *fakeView) AttachVisit(id int64, vno string) bool {
	e, ok := v.entries[id]
	if ok {
		e.VNO = vno
		v.entries[id] = e
	}
	return ok
}

func (v *fakeView) SelectQueueID(id int64) bool {
	_, ok := v.entries[id]
	if ok {
		v.selected = id
	}
	return ok
}

func newTestService(f *fakeCollaborators, view *fakeView) *VisitService {
	return NewVisitService(VisitDeps{
		Treatment: f,
		Queue:     f,
		Payment:   f,
		Remover:   f,
		Loader:    f,
		Saver:     f,
		View:      view,
	})
}
