package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

func entry(id int64, hn string, status models.Status) models.QueueEntry {
	return models.QueueEntry{QueueID: id, QueueNumber: int(id), HNCode: hn, PatientName: "Pasien " + hn, Status: status}
}

// openInTreatment membuka kunjungan IN_TREATMENT dengan satu obat yang belum tersimpan.
func openInTreatment(t *testing.T, f *fakeCollaborators, view *fakeView) (*VisitService, string) {
	t.Helper()
	f.visit = models.Visit{VNO: "VN001", HNCode: "HN01", Status: models.StatusInTreatment, QueueStatus: models.StatusInTreatment}
	svc := newTestService(f, view)

	v, err := svc.OpenVisit(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, svc.Orders().AddMedication(v.VNO, models.MedicationOrder{Code: "D0001", Name: "Paracetamol", Quantity: 10, Price: 500}))
	f.rec.calls = nil
	return svc, v.VNO
}

func TestOpenVisitRegistersAndSelects(t *testing.T) {
	f := newFakeCollaborators()
	f.visit = models.Visit{
		VNO: "VN001", HNCode: "HN01", Status: models.StatusWaiting,
		Medications: []models.MedicationOrder{{Code: "D0001", Name: "Paracetamol", Quantity: 1}, {Code: "D0001", Name: "Drug D0001", Quantity: 2}},
	}
	view := newFakeView(entry(1, "HN01", models.StatusWaiting))
	svc := newTestService(f, view)

	v, err := svc.OpenVisit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.QueueID)
	assert.Equal(t, models.StatusWaiting, v.QueueStatus)
	assert.Len(t, v.Medications, 1)
	assert.Equal(t, "Paracetamol", v.Medications[0].Name)
	assert.Equal(t, int64(1), view.selected)
	assert.Equal(t, "VN001", view.entries[1].VNO)
}

func TestOpenVisitKeepsDraftWhenAlreadyOpen(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)

	v, err := svc.OpenVisit(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, v.Medications, 1)
	assert.True(t, svc.Orders().Pending(vno))
	assert.Empty(t, f.rec.Calls())
}

func TestOpenVisitUnknownEntry(t *testing.T) {
	svc := newTestService(newFakeCollaborators(), newFakeView())
	_, err := svc.OpenVisit(context.Background(), 99)
	assert.ErrorIs(t, err, ErrQueueEntryNotFound)
}

func TestCompleteTreatment(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	svc.handoffDelay = 1500 * time.Millisecond

	tr, err := svc.RequestStatusChange(context.Background(), vno, models.StatusAwaitingPayment)
	require.NoError(t, err)
	assert.True(t, tr.Handoff)
	assert.Equal(t, 1500*time.Millisecond, tr.HandoffDelay)
	assert.Equal(t, models.StatusInTreatment, tr.From)
	assert.Equal(t, []string{"save", "treatment", "queue", "payment"}, f.rec.Calls())

	v, err := svc.Visit(vno)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingPayment, v.Status)
	assert.Equal(t, models.StatusAwaitingPayment, v.QueueStatus)
	assert.Equal(t, models.StatusAwaitingPayment, view.entries[1].Status)
	assert.False(t, svc.Orders().Pending(vno))
	assert.Len(t, f.savedMeds, 1)
}

func TestCompleteTreatmentFlushFailureChangesNothing(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	f.save = stubResult{res: Failed("stok obat tidak cukup")}

	_, err := svc.RequestStatusChange(context.Background(), vno, models.StatusAwaitingPayment)
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindCollaborator, kind)
	assert.Contains(t, err.Error(), "stok obat tidak cukup")

	assert.Equal(t, []string{"save"}, f.rec.Calls())
	assert.NotContains(t, f.rec.Calls(), "payment")
	v, _ := svc.Visit(vno)
	assert.Equal(t, models.StatusInTreatment, v.Status)
	assert.Equal(t, models.StatusInTreatment, v.QueueStatus)
	assert.True(t, svc.Orders().Pending(vno))
}

func TestCompleteTreatmentPhaseTwoFailureIsConsistencyRisk(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	f.treatment = stubResult{err: errors.New("timeout")}

	_, err := svc.RequestStatusChange(context.Background(), vno, models.StatusAwaitingPayment)
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindConsistencyRisk, kind)
	assert.Contains(t, err.Error(), FallbackMessage)
	assert.Equal(t, []string{"save", "treatment"}, f.rec.Calls())

	v, _ := svc.Visit(vno)
	assert.Equal(t, models.StatusInTreatment, v.Status)
}

func TestCompleteTreatmentQueueFailureKeepsMemoryUnchanged(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	f.queue = stubResult{res: Failed("antrian terkunci")}

	_, err := svc.RequestStatusChange(context.Background(), vno, models.StatusAwaitingPayment)
	kind, _ := KindOf(err)
	assert.Equal(t, KindConsistencyRisk, kind)
	assert.Equal(t, []string{"save", "treatment", "queue"}, f.rec.Calls())

	v, _ := svc.Visit(vno)
	assert.Equal(t, models.StatusInTreatment, v.Status)
	assert.Equal(t, models.StatusInTreatment, v.QueueStatus)
}

func TestCompleteTreatmentWithoutPendingItems(t *testing.T) {
	f := newFakeCollaborators()
	f.visit = models.Visit{VNO: "VN009", Status: models.StatusInTreatment, QueueStatus: models.StatusInTreatment}
	view := newFakeView(entry(9, "HN09", models.StatusInTreatment))
	svc := newTestService(f, view)
	_, err := svc.OpenVisit(context.Background(), 9)
	require.NoError(t, err)
	f.rec.calls = nil
	f.treatment = stubResult{res: Failed("")}

	_, err = svc.RequestStatusChange(context.Background(), "VN009", models.StatusAwaitingPayment)
	kind, _ := KindOf(err)
	assert.Equal(t, KindCollaborator, kind)
	assert.Equal(t, []string{"treatment"}, f.rec.Calls())
}

func TestCompleteTreatmentPaymentFailure(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	f.payment = stubResult{res: Failed("billing sedang offline")}

	tr, err := svc.RequestStatusChange(context.Background(), vno, models.StatusAwaitingPayment)
	kind, _ := KindOf(err)
	assert.Equal(t, KindConsistencyRisk, kind)
	assert.False(t, tr.Handoff)
	assert.Equal(t, models.StatusAwaitingPayment, tr.To)

	v, _ := svc.Visit(vno)
	assert.Equal(t, models.StatusAwaitingPayment, v.Status)
}

func TestRequestStatusChangeRejectsBillingStatuses(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)

	for _, target := range []models.Status{models.StatusPaid, models.StatusClosed, models.Status(42)} {
		_, err := svc.RequestStatusChange(context.Background(), vno, target)
		assert.ErrorIs(t, err, ErrIllegalTransition, target.String())
	}
	assert.Empty(t, f.rec.Calls())
}

func TestRequestStatusChangeLockedVisit(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	require.NoError(t, svc.ObserveStatus(vno, models.StatusPaid, models.StatusPaid))

	for _, target := range models.AllStatuses() {
		_, err := svc.RequestStatusChange(context.Background(), vno, target)
		assert.ErrorIs(t, err, ErrVisitLocked, target.String())
	}
	assert.Empty(t, f.rec.Calls())
}

func TestRequestStatusChangeLockedByQueueStatusOnly(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	require.NoError(t, svc.ObserveStatus(vno, 0, models.StatusAwaitingPayment))

	v, _ := svc.Visit(vno)
	assert.True(t, v.StatusDiverged())
	_, err := svc.RequestStatusChange(context.Background(), vno, models.StatusWaiting)
	assert.ErrorIs(t, err, ErrVisitLocked)
}

func TestLateralStatusChange(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)

	tr, err := svc.RequestStatusChange(context.Background(), vno, models.StatusWaiting)
	require.NoError(t, err)
	assert.False(t, tr.Handoff)
	assert.Equal(t, []string{"queue"}, f.rec.Calls())

	v, _ := svc.Visit(vno)
	assert.Equal(t, models.StatusWaiting, v.Status)
	assert.Equal(t, models.StatusWaiting, v.QueueStatus)
	assert.True(t, svc.Orders().Pending(vno), "perubahan lateral tidak menyimpan obat")
}

func TestLateralStatusChangeFailureUsesFallbackMessage(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	f.queue = stubResult{res: Failed("")}

	_, err := svc.RequestStatusChange(context.Background(), vno, models.StatusWaiting)
	require.Error(t, err)
	var engErr *EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, FallbackMessage, engErr.Message)

	v, _ := svc.Visit(vno)
	assert.Equal(t, models.StatusInTreatment, v.Status)
}

func TestUnknownVisit(t *testing.T) {
	svc := newTestService(newFakeCollaborators(), newFakeView())
	_, err := svc.RequestStatusChange(context.Background(), "VN404", models.StatusInTreatment)
	assert.ErrorIs(t, err, ErrVisitNotFound)
	assert.ErrorIs(t, svc.ObserveStatus("VN404", models.StatusPaid, 0), ErrVisitNotFound)
}

func TestCancelQueueEntry(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment), entry(2, "HN02", models.StatusWaiting))
	svc, vno := openInTreatment(t, f, view)

	require.NoError(t, svc.CancelQueueEntry(context.Background(), 1))
	assert.Equal(t, []string{"remove"}, f.rec.Calls())
	_, ok := view.Entry(1)
	assert.False(t, ok)
	_, err := svc.Visit(vno)
	assert.ErrorIs(t, err, ErrVisitNotFound)
	assert.False(t, svc.Orders().Pending(vno))
}

func TestCancelQueueEntryNotCancellable(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(3, "HN03", models.StatusAwaitingPayment))
	svc := newTestService(f, view)

	err := svc.CancelQueueEntry(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Empty(t, f.rec.Calls())
	_, ok := view.Entry(3)
	assert.True(t, ok)
}

func TestCancelQueueEntryRemoverFailure(t *testing.T) {
	f := newFakeCollaborators()
	f.remove = stubResult{res: Failed("antrian sudah dipanggil")}
	view := newFakeView(entry(4, "HN04", models.StatusWaiting))
	svc := newTestService(f, view)

	err := svc.CancelQueueEntry(context.Background(), 4)
	kind, _ := KindOf(err)
	assert.Equal(t, KindCollaborator, kind)
	_, ok := view.Entry(4)
	assert.True(t, ok)
}

func TestSyncObservesBillingStatus(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)

	refreshed := []models.QueueEntry{{QueueID: 1, VNO: vno, Status: models.StatusAwaitingPayment, VisitStatus: models.StatusPaid}}
	assert.Equal(t, 1, svc.Sync(refreshed))

	v, _ := svc.Visit(vno)
	assert.Equal(t, models.StatusPaid, v.Status)
	assert.Equal(t, models.StatusAwaitingPayment, v.QueueStatus)
	assert.ErrorIs(t, svc.Orders().AddProcedure(vno, models.ProcedureOrder{Code: "P001", Quantity: 1}), ErrVisitLocked)
}

func TestSyncNeverRegressesAfterPaid(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)

	svc.Sync([]models.QueueEntry{{QueueID: 1, VNO: vno, Status: models.StatusPaid, VisitStatus: models.StatusPaid}})
	// baris lama dari refresh berikutnya
	assert.Equal(t, 0, svc.Sync([]models.QueueEntry{{QueueID: 1, VNO: vno, Status: models.StatusInTreatment, VisitStatus: models.StatusInTreatment}}))

	v, err := svc.Visit(vno)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, v.Status)
	assert.Equal(t, models.StatusPaid, v.QueueStatus)
	assert.True(t, IsLocked(v))
	assert.Equal(t, models.StatusPaid, view.entries[1].Status)

	err = svc.Orders().AddMedication(vno, models.MedicationOrder{Code: "D0002", Quantity: 1})
	assert.ErrorIs(t, err, ErrVisitLocked)
	assert.Empty(t, f.rec.Calls())
}

func TestObserveStatusClosedIsTerminal(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)

	require.NoError(t, svc.ObserveStatus(vno, models.StatusPaid, models.StatusPaid))
	require.NoError(t, svc.ObserveStatus(vno, models.StatusClosed, 0))
	require.NoError(t, svc.ObserveStatus(vno, models.StatusPaid, models.StatusWaiting))

	v, err := svc.Visit(vno)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, v.Status)
	assert.Equal(t, models.StatusPaid, v.QueueStatus)
}

func TestSyncLogsUnknownStatus(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFakeCollaborators()
	f.visit = models.Visit{VNO: "VN001", HNCode: "HN01", Status: models.StatusInTreatment, QueueStatus: models.StatusInTreatment}
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc := NewVisitService(VisitDeps{
		Treatment: f, Queue: f, Payment: f, Remover: f, Loader: f, Saver: f,
		View:   view,
		Logger: zap.New(core),
	})
	_, err := svc.OpenVisit(context.Background(), 1)
	require.NoError(t, err)

	svc.Sync([]models.QueueEntry{{QueueID: 1, VNO: "VN001", Status: models.Status(9)}})

	entries := logs.FilterMessage("status antrian dari server tidak dapat dicatat").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "VN001", entries[0].ContextMap()["vno"])

	v, err := svc.Visit("VN001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInTreatment, v.QueueStatus)
}
