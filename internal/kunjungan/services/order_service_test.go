package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	katalogModels "github.com/c14220110/poliklinik-treatment/internal/katalog/models"
	katalogServices "github.com/c14220110/poliklinik-treatment/internal/katalog/services"
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

func TestOrderServiceMutations(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	orders := svc.Orders()

	err := orders.AddMedication(vno, models.MedicationOrder{Code: "D0001", Quantity: 1})
	assert.ErrorIs(t, err, ErrDuplicateLineItem)

	require.NoError(t, orders.UpdateMedication(vno, models.MedicationOrder{Code: "D0001", Name: "Paracetamol", Quantity: 20, Price: 500}))
	require.NoError(t, orders.AddProcedure(vno, models.ProcedureOrder{Code: "P001", Name: "Nebulizer", Quantity: 1, Price: 50000}))
	require.NoError(t, orders.AddMedication(vno, models.MedicationOrder{Code: "D0002", Name: "CTM", Quantity: 3}))
	require.NoError(t, orders.DeleteMedication(vno, "D0002"))

	meds, procs := orders.Items(vno)
	require.Len(t, meds, 1)
	assert.Equal(t, 20, meds[0].Quantity)
	assert.Equal(t, 10000.0, meds[0].Total())
	require.Len(t, procs, 1)

	assert.ErrorIs(t, orders.DeleteProcedure(vno, "P999"), ErrLineItemNotFound)
	assert.ErrorIs(t, orders.UpdateProcedure(vno, models.ProcedureOrder{Code: "P404", Quantity: 1}), ErrLineItemNotFound)
	assert.ErrorIs(t, orders.AddProcedure(vno, models.ProcedureOrder{Code: "P002", Quantity: 0}), ErrInvalidLineItem)
	assert.Empty(t, f.rec.Calls())
}

func TestOrderServiceSave(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)

	require.NoError(t, svc.Orders().Save(context.Background(), vno))
	assert.False(t, svc.Orders().Pending(vno))

	// tanpa perubahan baru, saver tidak dipanggil lagi
	require.NoError(t, svc.Orders().Save(context.Background(), vno))
	assert.Equal(t, []string{"save"}, f.rec.Calls())
}

func TestOrderServiceRejectsLockedVisit(t *testing.T) {
	f := newFakeCollaborators()
	view := newFakeView(entry(1, "HN01", models.StatusInTreatment))
	svc, vno := openInTreatment(t, f, view)
	require.NoError(t, svc.ObserveStatus(vno, models.StatusAwaitingPayment, models.StatusAwaitingPayment))
	orders := svc.Orders()

	med := models.MedicationOrder{Code: "D0003", Quantity: 1}
	proc := models.ProcedureOrder{Code: "P003", Quantity: 1}
	errs := []error{
		orders.AddMedication(vno, med),
		orders.UpdateMedication(vno, models.MedicationOrder{Code: "D0001", Quantity: 2}),
		orders.DeleteMedication(vno, "D0001"),
		orders.AddProcedure(vno, proc),
		orders.UpdateProcedure(vno, proc),
		orders.DeleteProcedure(vno, "P003"),
		orders.Save(context.Background(), vno),
	}
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrVisitLocked)
	}
	assert.Empty(t, f.rec.Calls())

	meds, _ := orders.Items(vno)
	assert.Len(t, meds, 1)

	saveErr := orders.Save(context.Background(), vno)
	assert.Contains(t, saveErr.Error(), "data obat/tindakan tidak dapat diubah")
}

func TestOrderServiceUnknownVisit(t *testing.T) {
	svc := newTestService(newFakeCollaborators(), newFakeView())
	err := svc.Orders().AddMedication("VN404", models.MedicationOrder{Code: "D0001", Quantity: 1})
	assert.ErrorIs(t, err, ErrVisitNotFound)
}

func TestLoadSavedEnrichesFromCatalog(t *testing.T) {
	drugs := katalogServices.LookupFunc(func(_ context.Context, code string) (katalogModels.Record, bool, error) {
		if code == "D0005" {
			return katalogModels.Record{Code: code, Name: "Amoxicillin", UnitName: "Kapsul"}, true, nil
		}
		return katalogModels.Record{}, false, nil
	})
	procs := katalogServices.LookupFunc(func(_ context.Context, code string) (katalogModels.Record, bool, error) {
		return katalogModels.Record{Code: code, Name: "Jahit Luka"}, true, nil
	})

	f := newFakeCollaborators()
	f.visit = models.Visit{
		VNO:    "VN005",
		Status: models.StatusInTreatment, QueueStatus: models.StatusInTreatment,
		Medications: []models.MedicationOrder{
			{Code: "D0005", Name: "Drug D0005", UnitName: "", Quantity: 1},
			{Code: "D0006", Name: "Vitamin C", UnitName: "Tablet", Quantity: 2},
			{Code: "D0005", Name: "Amoxicillin", Quantity: 9},
		},
		Procedures: []models.ProcedureOrder{{Code: "P007", Name: "Procedure P007", Quantity: 1}},
	}
	view := newFakeView(entry(5, "HN05", models.StatusInTreatment))
	svc := NewVisitService(VisitDeps{
		Treatment: f, Queue: f, Payment: f, Remover: f, Loader: f, Saver: f, View: view,
		DrugLookup: drugs, ProcedureLookup: procs,
	})

	v, err := svc.OpenVisit(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, v.Medications, 2)
	assert.Equal(t, "Amoxicillin", v.Medications[0].Name)
	assert.Equal(t, "Kapsul", v.Medications[0].UnitName)
	assert.Equal(t, 1, v.Medications[0].Quantity)
	assert.Equal(t, "Vitamin C", v.Medications[1].Name)
	assert.Equal(t, "Jahit Luka", v.Procedures[0].Name)
	assert.False(t, svc.Orders().Pending("VN005"))
}
