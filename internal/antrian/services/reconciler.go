package services

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

var ErrIndexOutOfRange = errors.New("indeks antrian di luar jangkauan")

// Snapshot adalah keadaan daftar antrian pada satu waktu.
// SelectedIndex selalu menunjuk ke Entries (daftar penuh), bukan ke Visible.
type Snapshot struct {
	Entries       []models.QueueEntry `json:"antrian"`
	Visible       []models.QueueEntry `json:"tampil"`
	SelectedIndex int                 `json:"selected_index"`
	Term          string              `json:"cari"`
}

// Selected mengembalikan entri yang sedang dipilih.
func (s Snapshot) Selected() (models.QueueEntry, bool) {
	if len(s.Entries) == 0 {
		return models.QueueEntry{}, false
	}
	return s.Entries[s.SelectedIndex], true
}

// Reconciler memegang daftar antrian ruang tindakan, indeks pilihan dan kata pencarian.
// Mutex hanya menjaga memori; OnChange dipanggil di luar lock.
type Reconciler struct {
	mu       sync.Mutex
	entries  []models.QueueEntry
	selected int
	term     string
	onChange func(Snapshot)
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// OnChange mendaftarkan callback yang dipanggil setelah setiap perubahan daftar.
func (r *Reconciler) OnChange(fn func(Snapshot)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	fn := r.onChange
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// clampLocked menjaga selected tetap indeks valid, atau 0 bila daftar kosong.
func (r *Reconciler) clampLocked() {
	if r.selected >= len(r.entries) {
		r.selected = len(r.entries) - 1
	}
	if r.selected < 0 {
		r.selected = 0
	}
}

// SetList mengganti seluruh daftar. Indeks pilihan hanya di-clamp.
func (r *Reconciler) SetList(list []models.QueueEntry) {
	r.mu.Lock()
	r.entries = append([]models.QueueEntry{}, list...)
	r.clampLocked()
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) indexLocked(queueID int64) int {
	for i, e := range r.entries {
		if e.QueueID == queueID {
			return i
		}
	}
	return -1
}

// Remove menghapus entri berdasarkan id antrian.
//   - entri sebelum pilihan: pilihan bergeser turun satu sehingga pasien yang sama tetap terpilih
//   - entri sesudah pilihan: pilihan tetap
//   - entri yang dipilih: pilihan jatuh ke min(indeks lama, panjang baru-1)
func (r *Reconciler) Remove(queueID int64) bool {
	r.mu.Lock()
	pos := r.indexLocked(queueID)
	if pos < 0 {
		r.mu.Unlock()
		return false
	}

	r.entries = append(r.entries[:pos], r.entries[pos+1:]...)
	if pos < r.selected {
		r.selected--
	}
	r.clampLocked()
	r.mu.Unlock()

	r.notify()
	return true
}

func matches(e models.QueueEntry, term string) bool {
	if term == "" {
		return true
	}
	fields := []string{e.PatientName, e.HNCode, e.VNO, strconv.Itoa(e.QueueNumber)}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (r *Reconciler) visibleLocked() []models.QueueEntry {
	return r.matchingLocked(r.term)
}

func (r *Reconciler) matchingLocked(term string) []models.QueueEntry {
	out := make([]models.QueueEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if matches(e, term) {
			out = append(out, e)
		}
	}
	return out
}

// Filter menyimpan kata pencarian dan mengembalikan entri yang cocok
// (nama pasien, HN, VNO, nomor antrian; tidak peka huruf besar). Indeks pilihan tidak berubah.
func (r *Reconciler) Filter(term string) []models.QueueEntry {
	r.mu.Lock()
	r.term = strings.ToLower(strings.TrimSpace(term))
	visible := r.visibleLocked()
	r.mu.Unlock()

	r.notify()
	return visible
}

// View mengembalikan snapshot yang disaring dengan term tanpa menyimpan term tersebut.
// Dipakai untuk pencarian per request agar layar lain tidak ikut tersaring.
func (r *Reconciler) View(term string) Snapshot {
	term = strings.ToLower(strings.TrimSpace(term))

	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshotLocked()
	snap.Visible = r.matchingLocked(term)
	snap.Term = term
	return snap
}

// Select memilih entri berdasarkan indeks daftar penuh.
func (r *Reconciler) Select(index int) error {
	r.mu.Lock()
	if index < 0 || index >= len(r.entries) {
		r.mu.Unlock()
		return ErrIndexOutOfRange
	}
	r.selected = index
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *Reconciler) SelectQueueID(queueID int64) bool {
	r.mu.Lock()
	pos := r.indexLocked(queueID)
	if pos < 0 {
		r.mu.Unlock()
		return false
	}
	r.selected = pos
	r.mu.Unlock()

	r.notify()
	return true
}

func (r *Reconciler) Selected() (models.QueueEntry, bool) {
	return r.Snapshot().Selected()
}

func (r *Reconciler) SelectedIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Reconciler) Entry(queueID int64) (models.QueueEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := r.indexLocked(queueID)
	if pos < 0 {
		return models.QueueEntry{}, false
	}
	return r.entries[pos], true
}

func (r *Reconciler) update(queueID int64, fn func(e *models.QueueEntry)) bool {
	r.mu.Lock()
	pos := r.indexLocked(queueID)
	if pos < 0 {
		r.mu.Unlock()
		return false
	}
	fn(&r.entries[pos])
	r.mu.Unlock()

	r.notify()
	return true
}

// UpdateStatus menyalin status yang sudah tersimpan ke entri antrian.
func (r *Reconciler) UpdateStatus(queueID int64, status models.Status) bool {
	return r.update(queueID, func(e *models.QueueEntry) { e.Status = status })
}

// AttachVisit menautkan VNO ke entri antrian setelah kunjungan dibuka.
func (r *Reconciler) AttachVisit(queueID int64, vno string) bool {
	return r.update(queueID, func(e *models.QueueEntry) { e.VNO = vno })
}

// Diverged mengembalikan id antrian yang status antriannya berbeda dengan status kunjungannya.
func (r *Reconciler) Diverged(visits []models.Visit) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []int64
	for _, v := range visits {
		pos := r.indexLocked(v.QueueID)
		if pos < 0 {
			continue
		}
		if v.StatusDiverged() || r.entries[pos].Status != v.Status {
			out = append(out, v.QueueID)
		}
	}
	return out
}

func (r *Reconciler) snapshotLocked() Snapshot {
	return Snapshot{
		Entries:       append([]models.QueueEntry{}, r.entries...),
		Visible:       r.visibleLocked(),
		SelectedIndex: r.selected,
		Term:          r.term,
	}
}

func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}
