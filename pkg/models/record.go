package models

// RecordStatus is the paid/unpaid state of a violation record
type RecordStatus string

const (
	StatusPagada    RecordStatus = "pagada"
	StatusPendiente RecordStatus = "pendiente"
)

// ViolationRecord is the canonical record every source adapter converges to.
// Every field except Jurisdiccion may be nil; Jurisdiccion is never empty.
// Records are immutable once built.
type ViolationRecord struct {
	Acta         *string      `json:"acta"`
	Fecha        *string      `json:"fecha"`
	Descripcion  *string      `json:"descripcion"`
	Lugar        *string      `json:"lugar"`
	Importe      *float64     `json:"importe"`
	Estado       RecordStatus `json:"estado"`
	Jurisdiccion string       `json:"jurisdiccion"`
}
