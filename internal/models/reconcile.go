package models

// CounterDrift records an elective whose stored enrolled_count disagreed with
// its non-dropped selection count.
type CounterDrift struct {
	ElectiveID string `db:"elective_id" json:"elective_id"`
	Name       string `db:"name" json:"name"`
	Before     int    `db:"before" json:"before"`
	After      int    `db:"after" json:"after"`
}

// ReconcileReport summarises a reconciliation run.
type ReconcileReport struct {
	Checked int            `json:"checked"`
	Drifted []CounterDrift `json:"drifted"`
}
