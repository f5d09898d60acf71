package models

import "time"

// ExportFormat enumerates roster export renderers.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportRequest selects which selections end up in a roster export.
type ExportRequest struct {
	ElectiveID string       `json:"electiveId" validate:"omitempty,uuid"`
	Department string       `json:"department"`
	Semester   int          `json:"semester" validate:"omitempty,min=1,max=8"`
	Format     ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportResult points at a generated export file.
type ExportResult struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
