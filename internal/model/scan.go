package model

import "time"

// Label is the overall risk classification.
type Label string

const (
	LabelSafe       Label = "safe"
	LabelSuspicious Label = "suspicious"
	LabelDangerous  Label = "dangerous"
	// LabelError marks a bulk item whose scan failed.
	LabelError Label = "error"
)

// ScanType identifies the input that produced a ScanResult.
type ScanType string

const (
	ScanTypeURL   ScanType = "url"
	ScanTypeEmail ScanType = "email"
	ScanTypeQR    ScanType = "qr"
)

// ML status values reported on every scan.
const (
	MLStatusDisabled    = "disabled"
	MLStatusAvailable   = "available"
	MLStatusUnavailable = "unavailable"
)

// SubScores holds the four 0-100 partial risk scores.
type SubScores struct {
	Domain        int `json:"domain"`
	Structural    int `json:"structural"`
	Language      int `json:"language"`
	APIReputation int `json:"api_reputation"`
}

// EducationItem is one piece of explanatory content.
type EducationItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ScanResult is the outcome of one URL, email, or QR scan.
type ScanResult struct {
	ID            string              `json:"id"`
	OverallScore  int                 `json:"overall_score"`
	Label         Label               `json:"label"`
	SubScores     SubScores           `json:"sub_scores"`
	Indicators    []DetectedIndicator `json:"indicators"`
	Education     []EducationItem     `json:"education"`
	APIStatus     map[string]string   `json:"api_status"`
	MLStatus      string              `json:"ml_status"`
	Intel         *IntelReport        `json:"intel,omitempty"`
	ScanType      ScanType            `json:"scan_type"`
	ScannedInput  string              `json:"scanned_input"`
	ExtractedURLs []string            `json:"extracted_urls,omitempty"`
	QR            *QRInfo             `json:"qr,omitempty"`
	ScannedAt     time.Time           `json:"scanned_at"`
}

// QRInfo describes the URL decoded from a QR image and where it led.
type QRInfo struct {
	ExtractedURL  string `json:"qr_extracted_url"`
	FinalURL      string `json:"qr_final_url"`
	RedirectCount int    `json:"qr_redirect_count"`
}

// BulkItem is one entry of a bulk scan. Exactly one of Result or Error is set.
type BulkItem struct {
	Result       *ScanResult `json:"result,omitempty"`
	Label        Label       `json:"label"`
	OverallScore *int        `json:"overall_score"`
	ScannedInput string      `json:"scanned_input"`
	Error        string      `json:"error,omitempty"`
}

// Distribution counts scored items per label.
type Distribution struct {
	Safe       int `json:"safe"`
	Suspicious int `json:"suspicious"`
	Dangerous  int `json:"dangerous"`
}

// BulkSummary aggregates the successfully scored items of a bulk scan.
type BulkSummary struct {
	Total        int          `json:"total"`
	Scanned      int          `json:"scanned"`
	Errors       int          `json:"errors"`
	AvgScore     int          `json:"avg_score"`
	HighestRisk  int          `json:"highest_risk"`
	Distribution Distribution `json:"distribution"`
}

// BulkResult is the outcome of a bulk scan, items in input order.
type BulkResult struct {
	Results []BulkItem  `json:"results"`
	Summary BulkSummary `json:"summary"`
}

// ScanRecord is the persisted summary of a scan. Indicators are not stored.
type ScanRecord struct {
	ID           string    `json:"id"`
	ScanType     ScanType  `json:"scan_type"`
	Input        string    `json:"input"`
	OverallScore int       `json:"overall_score"`
	Label        Label     `json:"label"`
	SubScores    SubScores `json:"sub_scores"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record summarizes r for persistence.
func (r *ScanResult) Record() ScanRecord {
	return ScanRecord{
		ID:           r.ID,
		ScanType:     r.ScanType,
		Input:        r.ScannedInput,
		OverallScore: r.OverallScore,
		Label:        r.Label,
		SubScores:    r.SubScores,
		CreatedAt:    r.ScannedAt,
	}
}
