package domain

// ExtractionSource records how a page's text was obtained.
type ExtractionSource string

const (
	SourceNativeText ExtractionSource = "native-text"
	SourceOCR        ExtractionSource = "ocr"
)

// RowStatus is the per-row outcome flag on the final report. Statuses are
// ordered by severity; when several apply, the most severe wins.
type RowStatus string

const (
	StatusOK                        RowStatus = "OK"
	StatusLowConfidence             RowStatus = "LowConfidence"
	StatusPartialParse              RowStatus = "PartialParse"
	StatusTariffNotFound            RowStatus = "TariffNotFound"
	StatusClassificationUnavailable RowStatus = "ClassificationUnavailable"
)

// severity ranks statuses for WorstOf. Higher wins.
var severity = map[RowStatus]int{
	StatusOK:                        0,
	StatusLowConfidence:             1,
	StatusPartialParse:              2,
	StatusTariffNotFound:            3,
	StatusClassificationUnavailable: 4,
}

// WorstOf returns the more severe of two row statuses.
func WorstOf(a, b RowStatus) RowStatus {
	if severity[b] > severity[a] {
		return b
	}
	return a
}
