package excel

// ExcelConfig holds configuration for a workbook data source
type ExcelConfig struct {
	FilePath     string `json:"file_path"`
	SamplesSheet string `json:"samples_sheet"`
	MetricsSheet string `json:"metrics_sheet"`
}

// DefaultExcelConfig returns the sheet names written by the export notebook
func DefaultExcelConfig(path string) ExcelConfig {
	return ExcelConfig{
		FilePath:     path,
		SamplesSheet: "samples",
		MetricsSheet: "metrics",
	}
}
