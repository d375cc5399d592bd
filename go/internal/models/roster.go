package models

// AcquisitionType represents how a player joined its current roster
type AcquisitionType string

const (
	AcquisitionTypeFreeAgent AcquisitionType = "FREE_AGENT"
	AcquisitionTypeWaiver    AcquisitionType = "WAIVER"
	AcquisitionTypeAdmin     AcquisitionType = "ADMIN"
)
